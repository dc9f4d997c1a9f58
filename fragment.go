package pagelet

import (
	"context"
	"fmt"
	"strings"
)

// Mode controls how a child fragment reaches the client.
type Mode int

const (
	// ModeSync renders the fragment before the first flush and splices its
	// markup into the parent's anchor point.
	ModeSync Mode = iota

	// ModeAsync streams the fragment as an envelope chunk whenever its
	// render completes, after the parent markup has been flushed.
	ModeAsync
)

func (m Mode) String() string {
	switch m {
	case ModeSync:
		return "sync"
	case ModeAsync:
		return "async"
	default:
		return "unknown"
	}
}

// GuardFunc is an asynchronous authorization predicate evaluated against a
// candidate instance. Route parameters are attached to the instance before
// the guard runs. Only an explicit true accepts the candidate.
type GuardFunc func(ctx context.Context, inst *Instance) (bool, error)

// RenderFunc produces the fragment's markup for one request.
type RenderFunc func(ctx context.Context, inst *Instance) (string, error)

// Fragment is the immutable, registered definition of a pagelet. Fragments
// are registered once at startup through NewRegistry and never mutated
// afterwards; per-request state lives on Instance.
type Fragment struct {
	// ID is the stable identifier. Required and unique per registry.
	ID string

	// Pattern is the route path matcher, e.g. "/users/:id" or "/docs/*rest".
	// Empty means the fragment is not routable (child-only fragments, status
	// fragments selected by id).
	Pattern string

	// Methods restricts which HTTP methods match. Empty means any.
	Methods []string

	// Mode selects splice-before-flush or stream-after-flush delivery.
	// Only meaningful for child fragments.
	Mode Mode

	// Guard, when set, must resolve true for the fragment to be selected as
	// a request's root. Nil means automatically permitted.
	Guard GuardFunc

	// Render produces the fragment's markup. Required.
	Render RenderFunc

	// Children lists the ids of fragments rendered under this one, in
	// anchor order.
	Children []string

	pat *routePattern // compiled by NewRegistry
}

// Routable reports whether the fragment participates in path matching.
func (f *Fragment) Routable() bool {
	return f.pat != nil
}

// MatchPath matches the fragment's pattern against a request path and
// returns the extracted route parameters. Fragments without a pattern
// never match.
func (f *Fragment) MatchPath(path string) (Params, bool) {
	if f.pat == nil {
		return nil, false
	}
	return f.pat.match(path)
}

// AllowsMethod reports whether the fragment accepts the given HTTP method.
// An empty method list accepts everything.
func (f *Fragment) AllowsMethod(method string) bool {
	if len(f.Methods) == 0 {
		return true
	}
	for _, m := range f.Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// Params holds route parameters extracted from a path pattern.
type Params map[string]string

// routePattern is a compiled path matcher. Segments are literal, named
// (":id") or catch-all ("*rest", final segment only).
type routePattern struct {
	raw      string
	segments []patternSegment
}

type patternSegment struct {
	literal  string
	param    string
	catchAll bool
}

func compilePattern(raw string) (*routePattern, error) {
	if !strings.HasPrefix(raw, "/") {
		return nil, fmt.Errorf("pagelet: pattern %q must start with /", raw)
	}

	p := &routePattern{raw: raw}
	if raw == "/" {
		return p, nil
	}

	parts := strings.Split(strings.Trim(raw, "/"), "/")
	for i, part := range parts {
		switch {
		case part == "":
			return nil, fmt.Errorf("pagelet: pattern %q has an empty segment", raw)
		case strings.HasPrefix(part, ":"):
			name := part[1:]
			if name == "" {
				return nil, fmt.Errorf("pagelet: pattern %q has an unnamed parameter", raw)
			}
			p.segments = append(p.segments, patternSegment{param: name})
		case strings.HasPrefix(part, "*"):
			if i != len(parts)-1 {
				return nil, fmt.Errorf("pagelet: pattern %q has a catch-all before the final segment", raw)
			}
			name := part[1:]
			if name == "" {
				name = "*"
			}
			p.segments = append(p.segments, patternSegment{param: name, catchAll: true})
		default:
			p.segments = append(p.segments, patternSegment{literal: part})
		}
	}

	return p, nil
}

func (p *routePattern) match(path string) (Params, bool) {
	if p.raw == "/" {
		if path == "/" || path == "" {
			return nil, true
		}
		return nil, false
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if path == "/" || path == "" {
		parts = nil
	}

	var params Params
	for i, seg := range p.segments {
		if seg.catchAll {
			if params == nil {
				params = make(Params)
			}
			params[seg.param] = strings.Join(parts[i:], "/")
			return params, true
		}
		if i >= len(parts) {
			return nil, false
		}
		switch {
		case seg.param != "":
			if parts[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(Params)
			}
			params[seg.param] = parts[i]
		case seg.literal != parts[i]:
			return nil, false
		}
	}

	if len(parts) != len(p.segments) {
		return nil, false
	}
	return params, true
}
