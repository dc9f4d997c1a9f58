package pagelet

import "fmt"

// RegistryOptions configures the status and wrapper fragments of a registry.
type RegistryOptions struct {
	// WrapperID, when set, names the fragment whose markup wraps every root
	// render (layout chrome). It must exist and be unguarded.
	WrapperID string

	// NotFoundID names the fragment served when no route matches. Required,
	// must be unguarded.
	NotFoundID string

	// ServerErrorID names the fragment served when dispatch fails before
	// anything has been flushed. Required, must be unguarded.
	ServerErrorID string
}

// Registry holds the validated, immutable fragment set for one application.
// Build it once at startup; it is safe for concurrent use afterwards.
type Registry struct {
	fragments []*Fragment
	byID      map[string]*Fragment
	opts      RegistryOptions
}

// NewRegistry validates and compiles the fragment set. It rejects duplicate
// or empty ids, missing render functions, invalid patterns, unknown child
// references, child cycles and guarded status fragments.
func NewRegistry(fragments []*Fragment, opts RegistryOptions) (*Registry, error) {
	r := &Registry{
		fragments: fragments,
		byID:      make(map[string]*Fragment, len(fragments)),
		opts:      opts,
	}

	for _, f := range fragments {
		if f.ID == "" {
			return nil, fmt.Errorf("pagelet: fragment with empty id")
		}
		if _, dup := r.byID[f.ID]; dup {
			return nil, fmt.Errorf("pagelet: duplicate fragment id %q", f.ID)
		}
		if f.Render == nil {
			return nil, fmt.Errorf("pagelet: fragment %q has no render function", f.ID)
		}
		if f.Pattern != "" {
			pat, err := compilePattern(f.Pattern)
			if err != nil {
				return nil, err
			}
			f.pat = pat
		}
		r.byID[f.ID] = f
	}

	for _, f := range fragments {
		for _, child := range f.Children {
			if _, ok := r.byID[child]; !ok {
				return nil, fmt.Errorf("pagelet: fragment %q references unknown child %q", f.ID, child)
			}
		}
	}
	if err := r.checkCycles(); err != nil {
		return nil, err
	}

	for _, req := range []struct {
		name string
		id   string
	}{
		{"not-found", opts.NotFoundID},
		{"server-error", opts.ServerErrorID},
	} {
		if req.id == "" {
			return nil, fmt.Errorf("pagelet: %s fragment id is required", req.name)
		}
		f, ok := r.byID[req.id]
		if !ok {
			return nil, fmt.Errorf("pagelet: %s fragment %q is not registered", req.name, req.id)
		}
		if f.Guard != nil {
			return nil, fmt.Errorf("pagelet: %s fragment %q must not have a guard", req.name, req.id)
		}
	}

	if opts.WrapperID != "" {
		f, ok := r.byID[opts.WrapperID]
		if !ok {
			return nil, fmt.Errorf("pagelet: wrapper fragment %q is not registered", opts.WrapperID)
		}
		if f.Guard != nil {
			return nil, fmt.Errorf("pagelet: wrapper fragment %q must not have a guard", opts.WrapperID)
		}
	}

	return r, nil
}

// checkCycles walks the child graph and rejects any fragment reachable from
// itself.
func (r *Registry) checkCycles() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(r.fragments))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("pagelet: fragment %q is part of a child cycle", id)
		case done:
			return nil
		}
		state[id] = visiting
		for _, child := range r.byID[id].Children {
			if err := visit(child); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for _, f := range r.fragments {
		if err := visit(f.ID); err != nil {
			return err
		}
	}
	return nil
}

// Fragments returns the registered fragments in registration order.
func (r *Registry) Fragments() []*Fragment {
	return r.fragments
}

// Lookup returns the fragment with the given id.
func (r *Registry) Lookup(id string) (*Fragment, bool) {
	f, ok := r.byID[id]
	return f, ok
}

// NotFound returns the configured not-found fallback fragment.
func (r *Registry) NotFound() *Fragment {
	return r.byID[r.opts.NotFoundID]
}

// ServerError returns the configured server-error fragment.
func (r *Registry) ServerError() *Fragment {
	return r.byID[r.opts.ServerErrorID]
}

// Wrapper returns the configured wrapper fragment, or nil when none is set.
func (r *Registry) Wrapper() *Fragment {
	if r.opts.WrapperID == "" {
		return nil
	}
	return r.byID[r.opts.WrapperID]
}

// Tree returns root followed by its descendants in preorder. Children that
// appear under several parents are listed once per occurrence.
func (r *Registry) Tree(root *Fragment) []*Fragment {
	out := []*Fragment{root}
	for _, child := range root.Children {
		out = append(out, r.Tree(r.byID[child])...)
	}
	return out
}
