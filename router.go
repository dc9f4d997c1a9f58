package pagelet

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/singleflight"

	"github.com/karloscodes/pagelet/cache"
)

// Router resolves requests to ordered candidate fragment lists. Resolution
// results are memoized in a cache store keyed by method and path; the
// not-found fallback is appended at lookup time and never stored, so cached
// entries stay valid when the fallback configuration changes.
type Router struct {
	reg   *Registry
	store cache.Store
	log   Logger
	group singleflight.Group
}

// NewRouter builds a router over the given registry. A nil store disables
// resolution caching.
func NewRouter(reg *Registry, store cache.Store, log Logger) *Router {
	return &Router{reg: reg, store: store, log: log}
}

// Resolve returns the candidate fragments for a request, most specific
// first, always ending with the not-found fallback. When explicitID is set
// the path is ignored and the named fragment (if registered) is the only
// candidate before the fallback.
func (rt *Router) Resolve(ctx context.Context, method, path, explicitID string) []*Fragment {
	if explicitID != "" {
		var out []*Fragment
		if f, ok := rt.reg.Lookup(explicitID); ok {
			out = append(out, f)
		} else {
			rt.log.Warn("unknown explicit fragment id", "fragment_id", explicitID)
		}
		return append(out, rt.reg.NotFound())
	}

	key := method + "@" + path
	if ids, ok := rt.cachedIDs(ctx, key); ok {
		if frags, ok := rt.materialize(ids); ok {
			return append(frags, rt.reg.NotFound())
		}
		// A cached id no longer resolves; fall through to a fresh scan.
		rt.log.Debug("stale route cache entry", "key", key)
	}

	v, _, _ := rt.group.Do(key, func() (any, error) {
		frags := rt.scan(method, path)
		rt.storeIDs(ctx, key, frags)
		return frags, nil
	})
	frags := v.([]*Fragment)

	return append(append([]*Fragment(nil), frags...), rt.reg.NotFound())
}

// scan walks the registry in registration order and collects every routable
// fragment whose pattern and method set match.
func (rt *Router) scan(method, path string) []*Fragment {
	var out []*Fragment
	for _, f := range rt.reg.Fragments() {
		if !f.Routable() || !f.AllowsMethod(method) {
			continue
		}
		if _, ok := f.MatchPath(path); ok {
			out = append(out, f)
		}
	}
	return out
}

func (rt *Router) cachedIDs(ctx context.Context, key string) ([]string, bool) {
	if rt.store == nil {
		return nil, false
	}
	raw, ok := rt.store.Read(ctx, key)
	if !ok {
		return nil, false
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		rt.log.Warn("corrupt route cache entry", "key", key, "error", err)
		return nil, false
	}
	return ids, true
}

func (rt *Router) materialize(ids []string) ([]*Fragment, bool) {
	frags := make([]*Fragment, 0, len(ids))
	for _, id := range ids {
		f, ok := rt.reg.Lookup(id)
		if !ok {
			return nil, false
		}
		frags = append(frags, f)
	}
	return frags, true
}

func (rt *Router) storeIDs(ctx context.Context, key string, frags []*Fragment) {
	if rt.store == nil {
		return
	}
	ids := make([]string, len(frags))
	for i, f := range frags {
		ids[i] = f.ID
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := rt.store.Write(ctx, key, raw); err != nil {
		rt.log.Warn("failed to cache route resolution", "key", key, "error", err)
	}
}

// InvalidateRoute drops the cached resolution for one method and path.
func (rt *Router) InvalidateRoute(ctx context.Context, method, path string) {
	if rt.store == nil {
		return
	}
	if err := rt.store.Delete(ctx, method+"@"+path); err != nil {
		rt.log.Warn("failed to invalidate route", "method", method, "path", path, "error", err)
	}
}

// InvalidateAll clears the whole resolution cache.
func (rt *Router) InvalidateAll(ctx context.Context) {
	if rt.store == nil {
		return
	}
	if err := rt.store.Clear(ctx); err != nil {
		rt.log.Warn("failed to clear route cache", "error", err)
	}
}
