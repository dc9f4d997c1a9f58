package pagelet

import (
	"context"
	"fmt"
)

// AuthChain selects the first candidate fragment the request is permitted
// to use as its root. Guard errors are treated as denials so a failing
// authorization backend degrades to the next candidate instead of taking
// the page down.
type AuthChain struct {
	pool *InstancePool
	log  Logger
}

// NewAuthChain builds a chain drawing instances from the given pool.
func NewAuthChain(pool *InstancePool, log Logger) *AuthChain {
	return &AuthChain{pool: pool, log: log}
}

// Select walks the candidates in order and returns an instance for the
// first one whose guard permits the request. Route parameters are bound
// before the guard runs. Rejected instances go back to the pool; the
// returned instance is the caller's to release.
func (a *AuthChain) Select(ctx context.Context, req *Request, candidates []*Fragment) (*Instance, error) {
	for _, f := range candidates {
		inst := a.pool.Acquire(f, req)
		if params, ok := f.MatchPath(req.Path); ok {
			inst.Params = params
		}

		if f.Guard == nil {
			return inst, nil
		}

		permitted, err := f.Guard(ctx, inst)
		if err != nil {
			a.log.Warn("guard failed, treating as denial",
				"fragment_id", f.ID, "path", req.Path, "error", err)
		}
		if permitted && err == nil {
			return inst, nil
		}

		a.pool.Release(inst)
	}

	return nil, fmt.Errorf("pagelet: %s %s: %w", req.Method, req.Path, ErrNoCandidate)
}
