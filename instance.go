package pagelet

import "sync"

// Instance is the per-request state of one fragment. Instances are pooled;
// Render and Guard implementations must not retain them past the call.
type Instance struct {
	frag *Fragment

	// Params holds the route parameters extracted while matching the
	// fragment's pattern against the request path.
	Params Params

	// Data is scratch space for guards and renders, cleared between uses.
	Data map[string]any

	// Request is the request this instance belongs to.
	Request *Request

	bs *Bootstrap
}

// Fragment returns the immutable definition this instance was built from.
func (in *Instance) Fragment() *Fragment {
	return in.frag
}

// ID returns the fragment id, for logging and envelope addressing.
func (in *Instance) ID() string {
	if in.frag == nil {
		return ""
	}
	return in.frag.ID
}

// Bootstrap returns the per-request flush coordinator, or nil while the
// instance is only being evaluated by the authorization chain.
func (in *Instance) Bootstrap() *Bootstrap {
	return in.bs
}

// Param returns a route parameter by name, or "" when absent.
func (in *Instance) Param(name string) string {
	return in.Params[name]
}

func (in *Instance) reset() {
	in.frag = nil
	in.Params = nil
	in.Request = nil
	in.bs = nil
	for k := range in.Data {
		delete(in.Data, k)
	}
}

// InstancePool recycles Instance values between requests. A zero max keeps
// no instances and effectively disables pooling.
type InstancePool struct {
	mu   sync.Mutex
	free []*Instance
	max  int
}

// NewInstancePool returns a pool that retains at most max idle instances.
func NewInstancePool(max int) *InstancePool {
	if max < 0 {
		max = 0
	}
	return &InstancePool{max: max}
}

// Acquire returns a reset instance bound to the given fragment and request.
func (p *InstancePool) Acquire(frag *Fragment, req *Request) *Instance {
	p.mu.Lock()
	var in *Instance
	if n := len(p.free); n > 0 {
		in = p.free[n-1]
		p.free = p.free[:n-1]
	}
	p.mu.Unlock()

	if in == nil {
		in = &Instance{Data: make(map[string]any)}
	}
	in.frag = frag
	in.Request = req
	return in
}

// Release resets the instance and returns it to the pool if there is room.
func (p *InstancePool) Release(in *Instance) {
	if in == nil {
		return
	}
	in.reset()

	p.mu.Lock()
	if len(p.free) < p.max {
		p.free = append(p.free, in)
	}
	p.mu.Unlock()
}

// Idle reports how many instances are currently parked in the pool.
func (p *InstancePool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
