package pagelet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ErrorDataKey is the Instance.Data key under which the dispatcher exposes
// the failure message to the server-error fragment.
const ErrorDataKey = "error"

// Middleware is one engine-level layer run before resolution. Returning
// handled true stops dispatch; the layer owns the response. Returning an
// error finishes the response through the server-error fragment.
type Middleware func(ctx context.Context, req *Request, t Transport) (handled bool, err error)

// DispatcherConfig carries the collaborators of a Dispatcher.
type DispatcherConfig struct {
	Registry *Registry
	Router   *Router
	Pool     *InstancePool
	Logger   Logger

	// Observer, when set, receives render and flush signals.
	Observer Observer

	// MaxConcurrentRenders bounds fragment renders running at once across
	// one dispatcher. Defaults to 8.
	MaxConcurrentRenders int

	// FormHook, when set, runs once per request that carried form data,
	// before resolution.
	FormHook FormHook

	// Publish, when set, receives every streamed envelope for fan-out to
	// the live update channel.
	Publish func(bootstrapID, fragmentID, view string)
}

// Dispatcher drives one request from middleware through resolution,
// authorization, rendering and streaming. One dispatcher serves all
// requests of an application.
type Dispatcher struct {
	reg      *Registry
	router   *Router
	pool     *InstancePool
	log      Logger
	observer Observer
	formHook FormHook
	publish  func(bootstrapID, fragmentID, view string)
	sem      *semaphore.Weighted

	middleware []namedMiddleware
	names      map[string]struct{}
}

type namedMiddleware struct {
	name string
	fn   Middleware
}

// NewDispatcher builds a dispatcher from its collaborators.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Registry == nil || cfg.Router == nil || cfg.Pool == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("pagelet: dispatcher requires registry, router, pool and logger")
	}
	max := cfg.MaxConcurrentRenders
	if max <= 0 {
		max = 8
	}
	return &Dispatcher{
		reg:      cfg.Registry,
		router:   cfg.Router,
		pool:     cfg.Pool,
		log:      cfg.Logger,
		observer: cfg.Observer,
		formHook: cfg.FormHook,
		publish:  cfg.Publish,
		sem:      semaphore.NewWeighted(int64(max)),
		names:    make(map[string]struct{}),
	}, nil
}

// Use appends a named middleware layer. Names must be unique; a duplicate
// is a startup error.
func (d *Dispatcher) Use(name string, fn Middleware) error {
	if name == "" {
		return fmt.Errorf("pagelet: middleware name is required")
	}
	if _, dup := d.names[name]; dup {
		return fmt.Errorf("pagelet: duplicate middleware %q", name)
	}
	d.names[name] = struct{}{}
	d.middleware = append(d.middleware, namedMiddleware{name: name, fn: fn})
	return nil
}

// planNode is one fragment instance in the render tree of a request.
type planNode struct {
	inst     *Instance
	async    bool
	children []*planNode
}

// Plan is the prepared, not-yet-rendered state of one request. The server
// adapter runs Plan while the response is still buffered (so the status
// code can be set), then Execute once streaming is available.
type Plan struct {
	req       *Request
	bs        *Bootstrap
	root      *planNode
	status    int
	done      bool
	instances []*Instance
	wg        sync.WaitGroup

	// baseReady is closed once the root markup has been handed to the
	// bootstrap, so streamed envelopes can never get queued ahead of it.
	baseReady chan struct{}
}

// Status returns the HTTP status the response will carry.
func (p *Plan) Status() int {
	return p.status
}

// Bootstrap returns the request's flush coordinator.
func (p *Plan) Bootstrap() *Bootstrap {
	return p.bs
}

// Plan runs middleware, the form hook, resolution and authorization, and
// builds the render tree. It writes to the transport only when a middleware
// fails or handles the request outright. The returned error signals a
// configuration defect, not a user-facing condition.
func (d *Dispatcher) Plan(ctx context.Context, req *Request, t Transport) (*Plan, error) {
	p := &Plan{req: req, status: 200, baseReady: make(chan struct{})}

	for _, mw := range d.middleware {
		handled, err := mw.fn(ctx, req, t)
		if err != nil {
			d.log.Warn("middleware failed", "middleware", mw.name, "path", req.Path, "error", err)
			p.bs = d.newBootstrap(req, 1, t)
			p.bs.End(fmt.Errorf("pagelet: middleware %s: %w", mw.name, err))
			p.status = 500
			p.done = true
			return p, nil
		}
		if handled {
			if err := t.Close(); err != nil {
				d.log.Warn("failed to close transport", "middleware", mw.name, "error", err)
			}
			p.done = true
			return p, nil
		}
	}

	if d.formHook != nil && req.HasForm() {
		d.formHook(req, req.Fields, req.Files)
	}

	candidates := d.router.Resolve(ctx, req.Method, req.Path, req.FragmentID)
	chain := NewAuthChain(d.pool, d.log)
	rootInst, err := chain.Select(ctx, req, candidates)
	if err != nil {
		return nil, err
	}

	if rootInst.frag == d.reg.NotFound() {
		p.status = 404
	}
	t.Status(p.status)

	participants := len(d.reg.Tree(rootInst.frag))
	rootNode := d.buildNode(rootInst, p)
	if w := d.reg.Wrapper(); w != nil && req.FragmentID == "" && rootInst.frag != w {
		wrapNode := &planNode{inst: d.trackInstance(d.pool.Acquire(w, req), p)}
		rootNode.async = false
		wrapNode.children = []*planNode{rootNode}
		rootNode = wrapNode
		participants++
	}
	p.root = rootNode

	p.bs = d.newBootstrap(req, participants, t)
	for _, in := range p.instances {
		in.bs = p.bs
	}
	return p, nil
}

// buildNode wraps an already-acquired instance and recursively acquires
// instances for its descendants. Children inherit the parent's route
// parameters.
func (d *Dispatcher) buildNode(inst *Instance, p *Plan) *planNode {
	node := &planNode{inst: d.trackInstance(inst, p), async: inst.frag.Mode == ModeAsync}
	for _, childID := range inst.frag.Children {
		child, _ := d.reg.Lookup(childID)
		ci := d.pool.Acquire(child, inst.Request)
		ci.Params = inst.Params
		node.children = append(node.children, d.buildNode(ci, p))
	}
	return node
}

func (d *Dispatcher) trackInstance(in *Instance, p *Plan) *Instance {
	p.instances = append(p.instances, in)
	return in
}

func (d *Dispatcher) newBootstrap(req *Request, participants int, t Transport) *Bootstrap {
	return NewBootstrap(BootstrapConfig{
		ID:           req.ID,
		Participants: participants,
		Transport:    t,
		RenderError:  d.errorMarkup(req),
		Observer:     d.observer,
		Logger:       d.log,
	})
}

// errorMarkup renders the server-error fragment with the failure attached.
// It runs under the bootstrap mutex, so the error fragment must not touch
// the bootstrap; its instance is deliberately left unbound.
func (d *Dispatcher) errorMarkup(req *Request) func(error) string {
	return func(cause error) string {
		f := d.reg.ServerError()
		inst := d.pool.Acquire(f, req)
		defer d.pool.Release(inst)
		inst.Data[ErrorDataKey] = cause.Error()

		out, err := f.Render(context.Background(), inst)
		if err != nil {
			d.log.Error("server-error fragment failed", "request_id", req.ID, "error", err)
			return "<!-- render failed -->"
		}
		return out
	}
}

// Execute renders the planned tree and streams it. It returns once the
// response has finished; stragglers from a failed request are drained in
// the background before instances return to the pool.
func (d *Dispatcher) Execute(ctx context.Context, p *Plan) error {
	if p.done {
		d.releaseLater(p)
		return nil
	}

	markup, err := d.renderSubtree(ctx, p, p.root)
	if err != nil {
		p.bs.End(err)
		close(p.baseReady)
	} else {
		if werr := p.bs.Write(markup); werr != nil {
			d.log.Warn("failed to write base markup", "request_id", p.req.ID, "error", werr)
		}
		if ferr := p.bs.Flush(true); ferr != nil && ferr != ErrClosed {
			d.log.Warn("failed to open flush gate", "request_id", p.req.ID, "error", ferr)
		}
		close(p.baseReady)
		p.bs.End(nil)
	}

	<-p.bs.Done()
	d.releaseLater(p)
	return nil
}

// Dispatch runs Plan and Execute back to back over a transport that can
// stream immediately.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request, t Transport) error {
	p, err := d.Plan(ctx, req, t)
	if err != nil {
		return err
	}
	return d.Execute(ctx, p)
}

// renderSubtree renders a node's markup with all its synchronous
// descendants spliced in, and spawns its asynchronous descendants. Sync
// children render concurrently; their completions are counted in splice
// order. Async children queue their envelopes behind the flush gate, so
// spawning before the base markup is written is safe.
func (d *Dispatcher) renderSubtree(ctx context.Context, p *Plan, node *planNode) (string, error) {
	markup, err := d.renderOne(ctx, node.inst)
	if err != nil {
		return "", err
	}

	var syncKids, asyncKids []*planNode
	for _, child := range node.children {
		if child.async {
			asyncKids = append(asyncKids, child)
		} else {
			syncKids = append(syncKids, child)
		}
	}

	if len(syncKids) > 0 {
		results := make([]string, len(syncKids))
		g, gctx := errgroup.WithContext(ctx)
		for i, kid := range syncKids {
			i, kid := i, kid
			g.Go(func() error {
				if err := d.sem.Acquire(gctx, 1); err != nil {
					return fmt.Errorf("pagelet: render %s: %w", kid.inst.ID(), err)
				}
				defer d.sem.Release(1)
				out, err := d.renderSubtree(gctx, p, kid)
				if err != nil {
					return err
				}
				results[i] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return "", err
		}
		for i, kid := range syncKids {
			spliced := Inject(markup, results[i], kid.inst.ID())
			if spliced == markup && results[i] != "" {
				d.log.Warn("no anchor for fragment, appending",
					"fragment_id", kid.inst.ID(), "parent", node.inst.ID())
				spliced = markup + results[i]
			}
			markup = spliced
			p.bs.End(nil)
		}
	}

	for _, kid := range asyncKids {
		p.wg.Add(1)
		go d.streamAsync(ctx, p, kid)
	}

	return markup, nil
}

// streamAsync renders one async subtree and streams it as an envelope.
func (d *Dispatcher) streamAsync(ctx context.Context, p *Plan, node *planNode) {
	defer p.wg.Done()

	if err := d.sem.Acquire(ctx, 1); err != nil {
		p.bs.End(fmt.Errorf("pagelet: render %s: %w", node.inst.ID(), err))
		return
	}
	view, err := d.renderSubtree(ctx, p, node)
	d.sem.Release(1)

	// The base markup must reach the queue first.
	<-p.baseReady

	if err != nil {
		p.bs.End(err)
		return
	}

	if err := p.bs.Write(Envelope(node.inst.ID(), view)); err != nil {
		d.log.Debug("dropped envelope for finished response",
			"request_id", p.req.ID, "fragment_id", node.inst.ID())
		// Still count the completion: if the peer vanished mid-stream this
		// is what unblocks Done for the remaining participants.
		p.bs.End(nil)
		return
	}
	if d.publish != nil {
		d.publish(p.bs.ID(), node.inst.ID(), view)
	}
	p.bs.End(nil)
}

// renderOne runs a single fragment render with instrumentation and panic
// containment.
func (d *Dispatcher) renderOne(ctx context.Context, inst *Instance) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pagelet: render %s panicked: %v", inst.ID(), r)
			d.log.Error("fragment render panicked", "fragment_id", inst.ID(), "panic", r)
		}
	}()

	start := time.Now()
	out, err = inst.frag.Render(ctx, inst)
	if d.observer != nil {
		d.observer.ObserveFragment(inst.ID(), time.Since(start), err != nil)
	}
	if err != nil {
		return "", fmt.Errorf("pagelet: render %s: %w", inst.ID(), err)
	}
	return out, nil
}

// releaseLater returns the plan's instances to the pool once every
// straggling render has exited.
func (d *Dispatcher) releaseLater(p *Plan) {
	go func() {
		p.wg.Wait()
		for _, in := range p.instances {
			d.pool.Release(in)
		}
	}()
}
