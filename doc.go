// Package pagelet implements progressive, out-of-order page rendering.
//
// A page is decomposed into independently rendered fragments ("pagelets"),
// each with its own route pattern, optional authorization guard, and render
// function. When a request arrives the engine resolves it to an ordered
// candidate list of fragments, walks an authorization chain until exactly
// one root fragment is accepted, and then streams the page out in pieces:
// the root's markup first, with synchronous children spliced into their
// anchors, followed by asynchronous children as envelope chunks the moment
// each one finishes rendering.
//
// The moving parts:
//
//   - Fragment: the immutable, registered definition of a pagelet
//   - Registry: the validated, immutable set of fragments built at startup
//   - Router: request → ordered candidate list, backed by a pluggable cache
//   - Bootstrap: per-request coordinator tracking expected vs. completed
//     fragments, buffering output, and deciding when to flush or close
//   - Inject: pure splicing of child markup into parent anchor points
//   - Dispatcher: middleware pass-through, resolution, and render fan-out
//
// A minimal setup:
//
//	reg, err := pagelet.NewRegistry([]*pagelet.Fragment{
//	    {ID: "home", Pattern: "/", Children: []string{"nav", "feed"}, Render: renderHome},
//	    {ID: "nav", Render: renderNav},
//	    {ID: "feed", Mode: pagelet.ModeAsync, Render: renderFeed},
//	    {ID: "not-found", Render: render404},
//	    {ID: "server-error", Render: render500},
//	}, pagelet.RegistryOptions{NotFoundID: "not-found", ServerErrorID: "server-error"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	d, err := pagelet.NewDispatcher(pagelet.DispatcherConfig{
//	    Registry: reg,
//	    Router:   pagelet.NewRouter(reg, cache.NewMemoryStore(), logger),
//	    Pool:     pagelet.NewInstancePool(256),
//	    Logger:   logger,
//	})
//
// The engine itself is transport-agnostic: it writes to the Transport
// interface. The server subpackage provides a Fiber-based adapter that
// streams chunks over HTTP and exposes the live update channel.
package pagelet
