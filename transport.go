package pagelet

import "io"

// Transport is the engine's view of the response side of a request. The
// HTTP server adapter implements it over a streaming body writer; tests
// implement it over a buffer.
//
// Write appends bytes to the in-flight response. Flush pushes everything
// written so far to the client. Close finishes the response; further
// writes must fail. Done reports whether the response has finished, either
// via Close or because the peer went away.
type Transport interface {
	io.Writer

	// Status sets the response status code. It only has an effect before
	// the first flush; afterwards it is a no-op.
	Status(code int)

	Flush() error
	Close() error
	Done() bool
}
