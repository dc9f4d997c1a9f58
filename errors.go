package pagelet

import "errors"

// Sentinel errors returned by the engine. Callers should match them with
// errors.Is since they are usually wrapped with request context.
var (
	// ErrClosed is returned by Bootstrap.Write and Bootstrap.Flush when the
	// underlying transport has already finished. Writes are never retried.
	ErrClosed = errors.New("pagelet: response already closed")

	// ErrNoCandidate is returned by the authorization chain when every
	// candidate was denied. The registry guarantees an unguarded fallback,
	// so hitting this at request time means the registration set was built
	// outside NewRegistry.
	ErrNoCandidate = errors.New("pagelet: no authorized candidate")
)
