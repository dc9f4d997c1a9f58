package pagelet

import "time"

// Logger abstracts logging operations across different logging libraries.
// *slog.Logger satisfies it directly, so the value returned by NewLogger
// plugs in as-is; tests usually pass a discard logger from testsupport.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, keysAndValues ...any)
}

// Renderer is the opaque template engine contract. The engine only calls
// Render and feeds the result into the injector; template compilation and
// lookup are the implementation's concern (see the templates subpackage).
type Renderer interface {
	Render(name string, data any) (string, error)
}

// Observer receives render and flush signals for instrumentation. All
// methods must be safe for concurrent use. A nil Observer disables
// instrumentation; the middleware subpackage provides a Prometheus-backed
// implementation.
type Observer interface {
	// ObserveFragment records one fragment render with its duration and
	// whether it failed.
	ObserveFragment(fragmentID string, d time.Duration, failed bool)

	// ObserveFlush records one transport flush and the number of bytes it
	// carried.
	ObserveFlush(bytes int)
}
