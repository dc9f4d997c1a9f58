package pagelet

import (
	"strings"
	"sync"
)

// EndResult describes the outcome of a Bootstrap.End call.
type EndResult int

const (
	// EndNotReady means other participants are still pending and the
	// response stays open.
	EndNotReady EndResult = iota

	// EndClosed means this call finished the response.
	EndClosed

	// EndAlreadyClosed means the response was already finished when the
	// call arrived.
	EndAlreadyClosed
)

func (r EndResult) String() string {
	switch r {
	case EndNotReady:
		return "not-ready"
	case EndClosed:
		return "closed"
	case EndAlreadyClosed:
		return "already-closed"
	default:
		return "unknown"
	}
}

// Bootstrap coordinates the progressive response of one request. Fragment
// renders queue their output through Write; nothing reaches the transport
// until the gate opens via Flush(true), which happens once the root markup
// has been written. Each participant calls End when it is finished; the
// call that brings the count to the participant total closes the response.
//
// All methods are safe for concurrent use. Queue state and the done
// channel are owned by the mutex; Done may be received from freely.
type Bootstrap struct {
	mu sync.Mutex

	id          string
	queue       []string
	flushed     bool
	ended       bool
	n           int
	total       int
	wrote       bool
	transport   Transport
	renderError func(error) string
	observer    Observer
	log         Logger
	done        chan struct{}
}

// BootstrapConfig carries the collaborators of one Bootstrap.
type BootstrapConfig struct {
	// ID identifies the request, for logging and the live channel.
	ID string

	// Participants is the number of End(nil) calls required to close the
	// response. Clamped to at least one.
	Participants int

	// Transport receives the response bytes.
	Transport Transport

	// RenderError formats a failure into the markup appended before the
	// response is force-closed. A nil func falls back to a minimal comment.
	RenderError func(error) string

	// Observer, when set, receives flush signals.
	Observer Observer

	Logger Logger
}

// NewBootstrap builds the coordinator for one request.
func NewBootstrap(cfg BootstrapConfig) *Bootstrap {
	if cfg.Participants < 1 {
		cfg.Participants = 1
	}
	renderError := cfg.RenderError
	if renderError == nil {
		renderError = func(error) string { return "<!-- render failed -->" }
	}
	return &Bootstrap{
		id:          cfg.ID,
		total:       cfg.Participants,
		transport:   cfg.Transport,
		renderError: renderError,
		observer:    cfg.Observer,
		log:         cfg.Logger,
		done:        make(chan struct{}),
	}
}

// ID returns the request identifier this bootstrap belongs to.
func (b *Bootstrap) ID() string {
	return b.id
}

// Done returns a channel closed when the response has finished.
func (b *Bootstrap) Done() <-chan struct{} {
	return b.done
}

// Write queues markup for delivery and flushes it if the gate is open.
// It fails with ErrClosed once the response has finished.
func (b *Bootstrap) Write(view string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ended || b.transport.Done() {
		return ErrClosed
	}
	b.queue = append(b.queue, view)
	return b.flushLocked()
}

// Flush pushes any queued markup to the client. Passing true opens the
// gate; until then queued output is held back so the root markup always
// reaches the client first.
func (b *Bootstrap) Flush(gate ...bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ended || b.transport.Done() {
		return ErrClosed
	}
	if len(gate) > 0 && gate[0] {
		b.flushed = true
	}
	return b.flushLocked()
}

// flushLocked drains the queue to the transport if the gate is open.
// Callers hold b.mu.
func (b *Bootstrap) flushLocked() error {
	if !b.flushed || len(b.queue) == 0 {
		return nil
	}

	payload := strings.Join(b.queue, "")
	b.queue = b.queue[:0]

	if _, err := b.transport.Write([]byte(payload)); err != nil {
		return err
	}
	if err := b.transport.Flush(); err != nil {
		return err
	}
	b.wrote = true
	if b.observer != nil {
		b.observer.ObserveFlush(len(payload))
	}
	return nil
}

// End marks one participant finished. A nil cause counts the participant
// down; the final call flushes whatever remains and closes the response.
// A non-nil cause finishes the response immediately: if nothing has been
// flushed yet the status is set to 500, then the error markup is appended
// and the connection is closed without aborting bytes already on the wire.
func (b *Bootstrap) End(cause error) EndResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ended {
		return EndAlreadyClosed
	}
	if b.transport.Done() {
		// The peer went away mid-stream. Nothing can reach it anymore, so
		// skip the transport entirely, but still finish the bookkeeping:
		// waiters on Done must unblock or the request leaks its goroutine
		// and instances.
		b.ended = true
		close(b.done)
		b.log.Debug("peer disconnected before the response finished", "request_id", b.id)
		return EndAlreadyClosed
	}

	if cause != nil {
		b.ended = true
		if !b.wrote {
			b.transport.Status(500)
		}
		b.queue = append(b.queue, b.renderError(cause))
		b.flushed = true
		if err := b.flushLocked(); err != nil {
			b.log.Warn("failed to flush error payload", "request_id", b.id, "error", err)
		}
		b.closeLocked()
		b.log.Error("response finished with error", "request_id", b.id, "error", cause)
		return EndClosed
	}

	if b.n < b.total {
		b.n++
	}
	if b.n < b.total {
		return EndNotReady
	}

	b.ended = true
	b.flushed = true
	if err := b.flushLocked(); err != nil {
		b.log.Warn("failed to flush final payload", "request_id", b.id, "error", err)
	}
	b.closeLocked()
	return EndClosed
}

// closeLocked closes the transport and signals Done. Callers hold b.mu and
// have already set ended.
func (b *Bootstrap) closeLocked() {
	if err := b.transport.Close(); err != nil {
		b.log.Warn("failed to close transport", "request_id", b.id, "error", err)
	}
	close(b.done)
}
