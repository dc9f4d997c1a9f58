package server

import (
	"bufio"
	"bytes"
	"sync"
)

// transport adapts a Fiber response to the engine's Transport contract. It
// starts out buffered, because Fiber sends headers the moment the body
// stream writer runs: dispatch planning happens against the buffer, the
// status code is read off afterwards, and activate switches writes through
// to the live stream once the handler hands over the body writer.
type transport struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	w      *bufio.Writer
	status int
	sent   bool
	closed bool
}

func newTransport() *transport {
	return &transport{status: 200}
}

func (t *transport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, errTransportClosed
	}
	if t.w == nil {
		return t.buf.Write(p)
	}
	return t.w.Write(p)
}

// Status records the response status. It is ignored once bytes have been
// pushed to the client.
func (t *transport) Status(code int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.sent {
		t.status = code
	}
}

func (t *transport) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errTransportClosed
	}
	if t.w == nil {
		// Still buffered; bytes go out when streaming activates.
		return nil
	}
	if err := t.w.Flush(); err != nil {
		// The peer is gone. Further writes fail fast.
		t.closed = true
		return err
	}
	t.sent = true
	return nil
}

func (t *transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	if t.w != nil {
		return t.w.Flush()
	}
	return nil
}

func (t *transport) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// activate switches the transport from buffering to streaming and pushes
// anything buffered so far.
func (t *transport) activate(w *bufio.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.w = w
	if t.buf.Len() > 0 {
		if _, err := w.Write(t.buf.Bytes()); err != nil {
			t.closed = true
			return
		}
		if err := w.Flush(); err != nil {
			t.closed = true
			return
		}
		t.sent = true
		t.buf.Reset()
	}
}

// statusCode returns the status the response should carry.
func (t *transport) statusCode() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// buffered returns the body accumulated before streaming, for responses
// that finished without ever activating the stream.
func (t *transport) buffered() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.Bytes()
}
