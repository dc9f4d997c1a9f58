// Package testsupport holds shared helpers for the engine's tests.
package testsupport

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/karloscodes/pagelet"
)

// NewTestLogger creates a slog.Logger that discards all output.
// Use this for tests where you don't need to verify log messages.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewRequest builds an engine request the way the server adapter would.
func NewRequest(method, path string) *pagelet.Request {
	return &pagelet.Request{
		ID:     "test-request",
		Method: method,
		Path:   path,
		Query:  url.Values{},
		Header: http.Header{},
	}
}

// Transport is an in-memory Transport capturing everything the engine
// pushes through it. Safe for concurrent use.
type Transport struct {
	mu      sync.Mutex
	body    bytes.Buffer
	pending bytes.Buffer
	flushes []string
	status  int
	closed  bool
}

// NewTransport creates an open in-memory transport.
func NewTransport() *Transport {
	return &Transport{status: 200}
}

func (t *Transport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.body.Write(p)
	return t.pending.Write(p)
}

func (t *Transport) Status(code int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.flushes) == 0 {
		t.status = code
	}
}

func (t *Transport) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flushes = append(t.flushes, t.pending.String())
	t.pending.Reset()
	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *Transport) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Body returns everything written so far, flushed or not.
func (t *Transport) Body() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.body.String()
}

// Flushes returns the payload of each flush in order.
func (t *Transport) Flushes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.flushes...)
}

// StatusCode returns the status the response would carry.
func (t *Transport) StatusCode() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Closed reports whether the transport has been closed.
func (t *Transport) Closed() bool {
	return t.Done()
}

var _ pagelet.Transport = (*Transport)(nil)
