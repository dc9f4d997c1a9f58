// Package live fans streamed fragment envelopes out to clients that keep a
// websocket open after the initial page delivery. Subscriptions are keyed by
// the request id the page was served under, so a reconnecting client picks
// up updates for exactly its own page.
package live

import (
	"encoding/json"
	"sync"

	"github.com/karloscodes/pagelet"
)

// Conn is the hub's view of one client connection. The server adapter
// implements it over a websocket; tests implement it over a channel.
type Conn interface {
	// Send delivers one message to the client. An error detaches the
	// connection.
	Send(payload []byte) error

	// Close tears the connection down.
	Close() error
}

// Update is the payload broadcast for one streamed fragment.
type Update struct {
	RequestID  string `json:"request_id"`
	FragmentID string `json:"fragment_id"`
	View       string `json:"view"`
}

// Hub tracks live connections by request id and broadcasts fragment
// updates to them. All methods are safe for concurrent use.
type Hub struct {
	mu    sync.RWMutex
	conns map[string][]Conn
	log   pagelet.Logger
}

// NewHub creates an empty hub.
func NewHub(log pagelet.Logger) *Hub {
	return &Hub{
		conns: make(map[string][]Conn),
		log:   log,
	}
}

// Attach subscribes a connection to updates for one request id.
func (h *Hub) Attach(requestID string, c Conn) {
	h.mu.Lock()
	h.conns[requestID] = append(h.conns[requestID], c)
	h.mu.Unlock()

	h.log.Debug("live connection attached", "request_id", requestID)
}

// Detach removes a connection. The connection itself is not closed.
func (h *Hub) Detach(requestID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[requestID]
	for i, have := range conns {
		if have == c {
			h.conns[requestID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[requestID]) == 0 {
		delete(h.conns, requestID)
	}
}

// Broadcast sends a fragment update to every connection subscribed to the
// request id. Connections that fail to send are detached and closed.
func (h *Hub) Broadcast(requestID, fragmentID, view string) {
	payload, err := json.Marshal(Update{
		RequestID:  requestID,
		FragmentID: fragmentID,
		View:       view,
	})
	if err != nil {
		h.log.Error("failed to encode live update", "request_id", requestID, "error", err)
		return
	}

	h.mu.RLock()
	conns := append([]Conn(nil), h.conns[requestID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.Send(payload); err != nil {
			h.log.Debug("live connection dropped", "request_id", requestID, "error", err)
			h.Detach(requestID, c)
			_ = c.Close()
		}
	}
}

// CloseAll detaches and closes every connection of one request id, usually
// when the page's updates are complete.
func (h *Hub) CloseAll(requestID string) {
	h.mu.Lock()
	conns := h.conns[requestID]
	delete(h.conns, requestID)
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

// Subscribers reports how many connections follow one request id.
func (h *Hub) Subscribers(requestID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[requestID])
}
