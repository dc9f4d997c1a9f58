package server

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// setupLiveRoutes registers the websocket endpoint clients use to keep
// receiving fragment updates after the initial page delivery. The path
// parameter is the request id the page was served under, echoed to the
// client in the X-Request-ID header.
func (s *Server) setupLiveRoutes() {
	s.app.Use("/_live", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	s.app.Get("/_live/:id", websocket.New(func(c *websocket.Conn) {
		requestID := c.Params("id")

		conn := &wsConn{conn: c}
		s.hub.Attach(requestID, conn)
		defer s.hub.Detach(requestID, conn)

		// Updates flow one way. Reading only notices the client leaving.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

// wsConn adapts a websocket connection to the hub's Conn contract.
// Writes are serialized; the hub may broadcast from several goroutines.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) Send(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, payload)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}
