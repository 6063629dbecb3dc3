package api

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Status server binds to localhost; the browser UI connects
	// cross-origin from file:// during development
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsHandler streams rescue events over a websocket, for clients that
// want a bidirectional channel instead of SSE
func (s *Server) wsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return // Upgrade already wrote the error response
		}

		client := make(chan Event)
		s.hub.register <- client

		// Reader goroutine: discard inbound frames, detect disconnect
		go func() {
			defer func() { s.hub.unregister <- client }()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for event := range client {
			if err := conn.WriteJSON(event); err != nil {
				break
			}
		}
		conn.Close()
	}
}
