// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	applog "tuner/internal/log"
	"tuner/internal/tuner"
)

// WebSocketSink serves /ws and broadcasts every reported result as a
// JSON message to all connected clients. Reports go through a buffered
// channel and are dropped on backpressure so the analysis loop never
// waits on a slow client.
type WebSocketSink struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan tuner.Result
	server    *http.Server
}

// NewWebSocketSink starts the WebSocket server on addr and returns the
// sink.
func NewWebSocketSink(addr string) *WebSocketSink {
	s := &WebSocketSink{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local tool, any origin may subscribe
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan tuner.Result, 256),
	}
	s.start()
	return s
}

func (s *WebSocketSink) start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.server = &http.Server{Addr: s.addr, Handler: mux}

	go func() {
		applog.Infof("transport: WebSocket sink listening on %s", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("transport: WebSocket server error: %v", err)
		}
	}()
	go s.handleBroadcasts()
}

func (s *WebSocketSink) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Errorf("transport: WebSocket upgrade error: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	total := len(s.clients)
	s.clientsMu.Unlock()
	applog.Infof("transport: WebSocket client connected, total: %d", total)

	go func() {
		// Block until the client goes away.
		if _, _, err := conn.ReadMessage(); err != nil {
			s.clientsMu.Lock()
			delete(s.clients, conn)
			s.clientsMu.Unlock()
			conn.Close()
			applog.Infof("transport: WebSocket client disconnected")
		}
	}()
}

func (s *WebSocketSink) handleBroadcasts() {
	for res := range s.broadcast {
		s.clientsMu.Lock()
		for client := range s.clients {
			if err := client.WriteJSON(res); err != nil {
				applog.Warnf("transport: WebSocket write failed, dropping client: %v", err)
				client.Close()
				delete(s.clients, client)
			}
		}
		s.clientsMu.Unlock()
	}
}

// Report queues the result for broadcast. Full queue drops the result.
func (s *WebSocketSink) Report(res tuner.Result) error {
	select {
	case s.broadcast <- res:
	default:
	}
	return nil
}

// Close disconnects all clients and shuts the server down.
func (s *WebSocketSink) Close() error {
	applog.Infof("transport: closing WebSocket sink")

	s.clientsMu.Lock()
	for client := range s.clients {
		client.Close()
	}
	s.clients = make(map[*websocket.Conn]bool)
	s.clientsMu.Unlock()

	close(s.broadcast)
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

var _ tuner.Sink = (*WebSocketSink)(nil)
