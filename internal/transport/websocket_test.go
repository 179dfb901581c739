// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tuner/internal/tuner"
)

// newTestSink builds a sink around an httptest server so no fixed port
// is needed.
func newTestSink(t *testing.T) (*WebSocketSink, string) {
	t.Helper()
	s := &WebSocketSink{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan tuner.Result, 256),
	}
	go s.handleBroadcasts()

	srv := httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	t.Cleanup(srv.Close)
	return s, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (s *WebSocketSink) clientCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

func waitForClients(t *testing.T, s *WebSocketSink, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.clientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", s.clientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketSinkBroadcastsJSON(t *testing.T) {
	sink, url := newTestSink(t)
	defer sink.Close()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	waitForClients(t, sink, 1)

	sent := tuner.Result{Note: "G3", Reference: 196.00, Frequency: 197.5, Cents: 13.2}
	if err := sink.Report(sent); err != nil {
		t.Fatalf("Report: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got tuner.Result
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got != sent {
		t.Errorf("received %+v, want %+v", got, sent)
	}
}

func TestWebSocketSinkDropsDisconnectedClients(t *testing.T) {
	sink, url := newTestSink(t)
	defer sink.Close()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	waitForClients(t, sink, 1)

	conn.Close()
	waitForClients(t, sink, 0)
}

func TestWebSocketSinkReportNeverBlocks(t *testing.T) {
	// No broadcast goroutine: the queue fills and further reports drop.
	s := &WebSocketSink{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan tuner.Result, 2),
	}
	for i := 0; i < 10; i++ {
		if err := s.Report(tuner.Result{Note: "A4"}); err != nil {
			t.Fatalf("Report %d: %v", i, err)
		}
	}
	if len(s.broadcast) != 2 {
		t.Errorf("queued = %d, want 2", len(s.broadcast))
	}
}

func TestLogSink(t *testing.T) {
	sink := NewLogSink()
	if err := sink.Report(tuner.Result{Note: "A4", Reference: 440, Frequency: 441.2, Cents: 4.7}); err != nil {
		t.Errorf("Report: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
