// Package bridgetest runs an in-process gateway for bridge client tests.
package bridgetest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"quoteflow/internal/venue/bridge"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// Server accepts bridge clients and records every envelope they send.
type Server struct {
	srv       *httptest.Server
	upgrader  websocket.Upgrader
	onMessage func(*Server, bridge.Envelope)

	mu       sync.Mutex
	conns    []*websocket.Conn
	received []bridge.Envelope
}

// NewServer starts a gateway. onMessage, if set, runs for each client
// envelope on the connection's read goroutine.
func NewServer(onMessage func(*Server, bridge.Envelope)) *Server {
	s := &Server{onMessage: onMessage}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *Server) Close() {
	s.mu.Lock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.srv.Close()
}

// Push sends an envelope to every connected client.
func (s *Server) Push(typ string, data any) error {
	payload, err := sonic.ConfigFastest.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := sonic.ConfigFastest.Marshal(bridge.Envelope{Type: typ, Data: payload})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.SetWriteDeadline(time.Now().Add(time.Second))
		if err := c.WriteMessage(websocket.TextMessage, frame); err != nil {
			return err
		}
	}
	return nil
}

// PushRaw sends an unframed message, used to exercise malformed input.
func (s *Server) PushRaw(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.WriteMessage(websocket.TextMessage, data)
	}
}

// Received returns the envelopes clients have sent so far.
func (s *Server) Received() []bridge.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bridge.Envelope(nil), s.received...)
}

// Conns returns the number of connected clients.
func (s *Server) Conns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env bridge.Envelope
		if err := sonic.ConfigFastest.Unmarshal(data, &env); err != nil {
			continue
		}
		s.mu.Lock()
		s.received = append(s.received, env)
		s.mu.Unlock()
		if s.onMessage != nil {
			s.onMessage(s, env)
		}
	}
}
