// SPDX-License-Identifier: MIT
/*
Package udp publishes tuning results as fixed-layout binary packets
over UDP, for meters and visualizers that want raw data without a
WebSocket handshake.
*/
package udp

import (
	"fmt"
	"net"
	"sync"

	applog "tuner/internal/log"
)

// Sender owns the UDP connection to a single target address.
type Sender struct {
	conn   *net.UDPConn
	mu     sync.Mutex // protects conn against concurrent Close
	closed bool
}

// NewSender dials targetAddress ("host:port").
func NewSender(targetAddress string) (*Sender, error) {
	addr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("udp: failed to resolve target address %q: %w", targetAddress, err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("udp: failed to dial %q: %w", targetAddress, err)
	}

	applog.Infof("udp: sender connected to %s", conn.RemoteAddr())
	return &Sender{conn: conn}, nil
}

// Send transmits one packet. Safe for concurrent use.
func (s *Sender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("udp: sender is closed")
	}
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("udp: failed to send packet: %w", err)
	}
	return nil
}

// Close closes the connection. Subsequent Sends fail.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		if err != nil {
			return fmt.Errorf("udp: failed to close connection: %w", err)
		}
	}
	return nil
}
