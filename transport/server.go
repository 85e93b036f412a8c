// Package transport owns the server's listening socket and the single
// active client connection: accepting one connection at a time, running
// the receive/send worker goroutines, and exposing their queues as the
// in-memory MessageFrame flow the rest of the system reads from and
// writes to (spec.md §4.1).
package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/coregx/timetable/proto"
)

// acceptTimeout bounds each Accept() attempt so callers driving the
// top-level accept loop (spec.md §4.1: "uses a bounded readiness wait of
// ~500ms") never block indefinitely waiting for a client to dial in.
const acceptTimeout = 500 * time.Millisecond

// ListenBacklog is the listen backlog depth of spec.md §6. Listen does
// not apply it: the listener uses the operating system's default backlog.
const ListenBacklog = 5

// Server owns the listening socket and, at most, one active client
// connection at a time (spec.md §4.1: "accept at most one client").
type Server struct {
	log    *zap.Logger
	events ConnEvents

	mu       sync.Mutex
	listener net.Listener
	conn     *Conn
	closed   bool
}

// NewServer constructs a Server that will notify events of connect/
// disconnect transitions. Listen must be called before Accept.
func NewServer(events ConnEvents, log *zap.Logger) *Server {
	if events == nil {
		events = NopConnEvents{}
	}
	return &Server{log: log, events: events}
}

// Listen binds a TCP listener on addr (e.g. ":8080") with address reuse
// enabled. The backlog is the operating system's default; ListenBacklog
// is not applied.
func (s *Server) Listen(addr string) error {
	lc := net.ListenConfig{
		Control: setReuseAddr,
	}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound listener's address, or nil if Listen has not
// been called (or has not succeeded) yet. Useful when Listen was given
// port 0 and the caller needs to learn which port the OS assigned.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Accept makes one bounded attempt (~500ms) to accept a new client. It
// returns true if a client was accepted, false on timeout or if a client
// is already connected. A second dial attempt while one client is active
// is accepted at the TCP level and then immediately closed — the design
// is explicitly single-client (spec.md §4.1).
func (s *Server) Accept() bool {
	s.mu.Lock()
	ln := s.listener
	closed := s.closed
	alreadyConnected := s.conn != nil
	s.mu.Unlock()

	if closed || ln == nil {
		return false
	}

	tcpLn, ok := ln.(*net.TCPListener)
	if ok {
		_ = tcpLn.SetDeadline(time.Now().Add(acceptTimeout))
	}

	netConn, err := ln.Accept()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return false
		}
		if !closedErr(err) {
			s.log.Debug("accept error", zap.Error(err))
		}
		return false
	}

	if alreadyConnected {
		s.log.Warn("rejecting second client while one is already connected", zap.String("remote", netConn.RemoteAddr().String()))
		_ = netConn.Close()
		return false
	}

	conn := newConn(netConn, s.log, s.handleDisconnected)

	s.mu.Lock()
	if s.conn != nil {
		// Lost a race against another accepted dial; keep the existing
		// connection and reject this one.
		s.mu.Unlock()
		_ = netConn.Close()
		return false
	}
	s.conn = conn
	s.mu.Unlock()

	conn.start()
	s.events.Connected(netConn.RemoteAddr().String())
	return true
}

// SendMessage enqueues frame for delivery to the active client. Returns
// false if no client is connected.
func (s *Server) SendMessage(frame proto.MessageFrame) bool {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return false
	}
	return conn.send(frame)
}

// WaitInbound blocks for up to timeout for inbound frames from the active
// client, then returns every frame currently queued (nil if none arrived
// or no client is connected).
func (s *Server) WaitInbound(timeout time.Duration) []proto.MessageFrame {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		time.Sleep(timeout)
		return nil
	}
	return conn.waitInbound(timeout)
}

// IsConnected reports whether a client is currently connected.
func (s *Server) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Disconnect idempotently tears down the active client connection, if
// any. The listening socket is left open so a subsequent Accept can
// accept a new client.
func (s *Server) Disconnect() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return
	}
	conn.disconnect(nil)
	conn.wait()
}

// handleDisconnected is the Conn-level callback that clears the active
// connection slot and forwards the event to the configured ConnEvents,
// outside of the server's own lock (per spec.md §9's re-entrancy note).
func (s *Server) handleDisconnected(err error) {
	s.mu.Lock()
	s.conn = nil
	s.mu.Unlock()

	s.events.Disconnected(err)
}

// Close shuts the listener down; any active connection is also
// disconnected. Idempotent.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.listener
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		conn.disconnect(nil)
		conn.wait()
	}
	if ln != nil {
		return ln.Close()
	}
	return nil
}

func closedErr(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
