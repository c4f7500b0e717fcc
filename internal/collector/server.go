package collector

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"

	"github.com/sweeney/sensor-hub/internal/logger"
)

// DefaultAddr is the port the hubs connect to.
const DefaultAddr = ":23"

// MaxLineLength bounds one received line.
const MaxLineLength = 4096

// ErrServerClosed is returned by Serve after Shutdown.
var ErrServerClosed = errors.New("collector: server closed")

// Handler is called once per received line, without its terminator.
// It runs on the connection's goroutine.
type Handler func(remote, line string)

// Server accepts hub connections and hands every line to a Handler.
type Server struct {
	handler Handler
	log     *logger.Logger

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewServer creates a Server that passes lines to handler.
func NewServer(handler Handler, l *logger.Logger) *Server {
	return &Server{
		handler: handler,
		log:     l.WithTag("collector"),
		conns:   make(map[net.Conn]struct{}),
	}
}

// ListenAndServe listens on addr and serves until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln, one goroutine per connection.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.ln = ln
	s.mu.Unlock()

	s.log.Infof("listening on %s", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			return err
		}
		if !s.track(conn) {
			conn.Close()
			return ErrServerClosed
		}
		go s.serveConn(conn)
	}
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) serveConn(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		s.log.Infof("client %s disconnected", remote)
		s.wg.Done()
	}()

	s.log.Infof("client connected from %s", remote)
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 256), MaxLineLength)
	for scanner.Scan() {
		s.handler(remote, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil && !s.isClosed() {
		s.log.Warnf("connection %s: %v", remote, err)
	}
}

// Shutdown stops accepting, closes open connections and waits for their
// handlers to return or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	if s.ln != nil {
		s.ln.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
