// Package tcp runs the line-oriented game protocol: one goroutine per
// connection, one compact JSON object per CRLF-terminated line.
package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"seabattle/internal/server/core"
	"seabattle/internal/server/dispatcher"
	"seabattle/internal/server/session"
)

const (
	// DefaultPort is the port the reference clients connect to.
	DefaultPort = 33333

	// maxLineBytes bounds a single request line.
	maxLineBytes = 64 * 1024

	writeTimeout = 10 * time.Second

	// Per-connection inbound budget. A turn-based game never needs more;
	// anything faster is a misbehaving client.
	rateLimit = rate.Limit(20)
	rateBurst = 40
)

type Server struct {
	addr       string
	dispatcher *dispatcher.Dispatcher
	registry   *session.Registry

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

func NewServer(addr string, d *dispatcher.Dispatcher, registry *session.Registry) *Server {
	return &Server{
		addr:       addr,
		dispatcher: d,
		registry:   registry,
		conns:      make(map[net.Conn]struct{}),
	}
}

// ListenAndServe accepts connections until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	log.Printf("Game server listening on %s", listener.Addr())

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("Error accepting connection: %v", err)
			continue
		}

		// Two queued players fill the single game slot.
		if s.registry.QueuedCount() >= session.MaxPlayers {
			log.Printf("Rejecting %s: server is full", conn.RemoteAddr())
			s.write(conn, core.NewErrorResponse(core.TypeError, "Server is full"))
			conn.Close()
			continue
		}

		s.track(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Addr returns the bound listener address, for tests that listen on :0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown closes the listener and all live connections, then waits for
// the connection handlers to drain.
func (s *Server) Shutdown() {
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) handleConn(conn net.Conn) {
	connID := uuid.NewString()[:8]
	log.Printf("[%s] New client connected from %s", connID, conn.RemoteAddr())

	defer func() {
		s.registry.UnregisterClient(conn)
		s.untrack(conn)
		conn.Close()
		log.Printf("[%s] Connection closed", connID)
	}()

	limiter := rate.NewLimiter(rateLimit, rateBurst)
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !limiter.Allow() {
			log.Printf("[%s] Rate limit exceeded, dropping connection", connID)
			s.write(conn, core.NewErrorResponse(core.TypeError, "Too many requests"))
			return
		}

		reply := s.dispatcher.HandleLine(conn, line)
		if reply == nil {
			continue
		}
		if err := s.write(conn, reply); err != nil {
			log.Printf("[%s] Failed to send response: %v", connID, err)
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Printf("[%s] Read error: %v", connID, err)
	}
}

func (s *Server) write(conn net.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	defer conn.SetWriteDeadline(time.Time{})
	return core.WriteLine(conn, v)
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}
