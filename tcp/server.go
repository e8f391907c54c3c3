package tcp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"chat-server/contract"
	"chat-server/moderation"
)

// Server accepts inbound connections and hands each one to a new
// Session running on its own goroutine, so no client interaction blocks
// another. It implements contract.Worker; a fatal accept error is
// returned to the caller and must take the process down.
type Server struct {
	log         *slog.Logger
	registry    contract.IRoomRegistry
	moderator   *moderation.Moderator
	addr        string
	gracePeriod time.Duration

	mu        sync.Mutex
	boundAddr net.Addr
	conns     map[net.Conn]struct{}
	wg        sync.WaitGroup
}

func NewServer(
	log *slog.Logger,
	registry contract.IRoomRegistry,
	moderator *moderation.Moderator,
	addr string,
	gracePeriod time.Duration,
) *Server {
	return &Server{
		log:         log,
		registry:    registry,
		moderator:   moderator,
		addr:        addr,
		gracePeriod: gracePeriod,
		conns:       make(map[net.Conn]struct{}),
	}
}

// Addr reports the bound listener address, nil until Run has bound it.
// Useful when listening on an ephemeral port.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundAddr
}

// ActiveConnections implements contract.ConnTracker.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Run binds the listener and accepts until ctx is cancelled or the
// listener fails. On the way out it drains live sessions for the grace
// period, then force-closes whatever is left.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.boundAddr = listener.Addr()
	s.mu.Unlock()
	s.log.Info("Chat server listening", "addr", listener.Addr().String())

	// Cancellation unblocks Accept by closing the listener.
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	var acceptErr error
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			acceptErr = fmt.Errorf("accept: %w", err)
			break
		}

		s.track(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			NewSession(s.log, s.registry, s.moderator, conn).Run()
		}()
	}

	_ = listener.Close()
	s.drain()
	return acceptErr
}

// drain waits out the grace period for session goroutines, then closes
// the remaining connections to unblock their reads, and waits again.
func (s *Server) drain() {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(s.gracePeriod):
		s.log.Warn("Grace period expired, closing remaining connections",
			"connections", s.ActiveConnections())
	}

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	<-done
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
