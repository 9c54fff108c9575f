// Package server is the connection-acceptance and lifecycle half of the
// library: bind, accept, track live connections, and the three-way
// graceful-shutdown split (stop, stop-with-deadline, kill).
//
// Grounded on shockwave/pkg/shockwave/server.BaseServer's
// NewBaseServer/trackConnection/untrackConnection/Shutdown/Close, carried
// over nearly structurally unchanged since spec.md's C11 lifecycle
// contract matches the teacher's own connection-tracking design closely —
// the main departure is splitting "graceful stop" into the spec's
// explicit stop()/stop(deadline)/kill() trio instead of the teacher's
// single Shutdown(ctx).
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/watt-toolkit/exchange/log"
)

// ConnHandler serves one accepted connection to completion. *exchange.Engine
// satisfies this via its Serve method; kept as an interface here so this
// package does not import exchange, avoiding a server <-> exchange import
// cycle (exchange's own tests may want a lightweight server.Server).
type ConnHandler interface {
	Serve(conn net.Conn)
}

// Config configures a Server's listener and connection bookkeeping.
type Config struct {
	Addr                     string
	MaxConcurrentConnections int // 0 means unlimited
}

// DefaultConfig returns reasonable defaults: no concurrency cap.
func DefaultConfig() Config {
	return Config{Addr: ":8080", MaxConcurrentConnections: 0}
}

// Server accepts connections on a listener and dispatches each to a
// ConnHandler on its own goroutine, tracking live connections so shutdown
// can wait for or force-close them.
type Server struct {
	cfg     Config
	handler ConnHandler
	logger  log.Logger

	listener net.Listener
	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	connSem  chan struct{}

	shutdown  chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New builds a Server. handler must be non-nil.
func New(cfg Config, handler ConnHandler, logger log.Logger) *Server {
	if handler == nil {
		panic("server: handler must not be nil")
	}
	if logger == nil {
		logger = log.Noop()
	}
	s := &Server{
		cfg:      cfg,
		handler:  handler,
		logger:   logger,
		conns:    make(map[net.Conn]struct{}),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	if cfg.MaxConcurrentConnections > 0 {
		s.connSem = make(chan struct{}, cfg.MaxConcurrentConnections)
	}
	return s
}

// ListenAndServe binds cfg.Addr and serves until the listener closes.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until it closes or shutdown is
// requested, dispatching each accepted connection to its own goroutine.
func (s *Server) Serve(ln net.Listener) error {
	applyListenerTuning(ln, s.logger)

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	defer close(s.done)

	for {
		if s.connSem != nil {
			s.connSem <- struct{}{}
		}
		conn, err := ln.Accept()
		if err != nil {
			if s.connSem != nil {
				<-s.connSem
			}
			select {
			case <-s.shutdown:
				return nil
			default:
				return err
			}
		}

		s.track(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			if s.connSem != nil {
				defer func() { <-s.connSem }()
			}
			s.handler.Serve(conn)
		}()
	}
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// Stop waits for every in-flight connection to finish on its own, per
// spec.md's stop() semantics: the listener is closed immediately (no new
// connections accepted) but existing exchanges run to completion.
func (s *Server) Stop() error {
	return s.stopInternal(nil)
}

// StopDeadline waits for in-flight connections until deadline, then force-
// closes any still open, matching spec.md's stop(deadline) semantics.
func (s *Server) StopDeadline(ctx context.Context) error {
	return s.stopInternal(ctx)
}

func (s *Server) stopInternal(ctx context.Context) error {
	var closeErr error
	s.closeOnce.Do(func() {
		close(s.shutdown)
		s.mu.Lock()
		if s.listener != nil {
			closeErr = s.listener.Close()
		}
		s.mu.Unlock()
	})

	waitCh := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waitCh)
	}()

	if ctx == nil {
		<-waitCh
		return closeErr
	}

	select {
	case <-waitCh:
		return closeErr
	case <-ctx.Done():
		s.closeAllConnections()
		<-waitCh
		return errors.Join(closeErr, ctx.Err())
	}
}

// Kill force-closes every live connection immediately, without waiting
// for in-flight exchanges to finish — spec.md's kill() semantics.
func (s *Server) Kill() error {
	var closeErr error
	s.closeOnce.Do(func() {
		close(s.shutdown)
		s.mu.Lock()
		if s.listener != nil {
			closeErr = s.listener.Close()
		}
		s.mu.Unlock()
	})
	s.closeAllConnections()
	s.wg.Wait()
	return closeErr
}

func (s *Server) closeAllConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
}

// StopTimeout is a convenience wrapper over StopDeadline for callers that
// just want a fixed grace period.
func (s *Server) StopTimeout(grace time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return s.StopDeadline(ctx)
}
