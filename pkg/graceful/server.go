package graceful

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
)

// Server wraps http.Server with graceful shutdown capabilities.
type Server struct {
	httpServer *http.Server
	log        *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}
	serveErr error
}

// NewServer constructs a graceful server wrapper.
func NewServer(log *slog.Logger, srv *http.Server) *Server {
	if log == nil {
		log = slog.Default()
	}

	return &Server{
		httpServer: srv,
		log:        log,
	}
}

// Start binds the listen address and serves in the background. Bind failures are returned
// directly so startup can abort.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	s.listener = ln
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.log.Info("http server listening", slog.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server error", slog.Any("error", err))
			s.mu.Lock()
			s.serveErr = err
			s.mu.Unlock()
		}
	}()

	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}

	s.log.Info("shutting down http server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error("http server shutdown error", slog.Any("error", err))
		return err
	}

	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serveErr
}
