package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/skatehive/ytipfs-worker/pkg/logger"
)

// shutdownTimeout bounds how long in-flight relay requests may finish
// during a graceful stop.
const shutdownTimeout = 5 * time.Second

// Server runs the relay's HTTP listener and ties its lifetime to a
// context.
type Server struct {
	log     logger.Logger
	port    int
	handler http.Handler
	server  *http.Server
	mu      sync.Mutex
}

// NewServer creates a Server for the given handler and port.
func NewServer(log logger.Logger, port int, handler http.Handler) *Server {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Server{log: log, port: port, handler: handler}
}

// Start listens and serves until the context is canceled, then shuts
// down gracefully. A clean shutdown returns nil.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.handler,
	}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.log.Error("error shutting down server: %v", err)
		}
	}()

	s.log.Info("worker listening on :%d", s.port)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil // Expected during shutdown
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
