package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"reelsmith/internal/queue"
	"reelsmith/internal/story"
	"reelsmith/internal/workflow"
)

// ServerConfig carries everything the handlers need.
type ServerConfig struct {
	Bind      string
	Token     string
	Version   string
	StartTime time.Time
	Logger    *slog.Logger
	Store     *queue.Store
	Manager   *workflow.Manager
	Importer  *story.Importer
}

// Server wraps the HTTP control surface.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds the server but does not start listening.
func NewServer(cfg ServerConfig) *Server {
	if cfg.StartTime.IsZero() {
		cfg.StartTime = time.Now()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Bind,
			Handler:      NewRouter(cfg),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

// Start begins serving in a goroutine. It returns once the listener is
// bound so callers can fail fast on an occupied port.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.logger.Info("api server listening", "addr", listener.Addr().String())

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server stopped", "error", err)
		}
	}()
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
