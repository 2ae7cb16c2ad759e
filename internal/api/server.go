// Package api is the relay's admin HTTP surface: subscription management,
// health, and a live event stream. All routes require the bearer token.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/taiga-contrib/relay/internal/events"
	"github.com/taiga-contrib/relay/internal/subscription"
)

// SubscriptionStore is the registry surface the admin API manages.
type SubscriptionStore interface {
	List(ctx context.Context, channel string) ([]subscription.Subscription, error)
	Add(ctx context.Context, channel, projectID, slug, baseURL string) error
	Remove(ctx context.Context, channel, projectID string) error
}

// Config holds API server configuration.
type Config struct {
	Listen string
	// Token is the bearer token granting admin access.
	Token string
	// Network is reported in health responses.
	Network string
}

// Server represents the admin HTTP API server.
type Server struct {
	config    Config
	registry  SubscriptionStore
	joined    func() []string
	hub       *events.Hub
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a new API server instance. joined reports the messenger's
// current channel set for health output.
func New(config Config, registry SubscriptionStore, joined func() []string, hub *events.Hub, logger *slog.Logger) *Server {
	return &Server{
		config:    config,
		registry:  registry,
		joined:    joined,
		hub:       hub,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start starts the HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE connections stay open
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("API server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("API server error: %w", err)
	}
}

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.authMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/events", s.handleEvents)
	r.Route("/channels/{channel}", func(r chi.Router) {
		r.Get("/projects", s.handleListProjects)
		r.Post("/projects", s.handleAddProject)
		r.Delete("/projects/{projectID}", s.handleRemoveProject)
	})

	return r
}

// writeJSON sends a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError sends a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}
