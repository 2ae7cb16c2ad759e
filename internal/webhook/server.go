package webhook

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/taiga-contrib/relay/internal/event"
	"github.com/taiga-contrib/relay/internal/events"
	"github.com/taiga-contrib/relay/internal/format"
	"github.com/taiga-contrib/relay/internal/messenger"
	"github.com/taiga-contrib/relay/internal/route"
	"github.com/taiga-contrib/relay/internal/settings"
)

// Server is the network-facing webhook endpoint. Each request runs the full
// pipeline: verify -> parse -> route -> format -> dispatch, and answers only
// after dispatch to every matching channel has been attempted.
type Server struct {
	config    Config
	settings  *settings.Store
	router    *route.Router
	formatter *format.Formatter
	messenger messenger.Messenger
	hub       *events.Hub
	logger    *slog.Logger
	server    *http.Server
}

// New creates a new webhook server instance.
func New(config Config, st *settings.Store, router *route.Router, formatter *format.Formatter, m messenger.Messenger, hub *events.Hub, logger *slog.Logger) *Server {
	if config.MaxBodySize == 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	return &Server{
		config:    config,
		settings:  st,
		router:    router,
		formatter: formatter,
		messenger: m,
		hub:       hub,
		logger:    logger,
	}
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.config.Listen, "network", s.config.Network)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post("/{network}/{channel}", s.handleWebhook)

	// Anything that is not POST /<network>/<channel> gets a fixed notice.
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.respondText(w, http.StatusMethodNotAllowed, responseMethodNotice)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.respondText(w, http.StatusMethodNotAllowed, responseMethodNotice)
			return
		}
		s.respondText(w, http.StatusBadRequest, responseMissingSegments)
	})

	return r
}

// loggingMiddleware logs HTTP requests (excludes payload content).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleWebhook handles one incoming webhook POST.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	network := chi.URLParam(r, "network")
	channel := chi.URLParam(r, "channel")
	if network == "" || channel == "" {
		s.respondText(w, http.StatusBadRequest, responseMissingSegments)
		return
	}

	// Requests for another network or for a channel the messenger is not in
	// are discarded before any payload work.
	if network != s.config.Network {
		s.reject(w, http.StatusNotFound, responseUnknownTarget, channel, "network mismatch", "network", network)
		return
	}
	joined := s.messenger.Joined()
	if !slices.Contains(joined, channel) {
		s.reject(w, http.StatusNotFound, responseUnknownTarget, channel, "channel not joined")
		return
	}

	limitedReader := io.LimitReader(r.Body, s.config.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		s.respondText(w, http.StatusInternalServerError, "Error: Failed to read request body.")
		return
	}
	if int64(len(body)) > s.config.MaxBodySize {
		s.reject(w, http.StatusRequestEntityTooLarge, responseTooLarge, channel, "payload too large")
		return
	}

	digest := blake3.Sum256(body)
	bodySum := hex.EncodeToString(digest[:8])
	s.logger.Debug("webhook payload received", "channel", channel, "bytes", len(body), "body_sum", bodySum)

	// Signature check, unless the channel opted out.
	verify, err := s.settings.Bool(ctx, channel, settingVerifySignature, true)
	if err != nil {
		s.logger.Error("security config unavailable", "channel", channel, "error", err)
		s.respondText(w, http.StatusInternalServerError, "Error: Configuration unavailable.")
		return
	}
	if verify {
		secret, err := s.settings.String(ctx, channel, settingSecretKey, "")
		if err != nil {
			s.logger.Error("security config unavailable", "channel", channel, "error", err)
			s.respondText(w, http.StatusInternalServerError, "Error: Configuration unavailable.")
			return
		}

		sig := r.Header.Get(SignatureHeader)
		if sig == "" {
			s.reject(w, http.StatusForbidden, responseNoSignature, channel, "no signature provided", "body_sum", bodySum)
			return
		}
		if !VerifySignature([]byte(secret), body, sig) {
			s.reject(w, http.StatusForbidden, responseBadSignature, channel, "invalid signature", "body_sum", bodySum)
			return
		}
	}

	ev, err := event.Parse(body)
	if err != nil {
		s.handleParseOutcome(w, channel, bodySum, err)
		return
	}

	s.dispatch(ctx, ev, joined)
	s.respondText(w, http.StatusOK, responseOK)
}

// handleParseOutcome answers for the non-event parse results. Only invalid
// JSON is surfaced to the sender; the remaining outcomes are accepted and
// dropped. The 403 for invalid JSON predates this implementation and is kept
// for wire compatibility.
func (s *Server) handleParseOutcome(w http.ResponseWriter, channel, bodySum string, err error) {
	if errors.Is(err, event.ErrInvalidJSON) {
		s.reject(w, http.StatusForbidden, responseBadJSON, channel, "invalid JSON", "body_sum", bodySum)
		return
	}

	var ute *event.UnknownTypeError
	var uae *event.UnknownActionError
	switch {
	case errors.Is(err, event.ErrIgnored):
		s.logger.Debug("test payload ignored", "channel", channel)
	case errors.Is(err, event.ErrMissingFields):
		s.logger.Debug("payload missing envelope fields", "channel", channel, "body_sum", bodySum)
	case errors.As(err, &ute):
		s.logger.Debug("unknown payload type", "channel", channel, "type", ute.Type)
	case errors.As(err, &uae):
		s.logger.Debug("unknown payload action", "channel", channel, "action", uae.Action)
	default:
		s.logger.Warn("unexpected parse outcome", "channel", channel, "error", err)
	}

	s.hub.Publish(events.TypeWebhookIgnored, map[string]any{
		"channel": channel,
		"reason":  err.Error(),
	})
	s.respondText(w, http.StatusOK, responseOK)
}

// dispatch routes the event, renders per channel and sends. Failures are
// isolated per channel: a bad template or a transport error drops that one
// notification and the rest still go out.
func (s *Server) dispatch(ctx context.Context, ev *event.Event, joined []string) {
	for _, n := range s.router.Route(ctx, ev, joined) {
		deliveryID := uuid.NewString()

		text, err := s.formatter.Format(ctx, n.Channel, n.TemplateKey, n.Context)
		if err != nil {
			s.logger.Error("template rendering failed",
				"delivery_id", deliveryID,
				"channel", n.Channel,
				"template", n.TemplateKey,
				"error", err,
			)
			s.publishDelivery(events.TypeDeliveryDropped, deliveryID, n, ev, err)
			continue
		}

		if err := s.messenger.Send(ctx, n.Channel, text); err != nil {
			s.logger.Error("dispatch failed",
				"delivery_id", deliveryID,
				"channel", n.Channel,
				"error", err,
			)
			s.publishDelivery(events.TypeDeliveryDropped, deliveryID, n, ev, err)
			continue
		}

		s.logger.Info("notification delivered",
			"delivery_id", deliveryID,
			"channel", n.Channel,
			"template", n.TemplateKey,
			"project", ev.ProjectID,
		)
		s.publishDelivery(events.TypeDeliverySent, deliveryID, n, ev, nil)
	}
}

func (s *Server) publishDelivery(eventType, deliveryID string, n route.Notification, ev *event.Event, cause error) {
	data := map[string]any{
		"delivery_id": deliveryID,
		"channel":     n.Channel,
		"template":    n.TemplateKey,
		"project":     ev.ProjectID,
	}
	if cause != nil {
		data["error"] = cause.Error()
	}
	s.hub.Publish(eventType, data)
}

// reject answers with a plain-text diagnostic and records the rejection.
func (s *Server) reject(w http.ResponseWriter, status int, message, channel, reason string, args ...any) {
	logArgs := append([]any{"channel", channel, "reason", reason}, args...)
	s.logger.Warn("webhook rejected", logArgs...)
	s.hub.Publish(events.TypeWebhookRejected, map[string]any{
		"channel": channel,
		"reason":  reason,
	})
	s.respondText(w, status, message)
}

// respondText sends a plain-text response.
func (s *Server) respondText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}
