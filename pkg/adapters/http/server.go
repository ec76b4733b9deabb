// Package http exposes the dispatcher to transport gateways over a
// small JSON API. A USSD or SMS gateway normalizes its protocol frames
// into inbound events, posts them here and relays the reply text back
// to the carrier.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mlambe/fncs/internal/logging"
	"github.com/mlambe/fncs/pkg/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EventHandler processes one normalized inbound event. A nil reply
// with a nil error means the event produced no response.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev domain.InboundEvent) (*domain.OutboundEvent, error)
}

// Server routes gateway requests to the dispatcher.
type Server struct {
	dispatcher EventHandler
	logger     *slog.Logger
	version    string
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewHandler builds the HTTP handler around a dispatcher.
func NewHandler(dispatcher EventHandler, opts ...Option) http.Handler {
	s := &Server{
		dispatcher: dispatcher,
		logger:     logging.NewNop(),
		version:    "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Post("/v1/events", s.handleEvent)
	r.Get("/health", s.handleHealth)
	r.Get("/info", s.handleInfo)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// handleEvent accepts one inbound event and replies with the outbound
// event, or 204 when the turn produces no reply (session close).
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev domain.InboundEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		s.logger.Warn("rejecting malformed event payload", "err", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if ev.Address == "" || ev.Kind == "" {
		http.Error(w, "event requires address and event kind", http.StatusBadRequest)
		return
	}

	out, err := s.dispatcher.HandleEvent(r.Context(), ev)
	if err != nil {
		s.logger.Error("turn failed", "address", ev.Address, "event", ev.Kind, "err", err)
		http.Error(w, "turn failed", http.StatusInternalServerError)
		return
	}
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logger.Error("reply encode failed", "address", ev.Address, "err", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"app":     "fncs",
		"version": s.version,
	})
}
