// Package http exposes a pulse engine over HTTP: template listing,
// inspection, sampling, reload events and Prometheus metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/pulse"
	"github.com/aretw0/pulse/internal/logging"
	"github.com/aretw0/pulse/internal/runtime"
	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/expr"
	"github.com/aretw0/pulse/pkg/ports"
	"github.com/aretw0/pulse/pkg/sampler"
)

// Engine defines the subset of the pulse engine the server needs.
type Engine interface {
	ports.Renderer
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// SampleRequest is the body of POST /templates/{id}/sample. Numbers may be
// given as JSON numbers or as strings ("0.2", "1/3").
type SampleRequest struct {
	Rate       expr.Number   `json:"rate"`
	Parameters expr.Bindings `json:"parameters,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server holds the handlers.
type Server struct {
	Engine   Engine
	Logger   *slog.Logger
	Gatherer prometheus.Gatherer
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// WithMetrics exposes g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.Gatherer = g }
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	server := &Server{
		Engine: engine,
		Logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/events", server.SubscribeEvents)
	r.Route("/templates", func(r chi.Router) {
		r.Get("/", server.ListTemplates)
		r.Get("/{id}", server.InspectTemplate)
		r.Post("/{id}/sample", server.SampleTemplate)
	})
	if server.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(server.Gatherer, promhttp.HandlerOpts{}))
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListTemplates handles GET /templates.
func (s *Server) ListTemplates(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.List()
	if err != nil {
		s.fail(w, "ListTemplates", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// InspectTemplate handles GET /templates/{id}.
func (s *Server) InspectTemplate(w http.ResponseWriter, r *http.Request) {
	in, err := s.Engine.Inspect(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "InspectTemplate", err)
		return
	}
	s.writeJSON(w, http.StatusOK, in)
}

// SampleTemplate handles POST /templates/{id}/sample.
func (s *Server) SampleTemplate(w http.ResponseWriter, r *http.Request) {
	var body SampleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.Logger.Warn("SampleTemplate: invalid request body", "err", err)
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	id := chi.URLParam(r, "id")
	wf, err := s.Engine.Render(r.Context(), id, body.Rate, body.Parameters)
	if err != nil {
		s.fail(w, "SampleTemplate", err)
		return
	}
	s.writeJSON(w, http.StatusOK, wf)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "pulse-http",
		"version": strings.TrimSpace(pulse.Version),
	})
}

// SubscribeEvents handles GET /events: one SSE message per template reload.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "streaming not supported"})
		return
	}

	events, err := s.Engine.Watch(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: fmt.Sprintf("watch error: %v", err)})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Debug("SSE client disconnected")
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: reload\ndata: templates changed\n\n")
			flusher.Flush()
		}
	}
}

// StatusFor maps engine errors to HTTP status codes.
func StatusFor(err error) int {
	var (
		missing  *domain.MissingParameterError
		badRate  *domain.InvalidSampleRateError
		syntax   *expr.SyntaxError
		zero     *domain.ZeroDurationError
		negative *domain.NegativeDurationError
		count    *domain.InvalidRepetitionCountError
		evalErr  *expr.DomainError
		unbound  *expr.UnboundVariableError
		tooMany  *sampler.TooManySamplesError
		tooLarge *runtime.TooLargeError
		segments *domain.TooManySegmentsError
	)
	switch {
	case errors.Is(err, domain.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.As(err, &missing), errors.As(err, &badRate), errors.As(err, &syntax):
		return http.StatusBadRequest
	case errors.As(err, &zero), errors.As(err, &negative), errors.As(err, &count),
		errors.As(err, &evalErr), errors.As(err, &unbound),
		errors.As(err, &tooMany), errors.As(err, &tooLarge), errors.As(err, &segments):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error(op+" failed", "err", err)
	} else {
		s.Logger.Debug(op+" rejected", "status", status, "err", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "err", err)
	}
}
