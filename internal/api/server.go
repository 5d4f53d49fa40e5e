package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"

	"tripplanner/internal/geo"
	"tripplanner/internal/observability"
	"tripplanner/internal/planning"
	"tripplanner/internal/session"
	"tripplanner/internal/storage"
	"tripplanner/internal/validation"
)

// maxBodyBytes caps request bodies. Extraction input is the largest
// accepted payload.
const maxBodyBytes = 2 * validation.MaxExtractLength

type apiError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Server serves the planner HTTP API.
type Server struct {
	mux       *http.ServeMux
	sessions  *session.Manager
	assistant *planning.Assistant
	geocoder  *geo.Geocoder
	logger    observability.Logger
	metrics   *observability.Metrics
	// ready reports whether session storage is usable. Nil means always ready.
	ready func(ctx context.Context) error
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics enables the /metrics endpoint.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithReadinessCheck sets the dependency check behind /readyz.
func WithReadinessCheck(check func(ctx context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

// NewServer creates a new HTTP server with the given dependencies.
// If logger is nil, a default logger will be used.
func NewServer(mux *http.ServeMux, sessions *session.Manager, assistant *planning.Assistant, geocoder *geo.Geocoder, logger observability.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = observability.NewLogger(observability.DefaultConfig())
	}
	s := &Server{
		mux:       mux,
		sessions:  sessions,
		assistant: assistant,
		geocoder:  geocoder,
		logger:    logger.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) writeErr(ctx context.Context, w http.ResponseWriter, code int, msg string, detail string) {
	fields := []any{
		"status", code,
		"error", msg,
	}
	if detail != "" {
		fields = append(fields, "detail", detail)
	}
	if code >= 500 {
		s.logger.ErrorContext(ctx, "request failed", fields...)
		sentry.CaptureMessage(fmt.Sprintf("HTTP %d: %s (detail: %s)", code, msg, detail))
	} else {
		s.logger.WarnContext(ctx, "request failed", fields...)
	}
	writeJSON(w, code, apiError{Error: msg, Detail: detail})
}

// writeStoreErr maps a domain or storage error to the appropriate HTTP
// status code and writes the error response. A stale response is checked
// before not-found because a deletion during a completion yields both.
func (s *Server) writeStoreErr(ctx context.Context, w http.ResponseWriter, err error) {
	var fieldErr *validation.FieldError
	switch {
	case errors.Is(err, session.ErrStaleResponse):
		s.writeErr(ctx, w, http.StatusConflict, "stale response", "the session was reset or deleted while the request was in flight")
	case errors.Is(err, session.ErrRequestPending):
		s.writeErr(ctx, w, http.StatusConflict, err.Error(), "wait for the current reply")
	case errors.Is(err, session.ErrInvalidTransition):
		s.writeErr(ctx, w, http.StatusConflict, "invalid phase", err.Error())
	case errors.As(err, &fieldErr):
		s.writeErr(ctx, w, http.StatusBadRequest, "validation failed", fieldErr.Error())
	case errors.Is(err, storage.ErrNotFound):
		s.writeErr(ctx, w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, storage.ErrConflict):
		s.writeErr(ctx, w, http.StatusConflict, err.Error(), "")
	case errors.Is(err, storage.ErrValidation):
		s.writeErr(ctx, w, http.StatusBadRequest, err.Error(), "")
	default:
		s.writeErr(ctx, w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) { s.status = code; s.ResponseWriter.WriteHeader(code) }

// RegisterRoutes registers the system endpoints and the planner API.
func (s *Server) RegisterRoutes() {
	s.mux.HandleFunc("GET /openapi.yaml", s.handleOpenAPISpec)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
	s.mux.HandleFunc("GET /api/v1/test-sentry", s.handleTestSentry)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)

	s.mux.HandleFunc("POST /api/v1/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /api/v1/sessions", s.handleListSessions)
	s.mux.HandleFunc("GET /api/v1/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleDeleteSession)
	s.mux.HandleFunc("PUT /api/v1/sessions/{id}/trip", s.handleUpdateTrip)
	s.mux.HandleFunc("POST /api/v1/sessions/{id}/messages", s.handleSendMessage)
	s.mux.HandleFunc("POST /api/v1/sessions/{id}/itinerary", s.handleGenerateItinerary)
	s.mux.HandleFunc("GET /api/v1/sessions/{id}/itinerary", s.handleGetItinerary)
	s.mux.HandleFunc("GET /api/v1/sessions/{id}/itinerary.ics", s.handleItineraryCalendar)
	s.mux.HandleFunc("POST /api/v1/sessions/{id}/back", s.handleBack)
	s.mux.HandleFunc("POST /api/v1/sessions/{id}/reset", s.handleReset)

	s.mux.HandleFunc("POST /api/v1/extract", s.handleExtract)
	s.mux.HandleFunc("GET /api/v1/geocode", s.handleGeocode)
}
