package api

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	apidocs "tripplanner/docs"
	webui "tripplanner/web"
)

func (s *Server) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(apidocs.OpenAPISpec)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"llm_provider": s.assistant.ProviderName(),
		"llm_enabled":  s.assistant.Available(),
		"map_enabled":  s.geocoder.Interactive(),
	})
}

// ReadinessResponse represents the JSON response for the readiness check endpoint.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// handleReady checks if the application is ready to accept traffic.
// Unlike /healthz (liveness), this endpoint verifies that session storage
// is usable. An unconfigured completion provider is reported but does not
// fail readiness, since chat degrades to the fallback reply.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := make(map[string]string)
	status := "ok"

	checks["sessions"] = "ok"
	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["sessions"] = "error"
			status = "unhealthy"
			s.logger.ErrorContext(ctx, "readiness check failed", "check", "sessions", "error", err)
		}
	}
	if s.assistant.Available() {
		checks["llm"] = "ok"
	} else {
		checks["llm"] = "unconfigured"
	}

	resp := ReadinessResponse{
		Status: status,
		Checks: checks,
	}

	if status == "ok" {
		writeJSON(w, http.StatusOK, resp)
	} else {
		writeJSON(w, http.StatusServiceUnavailable, resp)
	}
}

func (s *Server) handleTestSentry(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("type") {
	case "message":
		sentry.CaptureMessage("Sentry test message from tripplanner")
		sentry.Flush(2 * time.Second)
		writeJSON(w, http.StatusOK, map[string]string{"status": "message sent to Sentry"})
	case "error":
		s.writeErr(r.Context(), w, http.StatusInternalServerError, "test error for Sentry", "this is a test error to verify Sentry integration")
	case "panic":
		panic("test panic for Sentry")
	default:
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Sentry test endpoint",
			"usage":   "?type=message|error|panic",
		})
	}
}

// handleIndex serves the embedded single-page UI shell.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(webui.Index)
}
