package api

import (
	"net/http"
	"strings"
	"time"

	"tripplanner/internal/calendar"
	"tripplanner/internal/domain"
	"tripplanner/internal/planning"
	"tripplanner/internal/validation"
)

// handleCreateSession starts a session in the collecting phase.
// POST /api/v1/sessions
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.Create(r.Context())
	if err != nil {
		s.writeStoreErr(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// handleListSessions lists session snapshots, most recent first.
// GET /api/v1/sessions
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	views, err := s.sessions.List(r.Context())
	if err != nil {
		s.writeStoreErr(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": views,
		"total": len(views),
	})
}

// GET /api/v1/sessions/{id}
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreErr(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DELETE /api/v1/sessions/{id}
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeStoreErr(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpdateTrip replaces the trip parameters. The first useful update
// moves the session to conversing and posts the welcome message.
// PUT /api/v1/sessions/{id}/trip
func (s *Server) handleUpdateTrip(w http.ResponseWriter, r *http.Request) {
	var trip domain.TripParameters
	if err := decodeJSON(w, r, &trip); err != nil {
		s.writeErr(r.Context(), w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	view, err := s.sessions.UpdateTrip(r.Context(), r.PathValue("id"), trip)
	if err != nil {
		s.writeStoreErr(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSendMessage runs one chat turn. A completion failure still answers
// 200 with the fallback reply and a notice.
// POST /api/v1/sessions/{id}/messages
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeErr(r.Context(), w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	resp, err := s.sessions.SendMessage(r.Context(), r.PathValue("id"), req.Message)
	if err != nil {
		s.writeStoreErr(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/v1/sessions/{id}/itinerary
func (s *Server) handleGenerateItinerary(w http.ResponseWriter, r *http.Request) {
	resp, err := s.sessions.GenerateItinerary(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreErr(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/v1/sessions/{id}/itinerary
func (s *Server) handleGetItinerary(w http.ResponseWriter, r *http.Request) {
	vis, err := s.sessions.Visualization(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreErr(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, vis)
}

// handleItineraryCalendar exports the itinerary as an iCalendar file. Slot
// times are local to the destination when its timezone is known.
// GET /api/v1/sessions/{id}/itinerary.ics
func (s *Server) handleItineraryCalendar(w http.ResponseWriter, r *http.Request) {
	vis, err := s.sessions.Visualization(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreErr(r.Context(), w, err)
		return
	}
	loc := time.UTC
	if d := vis.Map.Destination; d != nil && d.Timezone != "" {
		if l, err := time.LoadLocation(d.Timezone); err == nil {
			loc = l
		} else {
			s.logger.WarnContext(r.Context(), "unknown destination timezone", "timezone", d.Timezone, "error", err)
		}
	}
	body, err := calendar.Export(vis.Itinerary, loc)
	if err != nil {
		s.writeErr(r.Context(), w, http.StatusInternalServerError, "calendar export failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="itinerary.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// POST /api/v1/sessions/{id}/back
func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.Back(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreErr(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// POST /api/v1/sessions/{id}/reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.Reset(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreErr(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleExtract runs the extractor and cleaner over caller-supplied text
// without touching any session.
// POST /api/v1/extract
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req domain.ExtractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeErr(r.Context(), w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateExtractText(req.Text); err != nil {
		s.writeStoreErr(r.Context(), w, err)
		return
	}
	ex := s.assistant.Extractor().ExtractDetailed(req.Text)
	s.metrics.RecordExtraction(ex.Strategy, len(ex.Recommendations), ex.Skipped)
	writeJSON(w, http.StatusOK, domain.ExtractResponse{
		Recommendations: ex.Recommendations,
		Cleaned:         planning.Clean(req.Text),
	})
}

// handleGeocode resolves a location label against the city table.
// GET /api/v1/geocode?q=
func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.writeErr(r.Context(), w, http.StatusBadRequest, "q is required", "")
		return
	}
	if err := validation.ValidateLocation("q", q); err != nil {
		s.writeStoreErr(r.Context(), w, err)
		return
	}
	place, _ := s.geocoder.Lookup(q)
	writeJSON(w, http.StatusOK, place)
}
