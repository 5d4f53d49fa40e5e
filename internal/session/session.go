// Package session implements the trip planning state machine and the
// manager that coordinates it with the completion service.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tripplanner/internal/domain"
	"tripplanner/internal/planning"
)

var (
	// ErrInvalidTransition is returned when an operation is not allowed in
	// the current phase.
	ErrInvalidTransition = errors.New("invalid phase transition")

	// ErrRequestPending is returned when a completion is already in flight
	// for the session.
	ErrRequestPending = errors.New("a request is already pending for this session")

	// ErrStaleResponse is returned when the session was reset or deleted
	// while its completion was in flight. The response is discarded.
	ErrStaleResponse = errors.New("session changed while the request was in flight")
)

// minMessagesToGenerate is the transcript length the UI waits for before
// offering itinerary generation.
const minMessagesToGenerate = 3

// Session is one trip planning flow. Fields are exported for stores; all
// mutation goes through the transition methods.
type Session struct {
	ID    string
	Epoch int
	Phase domain.SessionPhase
	Trip  domain.TripParameters

	// Transcript is append-only within an epoch.
	Transcript []domain.ChatMessage
	// Recommendations is the pool collected from chat replies.
	Recommendations []domain.Recommendation
	Itinerary       *domain.Itinerary

	Pending   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New returns a session in the collecting phase with default trip
// parameters.
func New(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:         id,
		Phase:      domain.PhaseCollecting,
		Trip:       domain.DefaultTripParameters(),
		Transcript: []domain.ChatMessage{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// UpdateTrip stores new trip parameters. The first time a collecting
// session receives useful parameters with an empty transcript it moves to
// conversing and gets the welcome message; it reports whether that
// happened.
func (s *Session) UpdateTrip(trip domain.TripParameters) bool {
	s.Trip = trip.Clone()
	s.touch()

	if s.Phase != domain.PhaseCollecting || !trip.IsUseful() || len(s.Transcript) > 0 {
		return false
	}
	s.Phase = domain.PhaseConversing
	s.Transcript = append(s.Transcript, newMessage(domain.RoleAssistant, planning.WelcomeMessage(trip)))
	return true
}

// AppendUserMessage adds a user message. Requires conversing.
func (s *Session) AppendUserMessage(content string) (domain.ChatMessage, error) {
	return s.appendMessage(domain.RoleUser, content)
}

// AppendAssistantMessage adds an assistant message. Requires conversing.
func (s *Session) AppendAssistantMessage(content string) (domain.ChatMessage, error) {
	return s.appendMessage(domain.RoleAssistant, content)
}

func (s *Session) appendMessage(role domain.Role, content string) (domain.ChatMessage, error) {
	if s.Phase != domain.PhaseConversing {
		return domain.ChatMessage{}, fmt.Errorf("%w: cannot add messages while %s", ErrInvalidTransition, s.Phase)
	}
	msg := newMessage(role, content)
	s.Transcript = append(s.Transcript, msg)
	s.touch()
	return msg, nil
}

// AddRecommendations extends the pool used when an itinerary reply carries
// no recommendations of its own.
func (s *Session) AddRecommendations(recs []domain.Recommendation) {
	if len(recs) == 0 {
		return
	}
	s.Recommendations = append(s.Recommendations, recs...)
	s.touch()
}

// Visualize installs a freshly materialized itinerary and moves from
// conversing to visualizing.
func (s *Session) Visualize(it domain.Itinerary) error {
	if s.Phase != domain.PhaseConversing {
		return fmt.Errorf("%w: cannot visualize while %s", ErrInvalidTransition, s.Phase)
	}
	s.Itinerary = &it
	s.Phase = domain.PhaseVisualizing
	s.touch()
	return nil
}

// Back returns from visualizing to conversing without touching any data.
func (s *Session) Back() error {
	if s.Phase != domain.PhaseVisualizing {
		return fmt.Errorf("%w: cannot go back while %s", ErrInvalidTransition, s.Phase)
	}
	s.Phase = domain.PhaseConversing
	s.touch()
	return nil
}

// Reset returns to collecting from any phase, clearing the trip, the
// transcript, the pool and the itinerary. The epoch moves forward so that
// responses to requests issued before the reset can be recognized.
func (s *Session) Reset() {
	s.Epoch++
	s.Phase = domain.PhaseCollecting
	s.Trip = domain.DefaultTripParameters()
	s.Transcript = []domain.ChatMessage{}
	s.Recommendations = nil
	s.Itinerary = nil
	s.Pending = false
	s.touch()
}

// CanGenerate reports whether the UI should offer itinerary generation.
// It is advisory; generation is not refused on this basis.
func (s *Session) CanGenerate() bool {
	return len(s.Transcript) > minMessagesToGenerate
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.Trip = s.Trip.Clone()
	c.Transcript = append([]domain.ChatMessage{}, s.Transcript...)
	if s.Recommendations != nil {
		c.Recommendations = append([]domain.Recommendation(nil), s.Recommendations...)
	}
	if s.Itinerary != nil {
		it := *s.Itinerary
		it.Trip = s.Itinerary.Trip.Clone()
		it.Items = append([]domain.ItineraryItem(nil), s.Itinerary.Items...)
		it.Days = make([]domain.DayPlan, len(s.Itinerary.Days))
		for i, d := range s.Itinerary.Days {
			it.Days[i] = domain.DayPlan{Day: d.Day, Items: append([]domain.ItineraryItem(nil), d.Items...)}
		}
		c.Itinerary = &it
	}
	return &c
}

// View returns the externally visible state.
func (s *Session) View() domain.SessionView {
	c := s.Clone()
	recs := c.Recommendations
	if recs == nil {
		recs = []domain.Recommendation{}
	}
	return domain.SessionView{
		ID:              c.ID,
		Phase:           c.Phase,
		Trip:            c.Trip,
		Transcript:      c.Transcript,
		Recommendations: recs,
		HasItinerary:    c.Itinerary != nil,
		CanGenerate:     c.CanGenerate(),
		Pending:         c.Pending,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}

// newMessage stamps a message with a time-ordered ID.
func newMessage(role domain.Role, content string) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}
