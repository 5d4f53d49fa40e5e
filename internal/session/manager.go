package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"tripplanner/internal/domain"
	"tripplanner/internal/observability"
	"tripplanner/internal/planning"
	"tripplanner/internal/validation"
)

// Notices shown next to fallback replies.
const (
	chatFailureNotice      = "The assistant is unavailable right now. Showing a fallback reply."
	itineraryFailureNotice = "The itinerary could not be generated right now. Please try again."
)

// MapResolver turns trip locations into map data for the visualization.
type MapResolver interface {
	MapView(ctx context.Context, trip domain.TripParameters) domain.MapView
}

// Manager owns the sessions and routes every mutation through the state
// machine. Completion calls run without holding the lock; at most one may
// be pending per session.
type Manager struct {
	mu        sync.Mutex
	store     Store
	assistant *planning.Assistant
	maps      MapResolver
	logger    observability.Logger
	metrics   *observability.Metrics
}

// Option configures a Manager.
type Option func(*Manager)

// WithMapResolver sets the map data source for visualizations.
func WithMapResolver(r MapResolver) Option {
	return func(m *Manager) { m.maps = r }
}

// WithLogger sets the manager's logger.
func WithLogger(l observability.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// NewManager creates a session manager.
func NewManager(store Store, assistant *planning.Assistant, opts ...Option) *Manager {
	m := &Manager{store: store, assistant: assistant}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = observability.NewLogger(observability.DefaultConfig())
	}
	m.logger = m.logger.WithComponent("session")
	return m
}

// Create starts a new session in the collecting phase.
func (m *Manager) Create(ctx context.Context) (domain.SessionView, error) {
	s := New(uuid.NewString())
	ctx = observability.WithSessionID(ctx, s.ID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Create(ctx, s); err != nil {
		return domain.SessionView{}, fmt.Errorf("create session: %w", err)
	}
	m.metrics.RecordSessionCreated()
	m.logger.InfoContext(ctx, "session created")
	return s.View(), nil
}

// Get returns the current state of a session.
func (m *Manager) Get(ctx context.Context, id string) (domain.SessionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return domain.SessionView{}, err
	}
	return s.View(), nil
}

// List returns all sessions, most recently updated first.
func (m *Manager) List(ctx context.Context) ([]domain.SessionView, error) {
	m.mu.Lock()
	sessions, err := m.store.List(ctx)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	views := lo.Map(sessions, func(s *Session, _ int) domain.SessionView { return s.View() })
	slices.SortFunc(views, func(a, b domain.SessionView) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return views, nil
}

// Delete removes a session. A response still in flight for it will be
// discarded.
func (m *Manager) Delete(ctx context.Context, id string) error {
	ctx = observability.WithSessionID(ctx, id)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "session deleted")
	return nil
}

// UpdateTrip validates and stores trip parameters.
func (m *Manager) UpdateTrip(ctx context.Context, id string, trip domain.TripParameters) (domain.SessionView, error) {
	ctx = observability.WithSessionID(ctx, id)
	trip = validation.NormalizeTrip(trip)
	if err := validation.ValidateTrip(trip); err != nil {
		return domain.SessionView{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return domain.SessionView{}, err
	}
	if s.UpdateTrip(trip) {
		m.logger.InfoContext(ctx, "conversation started")
	}
	if err := m.store.Put(ctx, s); err != nil {
		return domain.SessionView{}, err
	}
	return s.View(), nil
}

// SendMessage runs one chat turn. A completion failure is not an error:
// the transcript gets the fallback reply and the response carries a
// notice.
func (m *Manager) SendMessage(ctx context.Context, id, text string) (domain.ChatResponse, error) {
	ctx = observability.WithSessionID(ctx, id)
	if err := validation.ValidateMessage(text); err != nil {
		return domain.ChatResponse{}, err
	}

	m.mu.Lock()
	s, err := m.store.Get(ctx, id)
	if err != nil {
		m.mu.Unlock()
		return domain.ChatResponse{}, err
	}
	if s.Pending {
		m.mu.Unlock()
		return domain.ChatResponse{}, ErrRequestPending
	}
	history := slices.Clone(s.Transcript)
	if _, err := s.AppendUserMessage(text); err != nil {
		m.mu.Unlock()
		return domain.ChatResponse{}, err
	}
	s.Pending = true
	epoch, trip := s.Epoch, s.Trip.Clone()
	if err := m.store.Put(ctx, s); err != nil {
		m.mu.Unlock()
		return domain.ChatResponse{}, err
	}
	m.mu.Unlock()

	reply, replyErr := m.assistant.Respond(ctx, trip, history, text)

	m.mu.Lock()
	defer m.mu.Unlock()
	s, err = m.current(ctx, id, epoch)
	if err != nil {
		return domain.ChatResponse{}, err
	}
	s.Pending = false
	msg, err := s.AppendAssistantMessage(reply.Message)
	if err != nil {
		return domain.ChatResponse{}, err
	}
	s.AddRecommendations(reply.Recommendations)
	if err := m.store.Put(ctx, s); err != nil {
		return domain.ChatResponse{}, err
	}

	resp := domain.ChatResponse{Message: msg, Recommendations: reply.Recommendations}
	if resp.Recommendations == nil {
		resp.Recommendations = []domain.Recommendation{}
	}
	if replyErr != nil {
		resp.Notice = chatFailureNotice
		m.logger.WarnContext(ctx, "chat turn used fallback reply", "error", replyErr)
	}
	return resp, nil
}

// GenerateItinerary asks for a full itinerary and moves the session to
// visualizing. Recommendations come from the generation reply, then from
// the pool collected during chat, and finally from the fixed fallback. On
// completion failure the apology is appended, the phase stays conversing
// and the response carries a notice.
func (m *Manager) GenerateItinerary(ctx context.Context, id string) (domain.ItineraryResponse, error) {
	ctx = observability.WithSessionID(ctx, id)
	m.mu.Lock()
	s, err := m.store.Get(ctx, id)
	if err != nil {
		m.mu.Unlock()
		return domain.ItineraryResponse{}, err
	}
	if s.Phase != domain.PhaseConversing {
		m.mu.Unlock()
		return domain.ItineraryResponse{}, fmt.Errorf("%w: cannot generate an itinerary while %s", ErrInvalidTransition, s.Phase)
	}
	if s.Pending {
		m.mu.Unlock()
		return domain.ItineraryResponse{}, ErrRequestPending
	}
	s.Pending = true
	epoch, trip, history := s.Epoch, s.Trip.Clone(), slices.Clone(s.Transcript)
	if err := m.store.Put(ctx, s); err != nil {
		m.mu.Unlock()
		return domain.ItineraryResponse{}, err
	}
	m.mu.Unlock()

	reply, replyErr := m.assistant.GenerateItinerary(ctx, trip, history)

	m.mu.Lock()
	defer m.mu.Unlock()
	s, err = m.current(ctx, id, epoch)
	if err != nil {
		return domain.ItineraryResponse{}, err
	}
	s.Pending = false

	if replyErr != nil {
		msg, err := s.AppendAssistantMessage(reply.Message)
		if err != nil {
			return domain.ItineraryResponse{}, err
		}
		if err := m.store.Put(ctx, s); err != nil {
			return domain.ItineraryResponse{}, err
		}
		m.logger.WarnContext(ctx, "itinerary generation failed", "error", replyErr)
		return domain.ItineraryResponse{Phase: s.Phase, Message: &msg, Notice: itineraryFailureNotice}, nil
	}

	recs, source := reply.Recommendations, "reply"
	if len(recs) == 0 {
		recs, source = s.Recommendations, "pool"
	}
	it := planning.Materialize(recs, s.Trip)
	it.Summary = reply.Message
	if err := s.Visualize(it); err != nil {
		return domain.ItineraryResponse{}, err
	}
	if err := m.store.Put(ctx, s); err != nil {
		return domain.ItineraryResponse{}, err
	}

	if it.Fallback {
		source = "fallback"
	}
	m.logger.InfoContext(ctx, "itinerary generated",
		"source", source,
		"items", len(it.Items),
		"days", it.TotalDays,
	)
	vis := m.visualization(ctx, s)
	return domain.ItineraryResponse{Phase: s.Phase, Visualization: &vis}, nil
}

// Visualization returns the payload of the visualizing phase.
func (m *Manager) Visualization(ctx context.Context, id string) (domain.Visualization, error) {
	m.mu.Lock()
	s, err := m.store.Get(ctx, id)
	m.mu.Unlock()
	if err != nil {
		return domain.Visualization{}, err
	}
	if s.Phase != domain.PhaseVisualizing || s.Itinerary == nil {
		return domain.Visualization{}, fmt.Errorf("%w: no itinerary while %s", ErrInvalidTransition, s.Phase)
	}
	return m.visualization(ctx, s), nil
}

// Back returns from visualizing to conversing.
func (m *Manager) Back(ctx context.Context, id string) (domain.SessionView, error) {
	return m.transition(ctx, id, func(s *Session) error { return s.Back() })
}

// Reset returns the session to collecting. A request in flight at this
// point will have its response discarded.
func (m *Manager) Reset(ctx context.Context, id string) (domain.SessionView, error) {
	ctx = observability.WithSessionID(ctx, id)
	return m.transition(ctx, id, func(s *Session) error {
		if s.Pending {
			m.logger.InfoContext(ctx, "reset with request in flight")
		}
		s.Reset()
		return nil
	})
}

func (m *Manager) transition(ctx context.Context, id string, fn func(*Session) error) (domain.SessionView, error) {
	ctx = observability.WithSessionID(ctx, id)
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return domain.SessionView{}, err
	}
	if err := fn(s); err != nil {
		return domain.SessionView{}, err
	}
	if err := m.store.Put(ctx, s); err != nil {
		return domain.SessionView{}, err
	}
	return s.View(), nil
}

// current reloads a session after a completion call and checks that it is
// still the incarnation the request was issued for. Callers hold m.mu.
func (m *Manager) current(ctx context.Context, id string, epoch int) (*Session, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil || s.Epoch != epoch {
		m.metrics.RecordStaleResponse()
		m.logger.InfoContext(ctx, "discarding stale response", "epoch", epoch)
		if err != nil {
			return nil, errors.Join(ErrStaleResponse, err)
		}
		return nil, ErrStaleResponse
	}
	return s, nil
}

func (m *Manager) visualization(ctx context.Context, s *Session) domain.Visualization {
	view := domain.MapView{Mode: domain.MapModePlaceholder}
	if m.maps != nil {
		view = m.maps.MapView(ctx, s.Trip)
	}
	c := s.Clone()
	return domain.Visualization{
		SessionID: c.ID,
		Trip:      c.Trip,
		Itinerary: *c.Itinerary,
		Map:       view,
	}
}
