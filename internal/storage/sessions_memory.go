package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"tripplanner/internal/session"
)

// Defaults for session expiry.
const (
	DefaultSessionTTL      = 24 * time.Hour
	DefaultCleanupInterval = 10 * time.Minute
)

// MemorySessionStore keeps sessions in a TTL cache. Sessions not written
// for ttl are evicted. It implements session.Store.
type MemorySessionStore struct {
	cache *cache.Cache
}

// NewMemorySessionStore creates a store. A cleanup interval of zero or less
// disables the background janitor; expired entries are then dropped on
// access only.
func NewMemorySessionStore(ttl, cleanup time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if cleanup < 0 {
		cleanup = 0
	}
	return &MemorySessionStore{cache: cache.New(ttl, cleanup)}
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (*session.Session, error) {
	v, ok := m.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return v.(*session.Session).Clone(), nil
}

func (m *MemorySessionStore) Create(_ context.Context, s *session.Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("session id is required: %w", ErrValidation)
	}
	if err := m.cache.Add(s.ID, s.Clone(), cache.DefaultExpiration); err != nil {
		return fmt.Errorf("session %s: %w", s.ID, ErrConflict)
	}
	return nil
}

func (m *MemorySessionStore) Put(_ context.Context, s *session.Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("session id is required: %w", ErrValidation)
	}
	m.cache.Set(s.ID, s.Clone(), cache.DefaultExpiration)
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	if _, ok := m.cache.Get(id); !ok {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	m.cache.Delete(id)
	return nil
}

func (m *MemorySessionStore) List(_ context.Context) ([]*session.Session, error) {
	items := m.cache.Items()
	out := make([]*session.Session, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(*session.Session).Clone())
	}
	return out, nil
}

// Count returns the number of stored sessions, including expired entries
// not yet cleaned up.
func (m *MemorySessionStore) Count() int {
	return m.cache.ItemCount()
}

var _ session.Store = (*MemorySessionStore)(nil)
