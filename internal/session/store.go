package session

import "context"

// Store persists sessions. Implementations return copies: mutating a
// session obtained from Get has no effect until it is passed to Put. Get
// and Delete return an error wrapping storage.ErrNotFound for unknown IDs;
// Create returns storage.ErrConflict when the ID is taken.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Session, error)
}
