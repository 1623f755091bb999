package repository

import (
	"context"
	"time"
)

// OwnerTypeUser marks sessions owned by an end user.
const OwnerTypeUser = "user"

// Session binds a user, a client and a scope set. Issued tokens reference it.
// It is not mutated once persisted.
type Session struct {
	ID        string
	OwnerType string
	OwnerID   string
	ClientID  string
	Scopes    []string
	CreatedAt time.Time
}

// AssociateScope adds scope to the session, ignoring duplicates and keeping
// the order in which scopes were first associated.
func (s *Session) AssociateScope(scope string) {
	for _, have := range s.Scopes {
		if have == scope {
			return
		}
	}
	s.Scopes = append(s.Scopes, scope)
}

// SessionRepository persists sessions.
type SessionRepository interface {
	// Create persists a new session. ErrConflict on id collision.
	Create(ctx context.Context, s *Session) error

	// Get returns a session by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)
}
