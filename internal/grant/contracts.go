package grant

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/fedgrant/internal/domain/repository"
)

// ClientStore authenticates OAuth clients for a specific grant.
type ClientStore interface {
	// Get returns the client when clientSecret matches and the client is
	// permitted to use grantType. Any authentication failure is reported as
	// repository.ErrNotFound so callers cannot tell which check failed.
	Get(ctx context.Context, clientID, clientSecret, grantType string) (*repository.Client, error)
}

// Profile is the minimal identity an external provider returns for a token.
type Profile struct {
	Provider string
	ID       string
	Name     string
	Email    string
}

// ProfileFetcher retrieves the external profile behind a provider token.
type ProfileFetcher interface {
	Fetch(ctx context.Context, token string) (*Profile, error)
}

// ErrRejected is returned by a Verifier that does not accept the token.
var ErrRejected = errors.New("grant: credentials rejected")

// Verifier decides which local user an external token belongs to.
//
// It returns the local user id, ErrRejected, or any other error for faults
// it could not resolve. profile is nil when profile gathering is disabled.
// For a given (token, profile) the decision must be the same on every call.
type Verifier interface {
	Verify(ctx context.Context, token string, profile *Profile) (userID string, err error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, token string, profile *Profile) (string, error)

func (f VerifierFunc) Verify(ctx context.Context, token string, profile *Profile) (string, error) {
	return f(ctx, token, profile)
}

// EventType names an audit signal.
type EventType string

const (
	EventClientAuthFailed EventType = "client_authentication_failed"
	EventUserAuthFailed   EventType = "user_authentication_failed"
)

// Event is emitted on authentication failures. It never carries secrets or tokens.
type Event struct {
	Type       EventType
	Grant      string
	ClientID   string
	RemoteAddr string
	At         time.Time
}

// EventSink receives audit events. Emit must not block the request.
type EventSink interface {
	Emit(ctx context.Context, ev Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, ev Event)

func (f EventSinkFunc) Emit(ctx context.Context, ev Event) { f(ctx, ev) }

type nopSink struct{}

func (nopSink) Emit(context.Context, Event) {}
