package repository

import (
	"context"
	"time"
)

// AccessToken is a bearer credential bound to a session. Scopes is a
// snapshot of the session scopes taken at issuance.
type AccessToken struct {
	ID        string // raw opaque id; adapters persist only its hash
	SessionID string
	Scopes    []string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// RefreshToken mints new access tokens for its session. SessionID is the
// session of the access token it was issued with.
type RefreshToken struct {
	ID            string // raw opaque id; adapters persist only its hash
	AccessTokenID string // raw id of the access token it was issued with
	SessionID     string
	ExpiresAt     time.Time
	CreatedAt     time.Time
	RevokedAt     *time.Time
}

// Active reports whether the refresh token can still be used at now.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// TokenRepository persists issued tokens.
//
// Lookups take the raw token id; adapters hash it the same way they did on
// Create, so a leaked table never yields usable tokens. Records returned by
// the Get methods carry the hashed forms in ID and AccessTokenID.
type TokenRepository interface {
	CreateAccessToken(ctx context.Context, t *AccessToken) error
	GetAccessToken(ctx context.Context, id string) (*AccessToken, error)

	CreateRefreshToken(ctx context.Context, t *RefreshToken) error
	GetRefreshToken(ctx context.Context, id string) (*RefreshToken, error)

	// RevokeRefreshToken marks the token revoked. ErrNotFound if it is
	// unknown or already revoked.
	RevokeRefreshToken(ctx context.Context, id string) error
}
