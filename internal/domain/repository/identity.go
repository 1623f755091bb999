package repository

import (
	"context"
	"time"
)

// SocialIdentity links an external provider account to a local user.
type SocialIdentity struct {
	UserID         string
	Provider       string // "facebook", "assertion", ...
	ProviderUserID string // subject id at the provider
	CreatedAt      time.Time
}

// IdentityRepository resolves external accounts to local users.
type IdentityRepository interface {
	// GetByProvider returns the identity for (provider, providerUserID), or ErrNotFound.
	GetByProvider(ctx context.Context, provider, providerUserID string) (*SocialIdentity, error)

	// Link creates the mapping. ErrConflict if the external account is
	// already linked to a user.
	Link(ctx context.Context, userID, provider, providerUserID string) (*SocialIdentity, error)
}
