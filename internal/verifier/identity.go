package verifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/fedgrant/internal/domain/repository"
	"github.com/dropDatabas3/fedgrant/internal/grant"
)

// IdentityVerifier resolves the profile returned by the provider to the
// local user linked to it.
type IdentityVerifier struct {
	identities repository.IdentityRepository
}

func NewIdentityVerifier(identities repository.IdentityRepository) *IdentityVerifier {
	return &IdentityVerifier{identities: identities}
}

// Verify rejects when there is no profile or no linked user. Lookup faults
// are returned as-is.
func (v *IdentityVerifier) Verify(ctx context.Context, _ string, profile *grant.Profile) (string, error) {
	if profile == nil || profile.Provider == "" || profile.ID == "" {
		return "", grant.ErrRejected
	}
	return resolve(ctx, v.identities, profile.Provider, profile.ID)
}

func resolve(ctx context.Context, identities repository.IdentityRepository, provider, subject string) (string, error) {
	id, err := identities.GetByProvider(ctx, provider, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", grant.ErrRejected
		}
		return "", fmt.Errorf("identity lookup: %w", err)
	}
	return id.UserID, nil
}
