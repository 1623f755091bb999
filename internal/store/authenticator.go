package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dropDatabas3/fedgrant/internal/domain/repository"
	"github.com/dropDatabas3/fedgrant/internal/security/password"
)

// ClientAuthenticator verifies client credentials against a
// ClientRepository. It satisfies grant.ClientStore.
type ClientAuthenticator struct {
	clients repository.ClientRepository
}

func NewClientAuthenticator(clients repository.ClientRepository) *ClientAuthenticator {
	return &ClientAuthenticator{clients: clients}
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// dummy is verified against on unknown clients so lookups of missing and
// existing ids cost about the same.
func dummy() string {
	dummyOnce.Do(func() {
		dummyHash, _ = password.Hash(password.Default, "fedgrant-dummy-secret")
	})
	return dummyHash
}

// Get returns the client when secret matches its hash and grantType is in
// its allowed grants. Every authentication failure is repository.ErrNotFound.
func (a *ClientAuthenticator) Get(ctx context.Context, clientID, secret, grantType string) (*repository.Client, error) {
	c, err := a.clients.Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			password.Verify(secret, dummy())
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("client lookup: %w", err)
	}
	if !password.Verify(secret, c.SecretHash) {
		return nil, repository.ErrNotFound
	}
	if !c.AllowsGrant(grantType) {
		return nil, repository.ErrNotFound
	}
	return c, nil
}
