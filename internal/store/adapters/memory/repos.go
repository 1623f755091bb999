package memory

import (
	"context"
	"strings"

	"github.com/dropDatabas3/fedgrant/internal/domain/repository"
)

// ─── Clients ───

type clientRepo struct{ c *Connection }

func (r clientRepo) Get(_ context.Context, clientID string) (*repository.Client, error) {
	defer r.c.rlock(nil)()
	cl, ok := r.c.clients[clientID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cl.Scopes = cloneStrings(cl.Scopes)
	cl.GrantTypes = cloneStrings(cl.GrantTypes)
	return &cl, nil
}

func (r clientRepo) Create(_ context.Context, in repository.ClientInput) (*repository.Client, error) {
	if strings.TrimSpace(in.ClientID) == "" || in.SecretHash == "" {
		return nil, repository.ErrInvalidInput
	}
	defer r.c.lock(nil)()
	if _, exists := r.c.clients[in.ClientID]; exists {
		return nil, repository.ErrConflict
	}
	cl := repository.Client{
		ClientID:        in.ClientID,
		Name:            in.Name,
		SecretHash:      in.SecretHash,
		Scopes:          cloneStrings(in.Scopes),
		GrantTypes:      cloneStrings(in.GrantTypes),
		AccessTokenTTL:  in.AccessTokenTTL,
		RefreshTokenTTL: in.RefreshTokenTTL,
		CreatedAt:       r.c.now().UTC(),
	}
	r.c.clients[cl.ClientID] = cl
	out := cl
	return &out, nil
}

// ─── Sessions ───

type sessionRepo struct {
	c  *Connection
	tx *tx
}

func (r sessionRepo) Create(_ context.Context, s *repository.Session) error {
	defer r.c.lock(r.tx)()
	if _, exists := r.c.sessions[s.ID]; exists {
		return repository.ErrConflict
	}
	cp := *s
	cp.Scopes = cloneStrings(s.Scopes)
	r.c.sessions[s.ID] = cp
	r.tx.onRollback(func() { delete(r.c.sessions, s.ID) })
	return nil
}

func (r sessionRepo) Get(_ context.Context, id string) (*repository.Session, error) {
	defer r.c.rlock(r.tx)()
	s, ok := r.c.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s.Scopes = cloneStrings(s.Scopes)
	return &s, nil
}

// ─── Tokens ───

type tokenRepo struct {
	c  *Connection
	tx *tx
}

func (r tokenRepo) CreateAccessToken(_ context.Context, t *repository.AccessToken) error {
	defer r.c.lock(r.tx)()
	key := hash(t.ID)
	if _, exists := r.c.access[key]; exists {
		return repository.ErrConflict
	}
	if _, ok := r.c.sessions[t.SessionID]; !ok {
		return repository.ErrInvalidInput
	}
	cp := *t
	cp.ID = key
	cp.Scopes = cloneStrings(t.Scopes)
	r.c.access[key] = cp
	r.tx.onRollback(func() { delete(r.c.access, key) })
	return nil
}

func (r tokenRepo) GetAccessToken(_ context.Context, id string) (*repository.AccessToken, error) {
	defer r.c.rlock(r.tx)()
	t, ok := r.c.access[hash(id)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t.Scopes = cloneStrings(t.Scopes)
	return &t, nil
}

func (r tokenRepo) CreateRefreshToken(_ context.Context, t *repository.RefreshToken) error {
	defer r.c.lock(r.tx)()
	key := hash(t.ID)
	if _, exists := r.c.refresh[key]; exists {
		return repository.ErrConflict
	}
	accessKey := hash(t.AccessTokenID)
	if _, ok := r.c.access[accessKey]; !ok {
		return repository.ErrInvalidInput
	}
	cp := *t
	cp.ID = key
	cp.AccessTokenID = accessKey
	r.c.refresh[key] = cp
	r.tx.onRollback(func() { delete(r.c.refresh, key) })
	return nil
}

func (r tokenRepo) GetRefreshToken(_ context.Context, id string) (*repository.RefreshToken, error) {
	defer r.c.rlock(r.tx)()
	t, ok := r.c.refresh[hash(id)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r tokenRepo) RevokeRefreshToken(_ context.Context, id string) error {
	defer r.c.lock(r.tx)()
	key := hash(id)
	t, ok := r.c.refresh[key]
	if !ok || t.RevokedAt != nil {
		return repository.ErrNotFound
	}
	prev := t
	now := r.c.now().UTC()
	t.RevokedAt = &now
	r.c.refresh[key] = t
	r.tx.onRollback(func() { r.c.refresh[key] = prev })
	return nil
}

// ─── Identities ───

type identityRepo struct{ c *Connection }

func identityKey(provider, providerUserID string) string {
	return provider + "\x00" + providerUserID
}

func (r identityRepo) GetByProvider(_ context.Context, provider, providerUserID string) (*repository.SocialIdentity, error) {
	defer r.c.rlock(nil)()
	id, ok := r.c.identities[identityKey(provider, providerUserID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &id, nil
}

func (r identityRepo) Link(_ context.Context, userID, provider, providerUserID string) (*repository.SocialIdentity, error) {
	if userID == "" || provider == "" || providerUserID == "" {
		return nil, repository.ErrInvalidInput
	}
	defer r.c.lock(nil)()
	key := identityKey(provider, providerUserID)
	if _, exists := r.c.identities[key]; exists {
		return nil, repository.ErrConflict
	}
	id := repository.SocialIdentity{
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: providerUserID,
		CreatedAt:      r.c.now().UTC(),
	}
	r.c.identities[key] = id
	out := id
	return &out, nil
}
