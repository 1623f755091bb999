package pg

import (
	"context"
	"strings"

	"github.com/dropDatabas3/fedgrant/internal/domain/repository"
	tokens "github.com/dropDatabas3/fedgrant/internal/security/token"
)

// ─── Clients ───

type clientRepo struct{ q querier }

func (r clientRepo) Get(ctx context.Context, clientID string) (*repository.Client, error) {
	const query = `
		SELECT client_id, name, secret_hash, scopes, grant_types,
		       access_token_ttl, refresh_token_ttl, created_at
		FROM oauth_client WHERE client_id = $1`
	var c repository.Client
	err := r.q.QueryRow(ctx, query, clientID).Scan(
		&c.ClientID, &c.Name, &c.SecretHash, &c.Scopes, &c.GrantTypes,
		&c.AccessTokenTTL, &c.RefreshTokenTTL, &c.CreatedAt,
	)
	if err != nil {
		return nil, mapErr("get client", err)
	}
	return &c, nil
}

func (r clientRepo) Create(ctx context.Context, in repository.ClientInput) (*repository.Client, error) {
	if strings.TrimSpace(in.ClientID) == "" || in.SecretHash == "" {
		return nil, repository.ErrInvalidInput
	}
	const query = `
		INSERT INTO oauth_client (client_id, name, secret_hash, scopes, grant_types, access_token_ttl, refresh_token_ttl)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	c := repository.Client{
		ClientID:        in.ClientID,
		Name:            in.Name,
		SecretHash:      in.SecretHash,
		Scopes:          nonNil(in.Scopes),
		GrantTypes:      nonNil(in.GrantTypes),
		AccessTokenTTL:  in.AccessTokenTTL,
		RefreshTokenTTL: in.RefreshTokenTTL,
	}
	err := r.q.QueryRow(ctx, query,
		c.ClientID, c.Name, c.SecretHash, c.Scopes, c.GrantTypes, c.AccessTokenTTL, c.RefreshTokenTTL,
	).Scan(&c.CreatedAt)
	if err != nil {
		return nil, mapErr("create client", err)
	}
	return &c, nil
}

// ─── Sessions ───

type sessionRepo struct{ q querier }

func (r sessionRepo) Create(ctx context.Context, s *repository.Session) error {
	const query = `
		INSERT INTO oauth_session (id, owner_type, owner_id, client_id, scopes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query, s.ID, s.OwnerType, s.OwnerID, s.ClientID, nonNil(s.Scopes), s.CreatedAt)
	return mapErr("create session", err)
}

func (r sessionRepo) Get(ctx context.Context, id string) (*repository.Session, error) {
	const query = `
		SELECT id, owner_type, owner_id, client_id, scopes, created_at
		FROM oauth_session WHERE id = $1`
	var s repository.Session
	err := r.q.QueryRow(ctx, query, id).Scan(&s.ID, &s.OwnerType, &s.OwnerID, &s.ClientID, &s.Scopes, &s.CreatedAt)
	if err != nil {
		return nil, mapErr("get session", err)
	}
	return &s, nil
}

// ─── Tokens ───

type tokenRepo struct{ q querier }

func (r tokenRepo) CreateAccessToken(ctx context.Context, t *repository.AccessToken) error {
	const query = `
		INSERT INTO oauth_access_token (token_hash, session_id, scopes, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.Exec(ctx, query, tokens.SHA256Base64URL(t.ID), t.SessionID, nonNil(t.Scopes), t.ExpiresAt, t.CreatedAt)
	return mapErr("create access token", err)
}

func (r tokenRepo) GetAccessToken(ctx context.Context, id string) (*repository.AccessToken, error) {
	const query = `
		SELECT token_hash, session_id, scopes, expires_at, created_at
		FROM oauth_access_token WHERE token_hash = $1`
	var t repository.AccessToken
	err := r.q.QueryRow(ctx, query, tokens.SHA256Base64URL(id)).Scan(
		&t.ID, &t.SessionID, &t.Scopes, &t.ExpiresAt, &t.CreatedAt,
	)
	if err != nil {
		return nil, mapErr("get access token", err)
	}
	return &t, nil
}

func (r tokenRepo) CreateRefreshToken(ctx context.Context, t *repository.RefreshToken) error {
	const query = `
		INSERT INTO oauth_refresh_token (token_hash, access_token_hash, session_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.Exec(ctx, query,
		tokens.SHA256Base64URL(t.ID), tokens.SHA256Base64URL(t.AccessTokenID), t.SessionID, t.ExpiresAt, t.CreatedAt,
	)
	return mapErr("create refresh token", err)
}

func (r tokenRepo) GetRefreshToken(ctx context.Context, id string) (*repository.RefreshToken, error) {
	const query = `
		SELECT token_hash, access_token_hash, session_id, expires_at, created_at, revoked_at
		FROM oauth_refresh_token WHERE token_hash = $1`
	var t repository.RefreshToken
	err := r.q.QueryRow(ctx, query, tokens.SHA256Base64URL(id)).Scan(
		&t.ID, &t.AccessTokenID, &t.SessionID, &t.ExpiresAt, &t.CreatedAt, &t.RevokedAt,
	)
	if err != nil {
		return nil, mapErr("get refresh token", err)
	}
	return &t, nil
}

func (r tokenRepo) RevokeRefreshToken(ctx context.Context, id string) error {
	const query = `
		UPDATE oauth_refresh_token SET revoked_at = NOW()
		WHERE token_hash = $1 AND revoked_at IS NULL`
	tag, err := r.q.Exec(ctx, query, tokens.SHA256Base64URL(id))
	if err != nil {
		return mapErr("revoke refresh token", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ─── Identities ───

type identityRepo struct{ q querier }

func (r identityRepo) GetByProvider(ctx context.Context, provider, providerUserID string) (*repository.SocialIdentity, error) {
	const query = `
		SELECT user_id, provider, provider_user_id, created_at
		FROM social_identity WHERE provider = $1 AND provider_user_id = $2`
	var id repository.SocialIdentity
	err := r.q.QueryRow(ctx, query, provider, providerUserID).Scan(
		&id.UserID, &id.Provider, &id.ProviderUserID, &id.CreatedAt,
	)
	if err != nil {
		return nil, mapErr("get identity", err)
	}
	return &id, nil
}

func (r identityRepo) Link(ctx context.Context, userID, provider, providerUserID string) (*repository.SocialIdentity, error) {
	if userID == "" || provider == "" || providerUserID == "" {
		return nil, repository.ErrInvalidInput
	}
	const query = `
		INSERT INTO social_identity (user_id, provider, provider_user_id)
		VALUES ($1, $2, $3)
		RETURNING created_at`
	id := repository.SocialIdentity{UserID: userID, Provider: provider, ProviderUserID: providerUserID}
	if err := r.q.QueryRow(ctx, query, userID, provider, providerUserID).Scan(&id.CreatedAt); err != nil {
		return nil, mapErr("link identity", err)
	}
	return &id, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
