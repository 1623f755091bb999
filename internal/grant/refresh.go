package grant

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/fedgrant/internal/domain/repository"
	"github.com/dropDatabas3/fedgrant/internal/observability/logger"
	"github.com/dropDatabas3/fedgrant/internal/validation"
)

// RefreshIdentifier is the grant_type of the refresh grant.
const RefreshIdentifier = "refresh_token"

// RefreshDeps holds the collaborators of a RefreshGrant.
type RefreshDeps struct {
	Clients ClientStore
	Store   repository.TokenStore
	Issuer  *Issuer

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	Formatter ResponseFormatter
	Events    EventSink
	Now       func() time.Time
}

// RefreshGrant rotates a refresh token into a new access and refresh token
// pair bound to the original session.
type RefreshGrant struct {
	cfg       Config
	clients   ClientStore
	store     repository.TokenStore
	issuer    *Issuer
	formatter ResponseFormatter
	events    EventSink
	now       func() time.Time
}

// NewRefreshGrant validates wiring and TTLs.
func NewRefreshGrant(d RefreshDeps) (*RefreshGrant, error) {
	cfg := Config{
		Identifier:      RefreshIdentifier,
		AccessTokenTTL:  d.AccessTokenTTL,
		RefreshEnabled:  true,
		RefreshTokenTTL: d.RefreshTokenTTL,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if d.Clients == nil || d.Store == nil || d.Issuer == nil {
		return nil, ConfigurationError("[%s] client store, token store and issuer are required", RefreshIdentifier)
	}
	if d.Formatter == nil {
		d.Formatter = BearerFormatter{}
	}
	if d.Events == nil {
		d.Events = nopSink{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &RefreshGrant{
		cfg:       cfg,
		clients:   d.Clients,
		store:     d.Store,
		issuer:    d.Issuer,
		formatter: d.Formatter,
		events:    d.Events,
		now:       d.Now,
	}, nil
}

func (g *RefreshGrant) Identifier() string { return RefreshIdentifier }

// RefreshTokenTTL is the lifetime of refresh tokens minted by any grant on
// a server that has this grant registered.
func (g *RefreshGrant) RefreshTokenTTL() time.Duration { return g.cfg.RefreshTokenTTL }

// CompleteFlow authenticates the client, checks the presented refresh token
// belongs to it and is active, and rotates it. The old token is revoked in
// the same unit of work that persists the new pair.
func (g *RefreshGrant) CompleteFlow(ctx context.Context, req *Request) (*TokenResponse, error) {
	log := logger.From(ctx).With(logger.Layer("grant"), logger.Op("grant."+RefreshIdentifier))

	client, err := authenticateClient(ctx, g.clients, g.events, g.now, RefreshIdentifier, req)
	if err != nil {
		return nil, err
	}
	log = log.With(logger.ClientID(client.ClientID))

	raw := req.Param("refresh_token")
	if raw == "" {
		return nil, InvalidRequest("refresh_token")
	}

	session, err := g.lookupSession(ctx, raw, client)
	if err != nil {
		log.Debug("refresh token rejected", logger.Err(err))
		return nil, err
	}

	scopes, err := narrowScopes(req.Param("scope"), session, client)
	if err != nil {
		return nil, err
	}

	issued, err := g.issuer.issue(ctx, issuePlan{
		session:   session,
		scopes:    scopes,
		lifetimes: g.cfg.LifetimesFor(client),
		before: func(ctx context.Context, ts repository.TokenStore) error {
			if err := ts.Tokens().RevokeRefreshToken(ctx, raw); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrInvalidGrant
				}
				return StorageError(err)
			}
			return nil
		},
	})
	if err != nil {
		log.Warn("refresh rotation failed", logger.Err(err))
		return nil, err
	}

	log.Info("refresh token rotated", logger.SessionID(session.ID), logger.Scopes(scopes))
	return g.formatter.Format(issued), nil
}

func (g *RefreshGrant) lookupSession(ctx context.Context, raw string, client *repository.Client) (*repository.Session, error) {
	rt, err := g.store.Tokens().GetRefreshToken(ctx, raw)
	if err != nil {
		return nil, notFoundAsInvalidGrant(err)
	}
	if !rt.Active(g.now()) {
		return nil, ErrInvalidGrant
	}
	session, err := g.store.Sessions().Get(ctx, rt.SessionID)
	if err != nil {
		return nil, notFoundAsInvalidGrant(err)
	}
	if session.ClientID != client.ClientID {
		return nil, ErrInvalidGrant
	}
	return session, nil
}

// narrowScopes returns the requested subset of the session scopes, or the
// session scopes still permitted to the client when none are requested.
func narrowScopes(raw string, session *repository.Session, client *repository.Client) ([]string, error) {
	inSession := func(s string) bool {
		for _, have := range session.Scopes {
			if have == s {
				return true
			}
		}
		return false
	}

	requested := SplitScopes(raw)
	if len(requested) == 0 {
		out := make([]string, 0, len(session.Scopes))
		for _, s := range session.Scopes {
			if client.AllowsScope(s) {
				out = append(out, s)
			}
		}
		return out, nil
	}
	for _, s := range requested {
		if !validation.ValidScopeName(s) || !inSession(s) || !client.AllowsScope(s) {
			return nil, InvalidScope(s)
		}
	}
	return requested, nil
}

func notFoundAsInvalidGrant(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidGrant
	}
	return StorageError(err)
}
