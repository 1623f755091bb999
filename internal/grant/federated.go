package grant

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/fedgrant/internal/observability/logger"
)

// FederatedDeps holds the collaborators of a FederatedGrant.
type FederatedDeps struct {
	Config   Config
	Clients  ClientStore
	Verifier Verifier
	Issuer   *Issuer

	// Fetcher is required when Config.GatherProfile is set.
	Fetcher ProfileFetcher

	Formatter ResponseFormatter // nil → BearerFormatter
	Events    EventSink         // nil → discard
	Now       func() time.Time  // nil → time.Now
}

// FederatedGrant exchanges an external provider token for local tokens.
type FederatedGrant struct {
	cfg       Config
	clients   ClientStore
	verifier  Verifier
	fetcher   ProfileFetcher
	issuer    *Issuer
	formatter ResponseFormatter
	events    EventSink
	now       func() time.Time
}

// NewFederatedGrant validates the configuration and wiring once, so
// misconfiguration surfaces at startup rather than per request.
func NewFederatedGrant(d FederatedDeps) (*FederatedGrant, error) {
	if d.Config.Identifier == "" {
		d.Config.Identifier = DefaultIdentifier
	}
	if err := d.Config.Validate(); err != nil {
		return nil, err
	}
	switch {
	case d.Clients == nil:
		return nil, ConfigurationError("[%s] client store is required", d.Config.Identifier)
	case d.Verifier == nil:
		return nil, ConfigurationError("[%s] verifier is required", d.Config.Identifier)
	case d.Issuer == nil:
		return nil, ConfigurationError("[%s] issuer is required", d.Config.Identifier)
	case d.Config.GatherProfile && d.Fetcher == nil:
		return nil, ConfigurationError("[%s] profile gathering enabled without a fetcher", d.Config.Identifier)
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
	return &FederatedGrant{
		cfg:       d.Config,
		clients:   d.Clients,
		verifier:  d.Verifier,
		fetcher:   d.Fetcher,
		issuer:    d.Issuer,
		formatter: d.Formatter,
		events:    d.Events,
		now:       d.Now,
	}, nil
}

// Identifier is the grant_type value routed to this grant.
func (g *FederatedGrant) Identifier() string { return g.cfg.Identifier }

// CompleteFlow runs one token request through every stage, returning the
// formatted response or the first stage failure as *Error.
func (g *FederatedGrant) CompleteFlow(ctx context.Context, req *Request) (*TokenResponse, error) {
	log := logger.From(ctx).With(logger.Layer("grant"), logger.Op("grant."+g.cfg.Identifier))

	client, err := authenticateClient(ctx, g.clients, g.events, g.now, g.cfg.Identifier, req)
	if err != nil {
		return nil, err
	}
	log = log.With(logger.ClientID(client.ClientID))

	token := req.Param("token")
	if token == "" {
		return nil, InvalidRequest("token")
	}

	var profile *Profile
	if g.cfg.GatherProfile {
		if profile, err = g.fetchProfile(ctx, token); err != nil {
			log.Warn("profile fetch failed", logger.Err(err))
			return nil, err
		}
		log = log.With(logger.Provider(profile.Provider))
		if profile.Email != "" {
			log = log.With(logger.Email(profile.Email))
		}
	}

	userID, err := g.verifier.Verify(ctx, token, profile)
	if err != nil && !errors.Is(err, ErrRejected) {
		log.Error("verifier failed", logger.Err(err))
		return nil, AsError(err)
	}
	if err != nil || userID == "" {
		g.events.Emit(ctx, Event{
			Type:       EventUserAuthFailed,
			Grant:      g.cfg.Identifier,
			ClientID:   client.ClientID,
			RemoteAddr: req.RemoteAddr,
			At:         g.now().UTC(),
		})
		log.Warn("user authentication failed")
		return nil, ErrInvalidCredentials
	}
	log = log.With(logger.UserID(userID))

	scopes, err := g.cfg.validateScopes(req.Param("scope"), client)
	if err != nil {
		log.Debug("scope rejected", logger.Err(err))
		return nil, err
	}

	session, err := g.issuer.NewSession(userID, client)
	if err != nil {
		return nil, err
	}
	issued, err := g.issuer.Issue(ctx, session, scopes, g.cfg.LifetimesFor(client))
	if err != nil {
		log.Error("token issuance failed", logger.Err(err))
		return nil, err
	}

	log.Info("tokens issued",
		logger.SessionID(session.ID),
		logger.Scopes(issued.Access.Scopes),
		logger.Bool("refresh", issued.Refresh != nil),
	)
	return g.formatter.Format(issued), nil
}

func (g *FederatedGrant) fetchProfile(ctx context.Context, token string) (*Profile, error) {
	if g.fetcher == nil {
		return nil, ConfigurationError("[%s] profile gathering enabled without a fetcher", g.cfg.Identifier)
	}
	profile, err := g.fetcher.Fetch(ctx, token)
	if err != nil {
		var ge *Error
		if errors.As(err, &ge) {
			return nil, ge
		}
		return nil, ExternalProviderError(err)
	}
	if profile == nil || profile.ID == "" {
		return nil, ExternalProviderError(errors.New("provider returned an empty profile"))
	}
	return profile, nil
}
