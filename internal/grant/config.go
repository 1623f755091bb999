package grant

import (
	"strings"
	"time"

	"github.com/dropDatabas3/fedgrant/internal/domain/repository"
)

// DefaultIdentifier is the grant_type value routed to the federated grant.
const DefaultIdentifier = "facebook"

// Config is resolved once when the grant is built.
type Config struct {
	// Identifier is the grant_type this grant answers to.
	Identifier string

	// GatherProfile fetches the external profile before verification.
	// Requires ProviderAppID and ProviderAppSecret.
	GatherProfile     bool
	ProviderAppID     string
	ProviderAppSecret string

	AccessTokenTTL time.Duration

	// RefreshEnabled mirrors whether the server has a refresh_token grant;
	// RefreshTokenTTL is that grant's TTL.
	RefreshEnabled  bool
	RefreshTokenTTL time.Duration

	// DefaultScope is used when the request names no scope.
	DefaultScope string
	// RequireScope rejects requests that name no scope and have no default.
	RequireScope bool
}

// Validate reports configuration problems as a configuration error.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Identifier) == "" {
		return ConfigurationError("grant identifier is empty")
	}
	if c.GatherProfile {
		if strings.TrimSpace(c.ProviderAppID) == "" {
			return ConfigurationError("[%s] provider app id is not set", c.Identifier)
		}
		if strings.TrimSpace(c.ProviderAppSecret) == "" {
			return ConfigurationError("[%s] provider app secret is not set", c.Identifier)
		}
	}
	if c.AccessTokenTTL <= 0 {
		return ConfigurationError("[%s] access token ttl must be positive", c.Identifier)
	}
	if c.RefreshEnabled && c.RefreshTokenTTL <= 0 {
		return ConfigurationError("[%s] refresh token ttl must be positive", c.Identifier)
	}
	return nil
}

// Lifetimes are the effective TTLs for one issuance.
type Lifetimes struct {
	AccessTTL time.Duration
	// RefreshTTL of zero means no refresh token is issued.
	RefreshTTL time.Duration
}

// LifetimesFor applies the client's TTL overrides to the configured defaults.
func (c Config) LifetimesFor(client *repository.Client) Lifetimes {
	lt := Lifetimes{AccessTTL: c.AccessTokenTTL}
	if c.RefreshEnabled {
		lt.RefreshTTL = c.RefreshTokenTTL
	}
	if client == nil {
		return lt
	}
	if client.AccessTokenTTL > 0 {
		lt.AccessTTL = time.Duration(client.AccessTokenTTL) * time.Second
	}
	if lt.RefreshTTL > 0 && client.RefreshTokenTTL > 0 {
		lt.RefreshTTL = time.Duration(client.RefreshTokenTTL) * time.Second
	}
	return lt
}
