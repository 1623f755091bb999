package repository

import (
	"context"
	"strings"
	"time"
)

// Client is an OAuth client application allowed to call the token endpoint.
type Client struct {
	ClientID   string
	Name       string
	SecretHash string   // argon2id PHC string, never the plain secret
	Scopes     []string // scopes this client may request
	GrantTypes []string // grant identifiers this client may use

	// Per-client TTL overrides in seconds; 0 means the server default.
	AccessTokenTTL  int
	RefreshTokenTTL int

	CreatedAt time.Time
}

// AllowsGrant reports whether the client was explicitly granted grantType.
func (c *Client) AllowsGrant(grantType string) bool {
	for _, g := range c.GrantTypes {
		if strings.EqualFold(g, grantType) {
			return true
		}
	}
	return false
}

// AllowsScope reports whether scope is in the client's permitted set.
func (c *Client) AllowsScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ClientInput holds the data to register a client. The secret arrives
// already hashed; repositories never see the plain value.
type ClientInput struct {
	ClientID        string
	Name            string
	SecretHash      string
	Scopes          []string
	GrantTypes      []string
	AccessTokenTTL  int
	RefreshTokenTTL int
}

// ClientRepository stores OAuth clients.
type ClientRepository interface {
	// Get returns the client by its public id, or ErrNotFound.
	Get(ctx context.Context, clientID string) (*Client, error)

	// Create registers a client. ErrConflict if the id exists.
	Create(ctx context.Context, input ClientInput) (*Client, error)
}
