// Package facebook fetches the profile behind a Facebook user access token
// from the Graph API.
//
// Requests carry appsecret_proof, so a token leaked from another app cannot
// be replayed against this one when the app enforces proofs.
package facebook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/fedgrant/internal/grant"
)

// ProviderName is the provider recorded on profiles and linked identities.
const ProviderName = "facebook"

const (
	DefaultGraphURL = "https://graph.facebook.com/v19.0"
	defaultFields   = "id,name,email"
	maxBody         = 1 << 20
)

// Client is a minimal Graph API client.
type Client struct {
	appSecret string
	graphURL  string
	fields    string

	http *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithGraphURL points the client at another Graph endpoint (tests, versions).
func WithGraphURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.graphURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the default 10s-timeout client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithFields overrides the requested profile fields. id is always included
// and comes first.
func WithFields(fields ...string) Option {
	return func(c *Client) {
		out := []string{"id"}
		for _, f := range fields {
			f = strings.TrimSpace(f)
			if f != "" && f != "id" {
				out = append(out, f)
			}
		}
		if len(out) > 1 {
			c.fields = strings.Join(out, ",")
		}
	}
}

// New fails with a configuration error when appID or appSecret is empty.
func New(appID, appSecret string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(appID) == "" {
		return nil, grant.ConfigurationError("[%s] client_id is not set", ProviderName)
	}
	if strings.TrimSpace(appSecret) == "" {
		return nil, grant.ConfigurationError("[%s] client_secret is not set", ProviderName)
	}
	c := &Client{
		appSecret: appSecret,
		graphURL:  DefaultGraphURL,
		fields:    defaultFields,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// AppSecretProof is hex(HMAC-SHA256(token, appSecret)).
func AppSecretProof(token, appSecret string) string {
	m := hmac.New(sha256.New, []byte(appSecret))
	m.Write([]byte(token))
	return hex.EncodeToString(m.Sum(nil))
}

type meResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type graphError struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Fetch calls /me with the user token. Transport failures, Graph errors,
// malformed bodies and profiles without an id all fail.
func (c *Client) Fetch(ctx context.Context, token string) (*grant.Profile, error) {
	q := url.Values{}
	q.Set("fields", c.fields)
	q.Set("access_token", token)
	q.Set("appsecret_proof", AppSecretProof(token, c.appSecret))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.graphURL+"/me?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// the url carries the token; keep it out of the error
		if ue, ok := err.(*url.Error); ok {
			return nil, fmt.Errorf("facebook graph request failed: %w", ue.Err)
		}
		return nil, fmt.Errorf("facebook graph request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("facebook graph read: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var ge graphError
		if json.Unmarshal(body, &ge) == nil && ge.Error != nil {
			return nil, fmt.Errorf("facebook graph error: status %d: %s (%s, code %d)",
				resp.StatusCode, ge.Error.Message, ge.Error.Type, ge.Error.Code)
		}
		return nil, fmt.Errorf("facebook graph error: status %d", resp.StatusCode)
	}

	var me meResponse
	if err := json.Unmarshal(body, &me); err != nil {
		return nil, fmt.Errorf("failed to decode graph profile: %w", err)
	}
	if me.ID == "" {
		return nil, fmt.Errorf("no id in graph profile")
	}
	return &grant.Profile{
		Provider: ProviderName,
		ID:       me.ID,
		Name:     me.Name,
		Email:    me.Email,
	}, nil
}
