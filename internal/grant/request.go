package grant

import (
	"net/url"
	"strings"
)

// Request is the transport-independent view of a token request.
type Request struct {
	// Form holds the body parameters (client_id, client_secret, token, scope...).
	Form url.Values

	// Basic holds transport-level client credentials, when present.
	BasicUser     string
	BasicPassword string
	HasBasic      bool

	RemoteAddr string
}

// NewRequest wraps body parameters.
func NewRequest(form url.Values) *Request {
	if form == nil {
		form = url.Values{}
	}
	return &Request{Form: form}
}

// WithBasicAuth sets transport-level client credentials.
func (r *Request) WithBasicAuth(user, password string) *Request {
	r.BasicUser, r.BasicPassword, r.HasBasic = user, password, true
	return r
}

// Param returns the trimmed body parameter, "" when absent.
func (r *Request) Param(name string) string {
	if r == nil || r.Form == nil {
		return ""
	}
	return strings.TrimSpace(r.Form.Get(name))
}

// clientCredentials reads client_id/client_secret from one mechanism only.
// With basic auth present, a body client_secret or a body client_id naming
// another client fails with InvalidRequest.
func (r *Request) clientCredentials() (id, secret string, err error) {
	if !r.HasBasic {
		return r.Param("client_id"), r.Param("client_secret"), nil
	}
	if r.Param("client_secret") != "" {
		return "", "", InvalidRequest("client_secret")
	}
	if body := r.Param("client_id"); body != "" && body != r.BasicUser {
		return "", "", InvalidRequest("client_id")
	}
	return r.BasicUser, r.BasicPassword, nil
}
