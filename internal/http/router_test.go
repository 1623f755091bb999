package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/fedgrant/internal/domain/repository"
	"github.com/dropDatabas3/fedgrant/internal/grant"
	"github.com/dropDatabas3/fedgrant/internal/metrics"
	"github.com/dropDatabas3/fedgrant/internal/rate"
	"github.com/dropDatabas3/fedgrant/internal/security/password"
	"github.com/dropDatabas3/fedgrant/internal/store"
	"github.com/dropDatabas3/fedgrant/internal/store/adapters/memory"
)

type testEnv struct {
	handler http.Handler
	reg     *prometheus.Registry
}

type envOpts struct {
	limiter rate.Limiter
	ready   map[string]ReadyCheck
	trusted []netip.Prefix
}

func newEnv(t *testing.T, opts envOpts) *testEnv {
	t.Helper()
	ctx := context.Background()

	conn := memory.New()
	hash, err := password.Hash(password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 16}, "s3cret")
	require.NoError(t, err)
	_, err = conn.Clients().Create(ctx, repository.ClientInput{
		ClientID:   "app",
		SecretHash: hash,
		Scopes:     []string{"basic", "email"},
		GrantTypes: []string{"facebook", grant.RefreshIdentifier},
	})
	require.NoError(t, err)

	clients := store.NewClientAuthenticator(conn.Clients())
	issuer := grant.NewIssuer(grant.IssuerDeps{Store: conn})
	verifier := grant.VerifierFunc(func(_ context.Context, token string, _ *grant.Profile) (string, error) {
		if token == "good-token" {
			return "user-1", nil
		}
		return "", grant.ErrRejected
	})

	srv := grant.NewServer()
	refresh, err := grant.NewRefreshGrant(grant.RefreshDeps{
		Clients:         clients,
		Store:           conn,
		Issuer:          issuer,
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	})
	require.NoError(t, err)
	require.NoError(t, srv.Register(refresh))

	fb, err := grant.NewFederatedGrant(grant.FederatedDeps{
		Config: grant.Config{
			AccessTokenTTL:  time.Hour,
			RefreshEnabled:  true,
			RefreshTokenTTL: 24 * time.Hour,
		},
		Clients:  clients,
		Verifier: verifier,
		Issuer:   issuer,
	})
	require.NoError(t, err)
	require.NoError(t, srv.Register(fb))

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	return &testEnv{
		reg: reg,
		handler: NewRouter(RouterDeps{
			Grants:   srv,
			Metrics:  m,
			Gatherer: reg,
			Limiter:  opts.limiter,
			Ready:    opts.ready,

			TrustedProxies: opts.trusted,
		}),
	}
}

func (e *testEnv) post(form url.Values, basic ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/oauth2/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if len(basic) == 2 {
		req.SetBasicAuth(basic[0], basic[1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func facebookForm() url.Values {
	return url.Values{
		"grant_type":    {"facebook"},
		"client_id":     {"app"},
		"client_secret": {"s3cret"},
		"token":         {"good-token"},
		"scope":         {"basic"},
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestToken_Success(t *testing.T) {
	env := newEnv(t, envOpts{})
	rec := env.post(facebookForm())

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Equal(t, "no-cache", rec.Header().Get("Pragma"))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	body := decode(t, rec)
	require.Equal(t, "Bearer", body["token_type"])
	require.EqualValues(t, 3600, body["expires_in"])
	require.Equal(t, "basic", body["scope"])
	require.NotEmpty(t, body["access_token"])
	require.NotEmpty(t, body["refresh_token"])
}

func TestToken_RefreshRoundTrip(t *testing.T) {
	env := newEnv(t, envOpts{})
	first := decode(t, env.post(facebookForm()))

	form := url.Values{
		"grant_type":    {grant.RefreshIdentifier},
		"refresh_token": {first["refresh_token"].(string)},
	}
	rec := env.post(form, "app", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode(t, rec)
	require.NotEqual(t, first["access_token"], second["access_token"])

	rec = env.post(form, "app", "s3cret")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_grant", decode(t, rec)["error"])
}

func TestToken_Errors(t *testing.T) {
	env := newEnv(t, envOpts{})

	cases := []struct {
		name   string
		mutate func(url.Values)
		status int
		code   string
	}{
		{"missing grant type", func(f url.Values) { f.Del("grant_type") }, http.StatusBadRequest, "invalid_request"},
		{"unsupported grant", func(f url.Values) { f.Set("grant_type", "password") }, http.StatusBadRequest, "unsupported_grant_type"},
		{"missing token", func(f url.Values) { f.Del("token") }, http.StatusBadRequest, "invalid_request"},
		{"bad secret", func(f url.Values) { f.Set("client_secret", "nope") }, http.StatusUnauthorized, "invalid_client"},
		{"rejected user", func(f url.Values) { f.Set("token", "bad-token") }, http.StatusUnauthorized, "invalid_grant"},
		{"foreign scope", func(f url.Values) { f.Set("scope", "admin") }, http.StatusBadRequest, "invalid_scope"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := facebookForm()
			tc.mutate(form)
			rec := env.post(form)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
			body := decode(t, rec)
			require.Equal(t, tc.code, body["error"])
			require.NotEmpty(t, body["error_description"])
		})
	}
}

func TestToken_BasicAuthChallenge(t *testing.T) {
	env := newEnv(t, envOpts{})
	form := facebookForm()
	form.Del("client_id")
	form.Del("client_secret")

	rec := env.post(form, "app", "wrong")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	rec = env.post(form, "app", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestToken_MixedClientAuthRejected(t *testing.T) {
	env := newEnv(t, envOpts{})

	rec := env.post(facebookForm(), "app", "s3cret")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_request", decode(t, rec)["error"])
}

func TestToken_MethodAndBody(t *testing.T) {
	env := newEnv(t, envOpts{})

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth2/token", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "invalid_request", decode(t, rec)["error"])

	big := "token=" + strings.Repeat("x", maxTokenBody+1)
	req := httptest.NewRequest(http.MethodPost, "/oauth2/token", strings.NewReader(big))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToken_RateLimited(t *testing.T) {
	env := newEnv(t, envOpts{limiter: rate.NewMemoryLimiter(1, time.Minute)})

	rec := env.post(facebookForm())
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = env.post(facebookForm())
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "slow_down", decode(t, rec)["error"])

	other := facebookForm()
	other.Set("client_id", "someone-else")
	rec = env.post(other)
	require.NotEqual(t, http.StatusTooManyRequests, rec.Code)
}

func (e *testEnv) postVia(form url.Values, xff string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/oauth2/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Forwarded-For", xff)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestToken_RateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	env := newEnv(t, envOpts{limiter: rate.NewMemoryLimiter(1, time.Minute)})

	require.Equal(t, http.StatusOK, env.postVia(facebookForm(), "203.0.113.1").Code)
	rec := env.postVia(facebookForm(), "203.0.113.2")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestToken_RateLimitUsesForwardedForFromTrustedProxy(t *testing.T) {
	// httptest requests come from 192.0.2.1
	env := newEnv(t, envOpts{
		limiter: rate.NewMemoryLimiter(1, time.Minute),
		trusted: []netip.Prefix{netip.MustParsePrefix("192.0.2.0/24")},
	})

	require.Equal(t, http.StatusOK, env.postVia(facebookForm(), "203.0.113.1").Code)
	require.Equal(t, http.StatusOK, env.postVia(facebookForm(), "203.0.113.2").Code)
	require.Equal(t, http.StatusTooManyRequests, env.postVia(facebookForm(), "203.0.113.1").Code)
}

func TestResolveClientIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	cases := []struct {
		name    string
		remote  string
		xff     string
		trusted []netip.Prefix
		want    string
	}{
		{"no proxies configured", "10.0.0.5:443", "198.51.100.7", nil, "10.0.0.5"},
		{"untrusted peer", "198.51.100.9:443", "1.2.3.4", trusted, "198.51.100.9"},
		{"trusted peer", "10.0.0.5:443", "198.51.100.7", trusted, "198.51.100.7"},
		{"spoofed left hop", "10.0.0.5:443", "1.2.3.4, 198.51.100.7, 10.0.0.9", trusted, "198.51.100.7"},
		{"garbage hop", "10.0.0.5:443", "junk", trusted, "10.0.0.5"},
		{"all trusted", "10.0.0.5:443", "10.1.1.1", trusted, "10.1.1.1"},
		{"no header", "10.0.0.5:443", "", trusted, "10.0.0.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			require.Equal(t, tc.want, resolveClientIP(req, tc.trusted))
		})
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (rate.Result, error) {
	return rate.Result{}, errors.New("redis down")
}

func TestToken_RateLimiterFailureLetsThrough(t *testing.T) {
	env := newEnv(t, envOpts{limiter: failingLimiter{}})
	require.Equal(t, http.StatusOK, env.post(facebookForm()).Code)
}

func TestRequestIDPropagated(t *testing.T) {
	env := newEnv(t, envOpts{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestReadyz(t *testing.T) {
	env := newEnv(t, envOpts{ready: map[string]ReadyCheck{
		"store": func(context.Context) error { return nil },
		"cache": func(context.Context) error { return errors.New("dial tcp: refused") },
	}})
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "up", body["store"])
	require.Equal(t, "down", body["cache"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newEnv(t, envOpts{})
	env.post(facebookForm())

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `fedgrant_grant_requests_total{grant="facebook",result="ok"} 1`)
	require.Contains(t, rec.Body.String(), `http_requests_total`)
}

func TestRecover(t *testing.T) {
	h := WithRequestID(WithRecover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "server_error", decode(t, rec)["error"])
}

func TestNormalizePath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "/"},
		{"/", "/"},
		{"/oauth2/token", "/oauth2/token"},
		{"/clients/42", "/clients/:param"},
		{"/s/550e8400-e29b-41d4-a716-446655440000", "/s/:param"},
		{"/t/abcdefABCDEF0123456789_-xyz", "/t/:param"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, normalizePath(tc.in), tc.in)
	}
}
