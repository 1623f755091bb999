package grant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type refreshHarness struct {
	*harness
	refresh *RefreshGrant
	now     time.Time
}

func newRefreshHarness(t *testing.T) *refreshHarness {
	t.Helper()
	cfg := baseConfig()
	cfg.RefreshEnabled = true
	cfg.RefreshTokenTTL = 24 * time.Hour
	h := newPlainHarness(t, cfg)

	rh := &refreshHarness{harness: h, now: testNow}
	rg, err := NewRefreshGrant(RefreshDeps{
		Clients:         h.clients,
		Store:           h.store,
		Issuer:          NewIssuer(IssuerDeps{Store: h.store, IDs: &seqIDs{n: 100}, Now: fixedNow}),
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		Events:          h.sink,
		Now:             func() time.Time { return rh.now },
	})
	require.NoError(t, err)
	rh.refresh = rg
	return rh
}

func refreshRequest(client, secret, token string) *Request {
	return tokenRequest("client_id", client, "client_secret", secret, "refresh_token", token)
}

func TestRefresh_RotatesToken(t *testing.T) {
	h := newRefreshHarness(t)
	first, err := h.grant.CompleteFlow(context.Background(), validRequest("read write"))
	require.NoError(t, err)

	resp, err := h.refresh.CompleteFlow(context.Background(), refreshRequest("c1", "s1", first.RefreshToken))
	require.NoError(t, err)
	require.NotEqual(t, first.AccessToken, resp.AccessToken)
	require.NotEqual(t, first.RefreshToken, resp.RefreshToken)
	require.Equal(t, "read write", resp.Scope)

	old := h.store.refresh[first.RefreshToken]
	require.NotNil(t, old.RevokedAt)

	// same session, no new one
	require.Len(t, h.store.sessions, 1)
	require.Equal(t, h.store.access[first.AccessToken].SessionID, h.store.access[resp.AccessToken].SessionID)

	// replay of the rotated token fails
	_, err = h.refresh.CompleteFlow(context.Background(), refreshRequest("c1", "s1", first.RefreshToken))
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestRefresh_NarrowsScope(t *testing.T) {
	h := newRefreshHarness(t)
	first, err := h.grant.CompleteFlow(context.Background(), validRequest("read write"))
	require.NoError(t, err)

	req := refreshRequest("c1", "s1", first.RefreshToken)
	req.Form.Set("scope", "write")
	resp, err := h.refresh.CompleteFlow(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "write", resp.Scope)
}

func TestRefresh_ScopeOutsideSession(t *testing.T) {
	h := newRefreshHarness(t)
	first, err := h.grant.CompleteFlow(context.Background(), validRequest("read"))
	require.NoError(t, err)

	req := refreshRequest("c1", "s1", first.RefreshToken)
	req.Form.Set("scope", "read write")
	_, err = h.refresh.CompleteFlow(context.Background(), req)
	require.ErrorIs(t, err, InvalidScope("write"))
	require.Nil(t, h.store.refresh[first.RefreshToken].RevokedAt)
}

func TestRefresh_Rejections(t *testing.T) {
	h := newRefreshHarness(t)
	first, err := h.grant.CompleteFlow(context.Background(), validRequest("read"))
	require.NoError(t, err)

	_, err = h.refresh.CompleteFlow(context.Background(), refreshRequest("c1", "s1", ""))
	require.ErrorIs(t, err, InvalidRequest("refresh_token"))

	_, err = h.refresh.CompleteFlow(context.Background(), refreshRequest("c1", "s1", "unknown"))
	require.ErrorIs(t, err, ErrInvalidGrant)

	// c2 may not use the refresh grant at all
	_, err = h.refresh.CompleteFlow(context.Background(), refreshRequest("c2", "s2", first.RefreshToken))
	require.ErrorIs(t, err, ErrInvalidClient)

	h.now = testNow.Add(25 * time.Hour)
	_, err = h.refresh.CompleteFlow(context.Background(), refreshRequest("c1", "s1", first.RefreshToken))
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestRefresh_OtherClientsToken(t *testing.T) {
	h := newRefreshHarness(t)
	first, err := h.grant.CompleteFlow(context.Background(), validRequest("read"))
	require.NoError(t, err)

	c3 := *h.clients.clients["c1"].client
	c3.ClientID = "c3"
	h.clients.clients["c3"] = fakeClient{secret: "s3", client: &c3}

	_, err = h.refresh.CompleteFlow(context.Background(), refreshRequest("c3", "s3", first.RefreshToken))
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestNewRefreshGrant_Validation(t *testing.T) {
	_, err := NewRefreshGrant(RefreshDeps{AccessTokenTTL: time.Hour, RefreshTokenTTL: time.Hour})
	require.ErrorIs(t, err, ErrConfiguration)

	fs := newFakeStore()
	_, err = NewRefreshGrant(RefreshDeps{
		Clients:        &fakeClients{},
		Store:          fs,
		Issuer:         NewIssuer(IssuerDeps{Store: fs}),
		AccessTokenTTL: time.Hour,
	})
	require.ErrorIs(t, err, ErrConfiguration)
}
