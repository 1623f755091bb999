package grant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServer_Dispatch(t *testing.T) {
	h := newRefreshHarness(t)
	srv := NewServer()
	require.NoError(t, srv.Register(h.grant))
	require.NoError(t, srv.Register(h.refresh))

	require.True(t, srv.HasGrantType("facebook"))
	require.False(t, srv.HasGrantType("password"))
	require.Equal(t, []string{"facebook", "refresh_token"}, srv.Identifiers())

	req := validRequest("read")
	req.Form.Set("grant_type", "facebook")
	resp, err := srv.CompleteFlow(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)

	req = tokenRequest("grant_type", "password")
	_, err = srv.CompleteFlow(context.Background(), req)
	require.ErrorIs(t, err, ErrUnsupportedGrantType)

	_, err = srv.CompleteFlow(context.Background(), tokenRequest())
	require.ErrorIs(t, err, InvalidRequest("grant_type"))
}

func TestServer_RegisterDuplicate(t *testing.T) {
	h := newPlainHarness(t, baseConfig())
	srv := NewServer()
	require.NoError(t, srv.Register(h.grant))
	require.ErrorIs(t, srv.Register(h.grant), ErrConfiguration)
}

func TestServer_RefreshTokenTTL(t *testing.T) {
	srv := NewServer()
	_, ok := srv.RefreshTokenTTL()
	require.False(t, ok)

	h := newRefreshHarness(t)
	require.NoError(t, srv.Register(h.refresh))
	ttl, ok := srv.RefreshTokenTTL()
	require.True(t, ok)
	require.Equal(t, 24*time.Hour, ttl)
}
