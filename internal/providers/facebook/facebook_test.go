package facebook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/fedgrant/internal/grant"
)

func graphServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New("app-1", "shh", WithGraphURL(srv.URL))
	require.NoError(t, err)
	return c
}

func TestFetch_OK(t *testing.T) {
	var got *http.Request
	c := graphServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"id":"1001","name":"Ada","email":"ada@example.com"}`))
	})

	p, err := c.Fetch(context.Background(), "user-token")
	require.NoError(t, err)

	require.Equal(t, "/me", got.URL.Path)
	q := got.URL.Query()
	require.Equal(t, "user-token", q.Get("access_token"))
	require.Equal(t, AppSecretProof("user-token", "shh"), q.Get("appsecret_proof"))
	require.Equal(t, "id,name,email", q.Get("fields"))
	require.Equal(t, &grant.Profile{Provider: "facebook", ID: "1001", Name: "Ada", Email: "ada@example.com"}, p)
}

func TestFetch_ConfiguredFields(t *testing.T) {
	var fields string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fields = r.URL.Query().Get("fields")
		_, _ = w.Write([]byte(`{"id":"1001","name":"Ada"}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New("app-1", "shh", WithGraphURL(srv.URL), WithFields("name", " ", "id"))
	require.NoError(t, err)
	p, err := c.Fetch(context.Background(), "user-token")
	require.NoError(t, err)
	require.Equal(t, "id,name", fields)
	require.Empty(t, p.Email)

	c, err = New("app-1", "shh", WithGraphURL(srv.URL), WithFields())
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), "user-token")
	require.NoError(t, err)
	require.Equal(t, "id,name,email", fields)
}

func TestFetch_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"graph error": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`))
		},
		"outage": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
		"malformed": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"id":`))
		},
		"no id": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"name":"Ada"}`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := graphServer(t, h).Fetch(context.Background(), "user-token")
			require.Error(t, err)
			require.NotContains(t, err.Error(), "user-token")
		})
	}
}

func TestFetch_TransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c, err := New("app-1", "shh", WithGraphURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), "user-token")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "user-token")
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New("", "shh")
	require.ErrorIs(t, err, grant.ErrConfiguration)
	_, err = New("app", " ")
	require.ErrorIs(t, err, grant.ErrConfiguration)
}

func TestAppSecretProof(t *testing.T) {
	require.Equal(t, AppSecretProof("token", "secret"), AppSecretProof("token", "secret"))
	require.Len(t, AppSecretProof("token", "secret"), 64)
	require.NotEqual(t, AppSecretProof("token", "secret"), AppSecretProof("token", "other"))
}
