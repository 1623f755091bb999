package grant

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_Mapping(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
		code   string
	}{
		{InvalidRequest("token"), http.StatusBadRequest, "invalid_request"},
		{ErrInvalidClient, http.StatusUnauthorized, "invalid_client"},
		{ErrInvalidCredentials, http.StatusUnauthorized, "invalid_grant"},
		{InvalidScope("admin"), http.StatusBadRequest, "invalid_scope"},
		{ErrInvalidGrant, http.StatusBadRequest, "invalid_grant"},
		{ErrUnsupportedGrantType, http.StatusBadRequest, "unsupported_grant_type"},
		{ExternalProviderError(errors.New("x")), http.StatusBadGateway, "temporarily_unavailable"},
		{StorageError(errors.New("x")), http.StatusInternalServerError, "server_error"},
		{ConfigurationError("x"), http.StatusInternalServerError, "server_error"},
		{ServerError(errors.New("x")), http.StatusInternalServerError, "server_error"},
	}
	for _, tc := range cases {
		t.Run(string(tc.err.Kind), func(t *testing.T) {
			require.Equal(t, tc.status, tc.err.HTTPStatus())
			require.Equal(t, tc.code, tc.err.OAuthCode())
			require.NotEmpty(t, tc.err.Description())
		})
	}
}

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", InvalidScope("admin"))
	require.ErrorIs(t, err, ErrInvalidScope)
	require.ErrorIs(t, err, InvalidScope("admin"))
	require.NotErrorIs(t, err, InvalidScope("read"))
	require.NotErrorIs(t, err, ErrInvalidRequest)

	cause := errors.New("disk full")
	require.ErrorIs(t, StorageError(cause), cause)
}

func TestError_DescriptionHidesCause(t *testing.T) {
	err := StorageError(errors.New("pq: password authentication failed"))
	require.NotContains(t, err.Description(), "password")
}

func TestAsError(t *testing.T) {
	require.Nil(t, AsError(nil))
	require.Same(t, ErrInvalidClient, AsError(fmt.Errorf("x: %w", ErrInvalidClient)))
	require.Equal(t, KindServer, AsError(errors.New("boom")).Kind)
}
