package grant

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable category of a grant failure.
type Kind string

const (
	KindInvalidRequest       Kind = "invalid_request"
	KindInvalidClient        Kind = "invalid_client"
	KindInvalidCredentials   Kind = "invalid_credentials"
	KindInvalidScope         Kind = "invalid_scope"
	KindInvalidGrant         Kind = "invalid_grant"
	KindUnsupportedGrantType Kind = "unsupported_grant_type"
	KindExternalProvider     Kind = "external_provider_error"
	KindStorage              Kind = "storage_error"
	KindConfiguration        Kind = "configuration_error"
	KindServer               Kind = "server_error"
)

// Error is returned by every grant operation.
//
// Param carries the missing field for invalid_request and the offending
// scope for invalid_scope. Err is the underlying cause and is never exposed
// to the caller.
type Error struct {
	Kind  Kind
	Param string
	Err   error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Param != "" {
		msg += "(" + e.Param + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches by Kind; a target with a Param must match it too, so both
// errors.Is(err, ErrInvalidScope) and errors.Is(err, InvalidScope("admin")) work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Param == "" || t.Param == e.Param
}

// HTTPStatus is the status the token endpoint answers with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidRequest, KindInvalidScope, KindInvalidGrant, KindUnsupportedGrantType:
		return http.StatusBadRequest
	case KindInvalidClient, KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindExternalProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// OAuthCode is the RFC 6749 error code written on the wire.
func (e *Error) OAuthCode() string {
	switch e.Kind {
	case KindInvalidRequest, KindInvalidClient, KindInvalidScope, KindInvalidGrant, KindUnsupportedGrantType:
		return string(e.Kind)
	case KindInvalidCredentials:
		return "invalid_grant"
	case KindExternalProvider:
		return "temporarily_unavailable"
	default:
		return "server_error"
	}
}

// Description is the human readable error_description. It never includes
// the cause.
func (e *Error) Description() string {
	switch e.Kind {
	case KindInvalidRequest:
		return fmt.Sprintf("The request is missing a required parameter: %q.", e.Param)
	case KindInvalidClient:
		return "Client authentication failed."
	case KindInvalidCredentials:
		return "The user credentials were incorrect."
	case KindInvalidScope:
		return fmt.Sprintf("The requested scope is invalid, unknown, or not permitted: %q.", e.Param)
	case KindInvalidGrant:
		return "The provided grant is invalid, expired or revoked."
	case KindUnsupportedGrantType:
		return "The authorization grant type is not supported by the authorization server."
	case KindExternalProvider:
		return "The external identity provider could not be reached or rejected the request."
	default:
		return "The authorization server encountered an unexpected condition."
	}
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidRequest       = &Error{Kind: KindInvalidRequest}
	ErrInvalidClient        = &Error{Kind: KindInvalidClient}
	ErrInvalidCredentials   = &Error{Kind: KindInvalidCredentials}
	ErrInvalidScope         = &Error{Kind: KindInvalidScope}
	ErrInvalidGrant         = &Error{Kind: KindInvalidGrant}
	ErrUnsupportedGrantType = &Error{Kind: KindUnsupportedGrantType}
	ErrExternalProvider     = &Error{Kind: KindExternalProvider}
	ErrStorage              = &Error{Kind: KindStorage}
	ErrConfiguration        = &Error{Kind: KindConfiguration}
	ErrServer               = &Error{Kind: KindServer}
)

// InvalidRequest reports a missing required field.
func InvalidRequest(field string) *Error {
	return &Error{Kind: KindInvalidRequest, Param: field}
}

// InvalidScope reports a scope the client may not request.
func InvalidScope(name string) *Error {
	return &Error{Kind: KindInvalidScope, Param: name}
}

// ExternalProviderError wraps a profile fetch failure.
func ExternalProviderError(err error) *Error {
	return &Error{Kind: KindExternalProvider, Err: err}
}

// StorageError wraps a persistence failure.
func StorageError(err error) *Error {
	return &Error{Kind: KindStorage, Err: err}
}

// ConfigurationError reports missing or invalid grant configuration.
func ConfigurationError(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Err: fmt.Errorf(format, args...)}
}

// ServerError wraps any other unexpected failure.
func ServerError(err error) *Error {
	return &Error{Kind: KindServer, Err: err}
}

// AsError returns err as *Error, wrapping unknown errors as server errors.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	return ServerError(err)
}
