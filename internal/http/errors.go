package http

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/fedgrant/internal/grant"
)

type oauthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
}

// noStore marks a response as carrying credentials.
func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// WriteJSON: respuesta JSON estándar
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteOAuthError writes an RFC 6749 error body with no-store headers.
func WriteOAuthError(w http.ResponseWriter, status int, code, desc string) {
	noStore(w)
	WriteJSON(w, status, oauthError{
		Error:            code,
		ErrorDescription: desc,
		RequestID:        w.Header().Get("X-Request-ID"),
	})
}

// writeGrantError maps a grant failure onto the wire. The cause stays in
// the logs.
func writeGrantError(w http.ResponseWriter, r *http.Request, err error) {
	ge := grant.AsError(err)
	if ge.Kind == grant.KindInvalidClient {
		if _, _, ok := r.BasicAuth(); ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="token"`)
		}
	}
	WriteOAuthError(w, ge.HTTPStatus(), ge.OAuthCode(), ge.Description())
}
