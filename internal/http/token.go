package http

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/fedgrant/internal/grant"
	"github.com/dropDatabas3/fedgrant/internal/metrics"
	"github.com/dropDatabas3/fedgrant/internal/observability/logger"
)

// maxTokenBody limits token request bodies (64KB for OAuth forms).
const maxTokenBody = 64 << 10

// withTokenForm limits and parses the body so later handlers read
// r.PostForm.
func withTokenForm(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxTokenBody)
		if err := r.ParseForm(); err != nil {
			logger.From(r.Context()).Warn("failed to parse form", logger.Layer("http"), logger.Err(err))
			WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "Invalid form data.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// tokenHandler serves POST /oauth2/token.
type tokenHandler struct {
	grants  *grant.Server
	metrics *metrics.Metrics
}

func (h *tokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	grantType := strings.TrimSpace(r.PostForm.Get("grant_type"))

	req := grant.NewRequest(r.PostForm)
	if user, pass, ok := r.BasicAuth(); ok {
		req.WithBasicAuth(user, pass)
	}
	req.RemoteAddr = clientIP(r)

	resp, err := h.grants.CompleteFlow(ctx, req)
	if h.metrics != nil {
		label := grantType
		if grantType != "" && !h.grants.HasGrantType(grantType) {
			label = "unsupported"
		}
		h.metrics.ObserveGrant(label, err)
	}
	if err != nil {
		ge := grant.AsError(err)
		if ge.HTTPStatus() >= http.StatusInternalServerError {
			logger.From(ctx).Error("token request failed",
				logger.Layer("http"), logger.Op("oauth.token"), logger.Grant(grantType), logger.Err(err))
		}
		writeGrantError(w, r, err)
		return
	}

	noStore(w)
	WriteJSON(w, http.StatusOK, resp)
}
