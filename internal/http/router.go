package http

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/fedgrant/internal/grant"
	"github.com/dropDatabas3/fedgrant/internal/metrics"
	"github.com/dropDatabas3/fedgrant/internal/rate"
)

// RouterDeps holds what the HTTP surface needs.
type RouterDeps struct {
	Grants  *grant.Server
	Metrics *metrics.Metrics

	// Gatherer backs /metrics; the route is omitted when nil.
	Gatherer prometheus.Gatherer

	// Limiter applies to the token endpoint; nil disables limiting.
	Limiter rate.Limiter

	Ready map[string]ReadyCheck

	// TrustedProxies may set X-Forwarded-For; empty trusts none.
	TrustedProxies []netip.Prefix
}

// NewRouter mounts the token endpoint and the operational routes.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(WithClientIP(d.TrustedProxies), WithRequestID, WithLogging, WithRecover, WithMetrics(d.Metrics))

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteOAuthError(w, http.StatusMethodNotAllowed, "invalid_request", "Method not allowed.")
	})

	r.Group(func(r chi.Router) {
		r.Use(withTokenForm, WithRateLimit(d.Limiter, d.Metrics, tokenRateKey))
		r.Method(http.MethodPost, "/oauth2/token", &tokenHandler{grants: d.Grants, metrics: d.Metrics})
	})

	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(d.Ready))
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
