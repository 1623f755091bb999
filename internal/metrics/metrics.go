// Package metrics defines the service's Prometheus collectors.
//
// Collectors live in their own package so grant wiring, providers and the
// HTTP layer can share them without import cycles.
package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/fedgrant/internal/grant"
)

// Metrics groups every collector. Build it once per registry with New.
type Metrics struct {
	GrantRequests       *prometheus.CounterVec   // grant, result
	AuthFailures        *prometheus.CounterVec   // grant, event
	ProfileFetchSeconds *prometheus.HistogramVec // provider, result

	HTTPRequests *prometheus.CounterVec   // method, path, status
	HTTPDuration *prometheus.HistogramVec // method, path
	HTTPInflight *prometheus.GaugeVec     // method, path

	RateLimited *prometheus.CounterVec // scope
}

// New creates and registers the collectors on reg (the default registerer
// when nil). Keep one instance per registry.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		GrantRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fedgrant_grant_requests_total",
			Help: "Token requests by grant and result (ok or error kind).",
		}, []string{"grant", "result"}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fedgrant_auth_failures_total",
			Help: "Client and user authentication failures by grant.",
		}, []string{"grant", "event"}),
		ProfileFetchSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fedgrant_profile_fetch_seconds",
			Help:    "Latency of external profile fetches.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests processed.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		HTTPInflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "In-flight HTTP requests.",
		}, []string{"method", "path"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fedgrant_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"scope"}),
	}
	for _, c := range []prometheus.Collector{
		m.GrantRequests, m.AuthFailures, m.ProfileFetchSeconds,
		m.HTTPRequests, m.HTTPDuration, m.HTTPInflight, m.RateLimited,
	} {
		if err := register(reg, c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// register ignores duplicate registration of an equal collector.
func register(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}

// ObserveGrant counts one token request outcome.
func (m *Metrics) ObserveGrant(grantType string, err error) {
	result := "ok"
	if err != nil {
		result = string(grant.AsError(err).Kind)
	}
	if grantType == "" {
		grantType = "none"
	}
	m.GrantRequests.WithLabelValues(grantType, result).Inc()
}

// Emit makes Metrics a grant.EventSink.
func (m *Metrics) Emit(_ context.Context, ev grant.Event) {
	m.AuthFailures.WithLabelValues(ev.Grant, string(ev.Type)).Inc()
}

// InstrumentFetcher times every call of f under provider.
func (m *Metrics) InstrumentFetcher(provider string, f grant.ProfileFetcher) grant.ProfileFetcher {
	return fetcherFunc(func(ctx context.Context, token string) (*grant.Profile, error) {
		start := time.Now()
		p, err := f.Fetch(ctx, token)
		result := "ok"
		if err != nil {
			result = "error"
		}
		m.ProfileFetchSeconds.WithLabelValues(strings.ToLower(provider), result).Observe(time.Since(start).Seconds())
		return p, err
	})
}

type fetcherFunc func(ctx context.Context, token string) (*grant.Profile, error)

func (f fetcherFunc) Fetch(ctx context.Context, token string) (*grant.Profile, error) {
	return f(ctx, token)
}

// poolCollector exposes pgxpool connection gauges.
type poolCollector struct {
	pool func() *pgxpool.Pool

	acquiredDesc *prometheus.Desc
	idleDesc     *prometheus.Desc
	totalDesc    *prometheus.Desc
}

// RegisterPool exports pool stats. pool may return nil (no database).
func RegisterPool(reg prometheus.Registerer, pool func() *pgxpool.Pool) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return register(reg, &poolCollector{
		pool:         pool,
		acquiredDesc: prometheus.NewDesc("pg_pool_acquired", "Acquired connections.", nil, nil),
		idleDesc:     prometheus.NewDesc("pg_pool_idle", "Idle connections.", nil, nil),
		totalDesc:    prometheus.NewDesc("pg_pool_total", "Total connections.", nil, nil),
	})
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredDesc
	ch <- c.idleDesc
	ch <- c.totalDesc
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	p := c.pool()
	if p == nil {
		return
	}
	stat := p.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquiredDesc, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(stat.TotalConns()))
}
