// Package app wires configuration into a running token service: storage,
// cache, providers, grants and the HTTP router.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dropDatabas3/fedgrant/internal/audit"
	"github.com/dropDatabas3/fedgrant/internal/cache"
	"github.com/dropDatabas3/fedgrant/internal/config"
	"github.com/dropDatabas3/fedgrant/internal/grant"
	fghttp "github.com/dropDatabas3/fedgrant/internal/http"
	"github.com/dropDatabas3/fedgrant/internal/metrics"
	"github.com/dropDatabas3/fedgrant/internal/observability/logger"
	"github.com/dropDatabas3/fedgrant/internal/providers"
	"github.com/dropDatabas3/fedgrant/internal/providers/facebook"
	"github.com/dropDatabas3/fedgrant/internal/rate"
	"github.com/dropDatabas3/fedgrant/internal/store"
	"github.com/dropDatabas3/fedgrant/internal/verifier"

	_ "github.com/dropDatabas3/fedgrant/internal/store/adapters/memory"
	_ "github.com/dropDatabas3/fedgrant/internal/store/adapters/pg"
)

// Container holds the built service. Close releases what New opened.
type Container struct {
	Config    *config.Config
	Store     store.AdapterConnection
	Cache     cache.Client
	Providers *providers.Registry
	Grants    *grant.Server
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry
	Handler   http.Handler

	closers []func() error
}

// New builds the container from a validated cfg.
func New(ctx context.Context, cfg *config.Config) (_ *Container, err error) {
	log := logger.From(ctx).With(logger.Layer("app"), logger.Op("app.New"))
	c := &Container{Config: cfg, Providers: providers.NewRegistry()}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if c.Metrics, err = metrics.New(c.Registry); err != nil {
		return nil, err
	}

	if err = c.openStore(ctx); err != nil {
		return nil, err
	}
	limiter, err := c.openCache(ctx)
	if err != nil {
		return nil, err
	}
	if err = c.buildGrants(log); err != nil {
		return nil, err
	}

	if !cfg.Rate.Enabled {
		limiter = nil
	}
	trusted, err := config.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, grant.ConfigurationError("server.trusted_proxies: %v", err)
	}
	c.Handler = fghttp.NewRouter(fghttp.RouterDeps{
		Grants:   c.Grants,
		Metrics:  c.Metrics,
		Gatherer: c.Registry,
		Limiter:  limiter,
		Ready: map[string]fghttp.ReadyCheck{
			"store": c.Store.Ping,
			"cache": c.Cache.Ping,
		},
		TrustedProxies: trusted,
	})
	log.Info("service wired",
		logger.String("store", c.Store.Name()),
		logger.String("cache", cfg.Cache.Kind),
		logger.Any("grants", c.Grants.Identifiers()),
	)
	return c, nil
}

func (c *Container) openStore(ctx context.Context) error {
	sc := c.Config.Storage
	conn, err := store.OpenAdapter(ctx, store.AdapterConfig{
		Name:         sc.Driver,
		DSN:          sc.DSN,
		MaxOpenConns: sc.Postgres.MaxOpenConns,
		MaxIdleConns: sc.Postgres.MaxIdleConns,
	})
	if err != nil {
		return grant.ConfigurationError("open store: %v", err)
	}
	c.Store = conn
	c.closers = append(c.closers, conn.Close)

	if p, ok := conn.(interface{ Pool() *pgxpool.Pool }); ok {
		if err := metrics.RegisterPool(c.Registry, p.Pool); err != nil {
			return err
		}
	}
	if sc.Migrate {
		if _, err := Migrate(ctx, conn); err != nil {
			return err
		}
	}
	return nil
}

// openCache builds the profile cache and the matching rate limiter. Redis
// backs both through one client.
func (c *Container) openCache(ctx context.Context) (rate.Limiter, error) {
	cc := c.Config.Cache
	rc := c.Config.Rate
	switch cc.Kind {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cc.Redis.Addr,
			Password: cc.Redis.Password,
			DB:       cc.Redis.DB,
		})
		c.closers = append(c.closers, rdb.Close)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("cache: redis ping failed: %w", err)
		}
		c.Cache = cache.NewRedisFromClient(rdb, cc.Redis.Prefix, cc.Memory.DefaultTTL)
		return rate.NewRedisLimiter(rdb, cc.Redis.Prefix+"rl:", rc.MaxRequests, rc.Window), nil
	default:
		cl, err := cache.New(cache.Config{Driver: cc.Kind, DefaultTTL: cc.Memory.DefaultTTL})
		if err != nil {
			return nil, err
		}
		c.Cache = cl
		c.closers = append(c.closers, cl.Close)
		return rate.NewMemoryLimiter(rc.MaxRequests, rc.Window), nil
	}
}

// buildGrants registers the refresh grant first so the others know whether
// to issue refresh tokens.
func (c *Container) buildGrants(log *zap.Logger) error {
	cfg := c.Config
	clients := store.NewClientAuthenticator(c.Store.Clients())
	issuer := grant.NewIssuer(grant.IssuerDeps{Store: c.Store})
	events := audit.Multi{audit.NewSink(nil), c.Metrics}
	c.Grants = grant.NewServer()

	if cfg.Tokens.RefreshEnabled {
		rg, err := grant.NewRefreshGrant(grant.RefreshDeps{
			Clients:         clients,
			Store:           c.Store,
			Issuer:          issuer,
			AccessTokenTTL:  cfg.Tokens.AccessTTL,
			RefreshTokenTTL: cfg.Tokens.RefreshTTL,
			Events:          events,
		})
		if err != nil {
			return err
		}
		if err := c.Grants.Register(rg); err != nil {
			return err
		}
	}
	refreshTTL, refreshEnabled := c.Grants.RefreshTokenTTL()

	if fb := cfg.Grants.Facebook; fb.Enabled {
		var fetcher grant.ProfileFetcher
		if fb.GatherProfile {
			var opts []facebook.Option
			if fb.GraphURL != "" {
				opts = append(opts, facebook.WithGraphURL(fb.GraphURL))
			}
			if len(fb.Fields) > 0 {
				opts = append(opts, facebook.WithFields(fb.Fields...))
			}
			client, err := facebook.New(fb.ClientID, fb.ClientSecret, opts...)
			if err != nil {
				return err
			}
			instrumented := c.Metrics.InstrumentFetcher(facebook.ProviderName, client)
			if err := c.Providers.Register(facebook.ProviderName, providers.NewCachingFetcher(instrumented, c.Cache, fb.ProfileCacheTTL)); err != nil {
				return err
			}
			fetcher, _ = c.Providers.Get(facebook.ProviderName)
		} else {
			log.Warn("facebook grant runs without profile gathering; the identity verifier rejects every request",
				logger.Grant(fb.Identifier))
		}
		g, err := grant.NewFederatedGrant(grant.FederatedDeps{
			Config: grant.Config{
				Identifier:        fb.Identifier,
				GatherProfile:     fb.GatherProfile,
				ProviderAppID:     fb.ClientID,
				ProviderAppSecret: fb.ClientSecret,
				AccessTokenTTL:    cfg.Tokens.AccessTTL,
				RefreshEnabled:    refreshEnabled,
				RefreshTokenTTL:   refreshTTL,
				DefaultScope:      fb.DefaultScope,
				RequireScope:      fb.RequireScope,
			},
			Clients:  clients,
			Verifier: verifier.NewIdentityVerifier(c.Store.Identities()),
			Issuer:   issuer,
			Fetcher:  fetcher,
			Events:   events,
		})
		if err != nil {
			return err
		}
		if err := c.Grants.Register(g); err != nil {
			return err
		}
	}

	if as := cfg.Grants.Assertion; as.Enabled {
		v, err := verifier.NewAssertionVerifier(verifier.AssertionConfig{
			Issuer:     as.Issuer,
			Audience:   as.Audience,
			HMACSecret: []byte(as.HMACSecret),
			Leeway:     as.Leeway,
		}, c.Store.Identities())
		if err != nil {
			return err
		}
		g, err := grant.NewFederatedGrant(grant.FederatedDeps{
			Config: grant.Config{
				Identifier:      as.Identifier,
				AccessTokenTTL:  cfg.Tokens.AccessTTL,
				RefreshEnabled:  refreshEnabled,
				RefreshTokenTTL: refreshTTL,
			},
			Clients:  clients,
			Verifier: v,
			Issuer:   issuer,
			Events:   events,
		})
		if err != nil {
			return err
		}
		if err := c.Grants.Register(g); err != nil {
			return err
		}
	}
	return nil
}

// Migrate applies schema migrations when conn supports them.
func Migrate(ctx context.Context, conn store.AdapterConnection) (*store.MigrationResult, error) {
	m, ok := conn.(store.MigratableConnection)
	if !ok {
		return &store.MigrationResult{}, nil
	}
	res, err := m.Migrate(ctx)
	if err != nil {
		return res, fmt.Errorf("migrate: %w", err)
	}
	logger.From(ctx).Info("migrations applied",
		logger.Component("migrate"),
		logger.Any("applied", res.Applied),
		logger.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}
