package config

import (
	"errors"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/fedgrant/internal/grant"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

		// Peers whose X-Forwarded-For is believed. IPs or CIDRs; empty trusts none.
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Storage struct {
		Driver   string `yaml:"driver"` // memory | postgres
		DSN      string `yaml:"dsn"`
		Migrate  bool   `yaml:"migrate"`
		Postgres struct {
			MaxOpenConns int `yaml:"max_open_conns"`
			MaxIdleConns int `yaml:"max_idle_conns"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL time.Duration `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Tokens struct {
		AccessTTL      time.Duration `yaml:"access_ttl"`
		RefreshTTL     time.Duration `yaml:"refresh_ttl"`
		RefreshEnabled bool          `yaml:"refresh_enabled"`
	} `yaml:"tokens"`

	Grants struct {
		Facebook struct {
			Enabled         bool          `yaml:"enabled"`
			Identifier      string        `yaml:"identifier"`
			GatherProfile   bool          `yaml:"gather_profile"`
			ClientID        string        `yaml:"client_id"`
			ClientSecret    string        `yaml:"client_secret"`
			ProfileCacheTTL time.Duration `yaml:"profile_cache_ttl"`
			GraphURL        string        `yaml:"graph_url"`
			Fields          []string      `yaml:"fields"`
			DefaultScope    string        `yaml:"default_scope"`
			RequireScope    bool          `yaml:"require_scope"`
		} `yaml:"facebook"`

		Assertion struct {
			Enabled    bool          `yaml:"enabled"`
			Identifier string        `yaml:"identifier"`
			Issuer     string        `yaml:"issuer"`
			Audience   string        `yaml:"audience"`
			HMACSecret string        `yaml:"hmac_secret"`
			Leeway     time.Duration `yaml:"leeway"`
		} `yaml:"assertion"`
	} `yaml:"grants"`

	Rate struct {
		Enabled     bool          `yaml:"enabled"`
		Window      time.Duration `yaml:"window"`
		MaxRequests int           `yaml:"max_requests"`
	} `yaml:"rate"`
}

// Default returns the configuration used when neither the file nor the
// environment set a value.
func Default() Config {
	var c Config
	c.App.Env = "dev"
	c.Server.Addr = ":8080"
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 15 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Log.Level = "info"
	c.Storage.Driver = "memory"
	c.Cache.Kind = "memory"
	c.Cache.Redis.Prefix = "fedgrant:"
	c.Cache.Memory.DefaultTTL = 2 * time.Minute
	c.Tokens.AccessTTL = time.Hour
	c.Tokens.RefreshTTL = 720 * time.Hour // 30d
	c.Tokens.RefreshEnabled = true
	c.Grants.Facebook.Enabled = true
	c.Grants.Facebook.Identifier = grant.DefaultIdentifier
	c.Grants.Facebook.ProfileCacheTTL = 5 * time.Minute
	c.Grants.Assertion.Identifier = "assertion"
	c.Grants.Assertion.Leeway = 30 * time.Second
	c.Rate.Window = time.Minute
	c.Rate.MaxRequests = 60
	return c
}

// Load reads path (skipped when empty), then applies environment
// overrides. The result is not validated.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}
	c.applyEnvOverrides()
	return &c, nil
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides layers environment variables over the file values.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvDur("SERVER_SHUTDOWN_TIMEOUT"); ok {
		c.Server.ShutdownTimeout = v
	}
	if v, ok := getEnvCSV("SERVER_TRUSTED_PROXIES"); ok {
		c.Server.TrustedProxies = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvBool("STORAGE_MIGRATE"); ok {
		c.Storage.Migrate = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.Postgres.MaxIdleConns = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// TOKENS
	if v, ok := getEnvDur("TOKENS_ACCESS_TTL"); ok {
		c.Tokens.AccessTTL = v
	}
	if v, ok := getEnvDur("TOKENS_REFRESH_TTL"); ok {
		c.Tokens.RefreshTTL = v
	}
	if v, ok := getEnvBool("TOKENS_REFRESH_ENABLED"); ok {
		c.Tokens.RefreshEnabled = v
	}

	// FACEBOOK
	fb := &c.Grants.Facebook
	if v, ok := getEnvBool("FACEBOOK_ENABLED"); ok {
		fb.Enabled = v
	}
	if v, ok := getEnvStr("FACEBOOK_GRANT_IDENTIFIER"); ok {
		fb.Identifier = v
	}
	if v, ok := getEnvBool("FACEBOOK_GATHER_PROFILE"); ok {
		fb.GatherProfile = v
	}
	if v, ok := getEnvStr("FACEBOOK_CLIENT_ID"); ok {
		fb.ClientID = v
	}
	if v, ok := getEnvStr("FACEBOOK_CLIENT_SECRET"); ok {
		fb.ClientSecret = v
	}
	if v, ok := getEnvDur("FACEBOOK_PROFILE_CACHE_TTL"); ok {
		fb.ProfileCacheTTL = v
	}
	if v, ok := getEnvStr("FACEBOOK_GRAPH_URL"); ok {
		fb.GraphURL = v
	}
	if v, ok := getEnvCSV("FACEBOOK_FIELDS"); ok {
		fb.Fields = v
	}
	if v, ok := getEnvCSV("FACEBOOK_DEFAULT_SCOPE"); ok {
		fb.DefaultScope = strings.Join(v, " ")
	}
	if v, ok := getEnvBool("FACEBOOK_REQUIRE_SCOPE"); ok {
		fb.RequireScope = v
	}

	// ASSERTION
	as := &c.Grants.Assertion
	if v, ok := getEnvBool("ASSERTION_ENABLED"); ok {
		as.Enabled = v
	}
	if v, ok := getEnvStr("ASSERTION_ISSUER"); ok {
		as.Issuer = v
	}
	if v, ok := getEnvStr("ASSERTION_AUDIENCE"); ok {
		as.Audience = v
	}
	if v, ok := getEnvStr("ASSERTION_HMAC_SECRET"); ok {
		as.HMACSecret = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvDur("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}
}

// Validate reports every problem found, each as a grant configuration error.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, grant.ConfigurationError(format, args...))
	}

	if _, err := ParseTrustedProxies(c.Server.TrustedProxies); err != nil {
		fail("server.trusted_proxies: %v", err)
	}

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			fail("storage.dsn is required for postgres")
		}
	default:
		fail("storage.driver %q not supported", c.Storage.Driver)
	}

	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			fail("cache.redis.addr is required for redis")
		}
	default:
		fail("cache.kind %q not supported", c.Cache.Kind)
	}

	if c.Tokens.AccessTTL <= 0 {
		fail("tokens.access_ttl must be positive")
	}
	if c.Tokens.RefreshEnabled && c.Tokens.RefreshTTL <= 0 {
		fail("tokens.refresh_ttl must be positive when refresh is enabled")
	}

	fb, as := c.Grants.Facebook, c.Grants.Assertion
	if !fb.Enabled && !as.Enabled {
		fail("no grant enabled")
	}
	if fb.Enabled {
		if strings.TrimSpace(fb.Identifier) == "" {
			fail("grants.facebook.identifier is empty")
		}
		if fb.GatherProfile && (fb.ClientID == "" || fb.ClientSecret == "") {
			fail("grants.facebook.client_id and client_secret are required to gather profiles")
		}
	}
	if as.Enabled {
		if as.Issuer == "" || as.Audience == "" || as.HMACSecret == "" {
			fail("grants.assertion needs issuer, audience and hmac_secret")
		}
		if fb.Enabled && as.Identifier == fb.Identifier {
			fail("grant identifier %q used twice", as.Identifier)
		}
	}

	if c.Rate.Enabled && (c.Rate.Window <= 0 || c.Rate.MaxRequests <= 0) {
		fail("rate.window and rate.max_requests must be positive")
	}
	return errors.Join(errs...)
}

// ParseTrustedProxies turns IPs and CIDRs into prefixes. A bare IP becomes a
// single-address prefix.
func ParseTrustedProxies(list []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(list))
	for _, raw := range list {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, err
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// IsProd reports whether the service runs with app.env=prod.
func (c *Config) IsProd() bool { return c.App.Env == "prod" }
