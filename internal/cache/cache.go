// Package cache provides a small key/value cache with in-process and Redis
// backends.
//
// Backends:
//   - memory: patrickmn/go-cache, per process, for development and single
//     instance deployments
//   - redis: shared across instances
//
// Keys are namespaced with Config.Prefix.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Client is the cache contract used by the service.
type Client interface {
	// Get returns the value, or ErrNotFound if absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value. A ttl of 0 uses the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver     string // "memory" | "redis"
	Addr       string // redis host:port
	Password   string
	DB         int
	Prefix     string
	DefaultTTL time.Duration
}

// ErrNotFound is returned by Get on a miss.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound reports whether err is a cache miss.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// New builds the backend named by cfg.Driver.
func New(cfg Config) (Client, error) {
	switch cfg.Driver {
	case "memory", "":
		return NewMemory(cfg.Prefix, cfg.DefaultTTL), nil
	case "redis":
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}

func prefixed(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + ":" + k
}
