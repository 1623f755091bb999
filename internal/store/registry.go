// Package store is the adapter registry for persistence backends.
//
// Adapters register themselves from init() and are opened by name:
//
//	import _ "github.com/dropDatabas3/fedgrant/internal/store/adapters/pg"
//	conn, err := store.OpenAdapter(ctx, store.AdapterConfig{Name: "postgres", DSN: dsn})
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/fedgrant/internal/domain/repository"
)

// Adapter is a storage backend able to open connections.
type Adapter interface {
	// Name is the registry key ("memory", "postgres").
	Name() string

	Connect(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error)
}

// AdapterConnection is an open backend. It is a repository.TokenStore and
// a repository.Transactor.
type AdapterConnection interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error

	Clients() repository.ClientRepository
	Sessions() repository.SessionRepository
	Tokens() repository.TokenRepository
	Identities() repository.IdentityRepository

	InTx(ctx context.Context, fn func(repository.TokenStore) error) error
}

// MigratableConnection is implemented by SQL backends.
type MigratableConnection interface {
	Migrate(ctx context.Context) (*MigrationResult, error)
}

// AdapterConfig configures a connection.
type AdapterConfig struct {
	// Name of the adapter: "memory" or "postgres".
	Name string

	// DSN connection string (SQL adapters).
	DSN string

	// Pool settings (SQL adapters).
	MaxOpenConns int
	MaxIdleConns int
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter adds a to the global registry. Call it from init().
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("adapter: %q already registered", name))
	}
	adapters[name] = a
}

func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters returns the registered adapter names, sorted.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenAdapter connects with the adapter named in cfg.
func OpenAdapter(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error) {
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("adapter: %q not registered", cfg.Name)
	}
	return a.Connect(ctx, cfg)
}
