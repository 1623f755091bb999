// Package memory is the in-process store adapter, for development and
// tests. Data lives for the life of the connection.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/fedgrant/internal/domain/repository"
	tokens "github.com/dropDatabas3/fedgrant/internal/security/token"
	"github.com/dropDatabas3/fedgrant/internal/store"
)

func init() {
	store.RegisterAdapter(&memoryAdapter{})
}

type memoryAdapter struct{}

func (a *memoryAdapter) Name() string { return "memory" }

func (a *memoryAdapter) Connect(_ context.Context, _ store.AdapterConfig) (store.AdapterConnection, error) {
	return New(), nil
}

// Connection is a mutex-guarded set of maps. Token ids are keyed by their
// hash, as the SQL adapter stores them.
type Connection struct {
	mu         sync.RWMutex
	clients    map[string]repository.Client
	sessions   map[string]repository.Session
	access     map[string]repository.AccessToken
	refresh    map[string]repository.RefreshToken
	identities map[string]repository.SocialIdentity
	now        func() time.Time
}

// New returns an empty connection.
func New() *Connection {
	return &Connection{
		clients:    map[string]repository.Client{},
		sessions:   map[string]repository.Session{},
		access:     map[string]repository.AccessToken{},
		refresh:    map[string]repository.RefreshToken{},
		identities: map[string]repository.SocialIdentity{},
		now:        time.Now,
	}
}

func (c *Connection) Name() string               { return "memory" }
func (c *Connection) Ping(context.Context) error { return nil }
func (c *Connection) Close() error               { return nil }

func (c *Connection) Clients() repository.ClientRepository      { return clientRepo{c} }
func (c *Connection) Sessions() repository.SessionRepository    { return sessionRepo{c: c} }
func (c *Connection) Tokens() repository.TokenRepository        { return tokenRepo{c: c} }
func (c *Connection) Identities() repository.IdentityRepository { return identityRepo{c} }

// InTx runs fn with the write lock held. Writes made through the
// repositories fn receives are undone if fn fails.
func (c *Connection) InTx(ctx context.Context, fn func(repository.TokenStore) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &tx{c: c}
	if err := fn(t); err != nil {
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		return err
	}
	return nil
}

// tx is a TokenStore bound to a running InTx. The lock is already held.
type tx struct {
	c    *Connection
	undo []func()
}

func (t *tx) Sessions() repository.SessionRepository { return sessionRepo{c: t.c, tx: t} }
func (t *tx) Tokens() repository.TokenRepository     { return tokenRepo{c: t.c, tx: t} }

// lock takes the lock unless tx already holds it.
func (c *Connection) lock(t *tx) func() {
	if t != nil {
		return func() {}
	}
	c.mu.Lock()
	return c.mu.Unlock
}

func (c *Connection) rlock(t *tx) func() {
	if t != nil {
		return func() {}
	}
	c.mu.RLock()
	return c.mu.RUnlock
}

func (t *tx) onRollback(f func()) {
	if t != nil {
		t.undo = append(t.undo, f)
	}
}

func hash(id string) string { return tokens.SHA256Base64URL(id) }

func cloneStrings(s []string) []string { return append([]string{}, s...) }
