// Package pg is the PostgreSQL adapter. It works on pgxpool directly and
// expects the schema from migrations/postgres.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/fedgrant/internal/domain/repository"
	"github.com/dropDatabas3/fedgrant/internal/store"
	migrations "github.com/dropDatabas3/fedgrant/migrations/postgres"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}
	return &Connection{pool: pool}, nil
}

// querier is the part of pgxpool.Pool and pgx.Tx the repositories use.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Connection is an open PostgreSQL pool.
type Connection struct {
	pool *pgxpool.Pool
}

func (c *Connection) Name() string { return "postgres" }

func (c *Connection) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *Connection) Close() error {
	c.pool.Close()
	return nil
}

// Pool exposes the underlying pool for stats collection.
func (c *Connection) Pool() *pgxpool.Pool { return c.pool }

func (c *Connection) Clients() repository.ClientRepository      { return clientRepo{q: c.pool} }
func (c *Connection) Sessions() repository.SessionRepository    { return sessionRepo{q: c.pool} }
func (c *Connection) Tokens() repository.TokenRepository        { return tokenRepo{q: c.pool} }
func (c *Connection) Identities() repository.IdentityRepository { return identityRepo{q: c.pool} }

// InTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back otherwise.
func (c *Connection) InTx(ctx context.Context, fn func(repository.TokenStore) error) error {
	return pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		return fn(txStore{q: tx})
	})
}

type txStore struct{ q querier }

func (s txStore) Sessions() repository.SessionRepository { return sessionRepo{q: s.q} }
func (s txStore) Tokens() repository.TokenRepository     { return tokenRepo{q: s.q} }

// Migrate applies the embedded migrations.
func (c *Connection) Migrate(ctx context.Context) (*store.MigrationResult, error) {
	return store.NewMigrator(migrations.FS, migrations.Dir).Run(ctx, migrationExecutor{pool: c.pool})
}

type migrationExecutor struct{ pool *pgxpool.Pool }

func (e migrationExecutor) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := e.pool.Exec(ctx, sql, args...)
	return err
}

func (e migrationExecutor) AppliedVersions(ctx context.Context) ([]int, error) {
	rows, err := e.pool.Query(ctx, `SELECT version FROM _migrations ORDER BY version`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// mapErr translates driver errors into repository sentinels.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return repository.ErrConflict
		case codeForeignKeyViolation:
			return fmt.Errorf("pg: %s: %w", op, repository.ErrInvalidInput)
		}
	}
	return fmt.Errorf("pg: %s: %w", op, err)
}

var (
	_ store.AdapterConnection    = (*Connection)(nil)
	_ store.MigratableConnection = (*Connection)(nil)
)
