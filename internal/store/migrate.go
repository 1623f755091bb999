package store

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// Migration files are named {version}_{name}.sql (0001_init.sql) and are
// applied in version order, each once.

// Migration is one SQL file.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationResult reports what Run did.
type MigrationResult struct {
	Applied  []int
	Skipped  []int
	Duration time.Duration
}

// Executor runs migration statements. SQL adapters provide it over their
// pool.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) error
	AppliedVersions(ctx context.Context) ([]int, error)
}

// Migrator applies the migrations found in dir of fsys.
type Migrator struct {
	fsys fs.FS
	dir  string
}

func NewMigrator(fsys fs.FS, dir string) *Migrator {
	return &Migrator{fsys: fsys, dir: dir}
}

var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// ParseMigrations reads and orders the migration files.
func (m *Migrator) ParseMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.fsys, m.dir)
	if err != nil {
		return nil, fmt.Errorf("migrations: read dir: %w", err)
	}
	var out []Migration
	seen := map[int]string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		matches := migrationFilePattern.FindStringSubmatch(e.Name())
		if matches == nil {
			continue
		}
		version, _ := strconv.Atoi(matches[1])
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations: version %d used by %s and %s", version, prev, e.Name())
		}
		seen[version] = e.Name()

		content, err := fs.ReadFile(m.fsys, path.Join(m.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("migrations: reading %s: %w", e.Name(), err)
		}
		out = append(out, Migration{Version: version, Name: matches[2], SQL: string(content)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

const migrationsTable = `
	CREATE TABLE IF NOT EXISTS _migrations (
		version INT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// Run applies pending migrations and stops at the first failure.
func (m *Migrator) Run(ctx context.Context, exec Executor) (*MigrationResult, error) {
	start := time.Now()
	res := &MigrationResult{}
	defer func() { res.Duration = time.Since(start) }()

	if err := exec.Exec(ctx, migrationsTable); err != nil {
		return res, fmt.Errorf("migrations: create table: %w", err)
	}
	versions, err := exec.AppliedVersions(ctx)
	if err != nil {
		return res, fmt.Errorf("migrations: applied versions: %w", err)
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	migrations, err := m.ParseMigrations()
	if err != nil {
		return res, err
	}
	for _, mig := range migrations {
		if applied[mig.Version] {
			res.Skipped = append(res.Skipped, mig.Version)
			continue
		}
		if err := exec.Exec(ctx, mig.SQL); err != nil {
			return res, fmt.Errorf("migrations: applying %d_%s: %w", mig.Version, mig.Name, err)
		}
		if err := exec.Exec(ctx, `INSERT INTO _migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name); err != nil {
			return res, fmt.Errorf("migrations: recording %d: %w", mig.Version, err)
		}
		res.Applied = append(res.Applied, mig.Version)
	}
	return res, nil
}
