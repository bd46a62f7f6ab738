// Package postgres provides a Postgres-backed persistent store. Connections
// are pooled by pgxpool and exposed to the shared SQL store through the pgx
// database/sql adapter.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"spycats/internal/infra/persistence/postgres/migrations"
	"spycats/internal/infra/persistence/sqlstore"
	"spycats/pkg/domain"
)

const (
	defaultDSN = "postgres://localhost/spycats?sslmode=disable"

	uniqueViolationCode = "23505"
)

// Dialect describes Postgres to the shared SQL store.
var Dialect = sqlstore.Dialect{
	Name:              "postgres",
	Numbered:          true,
	IsUniqueViolation: IsUniqueViolation,
}

var (
	openDB = openPool
	openMu sync.Mutex
)

// Store persists spycats state in Postgres.
type Store struct {
	*sqlstore.Store
}

// NewStore connects using dsn (falling back to a local default), applies
// migrations and returns the store.
func NewStore(dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	ctx := context.Background()
	openMu.Lock()
	db, err := openDB(ctx, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := sqlstore.ApplyMigrations(ctx, db, Dialect, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{Store: sqlstore.New(db, Dialect, engine)}, nil
}

func openPool(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return stdlib.OpenDBFromPool(pool), nil
}

// OverrideOpenDB swaps the connection factory, returning a restore func.
func OverrideOpenDB(fn func(ctx context.Context, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := openDB
	openDB = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		openDB = prev
	}
}

// IsUniqueViolation reports whether err carries SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
