// Package postgres provides a shared durable schedule store on
// PostgreSQL via the Bun ORM.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	deflow "github.com/Legatia/DeFlow-sub000"
	"github.com/Legatia/DeFlow-sub000/schedule"
)

// Ensure Store implements the persistence and lifecycle contracts at
// compile time.
var (
	_ schedule.Store = (*Store)(nil)
	_ deflow.Storer  = (*Store)(nil)
)

// Store is a Bun implementation of schedule.Store using the PostgreSQL
// dialect.
type Store struct {
	db     *bun.DB
	ownsDB bool
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store over an existing Bun handle. The caller owns the
// *bun.DB lifecycle; Close is a no-op.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to PostgreSQL with the given DSN and returns a Store that
// owns the connection; Close releases it.
func Open(dsn string, opts ...Option) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("deflow/postgres: dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	s := New(bun.NewDB(sqldb, pgdialect.New()), opts...)
	s.ownsDB = true
	return s, nil
}

// DB returns the underlying *bun.DB for advanced usage.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Migrate creates the schema when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("deflow/postgres: migrate: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection when the Store opened it; otherwise the
// caller owns the lifecycle and Close is a no-op.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// isNoRows returns true when err indicates no rows were found.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
