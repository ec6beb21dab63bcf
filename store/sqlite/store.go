// Package sqlite provides a single-file durable schedule store on
// modernc.org/sqlite (cgo-free).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	deflow "github.com/Legatia/DeFlow-sub000"
	"github.com/Legatia/DeFlow-sub000/schedule"
)

// Ensure Store implements the persistence and lifecycle contracts at
// compile time.
var (
	_ schedule.Store = (*Store)(nil)
	_ deflow.Storer  = (*Store)(nil)
)

// Store is a SQLite implementation of schedule.Store.
type Store struct {
	db     *sql.DB
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

// Open opens (creating if necessary) the SQLite database at path and
// returns a Store over it. ":memory:" gives an ephemeral database. The
// Store owns the connection; Close releases it.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("deflow/sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("deflow/sqlite: open %s: %w", path, err)
	}

	// SQLite prefers a single writer; a second connection would also see
	// its own empty database when path is ":memory:".
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA busy_timeout = 5000")
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	s := &Store{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DB returns the underlying *sql.DB for advanced usage.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates the schema when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("deflow/sqlite: migrate: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isNoRows returns true when err indicates no rows were found.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
