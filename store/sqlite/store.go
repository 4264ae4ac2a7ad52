// Package sqlite implements store.Store on an embedded SQLite database
// through Grove's sqlitedriver and the pure-Go modernc.org/sqlite driver.
//
// The pool is limited to a single connection, so transactions serialize
// inside the process. Optimistic checks (sale insert uniqueness and product
// version predicates) still guard every commit, and SQLITE_BUSY from other
// processes sharing the file is reported as a conflict and retried.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the "sqlite" migration executor
	"github.com/xraph/grove/migrate"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	ledgerstore "github.com/xraph/stockledger/store"
	"github.com/xraph/stockledger/txn"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove.
type Store struct {
	db     *grove.DB
	sdb    *sqlitedriver.SqliteDB
	policy txn.Policy
}

// Option configures a SQLite Store.
type Option func(*Store)

// WithRetryPolicy sets the conflict retry budget.
func WithRetryPolicy(p txn.Policy) Option {
	return func(s *Store) {
		s.policy = p
	}
}

// Open opens the database at dsn (a file path or ":memory:") on a
// single-connection pool and returns a Store that owns the handle. An
// in-memory database only exists on the connection that created it.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	sdb := sqlitedriver.New()
	if err := sdb.Open(ctx, dsn, driver.WithPoolSize(1)); err != nil {
		return nil, fmt.Errorf("stockledger/sqlite: open: %w", err)
	}
	if _, err := sdb.Exec(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("stockledger/sqlite: configure: %w", err)
	}
	db, err := grove.Open(sdb)
	if err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("stockledger/sqlite: open: %w", err)
	}
	return New(db, opts...), nil
}

// New wraps an open Grove handle. It panics when db is not backed by
// sqlitedriver.
func New(db *grove.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		sdb:    sqlitedriver.Unwrap(db),
		policy: txn.DefaultPolicy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying Grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate runs the stockledger migration group through Grove's orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("stockledger/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("stockledger/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Transactions ====================

// Run executes plan inside a database transaction with conflict retries.
func (s *Store) Run(ctx context.Context, plan txn.PlanFunc) error {
	return txn.Retry(ctx, s.policy, func(ctx context.Context) error {
		return s.attempt(ctx, plan)
	})
}

func (s *Store) attempt(ctx context.Context, plan txn.PlanFunc) error {
	tx, err := s.sdb.BeginTx(ctx, nil)
	if err != nil {
		return mapErr("begin", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	ws, err := plan(ctx, reader{tx})
	if err != nil {
		return err
	}
	if ws.Empty() {
		return nil
	}

	if err := apply(ctx, tx, ws); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapErr("commit", err)
	}
	return nil
}

// ==================== Helpers ====================

// mapErr wraps err, translating lock contention and uniqueness violations
// into txn.ErrConflict.
func mapErr(op string, err error) error {
	if isConflict(err) {
		return fmt.Errorf("stockledger/sqlite: %s: %w: %w", op, txn.ErrConflict, err)
	}
	return fmt.Errorf("stockledger/sqlite: %s: %w", op, err)
}

func isConflict(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	switch code & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// notFound maps sql.ErrNoRows to sentinel and wraps everything else.
func notFound(op string, err, sentinel error) error {
	if isNoRows(err) {
		return sentinel
	}
	return fmt.Errorf("stockledger/sqlite: %s: %w", op, err)
}
