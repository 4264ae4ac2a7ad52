// Package postgres implements store.Store on PostgreSQL through Grove's
// pgdriver, which runs on a pgx connection pool.
//
// Each attempt runs in a SERIALIZABLE transaction. Serialization failures,
// deadlocks, unique violations on the sale key and product version
// mismatches are all reported as txn.ErrConflict so the whole plan re-runs.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the "pg" migration executor
	"github.com/xraph/grove/migrate"

	ledgerstore "github.com/xraph/stockledger/store"
	"github.com/xraph/stockledger/txn"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// SQLSTATE codes treated as a lost race.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// Store implements store.Store using PostgreSQL via Grove.
type Store struct {
	db     *grove.DB
	pdb    *pgdriver.PgDB
	policy txn.Policy
}

// Option configures a PostgreSQL Store.
type Option func(*Store)

// WithRetryPolicy sets the conflict retry budget.
func WithRetryPolicy(p txn.Policy) Option {
	return func(s *Store) {
		s.policy = p
	}
}

// Open connects a pgdriver pool to dsn and returns a Store that owns it.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	pdb := pgdriver.New()
	if err := pdb.Open(ctx, dsn); err != nil {
		return nil, fmt.Errorf("stockledger/postgres: connect: %w", err)
	}
	db, err := grove.Open(pdb)
	if err != nil {
		_ = pdb.Close()
		return nil, fmt.Errorf("stockledger/postgres: connect: %w", err)
	}
	return New(db, opts...), nil
}

// New wraps an open Grove handle. It panics when db is not backed by
// pgdriver.
func New(db *grove.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		pdb:    pgdriver.Unwrap(db),
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
	executor, err := migrate.NewExecutorFor(s.pdb)
	if err != nil {
		return fmt.Errorf("stockledger/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("stockledger/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Transactions ====================

// Run executes plan in a serializable transaction with conflict retries.
func (s *Store) Run(ctx context.Context, plan txn.PlanFunc) error {
	return txn.Retry(ctx, s.policy, func(ctx context.Context) error {
		return s.attempt(ctx, plan)
	})
}

func (s *Store) attempt(ctx context.Context, plan txn.PlanFunc) error {
	tx, err := s.pdb.BeginTx(ctx, &driver.TxOptions{IsolationLevel: driver.LevelSerializable})
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

// mapErr wraps err, translating serialization failures, deadlocks and
// uniqueness violations into txn.ErrConflict.
func mapErr(op string, err error) error {
	if isConflict(err) {
		return fmt.Errorf("stockledger/postgres: %s: %w: %w", op, txn.ErrConflict, err)
	}
	return fmt.Errorf("stockledger/postgres: %s: %w", op, err)
}

func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeUniqueViolation:
		return true
	}
	return false
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// notFound maps pgx.ErrNoRows to sentinel and wraps everything else.
func notFound(op string, err, sentinel error) error {
	if isNoRows(err) {
		return sentinel
	}
	return fmt.Errorf("stockledger/postgres: %s: %w", op, err)
}
