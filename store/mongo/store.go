// Package mongo implements store.Store on MongoDB through a grove handle
// and the official v2 driver.
//
// Commits run in multi-document transactions, which need a replica set or a
// sharded cluster. A sale insert that hits the unique _id, a product update
// whose version filter matches nothing, and errors labelled
// TransientTransactionError are reported as txn.ErrConflict.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readconcern"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	ledgerstore "github.com/xraph/stockledger/store"
	"github.com/xraph/stockledger/txn"
)

// Collection name constants.
const (
	colProducts  = "stockledger_products"
	colSales     = "stockledger_sales"
	colSaleItems = "stockledger_sale_items"
	colEntries   = "stockledger_entries"
	colReceipts  = "stockledger_receipts"
	colAlerts    = "stockledger_alerts"
)

const labelTransientTransaction = "TransientTransactionError"

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove.
type Store struct {
	db     *grove.DB
	mdb    *mongodriver.MongoDB
	policy txn.Policy
}

// Option configures a MongoDB Store.
type Option func(*Store)

// WithRetryPolicy sets the conflict retry budget.
func WithRetryPolicy(p txn.Policy) Option {
	return func(s *Store) {
		s.policy = p
	}
}

// New creates a new MongoDB store backed by a grove handle.
func New(db *grove.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		mdb:    mongodriver.Unwrap(db),
		policy: txn.DefaultPolicy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all stockledger collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("stockledger/mongo: migrate %s indexes: %w", col, err)
		}
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

// Run executes plan in a snapshot transaction with conflict retries.
func (s *Store) Run(ctx context.Context, plan txn.PlanFunc) error {
	return txn.Retry(ctx, s.policy, func(ctx context.Context) error {
		return s.attempt(ctx, plan)
	})
}

func (s *Store) attempt(ctx context.Context, plan txn.PlanFunc) error {
	client := s.mdb.Collection(colProducts).Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("stockledger/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := sess.StartTransaction(opts); err != nil {
		return fmt.Errorf("stockledger/mongo: start transaction: %w", err)
	}
	sctx := mongo.NewSessionContext(ctx, sess)

	ws, err := plan(sctx, reader{s})
	if err == nil && !ws.Empty() {
		err = s.apply(sctx, ws)
	}
	if err != nil {
		_ = sess.AbortTransaction(context.WithoutCancel(ctx))
		return err
	}

	if err := sess.CommitTransaction(sctx); err != nil {
		return mapErr("commit", err)
	}
	return nil
}

// ==================== Helpers ====================

// mapErr wraps err, translating duplicate keys and transient transaction
// failures into txn.ErrConflict.
func mapErr(op string, err error) error {
	if isConflict(err) {
		return fmt.Errorf("stockledger/mongo: %s: %w: %w", op, txn.ErrConflict, err)
	}
	return fmt.Errorf("stockledger/mongo: %s: %w", op, err)
}

func isConflict(err error) bool {
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	var le mongo.LabeledError
	return errors.As(err, &le) && le.HasErrorLabel(labelTransientTransaction)
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// docID is the _id of store-scoped documents whose ids are caller-chosen.
func docID(storeID, id string) string {
	return storeID + ":" + id
}

// migrationIndexes returns the index definitions for all stockledger collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colProducts: {
			{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colSales: {
			{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colSaleItems: {
			{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "sale_id", Value: 1}, {Key: "position", Value: 1}}},
		},
		colEntries: {
			{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "product_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "ref_id", Value: 1}}},
		},
		colReceipts: {
			{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "product_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colAlerts: {
			{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "product_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
}
