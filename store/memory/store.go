// Package memory provides an in-process Store. Transactions are optimistic:
// plans read under a shared lock, and commits re-check sale absence and
// product versions under the exclusive lock before applying.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/alert"
	"github.com/xraph/stockledger/entry"
	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/receipt"
	"github.com/xraph/stockledger/sale"
	"github.com/xraph/stockledger/txn"
)

type key struct {
	storeID string
	id      string
}

// Store is a map-backed Store for tests and single-process deployments.
type Store struct {
	mu sync.RWMutex

	policy txn.Policy
	closed bool

	// Catalog storage
	products map[key]*product.Product

	// Sale storage
	sales     map[key]*sale.Sale
	saleItems map[key][]*sale.Item

	// Append-only storage, in commit order
	entries  []*entry.Entry
	receipts []*receipt.Receipt
	alerts   []*alert.Alert

	// beforeCommit runs between planning and commit. Tests use it to
	// inject concurrent writes.
	beforeCommit func()
}

// Option configures a memory Store.
type Option func(*Store)

// WithRetryPolicy sets the conflict retry budget.
func WithRetryPolicy(p txn.Policy) Option {
	return func(s *Store) {
		s.policy = p
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		policy:    txn.DefaultPolicy,
		products:  make(map[key]*product.Product),
		sales:     make(map[key]*sale.Sale),
		saleItems: make(map[key][]*sale.Item),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ──────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────

// Run executes plan with conflict retries.
func (s *Store) Run(ctx context.Context, plan txn.PlanFunc) error {
	return txn.Retry(ctx, s.policy, func(ctx context.Context) error {
		return s.attempt(ctx, plan)
	})
}

func (s *Store) attempt(ctx context.Context, plan txn.PlanFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ws, err := plan(ctx, reader{s})
	if err != nil {
		return err
	}
	if ws.Empty() {
		return nil
	}

	if s.beforeCommit != nil {
		s.beforeCommit()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return stockledger.ErrStoreClosed
	}

	if err := s.validate(ws); err != nil {
		return err
	}
	s.apply(ws)
	return nil
}

// validate checks the write set against current state. Callers hold mu.
func (s *Store) validate(ws *txn.WriteSet) error {
	if ws.Sale != nil {
		if _, exists := s.sales[key{ws.Sale.StoreID, ws.Sale.ID}]; exists {
			return fmt.Errorf("memory: sale %q committed concurrently: %w", ws.Sale.ID, txn.ErrConflict)
		}
	}
	for _, p := range ws.Products {
		cur, ok := s.products[key{p.StoreID, p.ID}]
		if !ok || cur.Version != p.Version {
			return fmt.Errorf("memory: product %q modified concurrently: %w", p.ID, txn.ErrConflict)
		}
	}
	return nil
}

// apply writes ws. Callers hold mu and have validated ws.
func (s *Store) apply(ws *txn.WriteSet) {
	if ws.Sale != nil {
		k := key{ws.Sale.StoreID, ws.Sale.ID}
		s.sales[k] = ws.Sale.Clone()
		s.saleItems[k] = copyAll(ws.SaleItems)
	}
	for _, p := range ws.Products {
		c := p.Clone()
		c.Version++
		s.products[key{p.StoreID, p.ID}] = c
	}
	s.entries = append(s.entries, ws.Entries...)
	s.receipts = append(s.receipts, ws.Receipts...)
	s.alerts = append(s.alerts, ws.Alerts...)
}

// copyAll returns shallow copies of the records in in.
func copyAll[T any](in []*T) []*T {
	out := make([]*T, len(in))
	for i, v := range in {
		c := *v
		out[i] = &c
	}
	return out
}

type reader struct{ s *Store }

func (r reader) LookupSale(_ context.Context, storeID, saleID string) (*sale.Sale, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.sales[key{storeID, saleID}].Clone(), nil
}

func (r reader) LookupProduct(_ context.Context, storeID, productID string) (*product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.products[key{storeID, productID}].Clone(), nil
}

// ──────────────────────────────────────────────────
// Catalog
// ──────────────────────────────────────────────────

// SaveProduct inserts or replaces a product and bumps its version.
func (s *Store) SaveProduct(_ context.Context, p *product.Product) error {
	if p.StoreID == "" || p.ID == "" {
		return stockledger.ValidationError{Field: "product", Message: "storeId and id are required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{p.StoreID, p.ID}
	var version int64
	if cur, ok := s.products[k]; ok {
		version = cur.Version
	}
	p.Version = version + 1
	s.products[k] = p.Clone()
	return nil
}

// GetProduct returns a copy of a product.
func (s *Store) GetProduct(_ context.Context, storeID, productID string) (*product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.products[key{storeID, productID}]; ok {
		return p.Clone(), nil
	}
	return nil, stockledger.ErrProductNotFound
}

// ──────────────────────────────────────────────────
// Sales
// ──────────────────────────────────────────────────

// GetSale returns a committed sale.
func (s *Store) GetSale(_ context.Context, storeID, saleID string) (*sale.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sl, ok := s.sales[key{storeID, saleID}]; ok {
		return sl.Clone(), nil
	}
	return nil, stockledger.ErrSaleNotFound
}

// ListSaleItems returns a sale's items in line order.
func (s *Store) ListSaleItems(_ context.Context, storeID, saleID string) ([]*sale.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, ok := s.saleItems[key{storeID, saleID}]
	if !ok {
		return nil, stockledger.ErrSaleNotFound
	}
	return copyAll(items), nil
}

// ──────────────────────────────────────────────────
// Ledger
// ──────────────────────────────────────────────────

// ListEntries returns a product's ledger entries, newest first.
func (s *Store) ListEntries(_ context.Context, storeID, productID string, opts entry.ListOpts) ([]*entry.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*entry.Entry, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.StoreID != storeID || (productID != "" && e.ProductID != productID) || !opts.Matches(e) {
			continue
		}
		result = append(result, e)
		if opts.Limit > 0 && len(result) == opts.Limit {
			break
		}
	}
	return result, nil
}

// ListReceipts returns a store's receipts, newest first.
func (s *Store) ListReceipts(_ context.Context, storeID string, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*receipt.Receipt, 0)
	for i := len(s.receipts) - 1; i >= 0; i-- {
		r := s.receipts[i]
		if r.StoreID != storeID || (opts.ProductID != "" && r.ProductID != opts.ProductID) {
			continue
		}
		result = append(result, r)
		if opts.Limit > 0 && len(result) == opts.Limit {
			break
		}
	}
	return result, nil
}

// ListAlerts returns a store's alerts, newest first.
func (s *Store) ListAlerts(_ context.Context, storeID string, opts alert.ListOpts) ([]*alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*alert.Alert, 0)
	for i := len(s.alerts) - 1; i >= 0; i-- {
		a := s.alerts[i]
		if a.StoreID != storeID || (opts.ProductID != "" && a.ProductID != opts.ProductID) {
			continue
		}
		result = append(result, a)
		if opts.Limit > 0 && len(result) == opts.Limit {
			break
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Core
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return stockledger.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Further commits fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
