// Package txn models the optimistic read-then-write transaction the engine
// runs against a store.
//
// A transaction is split in two phases. A PlanFunc receives a Reader, which
// only exposes reads, and returns the full set of writes as a WriteSet. The
// Runner then applies the WriteSet atomically, or reports ErrConflict when a
// concurrent transaction modified something the plan read, in which case the
// whole plan runs again against fresh data. Because a plan cannot write, all
// reads necessarily happen before all writes.
package txn

import (
	"context"
	"errors"

	"github.com/xraph/stockledger/alert"
	"github.com/xraph/stockledger/entry"
	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/receipt"
	"github.com/xraph/stockledger/sale"
)

// ErrConflict reports that a transaction lost a race with a concurrent
// writer. Runners retry it; it escapes only when the retry budget is spent.
var ErrConflict = errors.New("txn: write conflict")

// Reader is the read side of a transaction. Lookups return (nil, nil) when
// the record does not exist.
type Reader interface {
	LookupSale(ctx context.Context, storeID, saleID string) (*sale.Sale, error)
	LookupProduct(ctx context.Context, storeID, productID string) (*product.Product, error)
}

// PlanFunc reads through r and returns the writes to apply. Returning an
// error aborts the transaction with no writes.
type PlanFunc func(ctx context.Context, r Reader) (*WriteSet, error)

// Runner executes plans atomically with bounded conflict retries.
type Runner interface {
	Run(ctx context.Context, plan PlanFunc) error
}

// WriteSet is everything a committed plan writes.
//
// Sale is insert-only: a runner must report ErrConflict if a sale with the
// same (StoreID, ID) appears between the read and the commit. Each product in
// Products carries the Version observed at read time; a runner applies it
// only if the stored version is unchanged and then increments it.
type WriteSet struct {
	Sale      *sale.Sale
	SaleItems []*sale.Item
	Products  []*product.Product
	Entries   []*entry.Entry
	Receipts  []*receipt.Receipt
	Alerts    []*alert.Alert
}

// NewWriteSet returns an empty WriteSet.
func NewWriteSet() *WriteSet {
	return &WriteSet{}
}

// PutSale records the sale and its items for insertion.
func (w *WriteSet) PutSale(s *sale.Sale, items []*sale.Item) {
	w.Sale = s
	w.SaleItems = items
}

// UpdateProduct records a product update.
func (w *WriteSet) UpdateProduct(p *product.Product) {
	w.Products = append(w.Products, p)
}

// AppendEntry records a ledger entry.
func (w *WriteSet) AppendEntry(e *entry.Entry) {
	w.Entries = append(w.Entries, e)
}

// AddReceipt records a receipt.
func (w *WriteSet) AddReceipt(r *receipt.Receipt) {
	w.Receipts = append(w.Receipts, r)
}

// AddAlert records an alert. A nil alert is ignored.
func (w *WriteSet) AddAlert(a *alert.Alert) {
	if a != nil {
		w.Alerts = append(w.Alerts, a)
	}
}

// Empty reports whether the WriteSet has nothing to apply.
func (w *WriteSet) Empty() bool {
	return w == nil || (w.Sale == nil && len(w.SaleItems) == 0 && len(w.Products) == 0 &&
		len(w.Entries) == 0 && len(w.Receipts) == 0 && len(w.Alerts) == 0)
}
