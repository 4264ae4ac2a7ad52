// Package store defines the persistence contract shared by every backend.
package store

import (
	"context"

	"github.com/xraph/stockledger/alert"
	"github.com/xraph/stockledger/entry"
	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/receipt"
	"github.com/xraph/stockledger/sale"
	"github.com/xraph/stockledger/txn"
)

// Store is the unified storage interface. Every engine mutation goes through
// Run; the remaining methods are catalog seeding and read-only queries for
// dashboards and reports. All queries are scoped to a store id.
type Store interface {
	// Transactions
	txn.Runner

	// Catalog methods
	SaveProduct(ctx context.Context, p *product.Product) error
	GetProduct(ctx context.Context, storeID, productID string) (*product.Product, error)

	// Sale methods
	GetSale(ctx context.Context, storeID, saleID string) (*sale.Sale, error)
	ListSaleItems(ctx context.Context, storeID, saleID string) ([]*sale.Item, error)

	// Ledger methods
	ListEntries(ctx context.Context, storeID, productID string, opts entry.ListOpts) ([]*entry.Entry, error)
	ListReceipts(ctx context.Context, storeID string, opts receipt.ListOpts) ([]*receipt.Receipt, error)
	ListAlerts(ctx context.Context, storeID string, opts alert.ListOpts) ([]*alert.Alert, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
