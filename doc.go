// Package stockledger provides the sale-commit and stock-receipt engine of a
// multi-tenant point-of-sale system.
//
// Stockledger is designed as a library, not a service. It provides:
//
//   - Atomic, idempotent sale commits keyed by sale id
//   - Stock receipts with exact two-decimal costing
//   - An append-only stock ledger with one entry per stock change
//   - Low-stock alerts with reorder-level fallback
//   - Optimistic transactions with bounded conflict retries
//
// # Quick Start
//
// Create an engine over your preferred store:
//
//	import (
//	    "github.com/xraph/stockledger"
//	    "github.com/xraph/stockledger/store/postgres"
//	)
//
//	st, err := postgres.Open(ctx, databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	engine := stockledger.New(st)
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop(ctx)
//
// # Committing a sale
//
//	res, err := engine.CommitSale(ctx, stockledger.CommitSaleRequest{
//	    StoreID:   "store-1",
//	    SaleID:    "till-3-000124",
//	    CashierID: "user-7",
//	    Items: []stockledger.SaleItemInput{
//	        {ProductID: "sku-1", Qty: stockledger.NumberFromInt(2), Price: stockledger.NumberFromFloat(4.5)},
//	    },
//	})
//
// Committing the same sale id again fails with KindAlreadyExists and writes
// nothing, so a client that lost the response can always retry.
//
// # Transactions
//
// Every mutation is a two-phase plan run by the store (see package txn).
// The plan reads the sale and its products, decides, and returns a WriteSet.
// The store applies the WriteSet atomically or re-runs the plan when a
// concurrent writer got there first. Products are never blindly
// incremented, so stock stays consistent under concurrent sales and receipts.
//
// # Errors
//
// Every engine error is an *Error carrying a stable Kind (invalid-argument,
// failed-precondition, already-exists, permission-denied, unauthenticated,
// internal). Use KindOf to classify any error and IsRetryable to decide
// whether re-issuing the identical request is safe.
//
// # TypeID
//
// Records the engine creates (sale items, ledger entries, receipts, alerts,
// and sale ids the caller omits) use TypeID identifiers such as
// "rcpt_01h2xcejqtf2nbrexx3vqjhp41".
package stockledger
