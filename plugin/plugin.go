// Package plugin provides lifecycle hooks for stockledger. Hooks fire after
// a transaction commits or fails and never run inside one.
package plugin

import (
	"context"

	"github.com/xraph/stockledger/alert"
	"github.com/xraph/stockledger/receipt"
	"github.com/xraph/stockledger/sale"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts. engine is the *stockledger.Engine.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Sale hooks
// ──────────────────────────────────────────────────

// OnSaleCommitted is called once per committed sale.
type OnSaleCommitted interface {
	Plugin
	OnSaleCommitted(ctx context.Context, s *sale.Sale) error
}

// ──────────────────────────────────────────────────
// Inventory hooks
// ──────────────────────────────────────────────────

// OnStockReceived is called once per committed receipt.
type OnStockReceived interface {
	Plugin
	OnStockReceived(ctx context.Context, r *receipt.Receipt) error
}

// OnLowStock is called for every alert a committed transaction appended.
type OnLowStock interface {
	Plugin
	OnLowStock(ctx context.Context, a *alert.Alert) error
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnCommitFailed is called when CommitSale or ReceiveStock returns an
// error. op is "commit_sale" or "receive_stock".
type OnCommitFailed interface {
	Plugin
	OnCommitFailed(ctx context.Context, op string, err error) error
}
