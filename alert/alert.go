// Package alert defines low-stock alerts and the rule that raises them.
package alert

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/stockledger/id"
	"github.com/xraph/stockledger/product"
)

// Type classifies an alert.
type Type string

// TypeLowStock is raised when stock is at or below the reorder threshold.
const TypeLowStock Type = "low-stock"

// Alert is an append-only notification. Alerts are never de-duplicated
// against earlier ones; dismissal happens outside the engine.
type Alert struct {
	ID          id.AlertID      `json:"id"`
	Type        Type            `json:"type"`
	StoreID     string          `json:"storeId"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	StockCount  decimal.Decimal `json:"stockCount"`
	Threshold   decimal.Decimal `json:"threshold"`
	RefID       string          `json:"refId"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Evaluate returns a low-stock alert when p has a resolvable threshold and
// stockAfter is at or below it, and nil otherwise. refID names the sale or
// receipt that caused the mutation.
func Evaluate(p *product.Product, stockAfter decimal.Decimal, refID string, at time.Time) *Alert {
	threshold := product.ResolveThreshold(p)
	if threshold == nil || stockAfter.GreaterThan(*threshold) {
		return nil
	}
	return &Alert{
		ID:          id.NewAlertID(),
		Type:        TypeLowStock,
		StoreID:     p.StoreID,
		ProductID:   p.ID,
		ProductName: p.Name,
		StockCount:  stockAfter,
		Threshold:   *threshold,
		RefID:       refID,
		CreatedAt:   at,
	}
}

// ListOpts filters alert queries. Results are newest first.
type ListOpts struct {
	ProductID string
	Limit     int
}
