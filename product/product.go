// Package product defines the catalog product record the engine reads and
// mutates inside transactions.
package product

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/stockledger/types"
)

// Product is a catalog item owned by a single store. StockCount is a
// maintained running total and may go negative.
type Product struct {
	types.Entity

	ID         string          `json:"id"`
	StoreID    string          `json:"storeId"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	StockCount decimal.Decimal `json:"stockCount"`

	// ReorderLevel is the current threshold field. ReorderThreshold is the
	// legacy field consulted only when ReorderLevel is unusable.
	ReorderLevel     *decimal.Decimal `json:"reorderLevel,omitempty"`
	ReorderThreshold *decimal.Decimal `json:"reorderThreshold,omitempty"`

	LastReceivedAt   *time.Time       `json:"lastReceivedAt,omitempty"`
	LastReceivedQty  *decimal.Decimal `json:"lastReceivedQty,omitempty"`
	LastReceivedCost *decimal.Decimal `json:"lastReceivedCost,omitempty"`

	// Version increments on every committed write. Optimistic backends use
	// it to detect concurrent modification.
	Version int64 `json:"version"`
}

// Clone returns a deep copy of p.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	c.ReorderLevel = cloneDecimal(p.ReorderLevel)
	c.ReorderThreshold = cloneDecimal(p.ReorderThreshold)
	c.LastReceivedQty = cloneDecimal(p.LastReceivedQty)
	c.LastReceivedCost = cloneDecimal(p.LastReceivedCost)
	if p.LastReceivedAt != nil {
		t := *p.LastReceivedAt
		c.LastReceivedAt = &t
	}
	return &c
}

// ResolveThreshold returns the reorder threshold for p: ReorderLevel when it
// is set and non-negative, else ReorderThreshold under the same test, else
// nil. A nil threshold disables low-stock alerting for the product.
func ResolveThreshold(p *Product) *decimal.Decimal {
	if p == nil {
		return nil
	}
	if usable(p.ReorderLevel) {
		return cloneDecimal(p.ReorderLevel)
	}
	if usable(p.ReorderThreshold) {
		return cloneDecimal(p.ReorderThreshold)
	}
	return nil
}

func usable(d *decimal.Decimal) bool {
	return d != nil && !d.IsNegative()
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
