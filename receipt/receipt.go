// Package receipt defines stock receipt records.
package receipt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/stockledger/id"
	"github.com/xraph/stockledger/types"
)

// Receipt records one delivery of stock for a product. Receipts carry no
// de-duplication key.
type Receipt struct {
	ID         id.ReceiptID     `json:"id"`
	StoreID    string           `json:"storeId"`
	ProductID  string           `json:"productId"`
	Qty        decimal.Decimal  `json:"qty"`
	Supplier   string           `json:"supplier"`
	Reference  string           `json:"reference"`
	UnitCost   *decimal.Decimal `json:"unitCost"`
	TotalCost  *decimal.Decimal `json:"totalCost"`
	StockAfter decimal.Decimal  `json:"stockAfter"`
	CreatedBy  string           `json:"createdBy,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// TotalCost is unitCost*qty rounded to two decimals, or nil when no unit
// cost was supplied.
func TotalCost(unitCost *decimal.Decimal, qty decimal.Decimal) *decimal.Decimal {
	if unitCost == nil {
		return nil
	}
	return types.DecimalPtr(types.Round2(unitCost.Mul(qty)))
}

// ListOpts filters receipt queries. Results are newest first.
type ListOpts struct {
	ProductID string
	Limit     int
}
