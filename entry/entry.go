// Package entry defines the append-only stock ledger.
package entry

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/stockledger/id"
)

// Type identifies the event that caused a stock change.
type Type string

const (
	TypeSale    Type = "sale"
	TypeReceipt Type = "receipt"
)

// Entry is one immutable signed stock change. RefID is the sale id or
// receipt id that caused it.
type Entry struct {
	ID        id.LedgerEntryID `json:"id"`
	StoreID   string           `json:"storeId"`
	ProductID string           `json:"productId"`
	QtyChange decimal.Decimal  `json:"qtyChange"`
	Type      Type             `json:"type"`
	RefID     string           `json:"refId"`
	CreatedAt time.Time        `json:"createdAt"`
}

// ForSale returns the entry for one tracked sale line. The change is always
// -|qty| regardless of the sign the caller used.
func ForSale(storeID, productID, saleID string, qty decimal.Decimal, at time.Time) *Entry {
	return &Entry{
		ID:        id.NewLedgerEntryID(),
		StoreID:   storeID,
		ProductID: productID,
		QtyChange: qty.Abs().Neg(),
		Type:      TypeSale,
		RefID:     saleID,
		CreatedAt: at,
	}
}

// ForReceipt returns the entry for a stock receipt of qty units.
func ForReceipt(storeID, productID, receiptID string, qty decimal.Decimal, at time.Time) *Entry {
	return &Entry{
		ID:        id.NewLedgerEntryID(),
		StoreID:   storeID,
		ProductID: productID,
		QtyChange: qty,
		Type:      TypeReceipt,
		RefID:     receiptID,
		CreatedAt: at,
	}
}

// ListOpts filters ledger queries. Results are newest first.
type ListOpts struct {
	Type  Type
	RefID string
	Limit int
}

// Matches reports whether e passes the non-paging filters of o.
func (o ListOpts) Matches(e *Entry) bool {
	if o.Type != "" && e.Type != o.Type {
		return false
	}
	if o.RefID != "" && e.RefID != o.RefID {
		return false
	}
	return true
}
