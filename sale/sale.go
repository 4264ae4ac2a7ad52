// Package sale defines committed sales, their line items, and the pricing
// rules that produce sale totals.
package sale

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/stockledger/id"
)

// ItemType classifies a sale line. Only product lines are stock-tracked.
type ItemType string

const (
	ItemProduct     ItemType = "product"
	ItemService     ItemType = "service"
	ItemMadeToOrder ItemType = "made_to_order"
)

// ParseItemType accepts the known item types and the empty string, which
// denotes an untyped line and is treated as a product line.
func ParseItemType(s string) (ItemType, error) {
	switch t := ItemType(s); t {
	case "", ItemProduct, ItemService, ItemMadeToOrder:
		return t, nil
	default:
		return "", fmt.Errorf("sale: unknown item type %q", s)
	}
}

// Tracked reports whether lines of this type mutate stock.
func (t ItemType) Tracked() bool {
	return t != ItemService && t != ItemMadeToOrder
}

// Line is one normalized sale line as it is stored in the sale snapshot.
// The computed fields are filled in by Price.
type Line struct {
	ProductID       string           `json:"productId"`
	Qty             decimal.Decimal  `json:"qty"`
	Price           decimal.Decimal  `json:"price"`
	TaxRate         decimal.Decimal  `json:"taxRate"`
	Type            ItemType         `json:"type,omitempty"`
	DiscountAmount  *decimal.Decimal `json:"discountAmount,omitempty"`
	DiscountPercent *decimal.Decimal `json:"discountPercent,omitempty"`

	LineSubtotal decimal.Decimal `json:"lineSubtotal"`
	LineDiscount decimal.Decimal `json:"lineDiscount"`
	LineTotal    decimal.Decimal `json:"lineTotal"`
}

// Sale is an immutable committed sale. Its existence under (StoreID, ID) is
// the idempotency marker for CommitSale.
type Sale struct {
	ID      string `json:"id"`
	StoreID string `json:"storeId"`
	Lines   []Line `json:"items"`

	Subtotal          decimal.Decimal `json:"subtotal"`
	ItemDiscountTotal decimal.Decimal `json:"itemDiscountTotal"`
	SaleDiscount      decimal.Decimal `json:"saleDiscount"`
	DiscountTotal     decimal.Decimal `json:"discountTotal"`
	TaxTotal          decimal.Decimal `json:"taxTotal"`
	Total             decimal.Decimal `json:"total"`

	Payment   map[string]any `json:"payment,omitempty"`
	Customer  map[string]any `json:"customer,omitempty"`
	Note      string         `json:"note,omitempty"`
	CreatedBy string         `json:"createdBy"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Item is the denormalized per-line record written alongside a Sale for
// reporting. DiscountAmount is the discount actually applied to the line.
type Item struct {
	ID             id.SaleItemID   `json:"id"`
	SaleID         string          `json:"saleId"`
	StoreID        string          `json:"storeId"`
	Position       int             `json:"position"`
	ProductID      string          `json:"productId"`
	Type           ItemType        `json:"type,omitempty"`
	Qty            decimal.Decimal `json:"qty"`
	Price          decimal.Decimal `json:"price"`
	TaxRate        decimal.Decimal `json:"taxRate"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Items derives the per-line records for s.
func (s *Sale) Items() []*Item {
	out := make([]*Item, 0, len(s.Lines))
	for i, l := range s.Lines {
		out = append(out, &Item{
			ID:             id.NewSaleItemID(),
			SaleID:         s.ID,
			StoreID:        s.StoreID,
			Position:       i,
			ProductID:      l.ProductID,
			Type:           l.Type,
			Qty:            l.Qty,
			Price:          l.Price,
			TaxRate:        l.TaxRate,
			DiscountAmount: l.LineDiscount,
			CreatedAt:      s.CreatedAt,
		})
	}
	return out
}

// ProductIDs returns the distinct product ids referenced by s, in first-seen
// order.
func (s *Sale) ProductIDs() []string {
	seen := make(map[string]struct{}, len(s.Lines))
	out := make([]string, 0, len(s.Lines))
	for _, l := range s.Lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		out = append(out, l.ProductID)
	}
	return out
}

// Clone returns a deep copy of s. Lines, discount pointers, and the payment
// and customer maps are copied so the result shares no mutable state with s.
func (s *Sale) Clone() *Sale {
	if s == nil {
		return nil
	}
	c := *s
	if s.Lines != nil {
		c.Lines = make([]Line, len(s.Lines))
		for i, l := range s.Lines {
			l.DiscountAmount = clonePtr(l.DiscountAmount)
			l.DiscountPercent = clonePtr(l.DiscountPercent)
			c.Lines[i] = l
		}
	}
	c.Payment = cloneMap(s.Payment)
	c.Customer = cloneMap(s.Customer)
	return &c
}

func clonePtr(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
