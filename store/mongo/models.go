package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/grove"

	"github.com/xraph/stockledger/alert"
	"github.com/xraph/stockledger/entry"
	"github.com/xraph/stockledger/id"
	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/receipt"
	"github.com/xraph/stockledger/sale"
	"github.com/xraph/stockledger/types"
)

// ==================== Decimal helpers ====================

func toDec128(d decimal.Decimal) (bson.Decimal128, error) {
	v, err := bson.ParseDecimal128(d.String())
	if err != nil {
		return bson.Decimal128{}, fmt.Errorf("encode decimal %s: %w", d, err)
	}
	return v, nil
}

func fromDec128(v bson.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode decimal %s: %w", v, err)
	}
	return d, nil
}

func toDec128Ptr(d *decimal.Decimal) (*bson.Decimal128, error) {
	if d == nil {
		return nil, nil
	}
	v, err := toDec128(*d)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func fromDec128Ptr(v *bson.Decimal128) (*decimal.Decimal, error) {
	if v == nil {
		return nil, nil
	}
	d, err := fromDec128(*v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// codec collects the first conversion error so model mapping stays linear.
type codec struct{ err error }

func (c *codec) enc(d decimal.Decimal) bson.Decimal128 {
	v, err := toDec128(d)
	if err != nil && c.err == nil {
		c.err = err
	}
	return v
}

func (c *codec) encPtr(d *decimal.Decimal) *bson.Decimal128 {
	v, err := toDec128Ptr(d)
	if err != nil && c.err == nil {
		c.err = err
	}
	return v
}

func (c *codec) dec(v bson.Decimal128) decimal.Decimal {
	d, err := fromDec128(v)
	if err != nil && c.err == nil {
		c.err = err
	}
	return d
}

func (c *codec) decPtr(v *bson.Decimal128) *decimal.Decimal {
	d, err := fromDec128Ptr(v)
	if err != nil && c.err == nil {
		c.err = err
	}
	return d
}

func (c *codec) id(s string) id.ID {
	v, err := id.Parse(s)
	if err != nil && c.err == nil {
		c.err = err
	}
	return v
}

// ==================== Product models ====================

type productModel struct {
	grove.BaseModel `grove:"table:stockledger_products" bson:"-"`

	DocID            string           `grove:"id,pk"              bson:"_id"`
	ID               string           `grove:"product_id"         bson:"id"`
	StoreID          string           `grove:"store_id"           bson:"store_id"`
	Name             string           `grove:"name"               bson:"name"`
	Price            bson.Decimal128  `grove:"price"              bson:"price"`
	StockCount       bson.Decimal128  `grove:"stock_count"        bson:"stock_count"`
	ReorderLevel     *bson.Decimal128 `grove:"reorder_level"      bson:"reorder_level,omitempty"`
	ReorderThreshold *bson.Decimal128 `grove:"reorder_threshold"  bson:"reorder_threshold,omitempty"`
	LastReceivedAt   *time.Time       `grove:"last_received_at"   bson:"last_received_at,omitempty"`
	LastReceivedQty  *bson.Decimal128 `grove:"last_received_qty"  bson:"last_received_qty,omitempty"`
	LastReceivedCost *bson.Decimal128 `grove:"last_received_cost" bson:"last_received_cost,omitempty"`
	Version          int64            `grove:"version"            bson:"version"`
	CreatedAt        time.Time        `grove:"created_at"         bson:"created_at"`
	UpdatedAt        time.Time        `grove:"updated_at"         bson:"updated_at"`
}

func toProductModel(p *product.Product) (*productModel, error) {
	var c codec
	m := &productModel{
		DocID:            docID(p.StoreID, p.ID),
		ID:               p.ID,
		StoreID:          p.StoreID,
		Name:             p.Name,
		Price:            c.enc(p.Price),
		StockCount:       c.enc(p.StockCount),
		ReorderLevel:     c.encPtr(p.ReorderLevel),
		ReorderThreshold: c.encPtr(p.ReorderThreshold),
		LastReceivedAt:   p.LastReceivedAt,
		LastReceivedQty:  c.encPtr(p.LastReceivedQty),
		LastReceivedCost: c.encPtr(p.LastReceivedCost),
		Version:          p.Version,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	return m, c.err
}

func fromProductModel(m *productModel) (*product.Product, error) {
	var c codec
	p := &product.Product{
		Entity:           types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		ID:               m.ID,
		StoreID:          m.StoreID,
		Name:             m.Name,
		Price:            c.dec(m.Price),
		StockCount:       c.dec(m.StockCount),
		ReorderLevel:     c.decPtr(m.ReorderLevel),
		ReorderThreshold: c.decPtr(m.ReorderThreshold),
		LastReceivedAt:   m.LastReceivedAt,
		LastReceivedQty:  c.decPtr(m.LastReceivedQty),
		LastReceivedCost: c.decPtr(m.LastReceivedCost),
		Version:          m.Version,
	}
	return p, c.err
}

// ==================== Sale models ====================

type lineModel struct {
	ProductID       string           `bson:"product_id"`
	Qty             bson.Decimal128  `bson:"qty"`
	Price           bson.Decimal128  `bson:"price"`
	TaxRate         bson.Decimal128  `bson:"tax_rate"`
	Type            string           `bson:"type,omitempty"`
	DiscountAmount  *bson.Decimal128 `bson:"discount_amount,omitempty"`
	DiscountPercent *bson.Decimal128 `bson:"discount_percent,omitempty"`
	LineSubtotal    bson.Decimal128  `bson:"line_subtotal"`
	LineDiscount    bson.Decimal128  `bson:"line_discount"`
	LineTotal       bson.Decimal128  `bson:"line_total"`
}

type saleModel struct {
	grove.BaseModel `grove:"table:stockledger_sales" bson:"-"`

	DocID             string          `grove:"id,pk"               bson:"_id"`
	ID                string          `grove:"sale_id"             bson:"id"`
	StoreID           string          `grove:"store_id"            bson:"store_id"`
	Lines             []lineModel     `grove:"lines"               bson:"lines"`
	Subtotal          bson.Decimal128 `grove:"subtotal"            bson:"subtotal"`
	ItemDiscountTotal bson.Decimal128 `grove:"item_discount_total" bson:"item_discount_total"`
	SaleDiscount      bson.Decimal128 `grove:"sale_discount"       bson:"sale_discount"`
	DiscountTotal     bson.Decimal128 `grove:"discount_total"      bson:"discount_total"`
	TaxTotal          bson.Decimal128 `grove:"tax_total"           bson:"tax_total"`
	Total             bson.Decimal128 `grove:"total"               bson:"total"`
	Payment           map[string]any  `grove:"payment"             bson:"payment,omitempty"`
	Customer          map[string]any  `grove:"customer"            bson:"customer,omitempty"`
	Note              string          `grove:"note"                bson:"note,omitempty"`
	CreatedBy         string          `grove:"created_by"          bson:"created_by"`
	CreatedAt         time.Time       `grove:"created_at"          bson:"created_at"`
}

func toSaleModel(s *sale.Sale) (*saleModel, error) {
	var c codec
	lines := make([]lineModel, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = lineModel{
			ProductID:       l.ProductID,
			Qty:             c.enc(l.Qty),
			Price:           c.enc(l.Price),
			TaxRate:         c.enc(l.TaxRate),
			Type:            string(l.Type),
			DiscountAmount:  c.encPtr(l.DiscountAmount),
			DiscountPercent: c.encPtr(l.DiscountPercent),
			LineSubtotal:    c.enc(l.LineSubtotal),
			LineDiscount:    c.enc(l.LineDiscount),
			LineTotal:       c.enc(l.LineTotal),
		}
	}
	m := &saleModel{
		DocID:             docID(s.StoreID, s.ID),
		ID:                s.ID,
		StoreID:           s.StoreID,
		Lines:             lines,
		Subtotal:          c.enc(s.Subtotal),
		ItemDiscountTotal: c.enc(s.ItemDiscountTotal),
		SaleDiscount:      c.enc(s.SaleDiscount),
		DiscountTotal:     c.enc(s.DiscountTotal),
		TaxTotal:          c.enc(s.TaxTotal),
		Total:             c.enc(s.Total),
		Payment:           s.Payment,
		Customer:          s.Customer,
		Note:              s.Note,
		CreatedBy:         s.CreatedBy,
		CreatedAt:         s.CreatedAt,
	}
	return m, c.err
}

func fromSaleModel(m *saleModel) (*sale.Sale, error) {
	var c codec
	lines := make([]sale.Line, len(m.Lines))
	for i, l := range m.Lines {
		lines[i] = sale.Line{
			ProductID:       l.ProductID,
			Qty:             c.dec(l.Qty),
			Price:           c.dec(l.Price),
			TaxRate:         c.dec(l.TaxRate),
			Type:            sale.ItemType(l.Type),
			DiscountAmount:  c.decPtr(l.DiscountAmount),
			DiscountPercent: c.decPtr(l.DiscountPercent),
			LineSubtotal:    c.dec(l.LineSubtotal),
			LineDiscount:    c.dec(l.LineDiscount),
			LineTotal:       c.dec(l.LineTotal),
		}
	}
	s := &sale.Sale{
		ID:                m.ID,
		StoreID:           m.StoreID,
		Lines:             lines,
		Subtotal:          c.dec(m.Subtotal),
		ItemDiscountTotal: c.dec(m.ItemDiscountTotal),
		SaleDiscount:      c.dec(m.SaleDiscount),
		DiscountTotal:     c.dec(m.DiscountTotal),
		TaxTotal:          c.dec(m.TaxTotal),
		Total:             c.dec(m.Total),
		Payment:           m.Payment,
		Customer:          m.Customer,
		Note:              m.Note,
		CreatedBy:         m.CreatedBy,
		CreatedAt:         m.CreatedAt.UTC(),
	}
	return s, c.err
}

type saleItemModel struct {
	grove.BaseModel `grove:"table:stockledger_sale_items" bson:"-"`

	ID             string          `grove:"id,pk"           bson:"_id"`
	SaleID         string          `grove:"sale_id"         bson:"sale_id"`
	StoreID        string          `grove:"store_id"        bson:"store_id"`
	Position       int             `grove:"position"        bson:"position"`
	ProductID      string          `grove:"product_id"      bson:"product_id"`
	Type           string          `grove:"type"            bson:"type,omitempty"`
	Qty            bson.Decimal128 `grove:"qty"             bson:"qty"`
	Price          bson.Decimal128 `grove:"price"           bson:"price"`
	TaxRate        bson.Decimal128 `grove:"tax_rate"        bson:"tax_rate"`
	DiscountAmount bson.Decimal128 `grove:"discount_amount" bson:"discount_amount"`
	CreatedAt      time.Time       `grove:"created_at"      bson:"created_at"`
}

func toSaleItemModel(it *sale.Item) (*saleItemModel, error) {
	var c codec
	m := &saleItemModel{
		ID:             it.ID.String(),
		SaleID:         it.SaleID,
		StoreID:        it.StoreID,
		Position:       it.Position,
		ProductID:      it.ProductID,
		Type:           string(it.Type),
		Qty:            c.enc(it.Qty),
		Price:          c.enc(it.Price),
		TaxRate:        c.enc(it.TaxRate),
		DiscountAmount: c.enc(it.DiscountAmount),
		CreatedAt:      it.CreatedAt,
	}
	return m, c.err
}

func fromSaleItemModel(m *saleItemModel) (*sale.Item, error) {
	var c codec
	it := &sale.Item{
		ID:             c.id(m.ID),
		SaleID:         m.SaleID,
		StoreID:        m.StoreID,
		Position:       m.Position,
		ProductID:      m.ProductID,
		Type:           sale.ItemType(m.Type),
		Qty:            c.dec(m.Qty),
		Price:          c.dec(m.Price),
		TaxRate:        c.dec(m.TaxRate),
		DiscountAmount: c.dec(m.DiscountAmount),
		CreatedAt:      m.CreatedAt.UTC(),
	}
	return it, c.err
}

// ==================== Ledger models ====================

type entryModel struct {
	grove.BaseModel `grove:"table:stockledger_entries" bson:"-"`

	ID        string          `grove:"id,pk"      bson:"_id"`
	StoreID   string          `grove:"store_id"   bson:"store_id"`
	ProductID string          `grove:"product_id" bson:"product_id"`
	QtyChange bson.Decimal128 `grove:"qty_change" bson:"qty_change"`
	Type      string          `grove:"type"       bson:"type"`
	RefID     string          `grove:"ref_id"     bson:"ref_id"`
	CreatedAt time.Time       `grove:"created_at" bson:"created_at"`
}

func toEntryModel(e *entry.Entry) (*entryModel, error) {
	var c codec
	m := &entryModel{
		ID:        e.ID.String(),
		StoreID:   e.StoreID,
		ProductID: e.ProductID,
		QtyChange: c.enc(e.QtyChange),
		Type:      string(e.Type),
		RefID:     e.RefID,
		CreatedAt: e.CreatedAt,
	}
	return m, c.err
}

func fromEntryModel(m *entryModel) (*entry.Entry, error) {
	var c codec
	e := &entry.Entry{
		ID:        c.id(m.ID),
		StoreID:   m.StoreID,
		ProductID: m.ProductID,
		QtyChange: c.dec(m.QtyChange),
		Type:      entry.Type(m.Type),
		RefID:     m.RefID,
		CreatedAt: m.CreatedAt.UTC(),
	}
	return e, c.err
}

type receiptModel struct {
	grove.BaseModel `grove:"table:stockledger_receipts" bson:"-"`

	ID         string           `grove:"id,pk"       bson:"_id"`
	StoreID    string           `grove:"store_id"    bson:"store_id"`
	ProductID  string           `grove:"product_id"  bson:"product_id"`
	Qty        bson.Decimal128  `grove:"qty"         bson:"qty"`
	Supplier   string           `grove:"supplier"    bson:"supplier"`
	Reference  string           `grove:"reference"   bson:"reference"`
	UnitCost   *bson.Decimal128 `grove:"unit_cost"   bson:"unit_cost,omitempty"`
	TotalCost  *bson.Decimal128 `grove:"total_cost"  bson:"total_cost,omitempty"`
	StockAfter bson.Decimal128  `grove:"stock_after" bson:"stock_after"`
	CreatedBy  string           `grove:"created_by"  bson:"created_by,omitempty"`
	CreatedAt  time.Time        `grove:"created_at"  bson:"created_at"`
}

func toReceiptModel(r *receipt.Receipt) (*receiptModel, error) {
	var c codec
	m := &receiptModel{
		ID:         r.ID.String(),
		StoreID:    r.StoreID,
		ProductID:  r.ProductID,
		Qty:        c.enc(r.Qty),
		Supplier:   r.Supplier,
		Reference:  r.Reference,
		UnitCost:   c.encPtr(r.UnitCost),
		TotalCost:  c.encPtr(r.TotalCost),
		StockAfter: c.enc(r.StockAfter),
		CreatedBy:  r.CreatedBy,
		CreatedAt:  r.CreatedAt,
	}
	return m, c.err
}

func fromReceiptModel(m *receiptModel) (*receipt.Receipt, error) {
	var c codec
	r := &receipt.Receipt{
		ID:         c.id(m.ID),
		StoreID:    m.StoreID,
		ProductID:  m.ProductID,
		Qty:        c.dec(m.Qty),
		Supplier:   m.Supplier,
		Reference:  m.Reference,
		UnitCost:   c.decPtr(m.UnitCost),
		TotalCost:  c.decPtr(m.TotalCost),
		StockAfter: c.dec(m.StockAfter),
		CreatedBy:  m.CreatedBy,
		CreatedAt:  m.CreatedAt.UTC(),
	}
	return r, c.err
}

type alertModel struct {
	grove.BaseModel `grove:"table:stockledger_alerts" bson:"-"`

	ID          string          `grove:"id,pk"        bson:"_id"`
	Type        string          `grove:"type"         bson:"type"`
	StoreID     string          `grove:"store_id"     bson:"store_id"`
	ProductID   string          `grove:"product_id"   bson:"product_id"`
	ProductName string          `grove:"product_name" bson:"product_name,omitempty"`
	StockCount  bson.Decimal128 `grove:"stock_count"  bson:"stock_count"`
	Threshold   bson.Decimal128 `grove:"threshold"    bson:"threshold"`
	RefID       string          `grove:"ref_id"       bson:"ref_id"`
	CreatedAt   time.Time       `grove:"created_at"   bson:"created_at"`
}

func toAlertModel(a *alert.Alert) (*alertModel, error) {
	var c codec
	m := &alertModel{
		ID:          a.ID.String(),
		Type:        string(a.Type),
		StoreID:     a.StoreID,
		ProductID:   a.ProductID,
		ProductName: a.ProductName,
		StockCount:  c.enc(a.StockCount),
		Threshold:   c.enc(a.Threshold),
		RefID:       a.RefID,
		CreatedAt:   a.CreatedAt,
	}
	return m, c.err
}

func fromAlertModel(m *alertModel) (*alert.Alert, error) {
	var c codec
	a := &alert.Alert{
		ID:          c.id(m.ID),
		Type:        alert.Type(m.Type),
		StoreID:     m.StoreID,
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		StockCount:  c.dec(m.StockCount),
		Threshold:   c.dec(m.Threshold),
		RefID:       m.RefID,
		CreatedAt:   m.CreatedAt.UTC(),
	}
	return a, c.err
}
