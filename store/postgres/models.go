package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/stockledger/alert"
	"github.com/xraph/stockledger/entry"
	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/receipt"
	"github.com/xraph/stockledger/sale"
)

// NUMERIC columns are written through decimal's driver.Valuer and read back
// cast to text, which decimal's sql.Scanner parses exactly.

type scanner interface {
	Scan(dest ...any) error
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func fromNullDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func jsonDoc(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func fromJSONDoc(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil //nolint:nilnil // absent document
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ==================== Product ====================

const productColumns = `store_id, id, name, price, stock_count, reorder_level, reorder_threshold,
    last_received_at, last_received_qty, last_received_cost, version, created_at, updated_at`

const productSelect = `store_id, id, name, price::text, stock_count::text, reorder_level::text,
    reorder_threshold::text, last_received_at, last_received_qty::text, last_received_cost::text,
    version, created_at, updated_at`

func scanProduct(row scanner) (*product.Product, error) {
	var (
		p                    product.Product
		level, threshold     decimal.NullDecimal
		recvQty, recvCost    decimal.NullDecimal
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(
		&p.StoreID, &p.ID, &p.Name, &p.Price, &p.StockCount, &level,
		&threshold, &p.LastReceivedAt, &recvQty, &recvCost,
		&p.Version, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	p.ReorderLevel = fromNullDecimal(level)
	p.ReorderThreshold = fromNullDecimal(threshold)
	p.LastReceivedQty = fromNullDecimal(recvQty)
	p.LastReceivedCost = fromNullDecimal(recvCost)
	p.CreatedAt = createdAt.UTC()
	p.UpdatedAt = updatedAt.UTC()
	return &p, nil
}

// timestamp substitutes now for the zero time, which PostgreSQL cannot
// represent faithfully.
func timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// ==================== Sale ====================

const saleColumns = `store_id, id, lines, subtotal, item_discount_total, sale_discount,
    discount_total, tax_total, total, payment, customer, note, created_by, created_at`

const saleSelect = `store_id, id, lines, subtotal::text, item_discount_total::text, sale_discount::text,
    discount_total::text, tax_total::text, total::text, payment, customer, note, created_by, created_at`

func saleArgs(s *sale.Sale) ([]any, error) {
	lines, err := json.Marshal(s.Lines)
	if err != nil {
		return nil, fmt.Errorf("encode lines: %w", err)
	}
	payment, err := jsonDoc(s.Payment)
	if err != nil {
		return nil, fmt.Errorf("encode payment: %w", err)
	}
	customer, err := jsonDoc(s.Customer)
	if err != nil {
		return nil, fmt.Errorf("encode customer: %w", err)
	}
	return []any{
		s.StoreID, s.ID, lines, s.Subtotal, s.ItemDiscountTotal, s.SaleDiscount,
		s.DiscountTotal, s.TaxTotal, s.Total, payment, customer, s.Note, s.CreatedBy, timestamp(s.CreatedAt),
	}, nil
}

func scanSale(row scanner) (*sale.Sale, error) {
	var (
		s                        sale.Sale
		lines, payment, customer []byte
	)
	if err := row.Scan(
		&s.StoreID, &s.ID, &lines, &s.Subtotal, &s.ItemDiscountTotal, &s.SaleDiscount,
		&s.DiscountTotal, &s.TaxTotal, &s.Total, &payment, &customer, &s.Note, &s.CreatedBy, &s.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lines, &s.Lines); err != nil {
		return nil, fmt.Errorf("decode lines: %w", err)
	}
	var err error
	if s.Payment, err = fromJSONDoc(payment); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}
	if s.Customer, err = fromJSONDoc(customer); err != nil {
		return nil, fmt.Errorf("decode customer: %w", err)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

const saleItemColumns = `id, store_id, sale_id, position, product_id, type, qty, price, tax_rate,
    discount_amount, created_at`

const saleItemSelect = `id, store_id, sale_id, position, product_id, type, qty::text, price::text,
    tax_rate::text, discount_amount::text, created_at`

func saleItemArgs(it *sale.Item) []any {
	return []any{
		it.ID, it.StoreID, it.SaleID, it.Position, it.ProductID, string(it.Type), it.Qty, it.Price,
		it.TaxRate, it.DiscountAmount, timestamp(it.CreatedAt),
	}
}

func scanSaleItem(row scanner) (*sale.Item, error) {
	var (
		it  sale.Item
		typ string
	)
	if err := row.Scan(
		&it.ID, &it.StoreID, &it.SaleID, &it.Position, &it.ProductID, &typ, &it.Qty, &it.Price,
		&it.TaxRate, &it.DiscountAmount, &it.CreatedAt,
	); err != nil {
		return nil, err
	}
	it.Type = sale.ItemType(typ)
	it.CreatedAt = it.CreatedAt.UTC()
	return &it, nil
}

// ==================== Ledger ====================

const entryColumns = `id, store_id, product_id, qty_change, type, ref_id, created_at`

const entrySelect = `id, store_id, product_id, qty_change::text, type, ref_id, created_at`

func entryArgs(e *entry.Entry) []any {
	return []any{e.ID, e.StoreID, e.ProductID, e.QtyChange, string(e.Type), e.RefID, timestamp(e.CreatedAt)}
}

func scanEntry(row scanner) (*entry.Entry, error) {
	var (
		e   entry.Entry
		typ string
	)
	if err := row.Scan(&e.ID, &e.StoreID, &e.ProductID, &e.QtyChange, &typ, &e.RefID, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Type = entry.Type(typ)
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

const receiptColumns = `id, store_id, product_id, qty, supplier, reference, unit_cost, total_cost,
    stock_after, created_by, created_at`

const receiptSelect = `id, store_id, product_id, qty::text, supplier, reference, unit_cost::text,
    total_cost::text, stock_after::text, created_by, created_at`

func receiptArgs(r *receipt.Receipt) []any {
	return []any{
		r.ID, r.StoreID, r.ProductID, r.Qty, r.Supplier, r.Reference, nullDecimal(r.UnitCost),
		nullDecimal(r.TotalCost), r.StockAfter, r.CreatedBy, timestamp(r.CreatedAt),
	}
}

func scanReceipt(row scanner) (*receipt.Receipt, error) {
	var (
		r                   receipt.Receipt
		unitCost, totalCost decimal.NullDecimal
	)
	if err := row.Scan(
		&r.ID, &r.StoreID, &r.ProductID, &r.Qty, &r.Supplier, &r.Reference, &unitCost,
		&totalCost, &r.StockAfter, &r.CreatedBy, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	r.UnitCost = fromNullDecimal(unitCost)
	r.TotalCost = fromNullDecimal(totalCost)
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

const alertColumns = `id, type, store_id, product_id, product_name, stock_count, threshold, ref_id, created_at`

const alertSelect = `id, type, store_id, product_id, product_name, stock_count::text, threshold::text,
    ref_id, created_at`

func alertArgs(a *alert.Alert) []any {
	return []any{
		a.ID, string(a.Type), a.StoreID, a.ProductID, a.ProductName, a.StockCount, a.Threshold,
		a.RefID, timestamp(a.CreatedAt),
	}
}

func scanAlert(row scanner) (*alert.Alert, error) {
	var (
		a   alert.Alert
		typ string
	)
	if err := row.Scan(
		&a.ID, &typ, &a.StoreID, &a.ProductID, &a.ProductName, &a.StockCount, &a.Threshold,
		&a.RefID, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	a.Type = alert.Type(typ)
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}
