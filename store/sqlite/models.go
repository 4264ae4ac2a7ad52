package sqlite

import (
	"database/sql"
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

// Decimals are stored as TEXT through decimal's Valuer/Scanner, times as
// INTEGER unix nanoseconds, and nested documents as JSON TEXT.

type scanner interface {
	Scan(dest ...any) error
}

// nanos maps the zero time to 0 so it survives a round trip.
func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: nanos(*t), Valid: true}
}

func fromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
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

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nullJSON(m map[string]any) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	s, err := marshalJSON(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: s, Valid: true}, nil
}

func unmarshalNullJSON(s sql.NullString) (map[string]any, error) {
	if !s.Valid || s.String == "" {
		return nil, nil //nolint:nilnil // absent document
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ==================== Product ====================

const productColumns = `store_id, id, name, price, stock_count, reorder_level, reorder_threshold,
    last_received_at, last_received_qty, last_received_cost, version, created_at, updated_at`

func scanProduct(row scanner) (*product.Product, error) {
	var (
		p                    product.Product
		level, threshold     decimal.NullDecimal
		recvQty, recvCost    decimal.NullDecimal
		recvAt               sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&p.StoreID, &p.ID, &p.Name, &p.Price, &p.StockCount, &level, &threshold,
		&recvAt, &recvQty, &recvCost, &p.Version, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	p.ReorderLevel = fromNullDecimal(level)
	p.ReorderThreshold = fromNullDecimal(threshold)
	p.LastReceivedAt = fromNullNanos(recvAt)
	p.LastReceivedQty = fromNullDecimal(recvQty)
	p.LastReceivedCost = fromNullDecimal(recvCost)
	p.CreatedAt = fromNanos(createdAt)
	p.UpdatedAt = fromNanos(updatedAt)
	return &p, nil
}

// ==================== Sale ====================

const saleColumns = `store_id, id, lines, subtotal, item_discount_total, sale_discount,
    discount_total, tax_total, total, payment, customer, note, created_by, created_at`

func saleArgs(s *sale.Sale) ([]any, error) {
	lines, err := marshalJSON(s.Lines)
	if err != nil {
		return nil, fmt.Errorf("encode lines: %w", err)
	}
	payment, err := nullJSON(s.Payment)
	if err != nil {
		return nil, fmt.Errorf("encode payment: %w", err)
	}
	customer, err := nullJSON(s.Customer)
	if err != nil {
		return nil, fmt.Errorf("encode customer: %w", err)
	}
	return []any{
		s.StoreID, s.ID, lines, s.Subtotal, s.ItemDiscountTotal, s.SaleDiscount,
		s.DiscountTotal, s.TaxTotal, s.Total, payment, customer, s.Note, s.CreatedBy, nanos(s.CreatedAt),
	}, nil
}

func scanSale(row scanner) (*sale.Sale, error) {
	var (
		s                 sale.Sale
		lines             string
		payment, customer sql.NullString
		createdAt         int64
	)
	if err := row.Scan(
		&s.StoreID, &s.ID, &lines, &s.Subtotal, &s.ItemDiscountTotal, &s.SaleDiscount,
		&s.DiscountTotal, &s.TaxTotal, &s.Total, &payment, &customer, &s.Note, &s.CreatedBy, &createdAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(lines), &s.Lines); err != nil {
		return nil, fmt.Errorf("decode lines: %w", err)
	}
	var err error
	if s.Payment, err = unmarshalNullJSON(payment); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}
	if s.Customer, err = unmarshalNullJSON(customer); err != nil {
		return nil, fmt.Errorf("decode customer: %w", err)
	}
	s.CreatedAt = fromNanos(createdAt)
	return &s, nil
}

const saleItemColumns = `id, store_id, sale_id, position, product_id, type, qty, price, tax_rate,
    discount_amount, created_at`

func saleItemArgs(it *sale.Item) []any {
	return []any{
		it.ID, it.StoreID, it.SaleID, it.Position, it.ProductID, string(it.Type), it.Qty, it.Price,
		it.TaxRate, it.DiscountAmount, nanos(it.CreatedAt),
	}
}

func scanSaleItem(row scanner) (*sale.Item, error) {
	var (
		it        sale.Item
		typ       string
		createdAt int64
	)
	if err := row.Scan(
		&it.ID, &it.StoreID, &it.SaleID, &it.Position, &it.ProductID, &typ, &it.Qty, &it.Price,
		&it.TaxRate, &it.DiscountAmount, &createdAt,
	); err != nil {
		return nil, err
	}
	it.Type = sale.ItemType(typ)
	it.CreatedAt = fromNanos(createdAt)
	return &it, nil
}

// ==================== Ledger ====================

const entryColumns = `id, store_id, product_id, qty_change, type, ref_id, created_at`

func entryArgs(e *entry.Entry) []any {
	return []any{e.ID, e.StoreID, e.ProductID, e.QtyChange, string(e.Type), e.RefID, nanos(e.CreatedAt)}
}

func scanEntry(row scanner) (*entry.Entry, error) {
	var (
		e         entry.Entry
		typ       string
		createdAt int64
	)
	if err := row.Scan(&e.ID, &e.StoreID, &e.ProductID, &e.QtyChange, &typ, &e.RefID, &createdAt); err != nil {
		return nil, err
	}
	e.Type = entry.Type(typ)
	e.CreatedAt = fromNanos(createdAt)
	return &e, nil
}

const receiptColumns = `id, store_id, product_id, qty, supplier, reference, unit_cost, total_cost,
    stock_after, created_by, created_at`

func receiptArgs(r *receipt.Receipt) []any {
	return []any{
		r.ID, r.StoreID, r.ProductID, r.Qty, r.Supplier, r.Reference, nullDecimal(r.UnitCost),
		nullDecimal(r.TotalCost), r.StockAfter, r.CreatedBy, nanos(r.CreatedAt),
	}
}

func scanReceipt(row scanner) (*receipt.Receipt, error) {
	var (
		r                   receipt.Receipt
		unitCost, totalCost decimal.NullDecimal
		createdAt           int64
	)
	if err := row.Scan(
		&r.ID, &r.StoreID, &r.ProductID, &r.Qty, &r.Supplier, &r.Reference, &unitCost,
		&totalCost, &r.StockAfter, &r.CreatedBy, &createdAt,
	); err != nil {
		return nil, err
	}
	r.UnitCost = fromNullDecimal(unitCost)
	r.TotalCost = fromNullDecimal(totalCost)
	r.CreatedAt = fromNanos(createdAt)
	return &r, nil
}

const alertColumns = `id, type, store_id, product_id, product_name, stock_count, threshold, ref_id, created_at`

func alertArgs(a *alert.Alert) []any {
	return []any{
		a.ID, string(a.Type), a.StoreID, a.ProductID, a.ProductName, a.StockCount, a.Threshold,
		a.RefID, nanos(a.CreatedAt),
	}
}

func scanAlert(row scanner) (*alert.Alert, error) {
	var (
		a         alert.Alert
		typ       string
		createdAt int64
	)
	if err := row.Scan(
		&a.ID, &typ, &a.StoreID, &a.ProductID, &a.ProductName, &a.StockCount, &a.Threshold,
		&a.RefID, &createdAt,
	); err != nil {
		return nil, err
	}
	a.Type = alert.Type(typ)
	a.CreatedAt = fromNanos(createdAt)
	return &a, nil
}
