package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xraph/grove/driver"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/alert"
	"github.com/xraph/stockledger/entry"
	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/receipt"
	"github.com/xraph/stockledger/sale"
	"github.com/xraph/stockledger/txn"
)

// ==================== Transaction reads and writes ====================

type reader struct{ tx driver.Tx }

func (r reader) LookupSale(ctx context.Context, storeID, saleID string) (*sale.Sale, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+saleSelect+` FROM stockledger_sales WHERE store_id = $1 AND id = $2`, storeID, saleID)
	s, err := scanSale(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("lookup sale", err)
	}
	return s, nil
}

func (r reader) LookupProduct(ctx context.Context, storeID, productID string) (*product.Product, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+productSelect+` FROM stockledger_products WHERE store_id = $1 AND id = $2`, storeID, productID)
	p, err := scanProduct(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("lookup product", err)
	}
	return p, nil
}

func placeholders(from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = "$" + strconv.Itoa(from+i)
	}
	return strings.Join(ps, ", ")
}

func insert(table, columns string) string {
	n := strings.Count(columns, ",") + 1
	return `INSERT INTO ` + table + ` (` + columns + `) VALUES (` + placeholders(1, n) + `)`
}

// apply writes ws inside tx. A duplicate sale or a product whose version
// moved since it was read reports txn.ErrConflict.
func apply(ctx context.Context, tx driver.Tx, ws *txn.WriteSet) error {
	if ws.Sale != nil {
		args, err := saleArgs(ws.Sale)
		if err != nil {
			return fmt.Errorf("stockledger/postgres: %w", err)
		}
		if _, err := tx.Exec(ctx, insert("stockledger_sales", saleColumns), args...); err != nil {
			return mapErr("insert sale", err)
		}
	}

	for _, p := range ws.Products {
		res, err := tx.Exec(ctx, `
UPDATE stockledger_products SET
    name = $1, price = $2, stock_count = $3, reorder_level = $4, reorder_threshold = $5,
    last_received_at = $6, last_received_qty = $7, last_received_cost = $8,
    updated_at = $9, version = version + 1
WHERE store_id = $10 AND id = $11 AND version = $12`,
			p.Name, p.Price, p.StockCount, nullDecimal(p.ReorderLevel), nullDecimal(p.ReorderThreshold),
			p.LastReceivedAt, nullDecimal(p.LastReceivedQty), nullDecimal(p.LastReceivedCost),
			timestamp(p.UpdatedAt), p.StoreID, p.ID, p.Version,
		)
		if err != nil {
			return mapErr("update product", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return mapErr("update product", err)
		}
		if n == 0 {
			return fmt.Errorf("stockledger/postgres: product %q modified concurrently: %w", p.ID, txn.ErrConflict)
		}
	}

	for _, it := range ws.SaleItems {
		if _, err := tx.Exec(ctx, insert("stockledger_sale_items", saleItemColumns), saleItemArgs(it)...); err != nil {
			return mapErr("insert sale item", err)
		}
	}
	for _, e := range ws.Entries {
		if _, err := tx.Exec(ctx, insert("stockledger_entries", entryColumns), entryArgs(e)...); err != nil {
			return mapErr("append entry", err)
		}
	}
	for _, r := range ws.Receipts {
		if _, err := tx.Exec(ctx, insert("stockledger_receipts", receiptColumns), receiptArgs(r)...); err != nil {
			return mapErr("insert receipt", err)
		}
	}
	for _, a := range ws.Alerts {
		if _, err := tx.Exec(ctx, insert("stockledger_alerts", alertColumns), alertArgs(a)...); err != nil {
			return mapErr("insert alert", err)
		}
	}
	return nil
}

// ==================== Catalog ====================

// SaveProduct inserts or replaces a product and bumps its version. The new
// version is written back to p.
func (s *Store) SaveProduct(ctx context.Context, p *product.Product) error {
	if p.StoreID == "" || p.ID == "" {
		return stockledger.ValidationError{Field: "product", Message: "storeId and id are required"}
	}
	err := s.pdb.QueryRow(ctx, `
INSERT INTO stockledger_products (`+productColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11, $12)
ON CONFLICT (store_id, id) DO UPDATE SET
    name = EXCLUDED.name,
    price = EXCLUDED.price,
    stock_count = EXCLUDED.stock_count,
    reorder_level = EXCLUDED.reorder_level,
    reorder_threshold = EXCLUDED.reorder_threshold,
    last_received_at = EXCLUDED.last_received_at,
    last_received_qty = EXCLUDED.last_received_qty,
    last_received_cost = EXCLUDED.last_received_cost,
    updated_at = EXCLUDED.updated_at,
    version = stockledger_products.version + 1
RETURNING version`,
		p.StoreID, p.ID, p.Name, p.Price, p.StockCount, nullDecimal(p.ReorderLevel), nullDecimal(p.ReorderThreshold),
		p.LastReceivedAt, nullDecimal(p.LastReceivedQty), nullDecimal(p.LastReceivedCost),
		timestamp(p.CreatedAt), timestamp(p.UpdatedAt),
	).Scan(&p.Version)
	if err != nil {
		return mapErr("save product", err)
	}
	return nil
}

// GetProduct returns a product.
func (s *Store) GetProduct(ctx context.Context, storeID, productID string) (*product.Product, error) {
	row := s.pdb.QueryRow(ctx,
		`SELECT `+productSelect+` FROM stockledger_products WHERE store_id = $1 AND id = $2`, storeID, productID)
	p, err := scanProduct(row)
	if err != nil {
		return nil, notFound("get product", err, stockledger.ErrProductNotFound)
	}
	return p, nil
}

// ==================== Sales ====================

// GetSale returns a committed sale.
func (s *Store) GetSale(ctx context.Context, storeID, saleID string) (*sale.Sale, error) {
	row := s.pdb.QueryRow(ctx,
		`SELECT `+saleSelect+` FROM stockledger_sales WHERE store_id = $1 AND id = $2`, storeID, saleID)
	sl, err := scanSale(row)
	if err != nil {
		return nil, notFound("get sale", err, stockledger.ErrSaleNotFound)
	}
	return sl, nil
}

// ListSaleItems returns a sale's items in line order.
func (s *Store) ListSaleItems(ctx context.Context, storeID, saleID string) ([]*sale.Item, error) {
	rows, err := s.pdb.Query(ctx,
		`SELECT `+saleItemSelect+` FROM stockledger_sale_items WHERE store_id = $1 AND sale_id = $2 ORDER BY position`,
		storeID, saleID)
	if err != nil {
		return nil, mapErr("list sale items", err)
	}
	items, err := collect(rows, scanSaleItem)
	if err != nil {
		return nil, mapErr("list sale items", err)
	}
	if len(items) == 0 {
		if _, err := s.GetSale(ctx, storeID, saleID); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// ==================== Ledger ====================

// filter accumulates numbered WHERE predicates and their arguments.
type filter struct {
	where []string
	args  []any
}

// add appends pred, whose single placeholder is written as "?".
func (f *filter) add(pred string, arg any) {
	f.args = append(f.args, arg)
	f.where = append(f.where, strings.Replace(pred, "?", "$"+strconv.Itoa(len(f.args)), 1))
}

func (f *filter) query(columns, table string, limit int) (string, []any) {
	q := `SELECT ` + columns + ` FROM ` + table + ` WHERE ` + strings.Join(f.where, " AND ") + ` ORDER BY seq DESC`
	args := f.args
	if limit > 0 {
		args = append(args, limit)
		q += ` LIMIT $` + strconv.Itoa(len(args))
	}
	return q, args
}

// ListEntries returns a product's ledger entries, newest first.
func (s *Store) ListEntries(ctx context.Context, storeID, productID string, opts entry.ListOpts) ([]*entry.Entry, error) {
	f := &filter{}
	f.add("store_id = ?", storeID)
	if productID != "" {
		f.add("product_id = ?", productID)
	}
	if opts.Type != "" {
		f.add("type = ?", string(opts.Type))
	}
	if opts.RefID != "" {
		f.add("ref_id = ?", opts.RefID)
	}
	q, args := f.query(entrySelect, "stockledger_entries", opts.Limit)

	rows, err := s.pdb.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr("list entries", err)
	}
	out, err := collect(rows, scanEntry)
	if err != nil {
		return nil, mapErr("list entries", err)
	}
	return out, nil
}

// ListReceipts returns a store's receipts, newest first.
func (s *Store) ListReceipts(ctx context.Context, storeID string, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	f := &filter{}
	f.add("store_id = ?", storeID)
	if opts.ProductID != "" {
		f.add("product_id = ?", opts.ProductID)
	}
	q, args := f.query(receiptSelect, "stockledger_receipts", opts.Limit)

	rows, err := s.pdb.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr("list receipts", err)
	}
	out, err := collect(rows, scanReceipt)
	if err != nil {
		return nil, mapErr("list receipts", err)
	}
	return out, nil
}

// ListAlerts returns a store's alerts, newest first.
func (s *Store) ListAlerts(ctx context.Context, storeID string, opts alert.ListOpts) ([]*alert.Alert, error) {
	f := &filter{}
	f.add("store_id = ?", storeID)
	if opts.ProductID != "" {
		f.add("product_id = ?", opts.ProductID)
	}
	q, args := f.query(alertSelect, "stockledger_alerts", opts.Limit)

	rows, err := s.pdb.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr("list alerts", err)
	}
	out, err := collect(rows, scanAlert)
	if err != nil {
		return nil, mapErr("list alerts", err)
	}
	return out, nil
}

func collect[T any](rows driver.Rows, scan func(scanner) (*T, error)) ([]*T, error) {
	defer func() { _ = rows.Close() }()

	out := make([]*T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
