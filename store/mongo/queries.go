package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/alert"
	"github.com/xraph/stockledger/entry"
	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/receipt"
	"github.com/xraph/stockledger/sale"
	"github.com/xraph/stockledger/txn"
)

// newestFirst orders append-only collections. TypeIDs are time-ordered, so
// _id breaks ties within the same instant.
var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

// ==================== Transaction reads and writes ====================

// reader reads through the session context the plan receives.
type reader struct{ s *Store }

func (r reader) LookupSale(ctx context.Context, storeID, saleID string) (*sale.Sale, error) {
	var m saleModel
	err := r.s.mdb.Collection(colSales).FindOne(ctx, bson.M{"_id": docID(storeID, saleID)}).Decode(&m)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("lookup sale", err)
	}
	return fromSaleModel(&m)
}

func (r reader) LookupProduct(ctx context.Context, storeID, productID string) (*product.Product, error) {
	var m productModel
	err := r.s.mdb.Collection(colProducts).FindOne(ctx, bson.M{"_id": docID(storeID, productID)}).Decode(&m)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("lookup product", err)
	}
	return fromProductModel(&m)
}

// apply writes ws through the session context. A duplicate sale or a product
// whose version moved since it was read reports txn.ErrConflict.
func (s *Store) apply(ctx context.Context, ws *txn.WriteSet) error {
	if ws.Sale != nil {
		m, err := toSaleModel(ws.Sale)
		if err != nil {
			return fmt.Errorf("stockledger/mongo: %w", err)
		}
		if _, err := s.mdb.Collection(colSales).InsertOne(ctx, m); err != nil {
			return mapErr("insert sale", err)
		}
	}

	for _, p := range ws.Products {
		m, err := toProductModel(p)
		if err != nil {
			return fmt.Errorf("stockledger/mongo: %w", err)
		}
		m.Version = p.Version + 1
		res, err := s.mdb.Collection(colProducts).ReplaceOne(ctx, bson.M{"_id": m.DocID, "version": p.Version}, m)
		if err != nil {
			return mapErr("update product", err)
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("stockledger/mongo: product %q modified concurrently: %w", p.ID, txn.ErrConflict)
		}
	}

	docs := make([]any, 0, len(ws.SaleItems))
	for _, it := range ws.SaleItems {
		m, err := toSaleItemModel(it)
		if err != nil {
			return fmt.Errorf("stockledger/mongo: %w", err)
		}
		docs = append(docs, m)
	}
	if err := s.insertMany(ctx, colSaleItems, docs); err != nil {
		return err
	}

	docs = docs[:0]
	for _, e := range ws.Entries {
		m, err := toEntryModel(e)
		if err != nil {
			return fmt.Errorf("stockledger/mongo: %w", err)
		}
		docs = append(docs, m)
	}
	if err := s.insertMany(ctx, colEntries, docs); err != nil {
		return err
	}

	docs = docs[:0]
	for _, r := range ws.Receipts {
		m, err := toReceiptModel(r)
		if err != nil {
			return fmt.Errorf("stockledger/mongo: %w", err)
		}
		docs = append(docs, m)
	}
	if err := s.insertMany(ctx, colReceipts, docs); err != nil {
		return err
	}

	docs = docs[:0]
	for _, a := range ws.Alerts {
		m, err := toAlertModel(a)
		if err != nil {
			return fmt.Errorf("stockledger/mongo: %w", err)
		}
		docs = append(docs, m)
	}
	return s.insertMany(ctx, colAlerts, docs)
}

func (s *Store) insertMany(ctx context.Context, col string, docs []any) error {
	if len(docs) == 0 {
		return nil
	}
	if _, err := s.mdb.Collection(col).InsertMany(ctx, docs); err != nil {
		return mapErr("insert "+col, err)
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
	m, err := toProductModel(p)
	if err != nil {
		return fmt.Errorf("stockledger/mongo: %w", err)
	}

	update := bson.M{
		"$set": bson.M{
			"id":                 m.ID,
			"store_id":           m.StoreID,
			"name":               m.Name,
			"price":              m.Price,
			"stock_count":        m.StockCount,
			"reorder_level":      m.ReorderLevel,
			"reorder_threshold":  m.ReorderThreshold,
			"last_received_at":   m.LastReceivedAt,
			"last_received_qty":  m.LastReceivedQty,
			"last_received_cost": m.LastReceivedCost,
			"updated_at":         m.UpdatedAt,
		},
		"$setOnInsert": bson.M{"created_at": m.CreatedAt},
		"$inc":         bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var saved productModel
	if err := s.mdb.Collection(colProducts).FindOneAndUpdate(ctx, bson.M{"_id": m.DocID}, update, opts).Decode(&saved); err != nil {
		return mapErr("save product", err)
	}
	p.Version = saved.Version
	return nil
}

// GetProduct returns a product.
func (s *Store) GetProduct(ctx context.Context, storeID, productID string) (*product.Product, error) {
	var m productModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": docID(storeID, productID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, stockledger.ErrProductNotFound
		}
		return nil, fmt.Errorf("stockledger/mongo: get product: %w", err)
	}
	return fromProductModel(&m)
}

// ==================== Sales ====================

// GetSale returns a committed sale.
func (s *Store) GetSale(ctx context.Context, storeID, saleID string) (*sale.Sale, error) {
	var m saleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": docID(storeID, saleID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, stockledger.ErrSaleNotFound
		}
		return nil, fmt.Errorf("stockledger/mongo: get sale: %w", err)
	}
	return fromSaleModel(&m)
}

// ListSaleItems returns a sale's items in line order.
func (s *Store) ListSaleItems(ctx context.Context, storeID, saleID string) ([]*sale.Item, error) {
	var models []saleItemModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"store_id": storeID, "sale_id": saleID}).
		Sort(bson.D{{Key: "position", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("stockledger/mongo: list sale items: %w", err)
	}
	if len(models) == 0 {
		if _, err := s.GetSale(ctx, storeID, saleID); err != nil {
			return nil, err
		}
	}

	result := make([]*sale.Item, len(models))
	for i := range models {
		it, err := fromSaleItemModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = it
	}
	return result, nil
}

// ==================== Ledger ====================

// ListEntries returns a product's ledger entries, newest first.
func (s *Store) ListEntries(ctx context.Context, storeID, productID string, opts entry.ListOpts) ([]*entry.Entry, error) {
	var models []entryModel

	filter := bson.M{"store_id": storeID}
	if productID != "" {
		filter["product_id"] = productID
	}
	if opts.Type != "" {
		filter["type"] = string(opts.Type)
	}
	if opts.RefID != "" {
		filter["ref_id"] = opts.RefID
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(newestFirst)
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("stockledger/mongo: list entries: %w", err)
	}

	result := make([]*entry.Entry, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// ListReceipts returns a store's receipts, newest first.
func (s *Store) ListReceipts(ctx context.Context, storeID string, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	var models []receiptModel

	filter := bson.M{"store_id": storeID}
	if opts.ProductID != "" {
		filter["product_id"] = opts.ProductID
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(newestFirst)
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("stockledger/mongo: list receipts: %w", err)
	}

	result := make([]*receipt.Receipt, len(models))
	for i := range models {
		r, err := fromReceiptModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ListAlerts returns a store's alerts, newest first.
func (s *Store) ListAlerts(ctx context.Context, storeID string, opts alert.ListOpts) ([]*alert.Alert, error) {
	var models []alertModel

	filter := bson.M{"store_id": storeID}
	if opts.ProductID != "" {
		filter["product_id"] = opts.ProductID
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(newestFirst)
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("stockledger/mongo: list alerts: %w", err)
	}

	result := make([]*alert.Alert, len(models))
	for i := range models {
		a, err := fromAlertModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}
