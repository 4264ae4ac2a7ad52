package stockledger

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/xraph/stockledger/alert"
	"github.com/xraph/stockledger/entry"
	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/sale"
	"github.com/xraph/stockledger/txn"
)

// maxSaleIDLen bounds caller-supplied sale ids.
const maxSaleIDLen = 128

// CommitSale prices and atomically records a sale: the sale and its items,
// the stock decrement and ledger entry of every tracked line, and any
// low-stock alerts. A sale id that was already committed fails with
// KindAlreadyExists and writes nothing, so retrying with the same id is
// always safe.
func (e *Engine) CommitSale(ctx context.Context, req CommitSaleRequest) (*CommitSaleResult, error) {
	ctx, span := e.tracer.Start(ctx, "stockledger.CommitSale")
	defer span.End()

	s, err := e.normalizeSale(ctx, req)
	if err != nil {
		return nil, e.fail(ctx, span, OpCommitSale, err)
	}

	span.SetAttributes(
		attribute.String("sale.store_id", s.StoreID),
		attribute.String("sale.id", s.ID),
		attribute.Int("sale.lines", len(s.Lines)),
	)

	items := s.Items()
	productIDs := s.ProductIDs()

	var alerts []*alert.Alert
	err = e.store.Run(ctx, func(ctx context.Context, r txn.Reader) (*txn.WriteSet, error) {
		existing, err := r.LookupSale(ctx, s.StoreID, s.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, Errorf(KindAlreadyExists, ErrSaleExists, "sale %q already committed", s.ID)
		}

		products := make(map[string]*product.Product, len(productIDs))
		for _, pid := range productIDs {
			p, err := r.LookupProduct(ctx, s.StoreID, pid)
			if err != nil {
				return nil, err
			}
			if p == nil {
				return nil, Errorf(KindFailedPrecondition, ErrProductNotFound, "product %q not found", pid)
			}
			products[pid] = p
		}

		ws := txn.NewWriteSet()
		ws.PutSale(s, items)

		var touched []*product.Product
		seen := make(map[string]bool, len(products))
		for _, l := range s.Lines {
			if !l.Type.Tracked() || l.Qty.IsZero() {
				continue
			}
			p := products[l.ProductID]
			p.StockCount = p.StockCount.Sub(l.Qty.Abs())
			ws.AppendEntry(entry.ForSale(s.StoreID, p.ID, s.ID, l.Qty, s.CreatedAt))
			if !seen[p.ID] {
				seen[p.ID] = true
				touched = append(touched, p)
			}
		}

		for _, p := range touched {
			p.TouchAt(s.CreatedAt)
			ws.UpdateProduct(p)
			ws.AddAlert(alert.Evaluate(p, p.StockCount, s.ID, s.CreatedAt))
		}

		alerts = ws.Alerts
		return ws, nil
	})
	if err != nil {
		return nil, e.fail(ctx, span, OpCommitSale, err)
	}

	span.SetStatus(codes.Ok, "")
	e.logger.Info("sale committed",
		"store_id", s.StoreID,
		"sale_id", s.ID,
		"lines", len(s.Lines),
		"total", s.Total.StringFixed(2),
		"alerts", len(alerts),
	)

	e.plugins.EmitSaleCommitted(ctx, s.Clone())
	e.plugins.EmitLowStock(ctx, alerts)

	return &CommitSaleResult{SaleID: s.ID, Sale: s, Alerts: alerts}, nil
}

// normalizeSale validates req and returns the priced sale snapshot. It runs
// before any transaction opens.
func (e *Engine) normalizeSale(ctx context.Context, req CommitSaleRequest) (*sale.Sale, error) {
	storeID := strings.TrimSpace(req.StoreID)
	if storeID == "" {
		return nil, ValidationError{Field: "storeId", Message: "is required"}
	}

	sc, scoped := ScopeFromContext(ctx)
	if scoped && sc.StoreID != storeID {
		return nil, Errorf(KindPermissionDenied, ErrPermissionDenied, "store %q is outside the caller's scope", storeID)
	}

	saleID := strings.TrimSpace(req.SaleID)
	if saleID == "" {
		saleID = e.newSaleID()
	}
	if err := validateSaleID(saleID); err != nil {
		return nil, err
	}

	cashierID := strings.TrimSpace(req.CashierID)
	if cashierID == "" && scoped {
		cashierID = sc.UserID
	}
	if cashierID == "" {
		return nil, ValidationError{Field: "cashierId", Message: "is required"}
	}

	if len(req.Items) == 0 {
		return nil, ValidationError{Field: "items", Message: "at least one item is required"}
	}

	lines := make([]sale.Line, 0, len(req.Items))
	for i, in := range req.Items {
		productID := strings.TrimSpace(in.ProductID)
		if productID == "" {
			return nil, Errorf(KindFailedPrecondition, ErrProductNotFound, "item %d has no productId", i)
		}
		typ, err := sale.ParseItemType(strings.TrimSpace(in.Type))
		if err != nil {
			return nil, ValidationError{Field: "items.type", Message: err.Error()}
		}
		lines = append(lines, sale.Line{
			ProductID:       productID,
			Qty:             in.Qty.OrZero(),
			Price:           in.Price.OrZero(),
			TaxRate:         in.TaxRate.OrZero(),
			Type:            typ,
			DiscountAmount:  in.DiscountAmount.Ptr(),
			DiscountPercent: in.DiscountPercent.Ptr(),
		})
	}

	var adj sale.Adjustments
	if t := req.Totals; t != nil {
		adj = sale.Adjustments{
			Total:           t.Total.Ptr(),
			DiscountAmount:  t.DiscountAmount.OrZero(),
			DiscountPercent: t.DiscountPercent.OrZero(),
			TaxTotal:        t.TaxTotal.Ptr(),
		}
	}

	priced, totals := sale.Price(lines, adj)

	return &sale.Sale{
		ID:                saleID,
		StoreID:           storeID,
		Lines:             priced,
		Subtotal:          totals.Subtotal,
		ItemDiscountTotal: totals.ItemDiscountTotal,
		SaleDiscount:      totals.SaleDiscount,
		DiscountTotal:     totals.DiscountTotal,
		TaxTotal:          totals.TaxTotal,
		Total:             totals.Total,
		Payment:           req.Payment,
		Customer:          req.Customer,
		Note:              strings.TrimSpace(req.Note),
		CreatedBy:         cashierID,
		CreatedAt:         e.now().UTC(),
	}, nil
}

func validateSaleID(saleID string) error {
	switch {
	case len(saleID) > maxSaleIDLen:
		return ValidationError{Field: "saleId", Message: "must be at most 128 characters"}
	case strings.Contains(saleID, "/"):
		return ValidationError{Field: "saleId", Message: "must not contain '/'"}
	case saleID == "." || saleID == "..":
		return ValidationError{Field: "saleId", Message: "is reserved"}
	}
	return nil
}
