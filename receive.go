package stockledger

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/xraph/stockledger/alert"
	"github.com/xraph/stockledger/entry"
	"github.com/xraph/stockledger/id"
	"github.com/xraph/stockledger/receipt"
	"github.com/xraph/stockledger/txn"
	"github.com/xraph/stockledger/types"
)

// ReceiveStock atomically adds qty units to a product, records the receipt
// and its ledger entry, and re-evaluates the low-stock alert. Receipts are
// not idempotent: repeating a call repeats the increase.
func (e *Engine) ReceiveStock(ctx context.Context, req ReceiveStockRequest) (*ReceiveStockResult, error) {
	ctx, span := e.tracer.Start(ctx, "stockledger.ReceiveStock")
	defer span.End()

	rc, err := e.normalizeReceipt(ctx, req)
	if err != nil {
		return nil, e.fail(ctx, span, OpReceiveStock, err)
	}

	span.SetAttributes(
		attribute.String("receipt.store_id", rc.StoreID),
		attribute.String("receipt.product_id", rc.ProductID),
		attribute.String("receipt.qty", rc.Qty.String()),
	)

	var raised *alert.Alert
	err = e.store.Run(ctx, func(ctx context.Context, r txn.Reader) (*txn.WriteSet, error) {
		p, err := r.LookupProduct(ctx, rc.StoreID, rc.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, Errorf(KindFailedPrecondition, ErrProductNotFound, "product %q not found", rc.ProductID)
		}

		p.StockCount = p.StockCount.Add(rc.Qty)
		p.LastReceivedAt = &rc.CreatedAt
		p.LastReceivedQty = types.DecimalPtr(rc.Qty)
		p.LastReceivedCost = rc.TotalCost
		p.TouchAt(rc.CreatedAt)

		rc.StockAfter = p.StockCount

		ws := txn.NewWriteSet()
		ws.UpdateProduct(p)
		ws.AddReceipt(rc)
		ws.AppendEntry(entry.ForReceipt(rc.StoreID, rc.ProductID, rc.ID.String(), rc.Qty, rc.CreatedAt))

		raised = alert.Evaluate(p, p.StockCount, rc.ID.String(), rc.CreatedAt)
		ws.AddAlert(raised)
		return ws, nil
	})
	if err != nil {
		return nil, e.fail(ctx, span, OpReceiveStock, err)
	}

	span.SetStatus(codes.Ok, "")
	e.logger.Info("stock received",
		"store_id", rc.StoreID,
		"product_id", rc.ProductID,
		"receipt_id", rc.ID.String(),
		"qty", rc.Qty.String(),
		"stock_after", rc.StockAfter.String(),
	)

	e.plugins.EmitStockReceived(ctx, rc)
	if raised != nil {
		e.plugins.EmitLowStock(ctx, []*alert.Alert{raised})
	}

	return &ReceiveStockResult{
		ReceiptID:  rc.ID.String(),
		Receipt:    rc,
		StockCount: rc.StockAfter,
		Alert:      raised,
	}, nil
}

// normalizeReceipt validates req and returns the receipt to record. The
// store comes from the caller's scope.
func (e *Engine) normalizeReceipt(ctx context.Context, req ReceiveStockRequest) (*receipt.Receipt, error) {
	storeID := strings.TrimSpace(req.StoreID)
	var createdBy string
	if sc, ok := ScopeFromContext(ctx); ok {
		if storeID != "" && storeID != sc.StoreID {
			return nil, Errorf(KindPermissionDenied, ErrPermissionDenied, "store %q is outside the caller's scope", storeID)
		}
		storeID = sc.StoreID
		createdBy = sc.UserID
	}
	if storeID == "" {
		return nil, ValidationError{Field: "storeId", Message: "is required"}
	}

	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		return nil, ValidationError{Field: "productId", Message: "is required"}
	}
	if !req.Qty.Valid || !req.Qty.Decimal.IsPositive() {
		return nil, ValidationError{Field: "qty", Message: "must be greater than zero"}
	}
	supplier := strings.TrimSpace(req.Supplier)
	if supplier == "" {
		return nil, ValidationError{Field: "supplier", Message: "is required"}
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		return nil, ValidationError{Field: "reference", Message: "is required"}
	}
	unitCost := req.UnitCost.Ptr()
	if unitCost != nil && unitCost.IsNegative() {
		return nil, ValidationError{Field: "unitCost", Message: "must not be negative"}
	}

	return &receipt.Receipt{
		ID:        id.NewReceiptID(),
		StoreID:   storeID,
		ProductID: productID,
		Qty:       req.Qty.Decimal,
		Supplier:  supplier,
		Reference: reference,
		UnitCost:  unitCost,
		TotalCost: receipt.TotalCost(unitCost, req.Qty.Decimal),
		CreatedBy: createdBy,
		CreatedAt: e.now().UTC(),
	}, nil
}
