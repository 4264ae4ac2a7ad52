// Package audithook bridges stockledger commit events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import an
// audit library directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/alert"
	"github.com/xraph/stockledger/plugin"
	"github.com/xraph/stockledger/receipt"
	"github.com/xraph/stockledger/sale"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin          = (*Extension)(nil)
	_ plugin.OnSaleCommitted = (*Extension)(nil)
	_ plugin.OnStockReceived = (*Extension)(nil)
	_ plugin.OnLowStock      = (*Extension)(nil)
	_ plugin.OnCommitFailed  = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	StoreID    string         `json:"store_id,omitempty"`
	ActorID    string         `json:"actor_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges stockledger commit events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Sale hooks
// ──────────────────────────────────────────────────

// OnSaleCommitted implements plugin.OnSaleCommitted.
func (e *Extension) OnSaleCommitted(ctx context.Context, s *sale.Sale) error {
	return e.record(ctx, event{
		action: ActionSaleCommitted, severity: SeverityInfo, outcome: OutcomeSuccess,
		resource: ResourceSale, resourceID: s.ID, category: CategorySales,
		storeID: s.StoreID, actorID: s.CreatedBy,
	},
		"lines", len(s.Lines),
		"total", s.Total.StringFixed(2),
		"discount_total", s.DiscountTotal.StringFixed(2),
		"tax_total", s.TaxTotal.StringFixed(2),
	)
}

// ──────────────────────────────────────────────────
// Inventory hooks
// ──────────────────────────────────────────────────

// OnStockReceived implements plugin.OnStockReceived.
func (e *Extension) OnStockReceived(ctx context.Context, r *receipt.Receipt) error {
	kv := []any{
		"product_id", r.ProductID,
		"qty", r.Qty.String(),
		"supplier", r.Supplier,
		"reference", r.Reference,
		"stock_after", r.StockAfter.String(),
	}
	if r.TotalCost != nil {
		kv = append(kv, "total_cost", r.TotalCost.StringFixed(2))
	}
	return e.record(ctx, event{
		action: ActionStockReceived, severity: SeverityInfo, outcome: OutcomeSuccess,
		resource: ResourceReceipt, resourceID: r.ID.String(), category: CategoryInventory,
		storeID: r.StoreID, actorID: r.CreatedBy,
	}, kv...)
}

// OnLowStock implements plugin.OnLowStock.
func (e *Extension) OnLowStock(ctx context.Context, a *alert.Alert) error {
	return e.record(ctx, event{
		action: ActionStockLow, severity: SeverityWarning, outcome: OutcomeSuccess,
		resource: ResourceProduct, resourceID: a.ProductID, category: CategoryInventory,
		storeID: a.StoreID,
	},
		"alert_id", a.ID.String(),
		"product_name", a.ProductName,
		"stock_count", a.StockCount.String(),
		"threshold", a.Threshold.String(),
		"ref_id", a.RefID,
	)
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnCommitFailed implements plugin.OnCommitFailed. Internal failures are
// recorded as errors; rejected requests as warnings.
func (e *Extension) OnCommitFailed(ctx context.Context, op string, err error) error {
	kind := stockledger.KindOf(err)
	severity := SeverityWarning
	if kind == stockledger.KindInternal {
		severity = SeverityError
	}

	resource, category := ResourceSale, CategorySales
	if op == stockledger.OpReceiveStock {
		resource, category = ResourceReceipt, CategoryInventory
	}

	scope, _ := stockledger.ScopeFromContext(ctx)

	return e.record(ctx, event{
		action: ActionCommitFailed, severity: severity, outcome: OutcomeFailure,
		resource: resource, category: category, err: err,
		storeID: scope.StoreID, actorID: scope.UserID,
	},
		"op", op,
		"kind", string(kind),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

type event struct {
	action, severity, outcome      string
	resource, resourceID, category string
	storeID, actorID               string
	err                            error
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(ctx context.Context, ev event, kvPairs ...any) error {
	if e.enabled != nil && !e.enabled[ev.action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if ev.err != nil {
		reason = ev.err.Error()
		meta["error"] = ev.err.Error()
	}

	evt := &AuditEvent{
		Action:     ev.action,
		Resource:   ev.resource,
		Category:   ev.category,
		ResourceID: ev.resourceID,
		StoreID:    ev.storeID,
		ActorID:    ev.actorID,
		Metadata:   meta,
		Outcome:    ev.outcome,
		Severity:   ev.severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", ev.action,
			"resource_id", ev.resourceID,
			"error", recErr,
		)
	}
	return nil
}
