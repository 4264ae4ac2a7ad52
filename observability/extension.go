// Package observability provides a metrics extension for stockledger that
// records commit event counts via a MetricFactory.
package observability

import (
	"context"
	"sync"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/alert"
	"github.com/xraph/stockledger/plugin"
	"github.com/xraph/stockledger/receipt"
	"github.com/xraph/stockledger/sale"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin          = (*MetricsExtension)(nil)
	_ plugin.OnInit          = (*MetricsExtension)(nil)
	_ plugin.OnSaleCommitted = (*MetricsExtension)(nil)
	_ plugin.OnStockReceived = (*MetricsExtension)(nil)
	_ plugin.OnLowStock      = (*MetricsExtension)(nil)
	_ plugin.OnCommitFailed  = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records commit metrics.
// Register it as a stockledger plugin to track sales and inventory flow.
type MetricsExtension struct {
	factory MetricFactory

	// Sale metrics
	SalesCommitted Counter
	SaleLines      Counter
	SaleTotal      Histogram

	// Inventory metrics
	Receipts       Counter
	ReceiptQty     Counter
	LowStockAlerts Counter

	// Error metrics
	mu             sync.Mutex
	commitFailures map[stockledger.Kind]Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions or NewOTelFactory elsewhere.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Sale metrics
		SalesCommitted: factory.Counter("stockledger.sales.committed"),
		SaleLines:      factory.Counter("stockledger.sales.lines"),
		SaleTotal:      factory.Histogram("stockledger.sales.total"),

		// Inventory metrics
		Receipts:       factory.Counter("stockledger.receipts"),
		ReceiptQty:     factory.Counter("stockledger.receipts.qty"),
		LowStockAlerts: factory.Counter("stockledger.alerts.low_stock"),

		commitFailures: make(map[stockledger.Kind]Counter),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// CommitFailures returns the failure counter for kind, creating it on first use.
func (m *MetricsExtension) CommitFailures(kind stockledger.Kind) Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.commitFailures[kind]
	if !ok {
		c = m.factory.Counter("stockledger.commit.failed." + string(kind))
		m.commitFailures[kind] = c
	}
	return c
}

// ──────────────────────────────────────────────────
// Sale hooks
// ──────────────────────────────────────────────────

// OnSaleCommitted implements plugin.OnSaleCommitted.
func (m *MetricsExtension) OnSaleCommitted(_ context.Context, s *sale.Sale) error {
	m.SalesCommitted.Inc()
	m.SaleLines.Add(float64(len(s.Lines)))
	m.SaleTotal.Observe(s.Total.InexactFloat64())
	return nil
}

// ──────────────────────────────────────────────────
// Inventory hooks
// ──────────────────────────────────────────────────

// OnStockReceived implements plugin.OnStockReceived.
func (m *MetricsExtension) OnStockReceived(_ context.Context, r *receipt.Receipt) error {
	m.Receipts.Inc()
	m.ReceiptQty.Add(r.Qty.InexactFloat64())
	return nil
}

// OnLowStock implements plugin.OnLowStock.
func (m *MetricsExtension) OnLowStock(_ context.Context, _ *alert.Alert) error {
	m.LowStockAlerts.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnCommitFailed implements plugin.OnCommitFailed.
func (m *MetricsExtension) OnCommitFailed(_ context.Context, _ string, err error) error {
	m.CommitFailures(stockledger.KindOf(err)).Inc()
	return nil
}
