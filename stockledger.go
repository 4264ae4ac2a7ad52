package stockledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/stockledger/alert"
	"github.com/xraph/stockledger/entry"
	"github.com/xraph/stockledger/id"
	"github.com/xraph/stockledger/plugin"
	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/receipt"
	"github.com/xraph/stockledger/sale"
	"github.com/xraph/stockledger/store"
)

const instrumentationName = "github.com/xraph/stockledger"

// Operation names reported to OnCommitFailed hooks and logs.
const (
	OpCommitSale   = "commit_sale"
	OpReceiveStock = "receive_stock"
)

// Engine runs sale commits and stock receipts against a Store.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	tracer  trace.Tracer

	now       func() time.Time
	newSaleID func() string
}

// New creates a new Engine over s.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:     s,
		plugins:   plugin.NewRegistry(),
		logger:    slog.Default(),
		tracer:    otel.Tracer(instrumentationName),
		now:       time.Now,
		newSaleID: func() string { return id.NewSaleID().String() },
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.plugins.WithTimeout(d)
	}
}

// WithTracer sets the tracer used for engine spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithClock sets the time source for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithSaleIDGenerator sets the generator for sale ids the caller omits.
func WithSaleIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		e.newSaleID = gen
	}
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store {
	return e.store
}

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry {
	return e.plugins
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("stockledger started", "plugins", e.plugins.Count())
	return nil
}

// Stop notifies plugins and closes the store.
func (e *Engine) Stop(ctx context.Context) error {
	e.plugins.EmitShutdown(ctx)
	return e.store.Close()
}

// Ping checks store connectivity.
func (e *Engine) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}

// ──────────────────────────────────────────────────
// Read side
// ──────────────────────────────────────────────────

// GetSale returns a committed sale.
func (e *Engine) GetSale(ctx context.Context, storeID, saleID string) (*sale.Sale, error) {
	if err := e.authorizeStore(ctx, storeID); err != nil {
		return nil, err
	}
	return e.store.GetSale(ctx, storeID, saleID)
}

// ListSaleItems returns the per-line records of a sale.
func (e *Engine) ListSaleItems(ctx context.Context, storeID, saleID string) ([]*sale.Item, error) {
	if err := e.authorizeStore(ctx, storeID); err != nil {
		return nil, err
	}
	return e.store.ListSaleItems(ctx, storeID, saleID)
}

// GetProduct returns a catalog product.
func (e *Engine) GetProduct(ctx context.Context, storeID, productID string) (*product.Product, error) {
	if err := e.authorizeStore(ctx, storeID); err != nil {
		return nil, err
	}
	return e.store.GetProduct(ctx, storeID, productID)
}

// ListEntries returns a product's ledger history, newest first.
func (e *Engine) ListEntries(ctx context.Context, storeID, productID string, opts entry.ListOpts) ([]*entry.Entry, error) {
	if err := e.authorizeStore(ctx, storeID); err != nil {
		return nil, err
	}
	return e.store.ListEntries(ctx, storeID, productID, opts)
}

// ListReceipts returns a store's receipts, newest first.
func (e *Engine) ListReceipts(ctx context.Context, storeID string, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	if err := e.authorizeStore(ctx, storeID); err != nil {
		return nil, err
	}
	return e.store.ListReceipts(ctx, storeID, opts)
}

// ListAlerts returns a store's alerts, newest first.
func (e *Engine) ListAlerts(ctx context.Context, storeID string, opts alert.ListOpts) ([]*alert.Alert, error) {
	if err := e.authorizeStore(ctx, storeID); err != nil {
		return nil, err
	}
	return e.store.ListAlerts(ctx, storeID, opts)
}

// authorizeStore rejects access to a store other than the scoped one.
// Calls without a scope are trusted.
func (e *Engine) authorizeStore(ctx context.Context, storeID string) error {
	if sc, ok := ScopeFromContext(ctx); ok && sc.StoreID != storeID {
		return Errorf(KindPermissionDenied, ErrPermissionDenied, "store %q is outside the caller's scope", storeID)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Failure reporting
// ──────────────────────────────────────────────────

// fail normalizes err to an *Error, records it on span, and notifies
// plugins.
func (e *Engine) fail(ctx context.Context, span trace.Span, op string, err error) error {
	out := classify(err)

	span.RecordError(out)
	span.SetStatus(codes.Error, string(out.Kind))

	level := slog.LevelWarn
	if out.Kind == KindInternal {
		level = slog.LevelError
	}
	e.logger.Log(ctx, level, "operation failed",
		"op", op,
		"kind", out.Kind,
		"error", out,
	)

	e.plugins.EmitCommitFailed(ctx, op, out)
	return out
}

// classify converts any error into an *Error with a Kind.
func classify(err error) *Error {
	var e *Error
	if errors.As(err, &e) && e.Kind != "" {
		return e
	}

	var ve ValidationError
	if errors.As(err, &ve) {
		return &Error{Kind: KindInvalidArgument, Message: ve.Field + ": " + ve.Message, Err: err}
	}

	kind := KindOf(err)
	switch {
	case errors.Is(err, ErrConflict):
		return &Error{Kind: KindInternal, Message: "transaction aborted after repeated conflicts, retry the request", Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindInternal, Message: "request canceled", Err: err}
	default:
		return &Error{Kind: kind, Err: err}
	}
}
