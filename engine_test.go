package stockledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/alert"
	"github.com/xraph/stockledger/entry"
	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/receipt"
	"github.com/xraph/stockledger/sale"
	"github.com/xraph/stockledger/store/memory"
	"github.com/xraph/stockledger/txn"
)

const storeID = "store-1"

func num(v int64) stockledger.Number { return stockledger.NumberFromInt(v) }

func decp(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

type fixture struct {
	ctx    context.Context
	store  *memory.Store
	engine *stockledger.Engine
}

func newFixture(t *testing.T, opts ...stockledger.Option) *fixture {
	t.Helper()
	s := memory.New(memory.WithRetryPolicy(txn.Policy{
		MaxAttempts: 200,
		BaseDelay:   time.Microsecond,
		MaxDelay:    time.Millisecond,
	}))
	return &fixture{
		ctx:    context.Background(),
		store:  s,
		engine: stockledger.New(s, opts...),
	}
}

func (f *fixture) seed(t *testing.T, p *product.Product) {
	t.Helper()
	if p.StoreID == "" {
		p.StoreID = storeID
	}
	require.NoError(t, f.store.SaveProduct(f.ctx, p))
}

func (f *fixture) stock(t *testing.T, productID string) decimal.Decimal {
	t.Helper()
	p, err := f.store.GetProduct(f.ctx, storeID, productID)
	require.NoError(t, err)
	return p.StockCount
}

func (f *fixture) entries(t *testing.T, productID string) []*entry.Entry {
	t.Helper()
	es, err := f.store.ListEntries(f.ctx, storeID, productID, entry.ListOpts{})
	require.NoError(t, err)
	return es
}

func (f *fixture) alerts(t *testing.T) []*alert.Alert {
	t.Helper()
	as, err := f.store.ListAlerts(f.ctx, storeID, alert.ListOpts{})
	require.NoError(t, err)
	return as
}

func saleReq(saleID string, items ...stockledger.SaleItemInput) stockledger.CommitSaleRequest {
	return stockledger.CommitSaleRequest{
		StoreID:   storeID,
		SaleID:    saleID,
		CashierID: "cashier-1",
		Items:     items,
	}
}

func line(productID string, qty, price int64) stockledger.SaleItemInput {
	return stockledger.SaleItemInput{ProductID: productID, Qty: num(qty), Price: num(price)}
}

func assertDecEqual(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.NewFromInt(want).Equal(got), "got %s, want %d", got, want)
}

// ──────────────────────────────────────────────────
// CommitSale
// ──────────────────────────────────────────────────

func TestCommitSaleConcreteScenario(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "P", StockCount: decimal.NewFromInt(20), ReorderLevel: decp(5)})

	res, err := f.engine.CommitSale(f.ctx, saleReq("s-1", line("P", 16, 10)))
	require.NoError(t, err)

	assert.Equal(t, "s-1", res.SaleID)
	assert.Equal(t, "160.00", res.Sale.Total.StringFixed(2))
	assertDecEqual(t, 4, f.stock(t, "P"))

	es := f.entries(t, "P")
	require.Len(t, es, 1)
	assert.Equal(t, entry.TypeSale, es[0].Type)
	assert.Equal(t, "s-1", es[0].RefID)
	assertDecEqual(t, -16, es[0].QtyChange)

	as := f.alerts(t)
	require.Len(t, as, 1)
	assert.Equal(t, "P", as[0].ProductID)
	assert.Equal(t, alert.TypeLowStock, as[0].Type)
}

func TestCommitSaleConservationAcrossRepeatedLines(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "A", StockCount: decimal.NewFromInt(50), ReorderLevel: decp(40)})
	f.seed(t, &product.Product{ID: "B", StockCount: decimal.NewFromInt(10)})

	res, err := f.engine.CommitSale(f.ctx, saleReq("s-1",
		line("A", 3, 1),
		line("B", 2, 1),
		line("A", 4, 1),
	))
	require.NoError(t, err)

	assertDecEqual(t, 43, f.stock(t, "A"))
	assertDecEqual(t, 8, f.stock(t, "B"))
	assert.Len(t, f.entries(t, "A"), 2, "one entry per tracked line")
	assert.Len(t, f.entries(t, "B"), 1)
	assert.Len(t, res.Alerts, 0, "A ends above its reorder level")

	items, err := f.store.ListSaleItems(f.ctx, storeID, "s-1")
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestCommitSaleAlertOncePerProduct(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "A", StockCount: decimal.NewFromInt(5), ReorderLevel: decp(4)})

	res, err := f.engine.CommitSale(f.ctx, saleReq("s-1", line("A", 1, 1), line("A", 1, 1)))
	require.NoError(t, err)

	assertDecEqual(t, 3, f.stock(t, "A"))
	require.Len(t, res.Alerts, 1)
	assertDecEqual(t, 3, res.Alerts[0].StockCount)
}

func TestCommitSaleIdempotency(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "P", StockCount: decimal.NewFromInt(10)})

	req := saleReq("dup", line("P", 3, 2))

	_, err := f.engine.CommitSale(f.ctx, req)
	require.NoError(t, err)

	_, err = f.engine.CommitSale(f.ctx, req)
	require.Error(t, err)
	assert.Equal(t, stockledger.KindAlreadyExists, stockledger.KindOf(err))
	assert.ErrorIs(t, err, stockledger.ErrSaleExists)
	assert.True(t, stockledger.IsRetryable(err))

	assertDecEqual(t, 7, f.stock(t, "P"))
	assert.Len(t, f.entries(t, "P"), 1)
}

func TestCommitSaleAtomicity(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "A", StockCount: decimal.NewFromInt(10)})
	f.seed(t, &product.Product{ID: "C", StockCount: decimal.NewFromInt(10), ReorderLevel: decp(100)})

	_, err := f.engine.CommitSale(f.ctx, saleReq("s-1",
		line("A", 1, 1),
		line("missing", 1, 1),
		line("C", 1, 1),
	))
	require.Error(t, err)
	assert.Equal(t, stockledger.KindFailedPrecondition, stockledger.KindOf(err))
	assert.ErrorIs(t, err, stockledger.ErrProductNotFound)

	assertDecEqual(t, 10, f.stock(t, "A"))
	assertDecEqual(t, 10, f.stock(t, "C"))
	assert.Empty(t, f.entries(t, "A"))
	assert.Empty(t, f.entries(t, "C"))
	assert.Empty(t, f.alerts(t))

	_, err = f.store.GetSale(f.ctx, storeID, "s-1")
	assert.ErrorIs(t, err, stockledger.ErrSaleNotFound)
}

func TestCommitSaleThresholdFallback(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "L", StockCount: decimal.NewFromInt(5), ReorderThreshold: decp(5)})

	_, err := f.engine.CommitSale(f.ctx, saleReq("zero", line("L", 0, 1)))
	require.NoError(t, err)
	assert.Empty(t, f.alerts(t))
	assertDecEqual(t, 5, f.stock(t, "L"))

	_, err = f.engine.CommitSale(f.ctx, saleReq("one", line("L", 1, 1)))
	require.NoError(t, err)
	assertDecEqual(t, 4, f.stock(t, "L"))

	as := f.alerts(t)
	require.Len(t, as, 1)
	assert.Equal(t, "L", as[0].ProductID)
	assertDecEqual(t, 5, as[0].Threshold)
}

func TestCommitSaleNoThresholdNoAlert(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "N", StockCount: decimal.NewFromInt(1), ReorderLevel: decp(-1)})

	_, err := f.engine.CommitSale(f.ctx, saleReq("s", line("N", 10, 1)))
	require.NoError(t, err)
	assert.Empty(t, f.alerts(t))
}

func TestCommitSaleNonClamping(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "P", StockCount: decimal.NewFromInt(20)})

	_, err := f.engine.CommitSale(f.ctx, saleReq("over", line("P", 30, 1)))
	require.NoError(t, err)
	assertDecEqual(t, -10, f.stock(t, "P"))
}

func TestCommitSaleNegativeQtyStillDecrements(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "P", StockCount: decimal.NewFromInt(20)})

	_, err := f.engine.CommitSale(f.ctx, saleReq("neg", line("P", -3, 1)))
	require.NoError(t, err)
	assertDecEqual(t, 17, f.stock(t, "P"))
}

func TestCommitSaleUntrackedLines(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "SVC", StockCount: decimal.NewFromInt(0), ReorderLevel: decp(10)})
	f.seed(t, &product.Product{ID: "MTO", StockCount: decimal.NewFromInt(0)})

	res, err := f.engine.CommitSale(f.ctx, saleReq("s",
		stockledger.SaleItemInput{ProductID: "SVC", Qty: num(1), Price: num(30), Type: "service"},
		stockledger.SaleItemInput{ProductID: "MTO", Qty: num(2), Price: num(5), Type: "made_to_order"},
	))
	require.NoError(t, err)

	assertDecEqual(t, 40, res.Sale.Total)
	assertDecEqual(t, 0, f.stock(t, "SVC"))
	assert.Empty(t, f.entries(t, "SVC"))
	assert.Empty(t, f.entries(t, "MTO"))
	assert.Empty(t, res.Alerts)

	items, err := f.store.ListSaleItems(f.ctx, storeID, "s")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, sale.ItemService, items[0].Type)
}

func TestCommitSaleUntrackedLineStillRequiresProduct(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CommitSale(f.ctx, saleReq("s",
		stockledger.SaleItemInput{ProductID: "ghost", Qty: num(1), Price: num(30), Type: "service"},
	))
	assert.Equal(t, stockledger.KindFailedPrecondition, stockledger.KindOf(err))
}

func TestCommitSaleTotalsOverrides(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "P", StockCount: decimal.NewFromInt(20)})

	req := saleReq("s", stockledger.SaleItemInput{
		ProductID: "P", Qty: num(2), Price: num(50), TaxRate: stockledger.NumberFromFloat(0.1),
		DiscountPercent: num(10),
	})
	req.Totals = &stockledger.TotalsInput{DiscountAmount: num(5)}

	res, err := f.engine.CommitSale(f.ctx, req)
	require.NoError(t, err)

	s := res.Sale
	assertDecEqual(t, 100, s.Subtotal)
	assertDecEqual(t, 10, s.ItemDiscountTotal)
	assertDecEqual(t, 5, s.SaleDiscount)
	assertDecEqual(t, 15, s.DiscountTotal)
	assertDecEqual(t, 10, s.TaxTotal)
	assertDecEqual(t, 85, s.Total)

	req.SaleID = "s2"
	req.Totals = &stockledger.TotalsInput{Total: num(70)}
	res, err = f.engine.CommitSale(f.ctx, req)
	require.NoError(t, err)
	assertDecEqual(t, 70, res.Sale.Total)
}

func TestCommitSaleGeneratesSaleID(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "P", StockCount: decimal.NewFromInt(20)})

	res, err := f.engine.CommitSale(f.ctx, saleReq("", line("P", 1, 1)))
	require.NoError(t, err)
	assert.Regexp(t, "^sale_", res.SaleID)

	stored, err := f.store.GetSale(f.ctx, storeID, res.SaleID)
	require.NoError(t, err)
	assert.Equal(t, "cashier-1", stored.CreatedBy)
}

func TestCommitSaleCustomGenerator(t *testing.T) {
	f := newFixture(t, stockledger.WithSaleIDGenerator(func() string { return "fixed" }))
	f.seed(t, &product.Product{ID: "P", StockCount: decimal.NewFromInt(20)})

	res, err := f.engine.CommitSale(f.ctx, saleReq("", line("P", 1, 1)))
	require.NoError(t, err)
	assert.Equal(t, "fixed", res.SaleID)
}

func TestCommitSaleValidation(t *testing.T) {
	tests := []struct {
		name string
		req  stockledger.CommitSaleRequest
		kind stockledger.Kind
	}{
		{"missing store", stockledger.CommitSaleRequest{CashierID: "c", Items: []stockledger.SaleItemInput{line("P", 1, 1)}}, stockledger.KindInvalidArgument},
		{"missing cashier", stockledger.CommitSaleRequest{StoreID: storeID, Items: []stockledger.SaleItemInput{line("P", 1, 1)}}, stockledger.KindInvalidArgument},
		{"no items", saleReq("s"), stockledger.KindInvalidArgument},
		{"slash in sale id", saleReq("a/b", line("P", 1, 1)), stockledger.KindInvalidArgument},
		{"unknown item type", saleReq("s", stockledger.SaleItemInput{ProductID: "P", Type: "bundle"}), stockledger.KindInvalidArgument},
		{"missing product id", saleReq("s", stockledger.SaleItemInput{Qty: num(1)}), stockledger.KindFailedPrecondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seed(t, &product.Product{ID: "P", StockCount: decimal.NewFromInt(20)})

			_, err := f.engine.CommitSale(f.ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, stockledger.KindOf(err))

			var se *stockledger.Error
			assert.ErrorAs(t, err, &se)
			assertDecEqual(t, 20, f.stock(t, "P"))
		})
	}
}

func TestCommitSaleScope(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "P", StockCount: decimal.NewFromInt(20)})

	other := stockledger.WithScope(f.ctx, stockledger.Scope{StoreID: "store-2", UserID: "u"})
	_, err := f.engine.CommitSale(other, saleReq("s", line("P", 1, 1)))
	assert.Equal(t, stockledger.KindPermissionDenied, stockledger.KindOf(err))

	scoped := stockledger.WithScope(f.ctx, stockledger.Scope{StoreID: storeID, UserID: "user-9", Role: stockledger.RoleStaff})
	req := saleReq("s", line("P", 1, 1))
	req.CashierID = ""
	res, err := f.engine.CommitSale(scoped, req)
	require.NoError(t, err)
	assert.Equal(t, "user-9", res.Sale.CreatedBy)
}

func TestCommitSaleConcurrentSameProduct(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "HOT", StockCount: decimal.NewFromInt(100)})

	const workers = 25
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.CommitSale(f.ctx, saleReq(fmt.Sprintf("s-%d", i), line("HOT", 1, 1)))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assertDecEqual(t, 100-workers, f.stock(t, "HOT"))
	assert.Len(t, f.entries(t, "HOT"), workers)
}

func TestCommitSaleConcurrentSameSaleID(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "P", StockCount: decimal.NewFromInt(100)})

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, dup int
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.CommitSale(f.ctx, saleReq("same", line("P", 2, 1)))
			mu.Lock()
			defer mu.Unlock()
			switch stockledger.KindOf(err) {
			case "":
				ok++
			case stockledger.KindAlreadyExists:
				dup++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, dup)
	assertDecEqual(t, 98, f.stock(t, "P"))
}

// conflictStore always loses the commit race.
type conflictStore struct {
	*memory.Store
	attempts int
}

func (c *conflictStore) Run(ctx context.Context, _ txn.PlanFunc) error {
	return txn.Retry(ctx, txn.Policy{MaxAttempts: 3, BaseDelay: time.Microsecond}, func(context.Context) error {
		c.attempts++
		return txn.ErrConflict
	})
}

func TestCommitSaleRetryExhaustionIsInternal(t *testing.T) {
	cs := &conflictStore{Store: memory.New()}
	engine := stockledger.New(cs)

	_, err := engine.CommitSale(context.Background(), saleReq("s", line("P", 1, 1)))
	require.Error(t, err)
	assert.Equal(t, stockledger.KindInternal, stockledger.KindOf(err))
	assert.ErrorIs(t, err, stockledger.ErrConflict)
	assert.True(t, stockledger.IsRetryable(err))
	assert.Equal(t, 3, cs.attempts)
}

// ──────────────────────────────────────────────────
// ReceiveStock
// ──────────────────────────────────────────────────

func scopedCtx() context.Context {
	return stockledger.WithScope(context.Background(), stockledger.Scope{StoreID: storeID, UserID: "owner-1", Role: stockledger.RoleOwner})
}

func TestReceiveStock(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "P", StockCount: decimal.NewFromInt(-2)})

	res, err := f.engine.ReceiveStock(scopedCtx(), stockledger.ReceiveStockRequest{
		ProductID: "P",
		Qty:       num(10),
		Supplier:  "Acme",
		Reference: "INV-1",
		UnitCost:  stockledger.NumberFromFloat(2.5),
	})
	require.NoError(t, err)

	assert.Regexp(t, "^rcpt_", res.ReceiptID)
	require.NotNil(t, res.Receipt.TotalCost)
	assert.Equal(t, "25.00", res.Receipt.TotalCost.StringFixed(2))
	assertDecEqual(t, 8, res.StockCount)
	assert.Equal(t, "owner-1", res.Receipt.CreatedBy)

	p, err := f.store.GetProduct(f.ctx, storeID, "P")
	require.NoError(t, err)
	assertDecEqual(t, 8, p.StockCount)
	require.NotNil(t, p.LastReceivedAt)
	assertDecEqual(t, 10, *p.LastReceivedQty)
	assert.Equal(t, "25.00", p.LastReceivedCost.StringFixed(2))

	es := f.entries(t, "P")
	require.Len(t, es, 1)
	assert.Equal(t, entry.TypeReceipt, es[0].Type)
	assert.Equal(t, res.ReceiptID, es[0].RefID)
	assertDecEqual(t, 10, es[0].QtyChange)

	rs, err := f.store.ListReceipts(f.ctx, storeID, receipt.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, rs, 1)
}

func TestReceiveStockWithoutUnitCost(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "P"})

	res, err := f.engine.ReceiveStock(scopedCtx(), stockledger.ReceiveStockRequest{
		ProductID: "P", Qty: num(1), Supplier: "s", Reference: "r",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Receipt.UnitCost)
	assert.Nil(t, res.Receipt.TotalCost)
}

func TestReceiveStockNotIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "P"})

	req := stockledger.ReceiveStockRequest{ProductID: "P", Qty: num(3), Supplier: "s", Reference: "same"}
	for range 2 {
		_, err := f.engine.ReceiveStock(scopedCtx(), req)
		require.NoError(t, err)
	}

	assertDecEqual(t, 6, f.stock(t, "P"))
	assert.Len(t, f.entries(t, "P"), 2)
}

func TestReceiveStockReevaluatesAlert(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "P", StockCount: decimal.NewFromInt(1), ReorderLevel: decp(10)})

	res, err := f.engine.ReceiveStock(scopedCtx(), stockledger.ReceiveStockRequest{
		ProductID: "P", Qty: num(4), Supplier: "s", Reference: "r",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Alert, "stock 5 is still at or below 10")
	assert.Equal(t, res.ReceiptID, res.Alert.RefID)

	res, err = f.engine.ReceiveStock(scopedCtx(), stockledger.ReceiveStockRequest{
		ProductID: "P", Qty: num(20), Supplier: "s", Reference: "r2",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Alert)
	assert.Len(t, f.alerts(t), 1)
}

func TestReceiveStockValidation(t *testing.T) {
	base := stockledger.ReceiveStockRequest{ProductID: "P", Qty: num(1), Supplier: "s", Reference: "r"}

	tests := []struct {
		name   string
		ctx    context.Context
		mutate func(r *stockledger.ReceiveStockRequest)
		kind   stockledger.Kind
	}{
		{"zero qty", scopedCtx(), func(r *stockledger.ReceiveStockRequest) { r.Qty = num(0) }, stockledger.KindInvalidArgument},
		{"missing qty", scopedCtx(), func(r *stockledger.ReceiveStockRequest) { r.Qty = stockledger.Number{} }, stockledger.KindInvalidArgument},
		{"negative qty", scopedCtx(), func(r *stockledger.ReceiveStockRequest) { r.Qty = num(-1) }, stockledger.KindInvalidArgument},
		{"blank supplier", scopedCtx(), func(r *stockledger.ReceiveStockRequest) { r.Supplier = "  " }, stockledger.KindInvalidArgument},
		{"blank reference", scopedCtx(), func(r *stockledger.ReceiveStockRequest) { r.Reference = "" }, stockledger.KindInvalidArgument},
		{"negative unit cost", scopedCtx(), func(r *stockledger.ReceiveStockRequest) { r.UnitCost = num(-1) }, stockledger.KindInvalidArgument},
		{"missing product id", scopedCtx(), func(r *stockledger.ReceiveStockRequest) { r.ProductID = "" }, stockledger.KindInvalidArgument},
		{"unknown product", scopedCtx(), func(r *stockledger.ReceiveStockRequest) { r.ProductID = "ghost" }, stockledger.KindFailedPrecondition},
		{"no store", context.Background(), func(*stockledger.ReceiveStockRequest) {}, stockledger.KindInvalidArgument},
		{"foreign store", scopedCtx(), func(r *stockledger.ReceiveStockRequest) { r.StoreID = "store-2" }, stockledger.KindPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seed(t, &product.Product{ID: "P", StockCount: decimal.NewFromInt(5)})

			req := base
			tt.mutate(&req)
			_, err := f.engine.ReceiveStock(tt.ctx, req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, stockledger.KindOf(err))
			assertDecEqual(t, 5, f.stock(t, "P"))
			assert.Empty(t, f.entries(t, "P"))
		})
	}
}

func TestReceiveStockUnscopedUsesPayloadStore(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "P"})

	_, err := f.engine.ReceiveStock(f.ctx, stockledger.ReceiveStockRequest{
		StoreID: storeID, ProductID: "P", Qty: num(2), Supplier: "s", Reference: "r",
	})
	require.NoError(t, err)
	assertDecEqual(t, 2, f.stock(t, "P"))
}

func TestConcurrentSalesAndReceipts(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "P", StockCount: decimal.NewFromInt(50)})

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.engine.CommitSale(f.ctx, saleReq(fmt.Sprintf("s-%d", i), line("P", 3, 1)))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.engine.ReceiveStock(scopedCtx(), stockledger.ReceiveStockRequest{
				ProductID: "P", Qty: num(2), Supplier: "s", Reference: fmt.Sprintf("r-%d", i),
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// 50 - 20*3 + 20*2
	assertDecEqual(t, 30, f.stock(t, "P"))

	sum := decimal.Zero
	for _, e := range f.entries(t, "P") {
		sum = sum.Add(e.QtyChange)
	}
	assertDecEqual(t, -20, sum)
}

// ──────────────────────────────────────────────────
// Read side and plugins
// ──────────────────────────────────────────────────

func TestReadSideScope(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &product.Product{ID: "P"})

	other := stockledger.WithScope(f.ctx, stockledger.Scope{StoreID: "store-2"})
	_, err := f.engine.GetProduct(other, storeID, "P")
	assert.Equal(t, stockledger.KindPermissionDenied, stockledger.KindOf(err))

	_, err = f.engine.GetSale(f.ctx, storeID, "nope")
	assert.True(t, stockledger.IsNotFound(err))
}

type hookRecorder struct {
	mu     sync.Mutex
	sales  []string
	low    []string
	failed []string
}

func (h *hookRecorder) Name() string { return "hooks" }

func (h *hookRecorder) OnSaleCommitted(_ context.Context, s *sale.Sale) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sales = append(h.sales, s.ID)
	return nil
}

func (h *hookRecorder) OnLowStock(_ context.Context, a *alert.Alert) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.low = append(h.low, a.ProductID)
	return nil
}

func (h *hookRecorder) OnCommitFailed(_ context.Context, op string, err error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failed = append(h.failed, op+":"+string(stockledger.KindOf(err)))
	return errors.New("hook errors never reach the caller")
}

func TestPluginHooks(t *testing.T) {
	rec := &hookRecorder{}
	f := newFixture(t, stockledger.WithPlugin(rec))
	f.seed(t, &product.Product{ID: "P", StockCount: decimal.NewFromInt(3), ReorderLevel: decp(2)})

	_, err := f.engine.CommitSale(f.ctx, saleReq("s-1", line("P", 1, 1)))
	require.NoError(t, err)
	_, err = f.engine.CommitSale(f.ctx, saleReq("s-1", line("P", 1, 1)))
	require.Error(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"s-1"}, rec.sales)
	assert.Equal(t, []string{"P"}, rec.low)
	assert.Equal(t, []string{"commit_sale:already-exists"}, rec.failed)
}
