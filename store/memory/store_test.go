package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/entry"
	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/sale"
	"github.com/xraph/stockledger/txn"
	"github.com/xraph/stockledger/types"
)

var testPolicy = txn.Policy{MaxAttempts: 5, BaseDelay: time.Microsecond, MaxDelay: time.Microsecond}

func seed(t *testing.T, s *Store, id string, stock int64) {
	t.Helper()
	require.NoError(t, s.SaveProduct(context.Background(), &product.Product{
		ID: id, StoreID: "st", StockCount: decimal.NewFromInt(stock),
	}))
}

func decrementPlan(calls *int) txn.PlanFunc {
	return func(ctx context.Context, r txn.Reader) (*txn.WriteSet, error) {
		*calls++
		p, err := r.LookupProduct(ctx, "st", "p")
		if err != nil {
			return nil, err
		}
		p.StockCount = p.StockCount.Sub(decimal.NewFromInt(1))
		ws := txn.NewWriteSet()
		ws.UpdateProduct(p)
		ws.AppendEntry(entry.ForSale("st", "p", "s", decimal.NewFromInt(1), time.Now()))
		return ws, nil
	}
}

func TestRunReplansAfterConcurrentWrite(t *testing.T) {
	s := New(WithRetryPolicy(testPolicy))
	seed(t, s, "p", 10)

	injected := false
	s.beforeCommit = func() {
		if injected {
			return
		}
		injected = true
		// Another writer lands between plan and commit.
		seed(t, s, "p", 100)
	}

	calls := 0
	require.NoError(t, s.Run(context.Background(), decrementPlan(&calls)))

	assert.Equal(t, 2, calls, "plan must re-run against fresh data")
	p, err := s.GetProduct(context.Background(), "st", "p")
	require.NoError(t, err)
	assert.True(t, p.StockCount.Equal(decimal.NewFromInt(99)), "got %s", p.StockCount)

	es, err := s.ListEntries(context.Background(), "st", "p", entry.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, es, 1, "the losing attempt must not leave writes behind")
}

func TestRunExhaustsBudget(t *testing.T) {
	s := New(WithRetryPolicy(testPolicy))
	seed(t, s, "p", 10)
	s.beforeCommit = func() { seed(t, s, "p", 10) }

	calls := 0
	err := s.Run(context.Background(), decrementPlan(&calls))
	require.Error(t, err)
	assert.ErrorIs(t, err, txn.ErrConflict)
	assert.Equal(t, 5, calls)
}

func TestRunSaleInsertConflict(t *testing.T) {
	s := New(WithRetryPolicy(testPolicy))

	plan := func(ctx context.Context, r txn.Reader) (*txn.WriteSet, error) {
		existing, err := r.LookupSale(ctx, "st", "s1")
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, stockledger.ErrSaleExists
		}
		ws := txn.NewWriteSet()
		ws.PutSale(&sale.Sale{ID: "s1", StoreID: "st"}, nil)
		return ws, nil
	}

	s.beforeCommit = func() {
		s.beforeCommit = nil
		s.mu.Lock()
		s.sales[key{"st", "s1"}] = &sale.Sale{ID: "s1", StoreID: "st"}
		s.mu.Unlock()
	}

	err := s.Run(context.Background(), plan)
	assert.ErrorIs(t, err, stockledger.ErrSaleExists)
}

func TestPlanErrorWritesNothing(t *testing.T) {
	s := New()
	seed(t, s, "p", 10)

	err := s.Run(context.Background(), func(context.Context, txn.Reader) (*txn.WriteSet, error) {
		return nil, stockledger.ErrProductNotFound
	})
	assert.ErrorIs(t, err, stockledger.ErrProductNotFound)
	assert.Empty(t, s.entries)
}

func TestTenantIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.SaveProduct(ctx, &product.Product{ID: "p", StoreID: "a"}))

	_, err := s.GetProduct(ctx, "b", "p")
	assert.ErrorIs(t, err, stockledger.ErrProductNotFound)

	s.entries = append(s.entries,
		&entry.Entry{StoreID: "a", ProductID: "p"},
		&entry.Entry{StoreID: "b", ProductID: "p"},
	)
	es, err := s.ListEntries(ctx, "a", "p", entry.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, es, 1)
}

func TestListEntriesNewestFirstWithLimit(t *testing.T) {
	s := New()
	for _, ref := range []string{"1", "2", "3"} {
		s.entries = append(s.entries, &entry.Entry{StoreID: "st", ProductID: "p", RefID: ref})
	}

	es, err := s.ListEntries(context.Background(), "st", "p", entry.ListOpts{Limit: 2})
	require.NoError(t, err)
	require.Len(t, es, 2)
	assert.Equal(t, "3", es[0].RefID)
	assert.Equal(t, "2", es[1].RefID)
}

func TestSaveProductBumpsVersion(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := &product.Product{ID: "p", StoreID: "st"}
	require.NoError(t, s.SaveProduct(ctx, p))
	require.NoError(t, s.SaveProduct(ctx, p))
	assert.Equal(t, int64(2), p.Version)

	err := s.SaveProduct(ctx, &product.Product{ID: "p"})
	assert.ErrorIs(t, err, stockledger.ErrInvalidInput)
}

func TestClose(t *testing.T) {
	s := New()
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Ping(context.Background()), stockledger.ErrStoreClosed)
}

func TestCommittedSaleIsNotAliased(t *testing.T) {
	ctx := context.Background()
	s := New(WithRetryPolicy(testPolicy))
	seed(t, s, "p", 10)
	engine := stockledger.New(s)

	res, err := engine.CommitSale(ctx, stockledger.CommitSaleRequest{
		StoreID:   "st",
		SaleID:    "s-1",
		CashierID: "c",
		Items: []stockledger.SaleItemInput{{
			ProductID:      "p",
			Qty:            types.NumberFromInt(2),
			Price:          types.NumberFromInt(5),
			DiscountAmount: types.NumberFromInt(1),
		}},
		Payment: map[string]any{"method": "card", "split": map[string]any{"card": 9}},
	})
	require.NoError(t, err)

	res.Sale.Total = decimal.NewFromInt(999)
	res.Sale.Lines[0].ProductID = "other"
	*res.Sale.Lines[0].DiscountAmount = decimal.NewFromInt(7)
	res.Sale.Payment["method"] = "cash"
	res.Sale.Payment["split"].(map[string]any)["card"] = 0

	stored, err := s.GetSale(ctx, "st", "s-1")
	require.NoError(t, err)
	assert.Equal(t, "9.00", stored.Total.StringFixed(2))
	assert.Equal(t, "p", stored.Lines[0].ProductID)
	assert.True(t, stored.Lines[0].DiscountAmount.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "card", stored.Payment["method"])
	assert.Equal(t, 9, stored.Payment["split"].(map[string]any)["card"])

	stored.Total = decimal.Zero
	again, err := s.GetSale(ctx, "st", "s-1")
	require.NoError(t, err)
	assert.Equal(t, "9.00", again.Total.StringFixed(2), "GetSale returns a copy")
}
