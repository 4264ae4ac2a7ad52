package stockledger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/entry"
	"github.com/xraph/stockledger/product"
	"github.com/xraph/stockledger/store/memory"
)

// TestDocumentationExamples walks through the usage shown in the package
// documentation.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		engine := stockledger.New(store, stockledger.WithLogger(slog.Default()))

		ctx := context.Background()
		if err := engine.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer engine.Stop(ctx)

		level := decimal.NewFromInt(5)
		if err := store.SaveProduct(ctx, &product.Product{
			ID:           "P",
			StoreID:      "store-1",
			Name:         "Widget",
			Price:        decimal.NewFromInt(10),
			StockCount:   decimal.NewFromInt(20),
			ReorderLevel: &level,
		}); err != nil {
			t.Fatal(err)
		}

		res, err := engine.CommitSale(ctx, stockledger.CommitSaleRequest{
			StoreID:   "store-1",
			CashierID: "cashier-1",
			Items: []stockledger.SaleItemInput{
				{ProductID: "P", Qty: stockledger.NumberFromInt(16), Price: stockledger.NumberFromInt(10)},
			},
		})
		if err != nil {
			t.Fatal(err)
		}

		if got := res.Sale.Total.StringFixed(2); got != "160.00" {
			t.Errorf("total: got %s, want 160.00", got)
		}

		p, err := engine.GetProduct(ctx, "store-1", "P")
		if err != nil {
			t.Fatal(err)
		}
		if !p.StockCount.Equal(decimal.NewFromInt(4)) {
			t.Errorf("stock: got %s, want 4", p.StockCount)
		}

		entries, err := engine.ListEntries(ctx, "store-1", "P", entry.ListOpts{})
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || !entries[0].QtyChange.Equal(decimal.NewFromInt(-16)) {
			t.Errorf("expected one -16 ledger entry, got %+v", entries)
		}

		if len(res.Alerts) != 1 || res.Alerts[0].ProductID != "P" {
			t.Errorf("expected one low-stock alert for P, got %+v", res.Alerts)
		}
	})

	t.Run("ErrorKinds", func(t *testing.T) {
		engine := stockledger.New(memory.New())

		_, err := engine.CommitSale(context.Background(), stockledger.CommitSaleRequest{})
		if stockledger.KindOf(err) != stockledger.KindInvalidArgument {
			t.Errorf("expected invalid-argument, got %v", err)
		}
	})
}
