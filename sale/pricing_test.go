package sale_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/xraph/stockledger/sale"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func assertDec(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "%s: got %s, want %s", field, got, want)
}

func TestPriceSingleLine(t *testing.T) {
	_, totals := sale.Price([]sale.Line{{ProductID: "p", Qty: d("16"), Price: d("10")}}, sale.Adjustments{})

	assertDec(t, "160", totals.Subtotal, "subtotal")
	assertDec(t, "0", totals.DiscountTotal, "discountTotal")
	assertDec(t, "160", totals.Total, "total")
	assert.Equal(t, "160.00", totals.Total.StringFixed(2))
}

func TestPriceDiscounts(t *testing.T) {
	tests := []struct {
		name          string
		lines         []sale.Line
		adj           sale.Adjustments
		subtotal      string
		itemDiscounts string
		saleDiscount  string
		total         string
	}{
		{
			name:          "amount beats percent",
			lines:         []sale.Line{{Qty: d("2"), Price: d("50"), DiscountAmount: dp("15"), DiscountPercent: dp("10")}},
			subtotal:      "100",
			itemDiscounts: "15",
			saleDiscount:  "0",
			total:         "85",
		},
		{
			name:          "percent beats amount",
			lines:         []sale.Line{{Qty: d("2"), Price: d("50"), DiscountAmount: dp("5"), DiscountPercent: dp("20")}},
			subtotal:      "100",
			itemDiscounts: "20",
			saleDiscount:  "0",
			total:         "80",
		},
		{
			name:          "line discount capped at line subtotal",
			lines:         []sale.Line{{Qty: d("1"), Price: d("30"), DiscountAmount: dp("45")}},
			subtotal:      "30",
			itemDiscounts: "30",
			saleDiscount:  "0",
			total:         "0",
		},
		{
			name: "sale discount on discounted subtotal",
			lines: []sale.Line{
				{Qty: d("1"), Price: d("60"), DiscountAmount: dp("10")},
				{Qty: d("1"), Price: d("50")},
			},
			adj:           sale.Adjustments{DiscountPercent: d("10")},
			subtotal:      "110",
			itemDiscounts: "10",
			saleDiscount:  "10",
			total:         "90",
		},
		{
			name:          "sale discount capped",
			lines:         []sale.Line{{Qty: d("1"), Price: d("20")}},
			adj:           sale.Adjustments{DiscountAmount: d("50")},
			subtotal:      "20",
			itemDiscounts: "0",
			saleDiscount:  "20",
			total:         "0",
		},
		{
			name:          "negative discount ignored",
			lines:         []sale.Line{{Qty: d("1"), Price: d("20"), DiscountAmount: dp("-5")}},
			subtotal:      "20",
			itemDiscounts: "0",
			saleDiscount:  "0",
			total:         "20",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, totals := sale.Price(tt.lines, tt.adj)
			assertDec(t, tt.subtotal, totals.Subtotal, "subtotal")
			assertDec(t, tt.itemDiscounts, totals.ItemDiscountTotal, "itemDiscountTotal")
			assertDec(t, tt.saleDiscount, totals.SaleDiscount, "saleDiscount")
			assertDec(t, tt.total, totals.Total, "total")
		})
	}
}

func TestPriceExplicitTotalWins(t *testing.T) {
	lines := []sale.Line{{Qty: d("3"), Price: d("10")}}

	_, totals := sale.Price(lines, sale.Adjustments{Total: dp("25.5")})
	assertDec(t, "25.5", totals.Total, "total")
	assertDec(t, "30", totals.Subtotal, "subtotal")

	_, totals = sale.Price(lines, sale.Adjustments{Total: dp("-4")})
	assertDec(t, "0", totals.Total, "clamped total")
}

func TestPriceTax(t *testing.T) {
	lines := []sale.Line{
		{Qty: d("2"), Price: d("10"), TaxRate: d("0.15")},
		{Qty: d("1"), Price: d("5"), TaxRate: d("0")},
	}

	_, totals := sale.Price(lines, sale.Adjustments{})
	assertDec(t, "3", totals.TaxTotal, "recomputed tax")
	assertDec(t, "25", totals.Total, "tax is not added to total")

	_, totals = sale.Price(lines, sale.Adjustments{TaxTotal: dp("4.444")})
	assertDec(t, "4.44", totals.TaxTotal, "passed-through tax")
}

func TestPriceRounding(t *testing.T) {
	_, totals := sale.Price([]sale.Line{{Qty: d("3"), Price: d("0.335")}}, sale.Adjustments{})
	assertDec(t, "1.01", totals.Subtotal, "subtotal")
	assertDec(t, "1.01", totals.Total, "total")
}

func TestPriceFillsLinesWithoutMutatingInput(t *testing.T) {
	lines := []sale.Line{{ProductID: "p", Qty: d("2"), Price: d("7"), DiscountPercent: dp("50")}}

	priced, _ := sale.Price(lines, sale.Adjustments{})

	assertDec(t, "14", priced[0].LineSubtotal, "lineSubtotal")
	assertDec(t, "7", priced[0].LineDiscount, "lineDiscount")
	assertDec(t, "7", priced[0].LineTotal, "lineTotal")
	assert.True(t, lines[0].LineSubtotal.IsZero(), "input slice must not be modified")
}

func TestItemTypeTracked(t *testing.T) {
	tests := []struct {
		in      string
		tracked bool
		wantErr bool
	}{
		{"", true, false},
		{"product", true, false},
		{"service", false, false},
		{"made_to_order", false, false},
		{"bundle", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			typ, err := sale.ParseItemType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.tracked, typ.Tracked())
		})
	}
}

func TestSaleItemsAndProductIDs(t *testing.T) {
	s := &sale.Sale{
		ID:      "s1",
		StoreID: "st",
		Lines: []sale.Line{
			{ProductID: "a", Qty: d("1"), LineDiscount: d("2")},
			{ProductID: "b", Qty: d("1")},
			{ProductID: "a", Qty: d("3")},
		},
	}

	assert.Equal(t, []string{"a", "b"}, s.ProductIDs())

	items := s.Items()
	assert.Len(t, items, 3)
	assert.Equal(t, "s1", items[2].SaleID)
	assert.Equal(t, 2, items[2].Position)
	assertDec(t, "2", items[0].DiscountAmount, "applied discount")
	assert.NotEqual(t, items[0].ID.String(), items[1].ID.String())
}
