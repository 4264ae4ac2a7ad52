package sale

import (
	"github.com/shopspring/decimal"

	"github.com/xraph/stockledger/types"
)

// Adjustments are the caller-supplied sale-level overrides.
type Adjustments struct {
	// Total, when set, replaces the computed net total (clamped to >= 0).
	Total           *decimal.Decimal
	DiscountAmount  decimal.Decimal
	DiscountPercent decimal.Decimal
	// TaxTotal, when set, is used instead of the per-line tax sum.
	TaxTotal *decimal.Decimal
}

// Totals are the computed sale amounts, each rounded to two decimals.
type Totals struct {
	Subtotal          decimal.Decimal
	ItemDiscountTotal decimal.Decimal
	SaleDiscount      decimal.Decimal
	DiscountTotal     decimal.Decimal
	TaxTotal          decimal.Decimal
	Total             decimal.Decimal
}

// Price computes per-line amounts and sale totals. It returns a priced copy
// of lines and never touches the input slice.
func Price(lines []Line, adj Adjustments) ([]Line, Totals) {
	priced := make([]Line, len(lines))

	subtotal := decimal.Zero
	itemDiscounts := decimal.Zero
	tax := decimal.Zero

	for i, l := range lines {
		lineSub := l.Price.Mul(l.Qty)
		disc := discount(lineSub, deref(l.DiscountAmount), deref(l.DiscountPercent))

		l.LineSubtotal = types.Round2(lineSub)
		l.LineDiscount = types.Round2(disc)
		l.LineTotal = types.Round2(lineSub.Sub(disc))
		priced[i] = l

		subtotal = subtotal.Add(lineSub)
		itemDiscounts = itemDiscounts.Add(disc)
		tax = tax.Add(l.TaxRate.Mul(lineSub))
	}

	afterItems := subtotal.Sub(itemDiscounts)
	saleDisc := discount(afterItems, adj.DiscountAmount, adj.DiscountPercent)
	net := afterItems.Sub(saleDisc)

	if adj.Total != nil {
		net = types.Clamp0(*adj.Total)
	}
	if adj.TaxTotal != nil {
		tax = *adj.TaxTotal
	}

	return priced, Totals{
		Subtotal:          types.Round2(subtotal),
		ItemDiscountTotal: types.Round2(itemDiscounts),
		SaleDiscount:      types.Round2(saleDisc),
		DiscountTotal:     types.Round2(itemDiscounts.Add(saleDisc)),
		TaxTotal:          types.Round2(tax),
		Total:             types.Round2(net),
	}
}

// discount is min(base, max(amount, base*percent/100)), never negative.
func discount(base, amount, percent decimal.Decimal) decimal.Decimal {
	d := decimal.Max(amount, base.Mul(percent).Div(types.Hundred))
	d = decimal.Min(base, d)
	return types.Clamp0(d)
}

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
