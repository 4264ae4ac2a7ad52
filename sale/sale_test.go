package sale_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/xraph/stockledger/sale"
)

func TestCloneIsDeep(t *testing.T) {
	pct := d("10")
	orig := &sale.Sale{
		ID:    "s-1",
		Lines: []sale.Line{{ProductID: "p", Qty: d("1"), DiscountPercent: &pct}},
		Total: d("5"),
		Payment: map[string]any{
			"method": "card",
			"tags":   []any{"a", map[string]any{"k": "v"}},
		},
		Customer: map[string]any{"name": "Ada"},
	}

	c := orig.Clone()
	c.Total = d("1")
	c.Lines[0].ProductID = "q"
	*c.Lines[0].DiscountPercent = d("50")
	c.Payment["method"] = "cash"
	c.Payment["tags"].([]any)[1].(map[string]any)["k"] = "changed"
	c.Customer["name"] = "Bob"

	assert.True(t, orig.Total.Equal(d("5")))
	assert.Equal(t, "p", orig.Lines[0].ProductID)
	assert.True(t, orig.Lines[0].DiscountPercent.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "card", orig.Payment["method"])
	assert.Equal(t, "v", orig.Payment["tags"].([]any)[1].(map[string]any)["k"])
	assert.Equal(t, "Ada", orig.Customer["name"])
}

func TestCloneNil(t *testing.T) {
	var s *sale.Sale
	assert.Nil(t, s.Clone())

	empty := (&sale.Sale{ID: "s"}).Clone()
	assert.Nil(t, empty.Lines)
	assert.Nil(t, empty.Payment)
}
