package types

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNumberUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
		want  string
	}{
		{"integer", `12`, true, "12"},
		{"fraction", `2.5`, true, "2.5"},
		{"negative", `-3`, true, "-3"},
		{"exponent", `1e2`, true, "100"},
		{"numeric string", `"7.25"`, true, "7.25"},
		{"padded string", `"  4 "`, true, "4"},
		{"null", `null`, false, ""},
		{"empty string", `""`, false, ""},
		{"small fraction", `0.000000000000000001`, true, "0.000000000000000001"},
		{"wide integer", `12345678901234567890123456789012345678`, true, "12345678901234567890123456789012345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Number
			if err := json.Unmarshal([]byte(tt.input), &n); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.input, err)
			}
			if n.Valid != tt.valid {
				t.Fatalf("Valid: got %v, want %v", n.Valid, tt.valid)
			}
			if tt.valid && !n.Decimal.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("value: got %s, want %s", n.Decimal, tt.want)
			}
		})
	}
}

func TestNumberUnmarshalRejectsNonNumeric(t *testing.T) {
	for _, input := range []string{`"abc"`, `true`, `{}`, `[1]`, `"NaN"`} {
		t.Run(input, func(t *testing.T) {
			var n Number
			err := json.Unmarshal([]byte(input), &n)
			if err == nil {
				t.Fatalf("expected error for %s", input)
			}
			if !errors.Is(err, ErrNotNumeric) {
				t.Errorf("expected ErrNotNumeric, got %v", err)
			}
		})
	}
}

func TestNumberRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"huge exponent", `1e400000000`},
		{"huge exponent string", `"1e400000000"`},
		{"tiny exponent", `1e-400000000`},
		{"exponent past bound", `1e19`},
		{"fraction past bound", `"0.0000000000000000001"`},
		{"too many digits", `123456789012345678901234567890123456789`},
		{"long input", `"` + strings.Repeat("9", 80) + `"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Number
			err := json.Unmarshal([]byte(tt.input), &n)
			if !errors.Is(err, ErrNotNumeric) {
				t.Fatalf("expected ErrNotNumeric for %s, got %v", tt.input, err)
			}
		})
	}

	if _, err := ParseNumber("1e400000000"); !errors.Is(err, ErrNotNumeric) {
		t.Errorf("ParseNumber: expected ErrNotNumeric, got %v", err)
	}
	if n, err := ParseNumber("1e18"); err != nil || !n.Valid {
		t.Errorf("ParseNumber(1e18): got %v, %v", n, err)
	}
}

func TestNumberInStruct(t *testing.T) {
	var payload struct {
		Qty   Number `json:"qty"`
		Price Number `json:"price"`
	}
	if err := json.Unmarshal([]byte(`{"qty":"3"}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !payload.Qty.Valid || !payload.Qty.Decimal.Equal(decimal.NewFromInt(3)) {
		t.Errorf("qty: got %+v", payload.Qty)
	}
	if payload.Price.Valid {
		t.Error("absent field should be unset")
	}
	if !payload.Price.OrZero().IsZero() {
		t.Error("OrZero should yield zero for an unset number")
	}
}

func TestNumberMarshalJSON(t *testing.T) {
	data, err := json.Marshal(NumberFromFloat(2.5))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2.5"` {
		t.Errorf("got %s", data)
	}

	data, err = json.Marshal(Number{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "null" {
		t.Errorf("got %s, want null", data)
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"25", "25"},
		{"24.999999", "25"},
		{"1.005", "1.01"},
		{"-1.005", "-1.01"},
		{"3.14159", "3.14"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Round2(decimal.RequireFromString(tt.in))
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Round2(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestRound2Exact(t *testing.T) {
	total := Round2(decimal.NewFromFloat(2.5).Mul(decimal.NewFromInt(10)))
	if total.StringFixed(2) != "25.00" {
		t.Errorf("got %s, want 25.00", total.StringFixed(2))
	}
}

func TestClamp0(t *testing.T) {
	if !Clamp0(decimal.NewFromInt(-4)).IsZero() {
		t.Error("negative should clamp to zero")
	}
	if !Clamp0(decimal.NewFromInt(4)).Equal(decimal.NewFromInt(4)) {
		t.Error("positive should pass through")
	}
	if Round2Ptr(nil) != nil {
		t.Error("Round2Ptr(nil) should be nil")
	}
}
