// Package types provides common types used across stockledger.
package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotNumeric is returned when a value cannot be coerced to a number.
var ErrNotNumeric = errors.New("types: value is not numeric")

// Bounds on accepted input. Values outside them are rejected rather than
// expanded by later rounding.
const (
	MaxExponent = 18
	MaxDigits   = 38

	maxInputLen = 64
)

// Hundred is the percent divisor.
var Hundred = decimal.NewFromInt(100)

// Number is a lenient numeric input. It decodes from a JSON number, a
// numeric string, or null. Null and the empty string leave Valid unset so
// callers can apply their own default.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receiver for UnmarshalJSON.
type Number struct {
	Decimal decimal.Decimal
	Valid   bool
}

// NewNumber returns a valid Number holding d.
func NewNumber(d decimal.Decimal) Number {
	return Number{Decimal: d, Valid: true}
}

// NumberFromInt returns a valid Number holding i.
func NumberFromInt(i int64) Number {
	return NewNumber(decimal.NewFromInt(i))
}

// NumberFromFloat returns a valid Number holding f.
func NumberFromFloat(f float64) Number {
	return NewNumber(decimal.NewFromFloat(f))
}

// ParseNumber coerces s to a Number. Surrounding whitespace is ignored and
// an empty string yields an unset Number.
func ParseNumber(s string) (Number, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{}, nil
	}

	d, err := parseBounded(s)
	if err != nil {
		return Number{}, fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}

	return NewNumber(d), nil
}

// parseBounded parses s and rejects values whose exponent or significant
// digit count falls outside MaxExponent and MaxDigits.
func parseBounded(s string) (decimal.Decimal, error) {
	if len(s) > maxInputLen {
		return decimal.Decimal{}, errors.New("too long")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if exp := d.Exponent(); exp > MaxExponent || exp < -MaxExponent {
		return decimal.Decimal{}, fmt.Errorf("exponent %d out of range", exp)
	}
	if n := len(strings.TrimPrefix(d.Coefficient().String(), "-")); n > MaxDigits {
		return decimal.Decimal{}, fmt.Errorf("%d significant digits", n)
	}
	return d, nil
}

// Or returns the held value, or def when the Number is unset.
func (n Number) Or(def decimal.Decimal) decimal.Decimal {
	if !n.Valid {
		return def
	}
	return n.Decimal
}

// OrZero returns the held value, or zero when the Number is unset.
func (n Number) OrZero() decimal.Decimal {
	return n.Or(decimal.Zero)
}

// Ptr returns a pointer to the held value, or nil when the Number is unset.
func (n Number) Ptr() *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

// MarshalJSON implements json.Marshaler. Unset numbers encode as null.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return n.Decimal.MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = Number{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %s", ErrNotNumeric, data)
		}
		parsed, err := ParseNumber(s)
		if err != nil {
			return err
		}
		*n = parsed
		return nil
	}

	if data[0] != '-' && (data[0] < '0' || data[0] > '9') {
		return fmt.Errorf("%w: %s", ErrNotNumeric, data)
	}

	d, err := parseBounded(string(data))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotNumeric, data)
	}
	*n = NewNumber(d)
	return nil
}

// Round2 rounds d half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Round2Ptr rounds *d to two decimal places, passing nil through.
func Round2Ptr(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	r := Round2(*d)
	return &r
}

// Clamp0 returns d, or zero when d is negative.
func Clamp0(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// DecimalPtr returns a pointer to d.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
