// Package money provides the fixed-point decimal types used everywhere on
// the pricing path. No float64 is allowed past the reducer boundary: venues
// that quote in integer cents are converted once, here, and everything
// downstream (the detector, the sizer, the executor) works exclusively in
// Price and Size.
package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// priceScale is the number of fractional digits a Price rounds to.
const priceScale = 4

// sizeScale is the number of fractional digits a Size rounds to.
const sizeScale = 2

// intermediateScale is used for products of a Price and a Size, or of two
// Prices, before they are rounded down to their field's declared scale.
const intermediateScale = 6

// Price is a non-negative fixed-point probability (or probability-like fee
// rate), rounded to 4 fractional digits with banker's rounding.
type Price struct {
	d decimal.Decimal
}

// NewPrice builds a Price from a decimal string, e.g. "0.4500". An invalid
// string yields a zero Price; callers that need conversion diagnostics
// should call decimal.NewFromString themselves and wrap the result.
func NewPrice(s string) Price {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}
	}
	return Price{d: d.RoundBank(priceScale)}
}

// PriceFromFloat converts a float64 (as arrives from venue JSON payloads) to
// a Price. A conversion failure (NaN, negative) yields zero rather than
// propagating a silent NaN; callers are expected to log the failure using
// the returned ok flag.
func PriceFromFloat(f float64) (p Price, ok bool) {
	if f != f || f < 0 { // NaN check and negative-price rejection
		return Price{}, false
	}
	d := decimal.NewFromFloat(f)
	return Price{d: d.RoundBank(priceScale)}, true
}

// PriceFromCents converts a venue-native integer-cents price (0-100) to a
// unit Price by dividing by 100 exactly, the conversion the top-of-book
// reducer needs for venues that quote cents instead of decimal probability.
func PriceFromCents(cents int64) Price {
	d := decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
	return Price{d: d.RoundBank(priceScale)}
}

// PriceFromDecimal wraps an already-computed decimal.Decimal, rounding it to
// the declared price scale.
func PriceFromDecimal(d decimal.Decimal) Price {
	return Price{d: d.RoundBank(priceScale)}
}

func (p Price) Decimal() decimal.Decimal { return p.d }

func (p Price) Add(o Price) Price { return Price{d: p.d.Add(o.d).RoundBank(priceScale)} }
func (p Price) Sub(o Price) Price { return Price{d: p.d.Sub(o.d).RoundBank(priceScale)} }

// Mul multiplies two prices (e.g. price * fee_rate), rounding the product to
// the intermediate scale before the caller rounds again to its own field.
func (p Price) Mul(o Price) decimal.Decimal {
	return p.d.Mul(o.d).RoundBank(intermediateScale)
}

func (p Price) Cmp(o Price) int   { return p.d.Cmp(o.d) }
func (p Price) LessThan(o Price) bool    { return p.d.LessThan(o.d) }
func (p Price) GreaterThan(o Price) bool { return p.d.GreaterThan(o.d) }
func (p Price) Equal(o Price) bool       { return p.d.Equal(o.d) }
func (p Price) IsZero() bool             { return p.d.IsZero() }
func (p Price) IsNegative() bool         { return p.d.IsNegative() }

func (p Price) String() string { return p.d.StringFixed(priceScale) }

func (p Price) Float64() float64 {
	f, _ := p.d.Float64()
	return f
}

func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", p.String())), nil
}

func (p *Price) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	p.d = d.RoundBank(priceScale)
	return nil
}

// Value implements driver.Valuer so a Price can be written directly by
// database/sql.
func (p Price) Value() (driver.Value, error) {
	return p.d.StringFixed(priceScale), nil
}

// Scan implements sql.Scanner so a Price can be read directly out of a
// NUMERIC column.
func (p *Price) Scan(value interface{}) error {
	if value == nil {
		p.d = decimal.Zero
		return nil
	}
	switch v := value.(type) {
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return err
		}
		p.d = d.RoundBank(priceScale)
		return nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		p.d = d.RoundBank(priceScale)
		return nil
	case float64:
		p.d = decimal.NewFromFloat(v).RoundBank(priceScale)
		return nil
	default:
		return fmt.Errorf("money: unsupported Price scan type %T", value)
	}
}
