package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Size is a non-negative fixed-point contract count, rounded to 2 fractional
// digits with banker's rounding.
type Size struct {
	d decimal.Decimal
}

func NewSize(s string) Size {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Size{}
	}
	return Size{d: d.RoundBank(sizeScale)}
}

func SizeFromFloat(f float64) (s Size, ok bool) {
	if f != f || f < 0 {
		return Size{}, false
	}
	return Size{d: decimal.NewFromFloat(f).RoundBank(sizeScale)}, true
}

func SizeFromInt(n int64) Size {
	return Size{d: decimal.NewFromInt(n)}
}

func SizeFromDecimal(d decimal.Decimal) Size {
	return Size{d: d.RoundBank(sizeScale)}
}

func (s Size) Decimal() decimal.Decimal { return s.d }

func (s Size) Add(o Size) Size { return Size{d: s.d.Add(o.d).RoundBank(sizeScale)} }
func (s Size) Sub(o Size) Size {
	r := s.d.Sub(o.d)
	if r.IsNegative() {
		r = decimal.Zero
	}
	return Size{d: r.RoundBank(sizeScale)}
}

func (s Size) Cmp(o Size) int        { return s.d.Cmp(o.d) }
func (s Size) LessThan(o Size) bool  { return s.d.LessThan(o.d) }
func (s Size) Min(o Size) Size {
	if s.d.LessThan(o.d) {
		return s
	}
	return o
}

func (s Size) IsZero() bool { return s.d.IsZero() }

// Floor truncates the size down to a whole contract count. The sizer only
// ever trades integer contract quantities.
func (s Size) Floor() int64 {
	return s.d.IntPart()
}

func (s Size) String() string { return s.d.StringFixed(sizeScale) }

func (s Size) Float64() float64 {
	f, _ := s.d.Float64()
	return f
}

func (s Size) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", s.String())), nil
}

func (s *Size) UnmarshalJSON(b []byte) error {
	str := string(b)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}
	d, err := decimal.NewFromString(str)
	if err != nil {
		return err
	}
	s.d = d.RoundBank(sizeScale)
	return nil
}
