package money

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money represents a monetary value in the currency's major unit.
type Money = int64

// Coerce converts loosely typed numeric input into a decimal. Anything that is
// not a finite number (nil, malformed strings, NaN, booleans) becomes zero.
func Coerce(v any) decimal.Decimal {
	switch n := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return n
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero
		}
		return *n
	case int:
		return decimal.NewFromInt(int64(n))
	case int32:
		return decimal.NewFromInt32(n)
	case int64:
		return decimal.NewFromInt(n)
	case float32:
		return fromFloat(float64(n))
	case float64:
		return fromFloat(n)
	case *float64:
		if n == nil {
			return decimal.Zero
		}
		return fromFloat(*n)
	case *int64:
		if n == nil {
			return decimal.Zero
		}
		return decimal.NewFromInt(*n)
	case json.Number:
		return fromString(n.String())
	case string:
		return fromString(n)
	default:
		return decimal.Zero
	}
}

// CoerceFloat is Coerce for callers that work with float64 fields.
func CoerceFloat(v any) float64 {
	f, _ := Coerce(v).Float64()
	return f
}

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func fromString(s string) decimal.Decimal {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

// NonNegative returns v or zero when v is negative.
func NonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// Round rounds half away from zero to an integer amount and floors the
// result at zero.
func Round(v decimal.Decimal) Money {
	return NonNegative(v).Round(0).IntPart()
}

// Floor truncates toward negative infinity and floors the result at zero.
func Floor(v decimal.Decimal) Money {
	return NonNegative(v).Floor().IntPart()
}

// ClampMoney bounds an integer amount to [0, max].
func ClampMoney(v, max Money) Money {
	if max < 0 {
		max = 0
	}
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// Formatter renders amounts for a locale and currency.
type Formatter struct {
	printer *message.Printer
	unit    currency.Unit
}

// NewFormatter builds a formatter. An unknown currency code falls back to IDR.
func NewFormatter(tag language.Tag, code string) Formatter {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		unit = currency.IDR
	}
	return Formatter{printer: message.NewPrinter(tag), unit: unit}
}

// Format renders the amount as "<ISO code> <grouped digits>", e.g. "IDR 1,200,000".
func (f Formatter) Format(amount Money) string {
	p := f.printer
	if p == nil {
		p = message.NewPrinter(language.English)
	}
	return f.unit.String() + " " + p.Sprintf("%d", amount)
}

// Placeholder is rendered for amounts that cannot be computed.
const Placeholder = "—"

// FormatOptional renders nil as Placeholder.
func (f Formatter) FormatOptional(amount *Money) string {
	if amount == nil {
		return Placeholder
	}
	return f.Format(*amount)
}
