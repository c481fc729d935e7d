package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/langganan-pricing/internal/money"
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// Annualize converts a monthly or yearly base price into a per-year amount.
// Fractions are dropped before scaling; negative input yields zero.
func Annualize(basePriceAmount float64, mode BaseMode) Money {
	base := money.Floor(money.Coerce(basePriceAmount))
	if mode == BaseModeMonthly {
		return base * 12
	}
	return base
}

// ClampPercent bounds a discount percentage to [0,100].
func ClampPercent(p float64) float64 {
	f, _ := clampPercent(p).Float64()
	return f
}

func clampPercent(p float64) decimal.Decimal {
	return money.Clamp(money.Coerce(p), decimal.Zero, hundred)
}

// AutoPricePerYear applies the discount to the annual base and rounds.
func AutoPricePerYear(annualBase Money, discountPercent float64) Money {
	factor := decimal.NewFromInt(1).Sub(clampPercent(discountPercent).Div(hundred))
	return money.Round(decimal.NewFromInt(annualBase).Mul(factor))
}

// ManualOverride pins the per-year price of a bucket.
type ManualOverride struct {
	Locked bool   `json:"isManualLocked"`
	Amount *Money `json:"manualPricePerYear"`
}

// BucketPrice is the resolved price of one duration bucket.
type BucketPrice struct {
	Years           int     `json:"years"`
	DiscountPercent float64 `json:"discountPercent"`
	AutoPerYear     Money   `json:"autoPricePerYear"`
	PerYear         Money   `json:"pricePerYear"`
	Total           Money   `json:"total"`
	Manual          bool    `json:"manual"`
}

// ResolveBucket computes the price of a duration bucket from an annual base,
// honouring a locked manual override.
func ResolveBucket(annualBase Money, discountPercent float64, years int, override ManualOverride) BucketPrice {
	if annualBase < 0 {
		annualBase = 0
	}
	auto := AutoPricePerYear(annualBase, discountPercent)
	out := BucketPrice{
		Years:           years,
		DiscountPercent: ClampPercent(discountPercent),
		AutoPerYear:     auto,
		PerYear:         auto,
	}
	if override.Locked {
		out.Manual = true
		if override.Amount != nil {
			out.PerYear = *override.Amount
			if out.PerYear < 0 {
				out.PerYear = 0
			}
		}
	}
	if years <= 0 {
		return out
	}
	out.Total = money.Round(decimal.NewFromInt(out.PerYear).Mul(decimal.NewFromInt(int64(years))))
	return out
}

// MonthlyDiscountedTotal spreads the discounted yearly price evenly across
// months and sums it over the given month count. The monthly rate derives
// from the rounded per-year price so whole-year durations equal
// ResolveBucket totals exactly.
func MonthlyDiscountedTotal(annualBase Money, discountPercent float64, months int) Money {
	if months <= 0 || annualBase <= 0 {
		return 0
	}
	perYear := AutoPricePerYear(annualBase, discountPercent)
	if months%12 == 0 {
		return perYear * Money(months/12)
	}
	monthly := decimal.NewFromInt(perYear).Div(twelve)
	return money.Round(monthly.Mul(decimal.NewFromInt(int64(months))))
}
