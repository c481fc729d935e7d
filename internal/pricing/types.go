package pricing

import "github.com/noah-isme/langganan-pricing/internal/money"

// Money represents a monetary value in the currency's major unit.
type Money = money.Money

// BaseMode describes the billing period a base price is expressed in.
type BaseMode string

const (
	BaseModeMonthly BaseMode = "monthly"
	BaseModeYearly  BaseMode = "yearly"
)

// ParseBaseMode normalises free text into a BaseMode, defaulting to yearly.
func ParseBaseMode(v string) BaseMode {
	if BaseMode(v) == BaseModeMonthly {
		return BaseModeMonthly
	}
	return BaseModeYearly
}

// DurationDiscountRow is a per-duration discount entry keyed by months.
type DurationDiscountRow struct {
	DurationMonths  int     `json:"durationMonths" validate:"gte=0"`
	DiscountPercent float64 `json:"discountPercent"`
	IsActive        bool    `json:"isActive"`
}

// LegacyPlanRow is a flat per-year plan used when no discount table exists.
type LegacyPlanRow struct {
	Years               int    `json:"years" validate:"gte=0"`
	Label               string `json:"label"`
	PriceOverrideAmount Money  `json:"priceOverrideAmount" validate:"gte=0"`
	IsActive            bool   `json:"isActive"`
	SortOrder           int    `json:"sortOrder"`
}

// BasePrices holds the undiscounted per-year domain and package prices. A nil
// field means the price is unknown.
type BasePrices struct {
	DomainBase  *Money `json:"domainBase"`
	PackageBase *Money `json:"packageBase"`
}

// Annual returns domain+package when both are known.
func (b BasePrices) Annual() (Money, bool) {
	if b.DomainBase == nil || b.PackageBase == nil {
		return 0, false
	}
	return *b.DomainBase + *b.PackageBase, true
}

// AddOn is a purchasable extra from a package or subscription catalog.
type AddOn struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name"`
	PriceAmount Money  `json:"priceAmount" validate:"gte=0"`
	IsActive    bool   `json:"isActive"`
}

// Source identifies which pricing table determined a subtotal.
type Source string

const (
	SourceDurationDiscount Source = "duration_discount"
	SourceLegacyPlan       Source = "legacy_plan"
	SourceBasePrice        Source = "base_price"
	SourceUnavailable      Source = "unavailable"
)
