package pricing

// Request carries everything the checkout calculator needs for one quote.
type Request struct {
	DurationYears int
	Discounts     []DurationDiscountRow
	LegacyPlans   []LegacyPlanRow
	Base          BasePrices
	AddOnsTotal   Money
}

// Quote is the pre-promo result of the resolution chain. Source is
// SourceUnavailable when the required base prices are missing, in which case
// all amounts are zero and must not be shown as a price.
type Quote struct {
	Source          Source  `json:"source"`
	DurationYears   int     `json:"durationYears"`
	DiscountPercent float64 `json:"discountPercent"`
	Subtotal        Money   `json:"subtotal"`
	AddOnsTotal     Money   `json:"addOnsTotal"`
	Total           Money   `json:"total"`
}

// Available reports whether the quote carries a payable amount.
func (q Quote) Available() bool {
	return q.Source != SourceUnavailable
}

// TotalOrNil returns the total or nil when unavailable.
func (q Quote) TotalOrNil() *Money {
	if !q.Available() {
		return nil
	}
	total := q.Total
	return &total
}

// DiscountTable indexes duration discounts by month count. Later rows
// overwrite earlier ones with the same duration.
type DiscountTable map[int]float64

// NewDiscountTable builds the lookup, ignoring non-positive durations.
func NewDiscountTable(rows []DurationDiscountRow) DiscountTable {
	table := make(DiscountTable, len(rows))
	for _, row := range rows {
		if row.DurationMonths <= 0 {
			continue
		}
		table[row.DurationMonths] = row.DiscountPercent
	}
	return table
}

// PercentFor returns the clamped discount for the given months, or 0.
func (t DiscountTable) PercentFor(months int) float64 {
	return ClampPercent(t[months])
}

// FindLegacyPlan returns the first active plan matching years exactly.
func FindLegacyPlan(plans []LegacyPlanRow, years int) (LegacyPlanRow, bool) {
	for _, plan := range plans {
		if plan.IsActive && plan.Years == years {
			return plan, true
		}
	}
	return LegacyPlanRow{}, false
}

// Resolve selects exactly one pricing source and computes the quote:
//
//  1. duration discount table (whenever it has any positive duration row)
//  2. legacy flat plan matching the duration
//  3. raw domain+package base price times years
//
// Paths 1 and 3 require both base prices.
func Resolve(req Request) Quote {
	years := req.DurationYears
	addOns := req.AddOnsTotal
	if addOns < 0 {
		addOns = 0
	}
	unavailable := Quote{Source: SourceUnavailable, DurationYears: years}
	if years <= 0 {
		return unavailable
	}

	if table := NewDiscountTable(req.Discounts); len(table) > 0 {
		annual, ok := req.Base.Annual()
		if !ok {
			return unavailable
		}
		months := years * 12
		percent := table.PercentFor(months)
		subtotal := MonthlyDiscountedTotal(annual, percent, months)
		return Quote{
			Source:          SourceDurationDiscount,
			DurationYears:   years,
			DiscountPercent: percent,
			Subtotal:        subtotal,
			AddOnsTotal:     addOns,
			Total:           subtotal + addOns,
		}
	}

	if plan, ok := FindLegacyPlan(req.LegacyPlans, years); ok {
		subtotal := plan.PriceOverrideAmount
		if subtotal < 0 {
			subtotal = 0
		}
		return Quote{
			Source:        SourceLegacyPlan,
			DurationYears: years,
			Subtotal:      subtotal,
			AddOnsTotal:   addOns,
			Total:         subtotal + addOns,
		}
	}

	annual, ok := req.Base.Annual()
	if !ok {
		return unavailable
	}
	if annual < 0 {
		annual = 0
	}
	subtotal := annual * Money(years)
	return Quote{
		Source:        SourceBasePrice,
		DurationYears: years,
		Subtotal:      subtotal,
		AddOnsTotal:   addOns,
		Total:         subtotal + addOns,
	}
}
