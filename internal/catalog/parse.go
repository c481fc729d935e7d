package catalog

import (
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/langganan-pricing/internal/money"
	"github.com/noah-isme/langganan-pricing/internal/pricing"
)

// Record is a loosely typed row as returned by a collaborator.
type Record = map[string]any

var validate = validator.New()

// ParseDurationDiscounts converts raw rows into typed discount rows. Missing
// or malformed numbers become zero and a missing active flag means active.
func ParseDurationDiscounts(records []Record) []pricing.DurationDiscountRow {
	out := make([]pricing.DurationDiscountRow, 0, len(records))
	for _, rec := range records {
		row := pricing.DurationDiscountRow{
			DurationMonths:  intField(rec, "duration_months", "durationMonths"),
			DiscountPercent: floatField(rec, "discount_percent", "discountPercent"),
			IsActive:        boolField(rec, true, "is_active", "isActive"),
		}
		if validate.Struct(row) != nil {
			continue
		}
		out = append(out, row)
	}
	return out
}

// ParseLegacyPlans converts raw rows into typed legacy plan rows.
func ParseLegacyPlans(records []Record) []pricing.LegacyPlanRow {
	out := make([]pricing.LegacyPlanRow, 0, len(records))
	for _, rec := range records {
		row := pricing.LegacyPlanRow{
			Years:               intField(rec, "years"),
			Label:               stringField(rec, "label"),
			PriceOverrideAmount: money.Round(number(lookup(rec, "price_override_amount", "priceOverrideAmount"))),
			IsActive:            boolField(rec, true, "is_active", "isActive"),
			SortOrder:           intField(rec, "sort_order", "sortOrder"),
		}
		if validate.Struct(row) != nil {
			continue
		}
		out = append(out, row)
	}
	return out
}

// ParseAddOns converts raw rows into typed add-ons. Rows without an id are
// dropped.
func ParseAddOns(records []Record) []pricing.AddOn {
	out := make([]pricing.AddOn, 0, len(records))
	for _, rec := range records {
		row := pricing.AddOn{
			ID:          stringField(rec, "id"),
			Name:        stringField(rec, "name"),
			PriceAmount: money.Round(number(lookup(rec, "price_amount", "priceAmount", "price"))),
			IsActive:    boolField(rec, true, "is_active", "isActive"),
		}
		if validate.Struct(row) != nil {
			continue
		}
		out = append(out, row)
	}
	return out
}

// ParseBasePrices converts optional raw prices. A nil input stays unknown so
// the engine can report the price as unavailable.
func ParseBasePrices(domainPrice, packagePrice any) pricing.BasePrices {
	return pricing.BasePrices{
		DomainBase:  optionalMoney(domainPrice),
		PackageBase: optionalMoney(packagePrice),
	}
}

func optionalMoney(v any) *pricing.Money {
	if v == nil {
		return nil
	}
	if n, ok := v.(pgtype.Numeric); ok && !n.Valid {
		return nil
	}
	amount := money.Round(number(v))
	return &amount
}

func lookup(rec Record, keys ...string) any {
	for _, key := range keys {
		if v, ok := rec[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func number(v any) decimal.Decimal {
	switch n := v.(type) {
	case pgtype.Numeric:
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return decimal.Zero
		}
		return money.Coerce(f.Float64)
	case int16:
		return money.Coerce(int64(n))
	case uint32:
		return money.Coerce(int64(n))
	default:
		return money.Coerce(v)
	}
}

func intField(rec Record, keys ...string) int {
	return int(number(lookup(rec, keys...)).IntPart())
}

func floatField(rec Record, keys ...string) float64 {
	f, _ := number(lookup(rec, keys...)).Float64()
	return f
}

func stringField(rec Record, keys ...string) string {
	switch v := lookup(rec, keys...).(type) {
	case string:
		return strings.TrimSpace(v)
	case [16]byte:
		return uuid.UUID(v).String()
	case nil:
		return ""
	default:
		return strings.TrimSpace(money.Coerce(v).String())
	}
}

func boolField(rec Record, fallback bool, keys ...string) bool {
	switch v := lookup(rec, keys...).(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
		return fallback
	case nil:
		return fallback
	default:
		return !money.Coerce(v).IsZero()
	}
}
