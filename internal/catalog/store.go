package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/langganan-pricing/internal/pricing"
)

// Querier is the subset of pgxpool.Pool used by PGStore.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore reads pricing tables from Postgres.
type PGStore struct {
	Q Querier
}

const (
	sqlDurationDiscounts = `SELECT duration_months, discount_percent::float8 AS discount_percent, is_active
FROM package_duration_discounts
WHERE package_id = $1
ORDER BY duration_months, updated_at`

	sqlLegacyPlans = `SELECT years, label, price_override_amount::float8 AS price_override_amount, is_active, sort_order
FROM subscription_plans
ORDER BY sort_order, years`

	sqlDomainPrice = `SELECT price::float8 FROM domain_prices
WHERE extension = ANY($1)
ORDER BY length(extension) DESC
LIMIT 1`

	sqlPackagePrice = `SELECT price::float8 FROM packages WHERE id = $1`

	sqlAddOns = `SELECT id, name, price_amount::float8 AS price_amount, is_active
FROM add_ons
WHERE scope = $1
ORDER BY sort_order, name`
)

// DurationDiscounts returns the discount rows of a package.
func (s PGStore) DurationDiscounts(ctx context.Context, packageID string) ([]pricing.DurationDiscountRow, error) {
	records, err := s.collect(ctx, sqlDurationDiscounts, strings.TrimSpace(packageID))
	if err != nil {
		return nil, fmt.Errorf("catalog: duration discounts: %w", err)
	}
	return ParseDurationDiscounts(records), nil
}

// LegacyPlans returns every flat plan row.
func (s PGStore) LegacyPlans(ctx context.Context) ([]pricing.LegacyPlanRow, error) {
	records, err := s.collect(ctx, sqlLegacyPlans)
	if err != nil {
		return nil, fmt.Errorf("catalog: legacy plans: %w", err)
	}
	return ParseLegacyPlans(records), nil
}

// BasePrices looks up the domain extension price and the package price. The
// domain is priced under its longest configured extension, so "www.toko.com"
// falls back to ".com". A missing row leaves the corresponding price unknown.
func (s PGStore) BasePrices(ctx context.Context, domain, packageID string) (pricing.BasePrices, error) {
	if s.Q == nil {
		return pricing.BasePrices{}, errors.New("catalog: store not configured")
	}
	var domainPrice, packagePrice any
	if suffixes := DomainSuffixes(domain); len(suffixes) > 0 {
		v, err := s.scalar(ctx, sqlDomainPrice, suffixes)
		if err != nil {
			return pricing.BasePrices{}, fmt.Errorf("catalog: domain price: %w", err)
		}
		domainPrice = v
	}
	if id := strings.TrimSpace(packageID); id != "" {
		v, err := s.scalar(ctx, sqlPackagePrice, id)
		if err != nil {
			return pricing.BasePrices{}, fmt.Errorf("catalog: package price: %w", err)
		}
		packagePrice = v
	}
	return ParseBasePrices(domainPrice, packagePrice), nil
}

// AddOns returns the add-on catalog for a scope.
func (s PGStore) AddOns(ctx context.Context, scope Scope) ([]pricing.AddOn, error) {
	if scope != ScopePackage && scope != ScopeSubscription {
		return nil, ErrUnknownScope
	}
	records, err := s.collect(ctx, sqlAddOns, string(scope))
	if err != nil {
		return nil, fmt.Errorf("catalog: add-ons: %w", err)
	}
	return ParseAddOns(records), nil
}

func (s PGStore) collect(ctx context.Context, sql string, args ...any) ([]Record, error) {
	if s.Q == nil {
		return nil, errors.New("catalog: store not configured")
	}
	rows, err := s.Q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToMap)
}

func (s PGStore) scalar(ctx context.Context, sql string, arg any) (any, error) {
	var v *float64
	if err := s.Q.QueryRow(ctx, sql, arg).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return *v, nil
}
