package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/langganan-pricing/internal/pricing"
)

func TestParseDurationDiscounts(t *testing.T) {
	rows := ParseDurationDiscounts([]Record{
		{"duration_months": int32(12), "discount_percent": 5.5, "is_active": true},
		{"durationMonths": "24", "discountPercent": "not-a-number"},
		{"duration_months": int64(-12), "discount_percent": 10.0},
	})
	require.Equal(t, []pricing.DurationDiscountRow{
		{DurationMonths: 12, DiscountPercent: 5.5, IsActive: true},
		{DurationMonths: 24, DiscountPercent: 0, IsActive: true},
	}, rows)
}

func TestParseLegacyPlans(t *testing.T) {
	rows := ParseLegacyPlans([]Record{
		{"years": int32(3), "label": " 3 Tahun ", "price_override_amount": 500.4, "is_active": "false", "sort_order": int32(2)},
		{"years": int32(1), "price_override_amount": nil},
	})
	require.Len(t, rows, 2)
	require.Equal(t, pricing.LegacyPlanRow{Years: 3, Label: "3 Tahun", PriceOverrideAmount: 500, IsActive: false, SortOrder: 2}, rows[0])
	require.Equal(t, pricing.Money(0), rows[1].PriceOverrideAmount)
	require.True(t, rows[1].IsActive)
}

func TestParseAddOnsDropsRowsWithoutID(t *testing.T) {
	id := [16]byte{0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11}
	rows := ParseAddOns([]Record{
		{"id": id, "name": "SSL", "price_amount": "150000", "is_active": true},
		{"name": "orphan", "price_amount": 10.0},
	})
	require.Len(t, rows, 1)
	require.Equal(t, "11111111-1111-1111-1111-111111111111", rows[0].ID)
	require.Equal(t, pricing.Money(150_000), rows[0].PriceAmount)
}

func TestParseBasePrices(t *testing.T) {
	prices := ParseBasePrices(nil, 1_000_000.0)
	require.Nil(t, prices.DomainBase)
	require.NotNil(t, prices.PackageBase)
	require.Equal(t, pricing.Money(1_000_000), *prices.PackageBase)

	prices = ParseBasePrices(pgtype.Numeric{}, "abc")
	require.Nil(t, prices.DomainBase)
	require.Equal(t, pricing.Money(0), *prices.PackageBase)
}

func TestDomainExtension(t *testing.T) {
	require.Equal(t, ".co.id", DomainExtension("Toko.CO.ID"))
	require.Equal(t, ".com", DomainExtension("example.com."))
	require.Equal(t, "", DomainExtension("localhost"))
	require.Equal(t, "", DomainExtension("broken."))
	require.Equal(t, ".toko.com", DomainExtension("www.toko.com"))
}

func TestDomainSuffixes(t *testing.T) {
	require.Equal(t, []string{".toko.com", ".com"}, DomainSuffixes("WWW.toko.com"))
	require.Equal(t, []string{".co.id", ".id"}, DomainSuffixes("toko.co.id."))
	require.Empty(t, DomainSuffixes("localhost"))
}

// priceTable answers the domain and package price queries from maps, picking
// the longest configured extension the way the SQL does.
type priceTable struct {
	domains  map[string]float64
	packages map[string]float64
	args     []any
}

type scalarRow struct {
	v   float64
	err error
}

func (r scalarRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	v := r.v
	*(dest[0].(**float64)) = &v
	return nil
}

func (p *priceTable) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (p *priceTable) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	p.args = append(p.args, args...)
	switch arg := args[0].(type) {
	case []string:
		for _, ext := range arg {
			if v, ok := p.domains[ext]; ok {
				return scalarRow{v: v}
			}
		}
	case string:
		if v, ok := p.packages[arg]; ok {
			return scalarRow{v: v}
		}
	}
	return scalarRow{err: pgx.ErrNoRows}
}

func TestPGStoreBasePricesUsesLongestExtension(t *testing.T) {
	q := &priceTable{
		domains:  map[string]float64{".com": 150_000, ".co.id": 90_000, ".id": 200_000},
		packages: map[string]float64{"pkg-1": 1_000_000},
	}
	store := PGStore{Q: q}
	ctx := context.Background()

	prices, err := store.BasePrices(ctx, "www.toko.com", "pkg-1")
	require.NoError(t, err)
	require.NotNil(t, prices.DomainBase)
	require.Equal(t, pricing.Money(150_000), *prices.DomainBase)
	require.Equal(t, []string{".toko.com", ".com"}, q.args[0])

	prices, err = store.BasePrices(ctx, "shop.toko.co.id", "pkg-1")
	require.NoError(t, err)
	require.Equal(t, pricing.Money(90_000), *prices.DomainBase)

	prices, err = store.BasePrices(ctx, "toko.dev", "pkg-1")
	require.NoError(t, err)
	require.Nil(t, prices.DomainBase)
	require.Equal(t, pricing.Money(1_000_000), *prices.PackageBase)
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope(" Package ")
	require.NoError(t, err)
	require.Equal(t, ScopePackage, s)
	_, err = ParseScope("global")
	require.ErrorIs(t, err, ErrUnknownScope)
}

type countingSource struct {
	calls map[string]int
}

func (c *countingSource) hit(name string) {
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[name]++
}

func (c *countingSource) DurationDiscounts(ctx context.Context, packageID string) ([]pricing.DurationDiscountRow, error) {
	c.hit("discounts")
	return []pricing.DurationDiscountRow{{DurationMonths: 12, DiscountPercent: 10, IsActive: true}}, nil
}

func (c *countingSource) LegacyPlans(ctx context.Context) ([]pricing.LegacyPlanRow, error) {
	c.hit("legacy")
	return []pricing.LegacyPlanRow{{Years: 1, PriceOverrideAmount: 100, IsActive: true}}, nil
}

func (c *countingSource) BasePrices(ctx context.Context, domain, packageID string) (pricing.BasePrices, error) {
	c.hit("base")
	domainBase := pricing.Money(150_000)
	return pricing.BasePrices{DomainBase: &domainBase}, nil
}

func (c *countingSource) AddOns(ctx context.Context, scope Scope) ([]pricing.AddOn, error) {
	c.hit("addons:" + string(scope))
	return []pricing.AddOn{{ID: "ssl", PriceAmount: 10, IsActive: true}}, nil
}

func TestCachedSource(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	next := &countingSource{}
	src := CachedSource{Next: next, Cache: NewCache(client, time.Minute)}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		rows, err := src.DurationDiscounts(ctx, "pkg-1")
		require.NoError(t, err)
		require.Len(t, rows, 1)

		base, err := src.BasePrices(ctx, "toko.co.id", "pkg-1")
		require.NoError(t, err)
		require.NotNil(t, base.DomainBase)
		require.Nil(t, base.PackageBase)

		_, err = src.LegacyPlans(ctx)
		require.NoError(t, err)
		_, err = src.AddOns(ctx, ScopeSubscription)
		require.NoError(t, err)
	}
	require.Equal(t, 1, next.calls["discounts"])
	require.Equal(t, 1, next.calls["base"])
	require.Equal(t, 1, next.calls["legacy"])
	require.Equal(t, 1, next.calls["addons:subscription"])
	require.True(t, mr.Exists("pricing:base:.co.id:pkg-1"))

	require.NoError(t, src.Invalidate(ctx))
	_, err = src.LegacyPlans(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, next.calls["legacy"])
}

func TestCachedSourceWithoutRedis(t *testing.T) {
	next := &countingSource{}
	src := CachedSource{Next: next, Cache: NewCache(nil, 0)}
	_, err := src.LegacyPlans(context.Background())
	require.NoError(t, err)
	_, err = src.LegacyPlans(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, next.calls["legacy"])
}
