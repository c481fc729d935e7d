package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/langganan-pricing/internal/config"
	"github.com/noah-isme/langganan-pricing/internal/obs"
)

func main() {
	logger := obs.NewLogger("console", "info")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		seedPackages(batch)
		seedDomains(batch)
		seedDurationDiscounts(batch)
		seedPlans(batch)
		seedAddOns(batch)
		seedPromoCodes(batch)
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("seed pricing tables")
	}
	logger.Info().Msg("seeding completed")
}

func seedPackages(b *pgx.Batch) {
	packages := []struct {
		ID    string
		Name  string
		Price int64
	}{
		{"website-only", "Website Only", 1_000_000},
		{"blog-social", "Blog + Social", 2_400_000},
		{"full-digital", "Full Digital", 4_800_000},
	}
	for _, p := range packages {
		b.Queue(`INSERT INTO packages (id, name, price) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, updated_at = now()`, p.ID, p.Name, p.Price)
	}
}

func seedDomains(b *pgx.Batch) {
	domains := map[string]int64{
		".com":   200_000,
		".id":    250_000,
		".co.id": 200_000,
		".my.id": 25_000,
	}
	for ext, price := range domains {
		b.Queue(`INSERT INTO domain_prices (extension, price) VALUES ($1, $2)
ON CONFLICT (extension) DO UPDATE SET price = EXCLUDED.price, updated_at = now()`, ext, price)
	}
}

func seedDurationDiscounts(b *pgx.Batch) {
	b.Queue(`DELETE FROM package_duration_discounts WHERE package_id = 'full-digital'`)
	for months, percent := range map[int]float64{12: 0, 24: 10, 36: 15} {
		b.Queue(`INSERT INTO package_duration_discounts (package_id, duration_months, discount_percent)
VALUES ('full-digital', $1, $2)`, months, percent)
	}
}

func seedPlans(b *pgx.Batch) {
	b.Queue(`TRUNCATE subscription_plans`)
	plans := []struct {
		Years int
		Label string
		Price int64
	}{
		{1, "1 tahun", 1_200_000},
		{2, "2 tahun", 2_200_000},
		{3, "3 tahun", 3_100_000},
	}
	for i, p := range plans {
		b.Queue(`INSERT INTO subscription_plans (years, label, price_override_amount, sort_order)
VALUES ($1, $2, $3, $4)`, p.Years, p.Label, p.Price, i+1)
	}
}

func seedAddOns(b *pgx.Batch) {
	b.Queue(`TRUNCATE add_ons`)
	addOns := []struct {
		Scope string
		Name  string
		Price int64
	}{
		{"package", "SSL Premium", 350_000},
		{"package", "Email Bisnis", 150_000},
		{"subscription", "Backup Harian", 120_000},
		{"subscription", "Prioritas Support", 300_000},
	}
	for i, a := range addOns {
		b.Queue(`INSERT INTO add_ons (scope, name, price_amount, sort_order) VALUES ($1, $2, $3, $4)`,
			a.Scope, a.Name, a.Price, i+1)
	}
}

func seedPromoCodes(b *pgx.Batch) {
	b.Queue(`INSERT INTO promo_codes (code, name, kind, value, min_spend)
VALUES ('HEMAT100', 'Hemat 100 ribu', 'fixed', 100000, 1000000)
ON CONFLICT (code) DO NOTHING`)
	b.Queue(`INSERT INTO promo_codes (code, name, kind, percent_bps, usage_limit)
VALUES ('LANGGANAN10', 'Diskon 10%', 'percent', 1000, 500)
ON CONFLICT (code) DO NOTHING`)
}
