package draft

import (
	"github.com/noah-isme/langganan-pricing/internal/pricing"
)

// PlanKey identifies a website service line.
type PlanKey string

const (
	PlanWebsiteOnly PlanKey = "website_only"
	PlanBlogSocial  PlanKey = "blog_social"
	PlanFullDigital PlanKey = "full_digital"
)

// PlanKeys lists service lines in display order.
var PlanKeys = []PlanKey{PlanWebsiteOnly, PlanBlogSocial, PlanFullDigital}

// Valid reports whether k is a known service line.
func (k PlanKey) Valid() bool {
	for _, key := range PlanKeys {
		if key == k {
			return true
		}
	}
	return false
}

// DurationConfig is the per-bucket admin configuration.
type DurationConfig struct {
	DiscountPercent    float64        `json:"discountPercent"`
	ManualPricePerYear *pricing.Money `json:"manualPricePerYear"`
	IsManualLocked     bool           `json:"isManualLocked"`
}

// PlanDraft is the scratch pricing for one service line.
type PlanDraft struct {
	Key             PlanKey                `json:"key"`
	BaseMode        pricing.BaseMode       `json:"baseMode"`
	BasePriceAmount float64                `json:"basePriceAmount"`
	PerDuration     map[int]DurationConfig `json:"perDurationConfig"`
}

// DefaultPlan returns the initial draft for a service line. Website-only is
// billed yearly; the marketing lines are billed monthly.
func DefaultPlan(key PlanKey) PlanDraft {
	mode := pricing.BaseModeMonthly
	if key == PlanWebsiteOnly {
		mode = pricing.BaseModeYearly
	}
	return PlanDraft{Key: key, BaseMode: mode, PerDuration: map[int]DurationConfig{}}
}

// AnnualBase returns the annualised base price.
func (p *PlanDraft) AnnualBase() pricing.Money {
	return pricing.Annualize(p.BasePriceAmount, p.BaseMode)
}

// Config returns the bucket configuration, zero valued when absent.
func (p *PlanDraft) Config(years int) DurationConfig {
	if p.PerDuration == nil {
		return DurationConfig{}
	}
	return p.PerDuration[years]
}

func (p *PlanDraft) set(years int, cfg DurationConfig) {
	if p.PerDuration == nil {
		p.PerDuration = map[int]DurationConfig{}
	}
	p.PerDuration[years] = cfg
}

// SetDiscount stores a clamped discount percent for the bucket.
func (p *PlanDraft) SetDiscount(years int, percent float64) {
	cfg := p.Config(years)
	cfg.DiscountPercent = pricing.ClampPercent(percent)
	p.set(years, cfg)
}

// SetManualPrice stores the manual per-year amount for the bucket. It has
// no effect on the computed price until the bucket is locked.
func (p *PlanDraft) SetManualPrice(years int, amount pricing.Money) {
	if amount < 0 {
		amount = 0
	}
	cfg := p.Config(years)
	cfg.ManualPricePerYear = &amount
	p.set(years, cfg)
}

// SetLock toggles the manual lock. Locking without a manual amount captures
// the current auto price; unlocking drops the manual amount.
func (p *PlanDraft) SetLock(years int, locked bool) {
	cfg := p.Config(years)
	if locked {
		if !cfg.IsManualLocked && cfg.ManualPricePerYear == nil {
			snapshot := pricing.AutoPricePerYear(p.AnnualBase(), cfg.DiscountPercent)
			cfg.ManualPricePerYear = &snapshot
		}
		cfg.IsManualLocked = true
	} else {
		cfg.IsManualLocked = false
		cfg.ManualPricePerYear = nil
	}
	p.set(years, cfg)
}

// Bucket resolves the price of one duration bucket.
func (p *PlanDraft) Bucket(years int) pricing.BucketPrice {
	cfg := p.Config(years)
	return pricing.ResolveBucket(p.AnnualBase(), cfg.DiscountPercent, years, pricing.ManualOverride{
		Locked: cfg.IsManualLocked,
		Amount: cfg.ManualPricePerYear,
	})
}

func (p PlanDraft) clone() PlanDraft {
	out := p
	out.PerDuration = make(map[int]DurationConfig, len(p.PerDuration))
	for years, cfg := range p.PerDuration {
		if cfg.ManualPricePerYear != nil {
			v := *cfg.ManualPricePerYear
			cfg.ManualPricePerYear = &v
		}
		out.PerDuration[years] = cfg
	}
	return out
}

// PackageDraft groups the service line drafts of one package.
type PackageDraft struct {
	PackageID string                `json:"packageId"`
	Plans     map[PlanKey]PlanDraft `json:"plans"`
	// Seeded is set once published discounts were copied into the draft.
	Seeded bool `json:"seeded"`
}

// NewPackageDraft returns a draft with every service line at its defaults.
func NewPackageDraft(packageID string) PackageDraft {
	d := PackageDraft{PackageID: packageID, Plans: make(map[PlanKey]PlanDraft, len(PlanKeys))}
	for _, key := range PlanKeys {
		d.Plans[key] = DefaultPlan(key)
	}
	return d
}

// Plan returns a mutable copy of the service line draft.
func (d PackageDraft) Plan(key PlanKey) PlanDraft {
	if plan, ok := d.Plans[key]; ok {
		return plan.clone()
	}
	return DefaultPlan(key)
}

// SeedDiscounts fills bucket discounts from a published duration discount
// table for buckets that have no discount configured yet.
func (d *PackageDraft) SeedDiscounts(rows []pricing.DurationDiscountRow) {
	table := pricing.NewDiscountTable(rows)
	for _, key := range PlanKeys {
		plan := d.Plan(key)
		for months, percent := range table {
			if months%12 != 0 {
				continue
			}
			years := months / 12
			if _, ok := plan.PerDuration[years]; ok {
				continue
			}
			plan.SetDiscount(years, percent)
		}
		d.Plans[key] = plan
	}
	d.Seeded = true
}

func (d PackageDraft) clone() PackageDraft {
	out := PackageDraft{PackageID: d.PackageID, Plans: make(map[PlanKey]PlanDraft, len(d.Plans)), Seeded: d.Seeded}
	for key, plan := range d.Plans {
		out.Plans[key] = plan.clone()
	}
	return out
}
