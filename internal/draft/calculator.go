package draft

import (
	"sort"

	"github.com/noah-isme/langganan-pricing/internal/pricing"
)

// Bucket is a duration offered to customers.
type Bucket struct {
	Years     int    `json:"years"`
	Label     string `json:"label"`
	SortOrder int    `json:"sortOrder"`
}

// ActiveBuckets derives the preview buckets from the active plan rows,
// ordered by sort order then years. Duplicate years keep the first row.
func ActiveBuckets(rows []pricing.LegacyPlanRow) []Bucket {
	active := make([]pricing.LegacyPlanRow, 0, len(rows))
	for _, row := range rows {
		if row.IsActive && row.Years > 0 {
			active = append(active, row)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].SortOrder != active[j].SortOrder {
			return active[i].SortOrder < active[j].SortOrder
		}
		return active[i].Years < active[j].Years
	})
	seen := make(map[int]struct{}, len(active))
	out := make([]Bucket, 0, len(active))
	for _, row := range active {
		if _, dup := seen[row.Years]; dup {
			continue
		}
		seen[row.Years] = struct{}{}
		out = append(out, Bucket{Years: row.Years, Label: row.Label, SortOrder: row.SortOrder})
	}
	return out
}

// PreviewLine is the preview table of one service line.
type PreviewLine struct {
	Key             PlanKey               `json:"key"`
	BaseMode        pricing.BaseMode      `json:"baseMode"`
	BasePriceAmount float64               `json:"basePriceAmount"`
	AnnualBase      pricing.Money         `json:"annualBase"`
	Buckets         []pricing.BucketPrice `json:"buckets"`
}

// Preview is what a customer would see if the draft were published.
type Preview struct {
	PackageID string        `json:"packageId"`
	Buckets   []Bucket      `json:"buckets"`
	Lines     []PreviewLine `json:"lines"`
}

// Calculate prices every service line of the draft for each bucket.
func Calculate(d PackageDraft, buckets []Bucket) Preview {
	out := Preview{PackageID: d.PackageID, Buckets: buckets, Lines: make([]PreviewLine, 0, len(PlanKeys))}
	for _, key := range PlanKeys {
		plan := d.Plan(key)
		line := PreviewLine{
			Key:             key,
			BaseMode:        plan.BaseMode,
			BasePriceAmount: plan.BasePriceAmount,
			AnnualBase:      plan.AnnualBase(),
			Buckets:         make([]pricing.BucketPrice, 0, len(buckets)),
		}
		for _, b := range buckets {
			line.Buckets = append(line.Buckets, plan.Bucket(b.Years))
		}
		out.Lines = append(out.Lines, line)
	}
	return out
}
