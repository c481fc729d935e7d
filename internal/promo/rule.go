package promo

import (
	"errors"
	"strings"
	"time"

	"github.com/noah-isme/langganan-pricing/internal/money"
)

var (
	// ErrPromoInactive is returned when the code is disabled or not yet valid.
	ErrPromoInactive = errors.New("promo not active")
	// ErrPromoExpired is returned when the code has passed its validity window.
	ErrPromoExpired = errors.New("promo expired")
	// ErrUsageLimitReached indicates the code has exhausted its global quota.
	ErrUsageLimitReached = errors.New("promo usage limit reached")
	// ErrMinimumSpendUnmet indicates the subtotal is below the code's minimum.
	ErrMinimumSpendUnmet = errors.New("promo minimum spend not met")
	// ErrNoDiscount is returned when the rule yields no discount for the subtotal.
	ErrNoDiscount = errors.New("promo yields no discount")
)

// Kinds of promo discount.
const (
	KindFixed   = "fixed"
	KindPercent = "percent"
)

// Rule captures the runtime constraints of a promo code.
type Rule struct {
	ID         string
	Code       string
	Name       string
	Kind       string
	Value      int64
	PercentBps *int32
	MinSpend   int64
	UsageLimit *int32
	UsedCount  int32
	ValidFrom  *time.Time
	ValidTo    *time.Time
	Active     bool
}

// Validate ensures the rule can be applied at the provided instant and subtotal.
func (r Rule) Validate(now time.Time, subtotal int64) error {
	if !r.Active {
		return ErrPromoInactive
	}
	if subtotal < r.MinSpend {
		return ErrMinimumSpendUnmet
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrPromoInactive
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return ErrPromoExpired
	}
	if r.UsageLimit != nil && *r.UsageLimit >= 0 && r.UsedCount >= *r.UsageLimit {
		return ErrUsageLimitReached
	}
	return nil
}

// Compute determines the discount for the subtotal, clamped to [0, subtotal].
func (r Rule) Compute(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	discount := r.Value
	if strings.EqualFold(r.Kind, KindPercent) {
		if r.PercentBps == nil || *r.PercentBps <= 0 {
			return 0
		}
		discount = (subtotal * int64(*r.PercentBps)) / 10000
	}
	return money.ClampMoney(discount, subtotal)
}

// Promo identifies a validated code.
type Promo struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Validation is the collaborator answer for a code against a subtotal. OK is
// false for unknown or ineligible codes.
type Validation struct {
	OK             bool   `json:"ok"`
	Promo          *Promo `json:"promo,omitempty"`
	DiscountAmount int64  `json:"discountAmount"`
}

// Result is the clamped outcome used in totals.
type Result struct {
	Valid          bool  `json:"valid"`
	DiscountAmount int64 `json:"discountAmount"`
}

// Clamp converts a validation into a result whose discount lies in [0, subtotal].
func (v Validation) Clamp(subtotal int64) Result {
	if !v.OK {
		return Result{}
	}
	return Result{Valid: true, DiscountAmount: money.ClampMoney(v.DiscountAmount, subtotal)}
}
