package promo

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/langganan-pricing/internal/obs"
)

// NoticeInvalid is surfaced to the user when a code does not apply.
const NoticeInvalid = "promo code is not valid for this order"

// Outcome is the promo state after an application attempt.
type Outcome struct {
	Code     string `json:"code,omitempty"`
	Subtotal int64  `json:"subtotal"`
	Result   Result `json:"result"`
	Promo    *Promo `json:"promo,omitempty"`
	Final    int64  `json:"final"`
	Notice   string `json:"notice,omitempty"`
}

// Applied reports whether a discount is in effect.
func (o Outcome) Applied() bool { return o.Result.Valid }

// NoPromo is the outcome for a subtotal without any code.
func NoPromo(subtotal int64) Outcome {
	if subtotal < 0 {
		subtotal = 0
	}
	return Outcome{Subtotal: subtotal, Final: subtotal}
}

// Applier validates codes and subtracts the clamped discount.
type Applier struct {
	Validator Validator
	Logger    zerolog.Logger
}

// Apply validates code against subtotal. A blank code never reaches the
// validator. Invalid codes clear the promo and leave the subtotal untouched.
// Only collaborator failures are returned as errors.
func (a Applier) Apply(ctx context.Context, code string, subtotal int64) (Outcome, error) {
	trimmed := strings.TrimSpace(code)
	out := NoPromo(subtotal)
	if trimmed == "" || a.Validator == nil {
		return out, nil
	}
	out.Code = trimmed

	validation, err := a.Validator.Validate(ctx, trimmed, out.Subtotal)
	if err != nil {
		obs.ObservePromo("error")
		a.Logger.Error().Err(err).Str("code", trimmed).Msg("promo validation failed")
		return out, err
	}
	if !validation.OK {
		obs.ObservePromo("invalid")
		out.Notice = NoticeInvalid
		return out, nil
	}
	obs.ObservePromo("applied")
	out.Result = validation.Clamp(out.Subtotal)
	out.Promo = validation.Promo
	out.Final = out.Subtotal - out.Result.DiscountAmount
	return out, nil
}
