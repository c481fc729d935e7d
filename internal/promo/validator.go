package promo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
)

// ErrUnauthorized signals that the validation collaborator rejected our
// credentials. Callers should ask the user to re-authenticate.
var ErrUnauthorized = errors.New("promo: unauthorized")

// ErrCodeRequired is returned for blank codes.
var ErrCodeRequired = errors.New("promo: code is required")

// Validator checks a code against a subtotal. Unknown or ineligible codes are
// reported as Validation{OK: false} rather than an error.
type Validator interface {
	Validate(ctx context.Context, code string, subtotal int64) (Validation, error)
}

// Querier is the subset of pgx used by PGValidator.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectPromoByCode = `SELECT id, code, name, kind, value, percent_bps, min_spend,
	usage_limit, used_count, valid_from, valid_to, is_active
FROM promo_codes WHERE upper(code) = upper($1)`

// PGValidator evaluates promo codes stored in the promo_codes table.
type PGValidator struct {
	Q      Querier
	Now    func() time.Time
	Logger zerolog.Logger
}

// Validate implements Validator.
func (v *PGValidator) Validate(ctx context.Context, code string, subtotal int64) (Validation, error) {
	if v == nil || v.Q == nil {
		return Validation{}, errors.New("promo validator not configured")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return Validation{}, ErrCodeRequired
	}
	rule, err := v.load(ctx, trimmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Validation{}, nil
		}
		return Validation{}, err
	}
	if err := rule.Validate(v.now(), subtotal); err != nil {
		v.Logger.Debug().Err(err).Str("code", trimmed).Int64("subtotal", subtotal).Msg("promo rejected")
		return Validation{}, nil
	}
	discount := rule.Compute(subtotal)
	if discount <= 0 {
		v.Logger.Debug().Err(ErrNoDiscount).Str("code", trimmed).Msg("promo rejected")
		return Validation{}, nil
	}
	return Validation{
		OK:             true,
		Promo:          &Promo{ID: rule.ID, Code: rule.Code, Name: rule.Name},
		DiscountAmount: discount,
	}, nil
}

func (v *PGValidator) load(ctx context.Context, code string) (Rule, error) {
	var (
		id         pgtype.UUID
		rule       Rule
		percentBps pgtype.Int4
		usageLimit pgtype.Int4
		validFrom  pgtype.Timestamptz
		validTo    pgtype.Timestamptz
	)
	err := v.Q.QueryRow(ctx, selectPromoByCode, code).Scan(
		&id, &rule.Code, &rule.Name, &rule.Kind, &rule.Value, &percentBps, &rule.MinSpend,
		&usageLimit, &rule.UsedCount, &validFrom, &validTo, &rule.Active,
	)
	if err != nil {
		return Rule{}, err
	}
	if id.Valid {
		rule.ID = uuid.UUID(id.Bytes).String()
	}
	if percentBps.Valid {
		bps := percentBps.Int32
		rule.PercentBps = &bps
	}
	if usageLimit.Valid {
		limit := usageLimit.Int32
		rule.UsageLimit = &limit
	}
	if validFrom.Valid {
		rule.ValidFrom = &validFrom.Time
	}
	if validTo.Valid {
		rule.ValidTo = &validTo.Time
	}
	return rule, nil
}

func (v *PGValidator) now() time.Time {
	if v != nil && v.Now != nil {
		return v.Now()
	}
	return time.Now()
}
