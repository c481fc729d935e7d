package draft

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/langganan-pricing/internal/catalog"
	"github.com/noah-isme/langganan-pricing/internal/common"
	"github.com/noah-isme/langganan-pricing/internal/money"
	"github.com/noah-isme/langganan-pricing/internal/pricing"
)

var (
	errUnknownPlan = errors.New("unknown plan key")
	errBadYears    = errors.New("duration years must be a positive integer")
	errBadBaseMode = errors.New("base mode must be monthly or yearly")
)

// Handler serves the admin pricing draft endpoints.
type Handler struct {
	Store  *Store
	Source catalog.Source
	Logger zerolog.Logger
}

// Routes mounts the draft endpoints under /packages/{packageID}/pricing-draft.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/packages/{packageID}/pricing-draft", func(d chi.Router) {
		d.Get("/", h.Get)
		d.Put("/", h.Put)
		d.Delete("/", h.Reset)
		d.Post("/lock", h.Lock)
		d.Get("/preview", h.Preview)
	})
}

// durationPatch fields accept numbers or numeric strings as typed in the admin form.
type durationPatch struct {
	DiscountPercent    any `json:"discountPercent"`
	ManualPricePerYear any `json:"manualPricePerYear"`
}

type planPatch struct {
	BaseMode        *string                  `json:"baseMode"`
	BasePriceAmount any                      `json:"basePriceAmount"`
	PerDuration     map[string]durationPatch `json:"perDurationConfig"`
}

type putRequest struct {
	Plans map[string]planPatch `json:"plans" validate:"required"`
}

type lockRequest struct {
	Plan   string `json:"plan" validate:"required"`
	Years  int    `json:"years" validate:"gte=1"`
	Locked bool   `json:"locked"`
}

// Get returns the draft, seeding bucket discounts from the published table
// the first time a package is opened.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := packageID(w, r)
	if !ok {
		return
	}
	d := h.Store.Get(id)
	if !d.Seeded && h.Source != nil {
		rows, err := h.Source.DurationDiscounts(r.Context(), id)
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("package_id", id).Msg("seed draft discounts")
		} else {
			d, _ = h.Store.Update(id, func(pd *PackageDraft) error {
				if !pd.Seeded {
					pd.SeedDiscounts(rows)
				}
				return nil
			})
		}
	}
	common.Data(w, http.StatusOK, d)
}

// Put merges edits into the draft. Omitted fields are left unchanged and
// malformed numbers become zero.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	id, ok := packageID(w, r)
	if !ok {
		return
	}
	var req putRequest
	if !common.DecodeJSON(w, r, &req) {
		return
	}
	d, err := h.Store.Update(id, func(pd *PackageDraft) error {
		for rawKey, patch := range req.Plans {
			key := PlanKey(strings.TrimSpace(rawKey))
			if !key.Valid() {
				return fmt.Errorf("%w: %q", errUnknownPlan, rawKey)
			}
			plan := pd.Plan(key)
			if err := applyPatch(&plan, patch); err != nil {
				return err
			}
			pd.Plans[key] = plan
		}
		return nil
	})
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, err.Error(), nil)
		return
	}
	common.Data(w, http.StatusOK, d)
}

func applyPatch(plan *PlanDraft, patch planPatch) error {
	if patch.BaseMode != nil {
		mode := pricing.BaseMode(strings.ToLower(strings.TrimSpace(*patch.BaseMode)))
		if mode != pricing.BaseModeMonthly && mode != pricing.BaseModeYearly {
			return errBadBaseMode
		}
		plan.BaseMode = mode
	}
	if patch.BasePriceAmount != nil {
		plan.BasePriceAmount = money.CoerceFloat(patch.BasePriceAmount)
		if plan.BasePriceAmount < 0 {
			plan.BasePriceAmount = 0
		}
	}
	for rawYears, dp := range patch.PerDuration {
		years, err := strconv.Atoi(strings.TrimSpace(rawYears))
		if err != nil || years <= 0 {
			return errBadYears
		}
		if dp.DiscountPercent != nil {
			plan.SetDiscount(years, money.CoerceFloat(dp.DiscountPercent))
		}
		if dp.ManualPricePerYear != nil {
			plan.SetManualPrice(years, money.Round(money.Coerce(dp.ManualPricePerYear)))
		}
	}
	return nil
}

// Lock toggles manual pricing for one bucket of one service line.
func (h *Handler) Lock(w http.ResponseWriter, r *http.Request) {
	id, ok := packageID(w, r)
	if !ok {
		return
	}
	var req lockRequest
	if !common.DecodeJSON(w, r, &req) {
		return
	}
	key := PlanKey(strings.TrimSpace(req.Plan))
	if !key.Valid() {
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, errUnknownPlan.Error(), nil)
		return
	}
	d, _ := h.Store.Update(id, func(pd *PackageDraft) error {
		plan := pd.Plan(key)
		plan.SetLock(req.Years, req.Locked)
		pd.Plans[key] = plan
		return nil
	})
	plan := d.Plan(key)
	common.Data(w, http.StatusOK, map[string]any{
		"plan":   key,
		"config": plan.Config(req.Years),
		"bucket": plan.Bucket(req.Years),
	})
}

// Preview prices the draft for every active duration bucket.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := packageID(w, r)
	if !ok {
		return
	}
	if h.Source == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "pricing source not configured", nil)
		return
	}
	plans, err := h.Source.LegacyPlans(r.Context())
	if err != nil {
		h.Logger.Error().Err(err).Str("package_id", id).Msg("load duration buckets")
		common.WriteError(w, common.Upstream("pricing data unavailable", err))
		return
	}
	common.Data(w, http.StatusOK, Calculate(h.Store.Get(id), ActiveBuckets(plans)))
}

// Reset discards the package draft.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	id, ok := packageID(w, r)
	if !ok {
		return
	}
	h.Store.Reset(id)
	w.WriteHeader(http.StatusNoContent)
}

func packageID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "packageID"))
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "package id is required", nil)
		return "", false
	}
	return id, true
}
