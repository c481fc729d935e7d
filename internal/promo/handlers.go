package promo

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/langganan-pricing/internal/common"
)

// Handler exposes standalone promo validation for the checkout form.
type Handler struct {
	Applier Applier
}

type validateBody struct {
	Code     string `json:"code" validate:"required,max=64"`
	Subtotal int64  `json:"subtotal" validate:"gte=0"`
}

// Routes mounts POST /validate. limit, when set, wraps the route.
func (h *Handler) Routes(r chi.Router, limit func(http.Handler) http.Handler) {
	if limit != nil {
		r.With(limit).Post("/validate", h.Validate)
		return
	}
	r.Post("/validate", h.Validate)
}

// Validate applies a code to a subtotal without touching any checkout state.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var body validateBody
	if !common.DecodeJSON(w, r, &body) {
		return
	}
	out, err := h.Applier.Apply(r.Context(), body.Code, body.Subtotal)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			common.WriteError(w, common.Reauthenticate(err))
			return
		}
		common.WriteError(w, common.Upstream("promo validation unavailable", err))
		return
	}
	common.Data(w, http.StatusOK, out)
}
