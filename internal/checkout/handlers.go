package checkout

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/langganan-pricing/internal/common"
)

// Handler exposes the checkout endpoints.
type Handler struct {
	Svc      *Service
	Sessions *Sessions
}

// Routes mounts the checkout endpoints. Idem wraps invoice creation.
func (h *Handler) Routes(r chi.Router, idem func(http.Handler) http.Handler) {
	r.Post("/quote", h.Quote)
	if idem != nil {
		r.With(idem).Post("/invoice", h.Invoice)
	} else {
		r.Post("/invoice", h.Invoice)
	}
	if h.Sessions != nil {
		r.Route("/sessions/{sessionID}", func(s chi.Router) {
			s.Get("/", h.SessionState)
			s.Put("/", h.SessionUpdate)
			s.Post("/apply-promo", h.SessionApply)
			s.Delete("/", h.SessionClose)
		})
	}
}

// Quote resolves the payable amount for a selection.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout service not configured", nil)
		return
	}
	var in Input
	if !common.DecodeJSON(w, r, &in) {
		return
	}
	res, err := h.Svc.Quote(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, res)
}

// Invoice creates a payment invoice for the authoritative final amount.
func (h *Handler) Invoice(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout service not configured", nil)
		return
	}
	var in InvoiceInput
	if !common.DecodeJSON(w, r, &in) {
		return
	}
	res, err := h.Svc.CreateInvoice(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, res)
}

// SessionUpdate applies an edited selection to a live session.
func (h *Handler) SessionUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var in Input
	if !common.DecodeJSON(w, r, &in) {
		return
	}
	state, err := h.Sessions.Get(id).Update(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, state)
}

// SessionApply validates the session's promo code without waiting for the debounce.
func (h *Handler) SessionApply(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	state, err := sess.Apply(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, state)
}

// SessionState returns the latest session snapshot.
func (h *Handler) SessionState(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	common.Data(w, http.StatusOK, sess.State())
}

// SessionClose discards a session.
func (h *Handler) SessionClose(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if !h.Sessions.Close(id) {
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "session not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id, ok := sessionID(w, r)
	if !ok {
		return nil, false
	}
	sess, ok := h.Sessions.Lookup(id)
	if !ok {
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "session not found", nil)
		return nil, false
	}
	return sess, true
}

func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if id == "" || len(id) > 128 {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "session id is required", nil)
		return "", false
	}
	return id, true
}
