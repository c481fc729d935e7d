package catalog

import (
	"net/http"

	"github.com/noah-isme/langganan-pricing/internal/common"
)

// AdminHandler lets operators drop cached pricing tables after editing them.
type AdminHandler struct {
	Cache CachedSource
}

// Invalidate clears every cached pricing table.
func (h AdminHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.Cache.Invalidate(r.Context()); err != nil {
		h.Cache.Logger.Error().Err(err).Msg("invalidate pricing cache")
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "could not clear pricing cache", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
