package contracts

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-procure/meridian-procure/internal/platform/httpx"
)

// Handler exposes contract resolution over HTTP.
type Handler struct {
	resolver ResolverPort
}

// NewHandler builds a Handler instance.
func NewHandler(resolver ResolverPort) *Handler {
	return &Handler{resolver: resolver}
}

// MountRoutes registers contract routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/suppliers/{id}/contract", h.resolve)
}

type resolveResponse struct {
	Found    bool      `json:"found"`
	Contract *Contract `json:"contract,omitempty"`
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	supplierID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || supplierID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid supplier id")
		return
	}
	asOf := time.Now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		asOf, err = time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "as_of must be YYYY-MM-DD")
			return
		}
	}
	contract, err := h.resolver.Resolve(r.Context(), supplierID, asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resolveResponse{Found: contract != nil, Contract: contract})
}
