package match

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-procure/meridian-procure/internal/platform/httpx"
	"github.com/meridian-procure/meridian-procure/internal/shared"
)

// Handler exposes invoice and reconciliation endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/invoices", h.addInvoice)
	r.Get("/invoices/{id}", h.getInvoice)
	r.Post("/invoices/{id}/override", h.overrideInvoice)
	r.Post("/orders/{id}/reconcile", h.reconcile)
	r.Get("/invoices/aging", h.aging)
}

type addInvoiceRequest struct {
	OrderID       int64   `json:"order_id" validate:"required,gt=0"`
	InvoiceNumber string  `json:"invoice_number" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	DueAt         string  `json:"due_at"`
}

type addInvoiceResponse struct {
	Invoice Invoice `json:"invoice"`
	Verdict Verdict `json:"verdict"`
}

func (h *Handler) addInvoice(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "identity missing")
		return
	}
	var req addInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	dueAt := time.Now().AddDate(0, 0, 30)
	if req.DueAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.DueAt)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "due_at must be RFC 3339")
			return
		}
		dueAt = parsed
	}
	inv, verdict, err := h.service.AddInvoice(r.Context(), actor, AddInvoiceInput{
		OrderID:       req.OrderID,
		InvoiceNumber: req.InvoiceNumber,
		Amount:        req.Amount,
		DueAt:         dueAt,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, addInvoiceResponse{Invoice: inv, Verdict: verdict})
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	inv, err := h.service.repo.GetInvoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

type overrideInvoiceRequest struct {
	Status string `json:"status" validate:"required,oneof=matched paid disputed"`
}

func (h *Handler) overrideInvoice(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "identity missing")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	var req overrideInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.OverrideInvoiceStatus(r.Context(), actor, id, InvoiceStatus(req.Status)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	if _, ok := shared.IdentityFromContext(r.Context()); !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "identity missing")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	verdict, err := h.service.Reconcile(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]Verdict{"verdict": verdict})
}

func (h *Handler) aging(w http.ResponseWriter, r *http.Request) {
	asOf := time.Time{}
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}
	bucket, err := h.service.CalculateAging(r.Context(), asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bucket)
}
