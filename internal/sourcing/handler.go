package sourcing

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-procure/meridian-procure/internal/platform/httpx"
	"github.com/meridian-procure/meridian-procure/internal/shared"
)

// Handler exposes RFQ endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers sourcing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/rfqs", h.createRFQ)
	r.Get("/rfqs/{id}", h.getRFQ)
	r.Post("/rfqs/{id}/open", h.openRFQ)
	r.Post("/rfqs/{id}/cancel", h.cancelRFQ)
	r.Get("/rfqs/{id}/ranking", h.rankQuotes)
	r.Post("/rfqs/{id}/award", h.awardRFQ)
	r.Post("/quotes/{id}", h.recordQuote)
	r.Post("/quotes/{id}/decline", h.declineQuote)
	r.Post("/quotes/{id}/parse", h.parseQuote)
}

type createRFQItem struct {
	PartID   int64   `json:"part_id" validate:"required,gt=0"`
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
}

type createRFQRequest struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Items       []createRFQItem `json:"items" validate:"required,min=1,dive"`
}

type createRFQResponse struct {
	RFQ         RFQ              `json:"rfq"`
	Recommended []Recommendation `json:"recommended"`
}

func (h *Handler) createRFQ(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "identity missing")
		return
	}
	var req createRFQRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateRFQInput{Title: req.Title, Description: req.Description}
	for _, item := range req.Items {
		input.Items = append(input.Items, CreateRFQItemInput{PartID: item.PartID, Quantity: item.Quantity})
	}
	rfq, recs, err := h.service.CreateRFQ(r.Context(), actor, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, createRFQResponse{RFQ: rfq, Recommended: recs})
}

type rfqDetailResponse struct {
	RFQ    RFQ             `json:"rfq"`
	Items  []RFQItem       `json:"items"`
	Quotes []SupplierQuote `json:"quotes"`
}

func (h *Handler) getRFQ(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	rfq, err := h.service.repo.GetRFQ(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.repo.ListItems(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	quotes, err := h.service.repo.ListQuotes(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rfqDetailResponse{RFQ: rfq, Items: items, Quotes: quotes})
}

func (h *Handler) openRFQ(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, h.service.OpenRFQ)
}

func (h *Handler) cancelRFQ(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, h.service.CancelRFQ)
}

func (h *Handler) applyTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor shared.Identity, id int64) error) {
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
	if err := fn(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) rankQuotes(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	ranked, err := h.service.RankQuotes(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ranked)
}

type awardRequest struct {
	SupplierID int64 `json:"supplier_id" validate:"required,gt=0"`
}

func (h *Handler) awardRFQ(w http.ResponseWriter, r *http.Request) {
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
	var req awardRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	orderID, err := h.service.AwardRFQ(r.Context(), actor, id, req.SupplierID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int64{"order_id": orderID})
}

type recordQuoteRequest struct {
	Amount        float64  `json:"amount" validate:"required,gt=0"`
	DeliveryWeeks int      `json:"delivery_weeks"`
	Terms         string   `json:"terms"`
	Highlights    []string `json:"highlights"`
}

func (h *Handler) recordQuote(w http.ResponseWriter, r *http.Request) {
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
	var req recordQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	quote, err := h.service.RecordQuote(r.Context(), actor, id, RecordQuoteInput{
		Amount: req.Amount,
		Analysis: QuoteAnalysis{
			DeliveryWeeks: req.DeliveryWeeks,
			Terms:         req.Terms,
			Highlights:    req.Highlights,
		},
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) declineQuote(w http.ResponseWriter, r *http.Request) {
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
	quote, err := h.service.DeclineQuote(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

type parseQuoteRequest struct {
	Filename string `json:"filename" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

func (h *Handler) parseQuote(w http.ResponseWriter, r *http.Request) {
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
	var req parseQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	payload, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "content must be base64")
		return
	}
	if err := h.service.ParseQuoteDocument(r.Context(), actor, id, req.Filename, payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
