package sourcing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/meridian-procure/meridian-procure/internal/contracts"
	"github.com/meridian-procure/meridian-procure/internal/masterdata/suppliers"
	"github.com/meridian-procure/meridian-procure/internal/procurement"
	"github.com/meridian-procure/meridian-procure/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetRFQ(ctx context.Context, id int64) (RFQ, error)
	ListItems(ctx context.Context, rfqID int64) ([]RFQItem, error)
	ListQuotes(ctx context.Context, rfqID int64) ([]SupplierQuote, error)
	GetQuote(ctx context.Context, id int64) (SupplierQuote, error)
	FindQuote(ctx context.Context, rfqID, supplierID int64) (SupplierQuote, error)
}

// TxRepository exposes transactional operations. Awarding writes the
// resulting purchase order in the same transaction that closes the RFQ.
type TxRepository interface {
	CreateRFQ(ctx context.Context, rfq RFQ) (int64, error)
	InsertItem(ctx context.Context, item RFQItem) error
	InsertQuote(ctx context.Context, quote SupplierQuote) (int64, error)
	GetRFQForUpdate(ctx context.Context, id int64) (RFQ, error)
	SetRFQStatus(ctx context.Context, id int64, status RFQStatus) error
	UpdateQuote(ctx context.Context, quote SupplierQuote) error
	CreateOrder(ctx context.Context, order procurement.Order) (int64, error)
	InsertOrderItem(ctx context.Context, item procurement.OrderItem) error
}

// PartPort resolves part categories for scoring.
type PartPort interface {
	CategoriesForParts(ctx context.Context, ids []int64) ([]string, error)
}

// SupplierPort exposes the supplier directory read side.
type SupplierPort interface {
	Get(ctx context.Context, id int64) (suppliers.Supplier, error)
	ListActiveByCategories(ctx context.Context, categories []string) ([]suppliers.Supplier, error)
	ListByIDs(ctx context.Context, ids []int64) ([]suppliers.Supplier, error)
}

// ContractPort resolves framework agreements for awarded orders.
type ContractPort interface {
	Resolve(ctx context.Context, supplierID int64, asOf time.Time) (*contracts.Contract, error)
}

// AuditPort records append-only activity entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ParseEnqueuer hands a quote document to the background parsing pipeline.
type ParseEnqueuer interface {
	EnqueueParseQuote(ctx context.Context, quoteID int64, filename string, payload []byte) error
}

// Service drives the RFQ workflow.
type Service struct {
	repo      RepositoryPort
	parts     PartPort
	suppliers SupplierPort
	contracts ContractPort
	audit     AuditPort
	notifier  shared.Notifier
	parser    ParseEnqueuer
	logger    *slog.Logger
}

// NewService constructs the sourcing service.
func NewService(repo RepositoryPort, partPort PartPort, supplierPort SupplierPort, contractPort ContractPort, audit AuditPort, notifier shared.Notifier, parser ParseEnqueuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		parts:     partPort,
		suppliers: supplierPort,
		contracts: contractPort,
		audit:     audit,
		notifier:  notifier,
		parser:    parser,
		logger:    logger,
	}
}

// CreateRFQItemInput is one requested line.
type CreateRFQItemInput struct {
	PartID   int64
	Quantity float64
}

// CreateRFQInput describes a new sourcing event.
type CreateRFQInput struct {
	Title       string
	Description string
	Items       []CreateRFQItemInput
}

// CreateRFQ creates the RFQ with its items in draft and pre-populates
// invited quotes from the supplier recommendation. The item list is
// immutable afterwards.
func (s *Service) CreateRFQ(ctx context.Context, actor shared.Identity, input CreateRFQInput) (RFQ, []Recommendation, error) {
	if !shared.Can(actor, shared.ActRFQManage) {
		return RFQ{}, nil, fmt.Errorf("sourcing: %w: rfq manage", shared.ErrForbidden)
	}
	if strings.TrimSpace(input.Title) == "" {
		return RFQ{}, nil, fmt.Errorf("sourcing: %w: title required", shared.ErrValidation)
	}
	if len(input.Items) == 0 {
		return RFQ{}, nil, fmt.Errorf("sourcing: %w: at least one item required", shared.ErrValidation)
	}
	partIDs := make([]int64, 0, len(input.Items))
	for _, item := range input.Items {
		if item.PartID <= 0 || item.Quantity <= 0 {
			return RFQ{}, nil, fmt.Errorf("sourcing: %w: item part and quantity must be positive", shared.ErrValidation)
		}
		partIDs = append(partIDs, item.PartID)
	}

	categories, err := s.parts.CategoriesForParts(ctx, partIDs)
	if err != nil {
		return RFQ{}, nil, err
	}
	if len(categories) == 0 {
		return RFQ{}, nil, fmt.Errorf("sourcing: %w: unknown parts", shared.ErrValidation)
	}
	candidates, err := s.suppliers.ListActiveByCategories(ctx, categories)
	if err != nil {
		return RFQ{}, nil, err
	}
	recs := Recommend(candidates, categories)

	rfq := RFQ{
		Number:      fmt.Sprintf("RFQ-%d", time.Now().UnixNano()),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Status:      RFQStatusDraft,
		CreatedBy:   actor.UserID,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateRFQ(ctx, rfq)
		if err != nil {
			return err
		}
		rfq.ID = id
		for _, item := range input.Items {
			if err := tx.InsertItem(ctx, RFQItem{RFQID: id, PartID: item.PartID, Quantity: item.Quantity}); err != nil {
				return err
			}
		}
		for _, rec := range recs {
			_, err := tx.InsertQuote(ctx, SupplierQuote{
				RFQID:      id,
				SupplierID: rec.Supplier.ID,
				Status:     QuoteStatusInvited,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return RFQ{}, nil, err
	}
	s.recordAudit(ctx, actor, "RFQ_CREATE", rfq.ID, map[string]any{
		"title":   rfq.Title,
		"invited": len(recs),
	})
	return rfq, recs, nil
}

// OpenRFQ advances a draft RFQ to open.
func (s *Service) OpenRFQ(ctx context.Context, actor shared.Identity, rfqID int64) error {
	return s.transition(ctx, actor, rfqID, RFQStatusOpen, "RFQ_OPEN")
}

// CancelRFQ terminates an RFQ before award. Cancellation is terminal.
func (s *Service) CancelRFQ(ctx context.Context, actor shared.Identity, rfqID int64) error {
	return s.transition(ctx, actor, rfqID, RFQStatusCancelled, "RFQ_CANCEL")
}

func (s *Service) transition(ctx context.Context, actor shared.Identity, rfqID int64, to RFQStatus, action string) error {
	if !shared.Can(actor, shared.ActRFQManage) {
		return fmt.Errorf("sourcing: %w: rfq manage", shared.ErrForbidden)
	}
	var from RFQStatus
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rfq, err := tx.GetRFQForUpdate(ctx, rfqID)
		if err != nil {
			return err
		}
		from = rfq.Status
		if !CanTransition(rfq.Status, to) {
			return fmt.Errorf("sourcing: %w: cannot move rfq from %s to %s", shared.ErrConflict, rfq.Status, to)
		}
		return tx.SetRFQStatus(ctx, rfqID, to)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor, action, rfqID, map[string]any{"from": string(from), "to": string(to)})
	return nil
}

// RecordQuoteInput carries a supplier's offer.
type RecordQuoteInput struct {
	Amount   float64
	Analysis QuoteAnalysis
}

// RecordQuote stores a supplier's offer against an invitation. Procurement
// actors may record on behalf of any invitee; a supplier actor may only
// submit against its own invitation. Quotes may land while the RFQ is draft
// or open; resubmission overwrites the previous offer.
func (s *Service) RecordQuote(ctx context.Context, actor shared.Identity, quoteID int64, input RecordQuoteInput) (SupplierQuote, error) {
	if input.Amount <= 0 {
		return SupplierQuote{}, fmt.Errorf("sourcing: %w: quote amount must be positive", shared.ErrValidation)
	}
	return s.applyQuote(ctx, actor, quoteID, QuoteStatusQuoted, input)
}

// DeclineQuote marks an invitation as declined.
func (s *Service) DeclineQuote(ctx context.Context, actor shared.Identity, quoteID int64) (SupplierQuote, error) {
	return s.applyQuote(ctx, actor, quoteID, QuoteStatusDeclined, RecordQuoteInput{})
}

func (s *Service) applyQuote(ctx context.Context, actor shared.Identity, quoteID int64, status QuoteStatus, input RecordQuoteInput) (SupplierQuote, error) {
	quote, err := s.repo.GetQuote(ctx, quoteID)
	if err != nil {
		return SupplierQuote{}, err
	}
	if actor.IsSupplier() {
		if !shared.Can(actor, shared.ActQuoteSubmit) || actor.SupplierID != quote.SupplierID {
			return SupplierQuote{}, fmt.Errorf("sourcing: %w: quote %d does not belong to supplier", shared.ErrForbidden, quoteID)
		}
	} else if !shared.Can(actor, shared.ActRFQManage) {
		return SupplierQuote{}, fmt.Errorf("sourcing: %w: rfq manage", shared.ErrForbidden)
	}
	rfq, err := s.repo.GetRFQ(ctx, quote.RFQID)
	if err != nil {
		return SupplierQuote{}, err
	}
	if rfq.Status != RFQStatusDraft && rfq.Status != RFQStatusOpen {
		return SupplierQuote{}, fmt.Errorf("sourcing: %w: rfq %d is %s", shared.ErrConflict, rfq.ID, rfq.Status)
	}
	quote.Status = status
	quote.QuoteAmount = input.Amount
	quote.Analysis = input.Analysis
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateQuote(ctx, quote)
	})
	if err != nil {
		return SupplierQuote{}, err
	}
	s.recordAudit(ctx, actor, "RFQ_QUOTE", quote.RFQID, map[string]any{
		"quote_id":    quote.ID,
		"supplier_id": quote.SupplierID,
		"status":      string(status),
	})
	return quote, nil
}

// ParseQuoteDocument hands a supplier document to the background parser.
// The manual RecordQuote path stays available when parsing is down.
func (s *Service) ParseQuoteDocument(ctx context.Context, actor shared.Identity, quoteID int64, filename string, payload []byte) error {
	if !shared.Can(actor, shared.ActRFQManage) {
		return fmt.Errorf("sourcing: %w: rfq manage", shared.ErrForbidden)
	}
	if len(payload) == 0 {
		return fmt.Errorf("sourcing: %w: empty document", shared.ErrValidation)
	}
	quote, err := s.repo.GetQuote(ctx, quoteID)
	if err != nil {
		return err
	}
	rfq, err := s.repo.GetRFQ(ctx, quote.RFQID)
	if err != nil {
		return err
	}
	if rfq.Status != RFQStatusDraft && rfq.Status != RFQStatusOpen {
		return fmt.Errorf("sourcing: %w: rfq %d is %s", shared.ErrConflict, rfq.ID, rfq.Status)
	}
	if s.parser == nil {
		return fmt.Errorf("sourcing: %w: document parsing unavailable", shared.ErrTransient)
	}
	if err := s.parser.EnqueueParseQuote(ctx, quoteID, filename, payload); err != nil {
		return fmt.Errorf("sourcing: %w: enqueue parse: %v", shared.ErrTransient, err)
	}
	return nil
}

// ApplyParsedQuote records the analysis produced by the background parser.
func (s *Service) ApplyParsedQuote(ctx context.Context, quoteID int64, amount float64, analysis QuoteAnalysis) error {
	system := shared.Identity{Role: shared.RoleAdmin}
	_, err := s.RecordQuote(ctx, system, quoteID, RecordQuoteInput{Amount: amount, Analysis: analysis})
	return err
}

// RankedQuote pairs a participating supplier with its current score.
type RankedQuote struct {
	Quote    SupplierQuote      `json:"quote"`
	Supplier suppliers.Supplier `json:"supplier"`
	Score    float64            `json:"score"`
}

// RankQuotes orders current participants by the recommendation weighting.
// Rankings may differ from creation-time invitations once supplier scores
// move.
func (s *Service) RankQuotes(ctx context.Context, rfqID int64) ([]RankedQuote, error) {
	if _, err := s.repo.GetRFQ(ctx, rfqID); err != nil {
		return nil, err
	}
	quotes, err := s.repo.ListQuotes(ctx, rfqID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(quotes))
	for _, q := range quotes {
		if q.Status != QuoteStatusDeclined {
			ids = append(ids, q.SupplierID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sups, err := s.suppliers.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]suppliers.Supplier, len(sups))
	for _, sup := range sups {
		byID[sup.ID] = sup
	}
	var ranked []RankedQuote
	for _, q := range quotes {
		sup, ok := byID[q.SupplierID]
		if !ok || q.Status == QuoteStatusDeclined {
			continue
		}
		ranked = append(ranked, RankedQuote{Quote: q, Supplier: sup, Score: Score(sup)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked, nil
}

// AwardRFQ converts the winning quote into a purchase order and closes the
// RFQ in one transaction. Closing ends supplier participation for good.
func (s *Service) AwardRFQ(ctx context.Context, actor shared.Identity, rfqID, supplierID int64) (int64, error) {
	if !shared.Can(actor, shared.ActRFQAward) {
		return 0, fmt.Errorf("sourcing: %w: rfq award", shared.ErrForbidden)
	}
	quote, err := s.repo.FindQuote(ctx, rfqID, supplierID)
	if err != nil {
		return 0, err
	}
	if quote.Status != QuoteStatusQuoted || quote.QuoteAmount <= 0 {
		return 0, fmt.Errorf("sourcing: %w: supplier %d has not quoted on rfq %d", shared.ErrConflict, supplierID, rfqID)
	}
	supplier, err := s.suppliers.Get(ctx, supplierID)
	if err != nil {
		return 0, err
	}
	if !supplier.Eligible() {
		return 0, fmt.Errorf("sourcing: %w: supplier %q is %s", shared.ErrPolicy, supplier.Name, supplier.Status)
	}
	items, err := s.repo.ListItems(ctx, rfqID)
	if err != nil {
		return 0, err
	}
	var totalQty float64
	for _, item := range items {
		totalQty += item.Quantity
	}
	if totalQty <= 0 {
		return 0, fmt.Errorf("sourcing: %w: rfq %d has no quantity to price", shared.ErrConflict, rfqID)
	}
	// Quotes are captured as a lump sum, so the unit price is spread
	// evenly across the total quantity.
	unitPrice := math.Round(quote.QuoteAmount/totalQty*100) / 100

	var contractID int64
	if s.contracts != nil {
		contract, err := s.contracts.Resolve(ctx, supplierID, time.Now())
		if err != nil {
			return 0, err
		}
		if contract != nil {
			contractID = contract.ID
		}
	}

	var orderID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rfq, err := tx.GetRFQForUpdate(ctx, rfqID)
		if err != nil {
			return err
		}
		if !CanTransition(rfq.Status, RFQStatusClosed) {
			return fmt.Errorf("sourcing: %w: cannot award rfq in status %s", shared.ErrConflict, rfq.Status)
		}
		orderID, err = tx.CreateOrder(ctx, procurement.Order{
			Number:      fmt.Sprintf("PO-%d", time.Now().UnixNano()),
			SupplierID:  supplierID,
			Status:      procurement.OrderStatusSent,
			TotalAmount: quote.QuoteAmount,
			ContractID:  contractID,
			RFQID:       rfqID,
			CreatedBy:   actor.UserID,
		})
		if err != nil {
			return err
		}
		for _, item := range items {
			err := tx.InsertOrderItem(ctx, procurement.OrderItem{
				OrderID:   orderID,
				PartID:    item.PartID,
				Quantity:  item.Quantity,
				UnitPrice: unitPrice,
			})
			if err != nil {
				return err
			}
		}
		return tx.SetRFQStatus(ctx, rfqID, RFQStatusClosed)
	})
	if err != nil {
		return 0, err
	}
	s.recordAudit(ctx, actor, "RFQ_AWARD", rfqID, map[string]any{
		"supplier_id": supplierID,
		"order_id":    orderID,
		"amount":      quote.QuoteAmount,
	})
	s.notify(ctx, shared.Notification{
		UserID:   actor.UserID,
		Title:    "RFQ awarded",
		Message:  fmt.Sprintf("RFQ %d awarded to %s for %s", rfqID, supplier.Name, shared.FormatAmount(quote.QuoteAmount)),
		Severity: shared.SeverityInfo,
	})
	return orderID, nil
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Identity, action string, rfqID int64, details map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:    actor.UserID,
		Action:     action,
		EntityType: "rfq",
		EntityID:   fmt.Sprintf("%d", rfqID),
		Details:    details,
	})
	if err != nil {
		s.logger.Warn("record audit", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) notify(ctx context.Context, n shared.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("send notification", slog.String("title", n.Title), slog.Any("error", err))
	}
}
