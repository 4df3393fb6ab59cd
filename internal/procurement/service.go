package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/meridian-procure/meridian-procure/internal/contracts"
	"github.com/meridian-procure/meridian-procure/internal/masterdata/suppliers"
	"github.com/meridian-procure/meridian-procure/internal/match"
	"github.com/meridian-procure/meridian-procure/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetRequisition(ctx context.Context, id int64) (Requisition, error)
	GetOrder(ctx context.Context, id int64) (Order, []OrderItem, error)
	ListOrders(ctx context.Context, limit, offset int, filters ListFilters) ([]Order, int, error)
	ListReceipts(ctx context.Context, orderID int64) ([]GoodsReceipt, error)
}

// ContractPort resolves framework agreements at order-creation time.
type ContractPort interface {
	Resolve(ctx context.Context, supplierID int64, asOf time.Time) (*contracts.Contract, error)
}

// SupplierPort exposes the supplier directory read side.
type SupplierPort interface {
	Get(ctx context.Context, id int64) (suppliers.Supplier, error)
}

// MatchPort triggers the three-way match recheck after a receipt lands.
type MatchPort interface {
	Reconcile(ctx context.Context, orderID int64) (match.Verdict, error)
}

// AuditPort records append-only activity entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ListFilters narrows order listings.
type ListFilters struct {
	Status     string
	SupplierID int64
	Search     string
}

// Service orchestrates the requisition workflow and the order lifecycle.
type Service struct {
	repo        RepositoryPort
	contracts   ContractPort
	suppliers   SupplierPort
	match       MatchPort
	audit       AuditPort
	notifier    shared.Notifier
	approvals   *shared.ApprovalRecorder
	idempotency *shared.IdempotencyStore
	logger      *slog.Logger
}

// NewService constructs the procurement service.
func NewService(repo RepositoryPort, contractPort ContractPort, supplierPort SupplierPort, matchPort MatchPort, audit AuditPort, notifier shared.Notifier, approvals *shared.ApprovalRecorder, idem *shared.IdempotencyStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		contracts:   contractPort,
		suppliers:   supplierPort,
		match:       matchPort,
		audit:       audit,
		notifier:    notifier,
		approvals:   approvals,
		idempotency: idem,
		logger:      logger,
	}
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Identity, action, entityType string, entityID int64, details map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:    actor.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   fmt.Sprintf("%d", entityID),
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
		s.logger.Warn("dispatch notification", slog.String("title", n.Title), slog.Any("error", err))
	}
}

// activeSupplier fetches the supplier and enforces directory eligibility.
func (s *Service) activeSupplier(ctx context.Context, supplierID int64) (suppliers.Supplier, error) {
	sup, err := s.suppliers.Get(ctx, supplierID)
	if err != nil {
		return suppliers.Supplier{}, fmt.Errorf("procurement: supplier %d: %w", supplierID, err)
	}
	if !sup.Eligible() {
		return suppliers.Supplier{}, fmt.Errorf("procurement: %w: supplier %q is %s", shared.ErrPolicy, sup.Name, sup.Status)
	}
	return sup, nil
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func roundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}
