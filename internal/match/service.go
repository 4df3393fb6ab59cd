package match

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-procure/meridian-procure/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListInvoicesByOrder(ctx context.Context, orderID int64) ([]Invoice, error)
	CountReceipts(ctx context.Context, orderID int64) (int, error)
	GetOrderSummary(ctx context.Context, orderID int64) (OrderSummary, error)
	ListOutstanding(ctx context.Context) ([]Invoice, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	CreateInvoice(ctx context.Context, inv Invoice) (int64, error)
	SetInvoiceMatched(ctx context.Context, id int64, at time.Time) error
	SetInvoiceStatus(ctx context.Context, id int64, status InvoiceStatus, matchedAt *time.Time) error
}

// OrderSummary is the slice of the order the matcher needs.
type OrderSummary struct {
	ID          int64
	SupplierID  int64
	TotalAmount float64
}

// AuditPort records append-only activity entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts reconciliation outcomes.
type MetricsPort interface {
	ObserveMatchVerdict(verdict string)
}

// Service runs three-way match reconciliation over orders, receipts and
// invoices.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics MetricsPort
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs the reconciliation service.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, metrics: metrics, logger: logger, now: time.Now}
}

var tolerance = decimal.RequireFromString(Tolerance)

// AddInvoiceInput describes a recorded supplier claim.
type AddInvoiceInput struct {
	OrderID       int64
	InvoiceNumber string
	Amount        float64
	DueAt         time.Time
}

// AddInvoice records a supplier claim and immediately reruns the match for
// the order.
func (s *Service) AddInvoice(ctx context.Context, actor shared.Identity, input AddInvoiceInput) (Invoice, Verdict, error) {
	if !shared.Can(actor, shared.ActInvoiceRecord) {
		return Invoice{}, "", fmt.Errorf("match: %w: invoice record", shared.ErrForbidden)
	}
	if strings.TrimSpace(input.InvoiceNumber) == "" {
		return Invoice{}, "", fmt.Errorf("match: %w: invoice number required", shared.ErrValidation)
	}
	if input.Amount <= 0 {
		return Invoice{}, "", fmt.Errorf("match: %w: amount must be positive", shared.ErrValidation)
	}
	order, err := s.repo.GetOrderSummary(ctx, input.OrderID)
	if err != nil {
		return Invoice{}, "", err
	}
	inv := Invoice{
		OrderID:       order.ID,
		SupplierID:    order.SupplierID,
		InvoiceNumber: strings.TrimSpace(input.InvoiceNumber),
		Amount:        input.Amount,
		Status:        InvoiceStatusPending,
		DueAt:         input.DueAt,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id
		return nil
	})
	if err != nil {
		return Invoice{}, "", err
	}
	s.recordAudit(ctx, actor, "INVOICE_CREATE", inv.ID, map[string]any{"order_id": inv.OrderID, "number": inv.InvoiceNumber, "amount": inv.Amount})

	verdict, err := s.Reconcile(ctx, input.OrderID)
	if err != nil {
		// The invoice landed; a recheck failure must not undo that.
		s.logger.Warn("match recheck after invoice", slog.Int64("order_id", input.OrderID), slog.Any("error", err))
		return inv, VerdictPending, nil
	}
	return inv, verdict, nil
}

// Reconcile recomputes the three-way match for an order from the full
// current receipt and invoice sets. It is idempotent: a second run over an
// unchanged set performs no additional writes.
func (s *Service) Reconcile(ctx context.Context, orderID int64) (Verdict, error) {
	var (
		order        OrderSummary
		receiptCount int
		invoices     []Invoice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		order, err = s.repo.GetOrderSummary(gctx, orderID)
		return err
	})
	g.Go(func() error {
		var err error
		receiptCount, err = s.repo.CountReceipts(gctx, orderID)
		return err
	})
	g.Go(func() error {
		var err error
		invoices, err = s.repo.ListInvoicesByOrder(gctx, orderID)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	totalInvoiced := decimal.Zero
	for _, inv := range invoices {
		totalInvoiced = totalInvoiced.Add(decimal.NewFromFloat(inv.Amount))
	}
	orderTotal := decimal.NewFromFloat(order.TotalAmount)
	hasReceipt := receiptCount > 0
	priceMatched := totalInvoiced.Sub(orderTotal).Abs().LessThan(tolerance)

	if !hasReceipt || !priceMatched {
		s.observe(VerdictPending)
		return VerdictPending, nil
	}

	var toMatch []int64
	for _, inv := range invoices {
		// Manual overrides (paid, disputed) and already-matched invoices
		// stay untouched.
		if inv.Status == InvoiceStatusPending {
			toMatch = append(toMatch, inv.ID)
		}
	}
	if len(toMatch) > 0 {
		matchedAt := s.now()
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			for _, id := range toMatch {
				if err := tx.SetInvoiceMatched(ctx, id, matchedAt); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return "", err
		}
		s.recordAudit(ctx, shared.Identity{}, "INVOICE_MATCHED", orderID, map[string]any{"invoice_ids": toMatch})
	}
	s.observe(VerdictMatched)
	return VerdictMatched, nil
}

// OverrideInvoiceStatus lets an administrator force an invoice to matched,
// paid or disputed outside the algorithm. The automatic recheck never
// downgrades an override.
func (s *Service) OverrideInvoiceStatus(ctx context.Context, actor shared.Identity, invoiceID int64, status InvoiceStatus) error {
	if !shared.Can(actor, shared.ActInvoiceOverride) {
		return fmt.Errorf("match: %w: invoice override", shared.ErrForbidden)
	}
	switch status {
	case InvoiceStatusMatched, InvoiceStatusPaid, InvoiceStatusDisputed:
	default:
		return fmt.Errorf("match: %w: cannot override to %q", shared.ErrValidation, status)
	}
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	var matchedAt *time.Time
	if status == InvoiceStatusMatched || status == InvoiceStatusPaid {
		at := s.now()
		matchedAt = &at
		if inv.MatchedAt != nil {
			matchedAt = inv.MatchedAt
		}
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SetInvoiceStatus(ctx, invoiceID, status, matchedAt)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "INVOICE_OVERRIDE", invoiceID, map[string]any{"from": string(inv.Status), "to": string(status)})
	return nil
}

// ReconcileOutstanding reruns the match over every order that still has
// unsettled invoices. A single failing order does not stop the sweep.
func (s *Service) ReconcileOutstanding(ctx context.Context) (int, error) {
	invoices, err := s.repo.ListOutstanding(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[int64]bool)
	matched := 0
	for _, inv := range invoices {
		if seen[inv.OrderID] {
			continue
		}
		seen[inv.OrderID] = true
		verdict, err := s.Reconcile(ctx, inv.OrderID)
		if err != nil {
			s.logger.Warn("sweep reconcile", slog.Int64("order_id", inv.OrderID), slog.Any("error", err))
			continue
		}
		if verdict == VerdictMatched {
			matched++
		}
	}
	return matched, nil
}

// AgingBucket summarises outstanding invoice totals by days overdue.
type AgingBucket struct {
	Current   float64 `json:"current"`
	Bucket30  float64 `json:"bucket_30"`
	Bucket60  float64 `json:"bucket_60"`
	Bucket90  float64 `json:"bucket_90"`
	Bucket120 float64 `json:"bucket_120"`
}

// CalculateAging groups outstanding (unpaid) invoices by due date buckets.
func (s *Service) CalculateAging(ctx context.Context, asOf time.Time) (AgingBucket, error) {
	invoices, err := s.repo.ListOutstanding(ctx)
	if err != nil {
		return AgingBucket{}, err
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	var bucket AgingBucket
	for _, inv := range invoices {
		if inv.Status == InvoiceStatusPaid {
			continue
		}
		days := int(asOf.Sub(inv.DueAt).Hours() / 24)
		switch {
		case days <= 0:
			bucket.Current += inv.Amount
		case days <= 30:
			bucket.Bucket30 += inv.Amount
		case days <= 60:
			bucket.Bucket60 += inv.Amount
		case days <= 90:
			bucket.Bucket90 += inv.Amount
		default:
			bucket.Bucket120 += inv.Amount
		}
	}
	return bucket, nil
}

func (s *Service) observe(v Verdict) {
	if s.metrics != nil {
		s.metrics.ObserveMatchVerdict(string(v))
	}
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Identity, action string, entityID int64, details map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:    actor.UserID,
		Action:     action,
		EntityType: "invoice",
		EntityID:   fmt.Sprintf("%d", entityID),
		Details:    details,
	})
	if err != nil {
		s.logger.Warn("record audit", slog.String("action", action), slog.Any("error", err))
	}
}
