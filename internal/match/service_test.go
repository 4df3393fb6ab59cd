package match

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-procure/meridian-procure/internal/shared"
)

type memoryMatchRepo struct {
	invoices map[int64]Invoice
	orders   map[int64]OrderSummary
	receipts map[int64]int
	nextID   int64
	writes   int
}

func newMemoryMatchRepo() *memoryMatchRepo {
	return &memoryMatchRepo{
		invoices: make(map[int64]Invoice),
		orders:   make(map[int64]OrderSummary),
		receipts: make(map[int64]int),
		nextID:   1,
	}
}

func (m *memoryMatchRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryMatchTx{repo: m})
}

func (m *memoryMatchRepo) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, fmt.Errorf("match: %w: invoice %d", shared.ErrNotFound, id)
	}
	return inv, nil
}

func (m *memoryMatchRepo) ListInvoicesByOrder(ctx context.Context, orderID int64) ([]Invoice, error) {
	var out []Invoice
	for id := int64(1); id < m.nextID; id++ {
		if inv, ok := m.invoices[id]; ok && inv.OrderID == orderID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memoryMatchRepo) CountReceipts(ctx context.Context, orderID int64) (int, error) {
	return m.receipts[orderID], nil
}

func (m *memoryMatchRepo) GetOrderSummary(ctx context.Context, orderID int64) (OrderSummary, error) {
	sum, ok := m.orders[orderID]
	if !ok {
		return OrderSummary{}, fmt.Errorf("match: %w: order %d", shared.ErrNotFound, orderID)
	}
	return sum, nil
}

func (m *memoryMatchRepo) ListOutstanding(ctx context.Context) ([]Invoice, error) {
	var out []Invoice
	for id := int64(1); id < m.nextID; id++ {
		if inv, ok := m.invoices[id]; ok && inv.Status != InvoiceStatusPaid {
			out = append(out, inv)
		}
	}
	return out, nil
}

type memoryMatchTx struct {
	repo *memoryMatchRepo
}

func (t *memoryMatchTx) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	for _, existing := range t.repo.invoices {
		if existing.OrderID == inv.OrderID && existing.InvoiceNumber == inv.InvoiceNumber {
			return 0, fmt.Errorf("match: %w: invoice %s already recorded for order %d", shared.ErrConflict, inv.InvoiceNumber, inv.OrderID)
		}
	}
	inv.ID = t.repo.nextID
	t.repo.nextID++
	inv.CreatedAt = time.Now()
	t.repo.invoices[inv.ID] = inv
	t.repo.writes++
	return inv.ID, nil
}

func (t *memoryMatchTx) SetInvoiceMatched(ctx context.Context, id int64, at time.Time) error {
	inv, ok := t.repo.invoices[id]
	if !ok || inv.Status != InvoiceStatusPending {
		return fmt.Errorf("match: %w: invoice %d is not pending", shared.ErrConflict, id)
	}
	inv.Status = InvoiceStatusMatched
	inv.MatchedAt = &at
	t.repo.invoices[id] = inv
	t.repo.writes++
	return nil
}

func (t *memoryMatchTx) SetInvoiceStatus(ctx context.Context, id int64, status InvoiceStatus, matchedAt *time.Time) error {
	inv, ok := t.repo.invoices[id]
	if !ok {
		return fmt.Errorf("match: %w: invoice %d", shared.ErrNotFound, id)
	}
	inv.Status = status
	inv.MatchedAt = matchedAt
	t.repo.invoices[id] = inv
	t.repo.writes++
	return nil
}

type stubMatchAudit struct {
	entries []shared.AuditLog
}

func (s *stubMatchAudit) Record(ctx context.Context, log shared.AuditLog) error {
	s.entries = append(s.entries, log)
	return nil
}

type stubMetrics struct {
	verdicts []string
}

func (s *stubMetrics) ObserveMatchVerdict(verdict string) {
	s.verdicts = append(s.verdicts, verdict)
}

var (
	clerk = shared.Identity{UserID: 300, Role: shared.RoleUser}
	admin = shared.Identity{UserID: 1, Role: shared.RoleAdmin}
)

type matchFixture struct {
	repo    *memoryMatchRepo
	audit   *stubMatchAudit
	metrics *stubMetrics
	service *Service
}

func newMatchFixture(t *testing.T) *matchFixture {
	t.Helper()
	repo := newMemoryMatchRepo()
	audit := &stubMatchAudit{}
	metrics := &stubMetrics{}
	svc := NewService(repo, audit, metrics, slog.Default())
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	repo.orders[41] = OrderSummary{ID: 41, SupplierID: 7, TotalAmount: 10000}
	return &matchFixture{repo: repo, audit: audit, metrics: metrics, service: svc}
}

func (f *matchFixture) addInvoice(t *testing.T, orderID int64, number string, amount float64) (Invoice, Verdict) {
	t.Helper()
	inv, verdict, err := f.service.AddInvoice(context.Background(), clerk, AddInvoiceInput{
		OrderID:       orderID,
		InvoiceNumber: number,
		Amount:        amount,
		DueAt:         time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return inv, verdict
}

func TestReconcileMatchesSplitInvoicesWithinTolerance(t *testing.T) {
	f := newMatchFixture(t)
	f.repo.receipts[41] = 1

	_, verdict := f.addInvoice(t, 41, "INV-001", 6000)
	require.Equal(t, VerdictPending, verdict)

	inv2, verdict := f.addInvoice(t, 41, "INV-002", 4000)
	require.Equal(t, VerdictMatched, verdict)

	for _, id := range []int64{1, inv2.ID} {
		inv, err := f.repo.GetInvoice(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, InvoiceStatusMatched, inv.Status)
		require.NotNil(t, inv.MatchedAt)
	}
}

func TestReconcileStaysPendingWithoutReceipt(t *testing.T) {
	f := newMatchFixture(t)

	f.addInvoice(t, 41, "INV-001", 6000)
	_, verdict := f.addInvoice(t, 41, "INV-002", 4000)
	require.Equal(t, VerdictPending, verdict)

	invoices, err := f.repo.ListInvoicesByOrder(context.Background(), 41)
	require.NoError(t, err)
	for _, inv := range invoices {
		require.Equal(t, InvoiceStatusPending, inv.Status)
		require.Nil(t, inv.MatchedAt)
	}
}

func TestReconcileStaysPendingOutsideTolerance(t *testing.T) {
	f := newMatchFixture(t)
	f.repo.receipts[41] = 1

	f.addInvoice(t, 41, "INV-001", 6000)
	_, verdict := f.addInvoice(t, 41, "INV-002", 4000.50)
	require.Equal(t, VerdictPending, verdict)
}

func TestReconcileExactToleranceBoundaryIsPending(t *testing.T) {
	f := newMatchFixture(t)
	f.repo.receipts[41] = 1

	// A difference of exactly 0.01 is not within tolerance.
	_, verdict := f.addInvoice(t, 41, "INV-001", 10000.01)
	require.Equal(t, VerdictPending, verdict)
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newMatchFixture(t)
	f.repo.receipts[41] = 1
	f.addInvoice(t, 41, "INV-001", 10000)

	writesAfterFirst := f.repo.writes
	verdict, err := f.service.Reconcile(context.Background(), 41)
	require.NoError(t, err)
	require.Equal(t, VerdictMatched, verdict)
	require.Equal(t, writesAfterFirst, f.repo.writes, "second run must not write")
}

func TestReconcileNeverDowngradesOverrides(t *testing.T) {
	f := newMatchFixture(t)
	f.repo.receipts[41] = 1

	inv, _ := f.addInvoice(t, 41, "INV-001", 10000)
	require.NoError(t, f.service.OverrideInvoiceStatus(context.Background(), admin, inv.ID, InvoiceStatusPaid))

	verdict, err := f.service.Reconcile(context.Background(), 41)
	require.NoError(t, err)
	require.Equal(t, VerdictMatched, verdict)

	got, err := f.repo.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPaid, got.Status)
}

func TestOverrideRequiresAdmin(t *testing.T) {
	f := newMatchFixture(t)
	inv, _ := f.addInvoice(t, 41, "INV-001", 500)

	err := f.service.OverrideInvoiceStatus(context.Background(), clerk, inv.ID, InvoiceStatusDisputed)
	require.ErrorIs(t, err, shared.ErrForbidden)

	err = f.service.OverrideInvoiceStatus(context.Background(), admin, inv.ID, InvoiceStatus("pending"))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAddInvoiceValidation(t *testing.T) {
	f := newMatchFixture(t)

	_, _, err := f.service.AddInvoice(context.Background(), clerk, AddInvoiceInput{OrderID: 41, InvoiceNumber: "  ", Amount: 100})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, _, err = f.service.AddInvoice(context.Background(), clerk, AddInvoiceInput{OrderID: 41, InvoiceNumber: "INV-001", Amount: 0})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, _, err = f.service.AddInvoice(context.Background(), clerk, AddInvoiceInput{OrderID: 999, InvoiceNumber: "INV-001", Amount: 100})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAddInvoiceDuplicateNumberConflicts(t *testing.T) {
	f := newMatchFixture(t)
	f.addInvoice(t, 41, "INV-001", 500)

	_, _, err := f.service.AddInvoice(context.Background(), clerk, AddInvoiceInput{
		OrderID: 41, InvoiceNumber: "INV-001", Amount: 500,
	})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestCalculateAgingBuckets(t *testing.T) {
	f := newMatchFixture(t)
	asOf := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	due := func(days int) time.Time { return asOf.AddDate(0, 0, -days) }
	for i, tc := range []struct {
		amount float64
		dueAt  time.Time
	}{
		{100, due(-5)},  // not yet due
		{200, due(10)},  // 30-day bucket
		{300, due(45)},  // 60-day bucket
		{400, due(75)},  // 90-day bucket
		{500, due(200)}, // older
	} {
		_, _, err := f.service.AddInvoice(context.Background(), clerk, AddInvoiceInput{
			OrderID:       41,
			InvoiceNumber: fmt.Sprintf("INV-%03d", i+1),
			Amount:        tc.amount,
			DueAt:         tc.dueAt,
		})
		require.NoError(t, err)
	}

	bucket, err := f.service.CalculateAging(context.Background(), asOf)
	require.NoError(t, err)
	require.Equal(t, 100.0, bucket.Current)
	require.Equal(t, 200.0, bucket.Bucket30)
	require.Equal(t, 300.0, bucket.Bucket60)
	require.Equal(t, 400.0, bucket.Bucket90)
	require.Equal(t, 500.0, bucket.Bucket120)
}

func TestVerdictMetricsObserved(t *testing.T) {
	f := newMatchFixture(t)
	f.repo.receipts[41] = 1

	f.addInvoice(t, 41, "INV-001", 10000)
	require.Equal(t, []string{"MATCHED"}, f.metrics.verdicts)
}
