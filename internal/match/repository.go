package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-procure/meridian-procure/internal/platform/db"
	"github.com/meridian-procure/meridian-procure/internal/shared"
)

// Repository is the pgx implementation of RepositoryPort.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const invoiceColumns = `id, order_id, supplier_id, invoice_number, amount, status, matched_at, due_at, created_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.OrderID, &inv.SupplierID, &inv.InvoiceNumber, &inv.Amount, &inv.Status, &inv.MatchedAt, &inv.DueAt, &inv.CreatedAt)
	return inv, err
}

func (r *Repository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, fmt.Errorf("match: %w: invoice %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return Invoice{}, fmt.Errorf("match: get invoice: %w", err)
	}
	return inv, nil
}

func (r *Repository) ListInvoicesByOrder(ctx context.Context, orderID int64) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("match: list invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("match: scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *Repository) CountReceipts(ctx context.Context, orderID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM goods_receipts WHERE order_id = $1`, orderID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("match: count receipts: %w", err)
	}
	return n, nil
}

func (r *Repository) GetOrderSummary(ctx context.Context, orderID int64) (OrderSummary, error) {
	var sum OrderSummary
	err := r.pool.QueryRow(ctx,
		`SELECT id, supplier_id, total_amount FROM procurement_orders WHERE id = $1`, orderID,
	).Scan(&sum.ID, &sum.SupplierID, &sum.TotalAmount)
	if errors.Is(err, pgx.ErrNoRows) {
		return OrderSummary{}, fmt.Errorf("match: %w: order %d", shared.ErrNotFound, orderID)
	}
	if err != nil {
		return OrderSummary{}, fmt.Errorf("match: get order summary: %w", err)
	}
	return sum, nil
}

func (r *Repository) ListOutstanding(ctx context.Context) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE status <> $1 ORDER BY due_at, id`, InvoiceStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("match: list outstanding: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("match: scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO invoices (order_id, supplier_id, invoice_number, amount, status, due_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id`,
		inv.OrderID, inv.SupplierID, inv.InvoiceNumber, inv.Amount, inv.Status, inv.DueAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("match: %w: invoice %s already recorded for order %d", shared.ErrConflict, inv.InvoiceNumber, inv.OrderID)
		}
		return 0, fmt.Errorf("match: create invoice: %w", err)
	}
	return id, nil
}

func (t *txRepo) SetInvoiceMatched(ctx context.Context, id int64, at time.Time) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE invoices SET status = $2, matched_at = $3 WHERE id = $1 AND status = $4`,
		id, InvoiceStatusMatched, at, InvoiceStatusPending)
	if err != nil {
		return fmt.Errorf("match: set invoice matched: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("match: %w: invoice %d is not pending", shared.ErrConflict, id)
	}
	return nil
}

func (t *txRepo) SetInvoiceStatus(ctx context.Context, id int64, status InvoiceStatus, matchedAt *time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE invoices SET status = $2, matched_at = $3 WHERE id = $1`, id, status, matchedAt)
	if err != nil {
		return fmt.Errorf("match: set invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("match: %w: invoice %d", shared.ErrNotFound, id)
	}
	return nil
}
