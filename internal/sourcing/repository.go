package sourcing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-procure/meridian-procure/internal/platform/db"
	"github.com/meridian-procure/meridian-procure/internal/procurement"
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

const rfqColumns = `id, number, title, description, status, created_by, created_at`

func scanRFQ(row pgx.Row) (RFQ, error) {
	var rfq RFQ
	err := row.Scan(&rfq.ID, &rfq.Number, &rfq.Title, &rfq.Description, &rfq.Status, &rfq.CreatedBy, &rfq.CreatedAt)
	return rfq, err
}

func (r *Repository) GetRFQ(ctx context.Context, id int64) (RFQ, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+rfqColumns+` FROM rfqs WHERE id = $1`, id)
	rfq, err := scanRFQ(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return RFQ{}, fmt.Errorf("sourcing: %w: rfq %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return RFQ{}, fmt.Errorf("sourcing: get rfq: %w", err)
	}
	return rfq, nil
}

func (r *Repository) ListItems(ctx context.Context, rfqID int64) ([]RFQItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, rfq_id, part_id, quantity FROM rfq_items WHERE rfq_id = $1 ORDER BY id`, rfqID)
	if err != nil {
		return nil, fmt.Errorf("sourcing: list items: %w", err)
	}
	defer rows.Close()

	var out []RFQItem
	for rows.Next() {
		var item RFQItem
		if err := rows.Scan(&item.ID, &item.RFQID, &item.PartID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("sourcing: scan item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

const quoteColumns = `id, rfq_id, supplier_id, status, quote_amount, delivery_weeks, terms, highlights, updated_at`

func scanQuote(row pgx.Row) (SupplierQuote, error) {
	var q SupplierQuote
	err := row.Scan(&q.ID, &q.RFQID, &q.SupplierID, &q.Status, &q.QuoteAmount,
		&q.Analysis.DeliveryWeeks, &q.Analysis.Terms, &q.Analysis.Highlights, &q.UpdatedAt)
	return q, err
}

func (r *Repository) ListQuotes(ctx context.Context, rfqID int64) ([]SupplierQuote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+quoteColumns+` FROM rfq_supplier_quotes WHERE rfq_id = $1 ORDER BY id`, rfqID)
	if err != nil {
		return nil, fmt.Errorf("sourcing: list quotes: %w", err)
	}
	defer rows.Close()

	var out []SupplierQuote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("sourcing: scan quote: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *Repository) GetQuote(ctx context.Context, id int64) (SupplierQuote, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+quoteColumns+` FROM rfq_supplier_quotes WHERE id = $1`, id)
	q, err := scanQuote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return SupplierQuote{}, fmt.Errorf("sourcing: %w: quote %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return SupplierQuote{}, fmt.Errorf("sourcing: get quote: %w", err)
	}
	return q, nil
}

func (r *Repository) FindQuote(ctx context.Context, rfqID, supplierID int64) (SupplierQuote, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+quoteColumns+` FROM rfq_supplier_quotes WHERE rfq_id = $1 AND supplier_id = $2`, rfqID, supplierID)
	q, err := scanQuote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return SupplierQuote{}, fmt.Errorf("sourcing: %w: no quote for supplier %d on rfq %d", shared.ErrNotFound, supplierID, rfqID)
	}
	if err != nil {
		return SupplierQuote{}, fmt.Errorf("sourcing: find quote: %w", err)
	}
	return q, nil
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) CreateRFQ(ctx context.Context, rfq RFQ) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO rfqs (number, title, description, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id`,
		rfq.Number, rfq.Title, rfq.Description, rfq.Status, rfq.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("sourcing: create rfq: %w", err)
	}
	return id, nil
}

func (t *txRepo) InsertItem(ctx context.Context, item RFQItem) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO rfq_items (rfq_id, part_id, quantity) VALUES ($1, $2, $3)`,
		item.RFQID, item.PartID, item.Quantity)
	if err != nil {
		return fmt.Errorf("sourcing: insert item: %w", err)
	}
	return nil
}

func (t *txRepo) InsertQuote(ctx context.Context, quote SupplierQuote) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO rfq_supplier_quotes (rfq_id, supplier_id, status, quote_amount, delivery_weeks, terms, highlights, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING id`,
		quote.RFQID, quote.SupplierID, quote.Status, quote.QuoteAmount,
		quote.Analysis.DeliveryWeeks, quote.Analysis.Terms, quote.Analysis.Highlights,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("sourcing: insert quote: %w", err)
	}
	return id, nil
}

func (t *txRepo) GetRFQForUpdate(ctx context.Context, id int64) (RFQ, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+rfqColumns+` FROM rfqs WHERE id = $1 FOR UPDATE`, id)
	rfq, err := scanRFQ(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return RFQ{}, fmt.Errorf("sourcing: %w: rfq %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return RFQ{}, fmt.Errorf("sourcing: get rfq for update: %w", err)
	}
	return rfq, nil
}

func (t *txRepo) SetRFQStatus(ctx context.Context, id int64, status RFQStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE rfqs SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("sourcing: set rfq status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sourcing: %w: rfq %d", shared.ErrNotFound, id)
	}
	return nil
}

func (t *txRepo) UpdateQuote(ctx context.Context, quote SupplierQuote) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE rfq_supplier_quotes
		SET status = $2, quote_amount = $3, delivery_weeks = $4, terms = $5, highlights = $6, updated_at = now()
		WHERE id = $1`,
		quote.ID, quote.Status, quote.QuoteAmount,
		quote.Analysis.DeliveryWeeks, quote.Analysis.Terms, quote.Analysis.Highlights)
	if err != nil {
		return fmt.Errorf("sourcing: update quote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sourcing: %w: quote %d", shared.ErrNotFound, quote.ID)
	}
	return nil
}

func (t *txRepo) CreateOrder(ctx context.Context, order procurement.Order) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO procurement_orders (number, supplier_id, status, total_amount, contract_id, rfq_id, created_by, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, 0), $6, $7, now())
		RETURNING id`,
		order.Number, order.SupplierID, order.Status, order.TotalAmount,
		order.ContractID, order.RFQID, order.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("sourcing: create order: %w", err)
	}
	return id, nil
}

func (t *txRepo) InsertOrderItem(ctx context.Context, item procurement.OrderItem) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO order_items (order_id, part_id, quantity, unit_price) VALUES ($1, $2, $3, $4)`,
		item.OrderID, item.PartID, item.Quantity, item.UnitPrice)
	if err != nil {
		return fmt.Errorf("sourcing: insert order item: %w", err)
	}
	return nil
}
