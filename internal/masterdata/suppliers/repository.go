package suppliers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-procure/meridian-procure/internal/shared"
)

// Repository exposes supplier directory reads.
type Repository interface {
	Get(ctx context.Context, id int64) (Supplier, error)
	ListActiveByCategories(ctx context.Context, categories []string) ([]Supplier, error)
	ListByIDs(ctx context.Context, ids []int64) ([]Supplier, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const supplierColumns = `id, name, categories, risk_score, performance_score, status, created_at`

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id)
	s, err := scanSupplier(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, shared.ErrNotFound
		}
		return Supplier{}, err
	}
	return s, nil
}

// ListActiveByCategories returns active suppliers whose category set
// intersects the requested one, in insertion order.
func (r *repository) ListActiveByCategories(ctx context.Context, categories []string) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers
WHERE status = 'active' AND categories && $1 ORDER BY id ASC`, categories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSuppliers(rows)
}

func (r *repository) ListByIDs(ctx context.Context, ids []int64) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers
WHERE id = ANY($1) ORDER BY id ASC`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSuppliers(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSupplier(row rowScanner) (Supplier, error) {
	var s Supplier
	var createdAt pgtype.Timestamptz
	var status string
	if err := row.Scan(&s.ID, &s.Name, &s.Categories, &s.RiskScore, &s.PerformanceScore, &status, &createdAt); err != nil {
		return Supplier{}, err
	}
	s.Status = Status(status)
	if createdAt.Valid {
		s.CreatedAt = createdAt.Time
	}
	return s, nil
}

func collectSuppliers(rows pgx.Rows) ([]Supplier, error) {
	var out []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
