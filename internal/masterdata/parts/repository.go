package parts

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository exposes part catalog reads.
type Repository interface {
	CategoriesForParts(ctx context.Context, ids []int64) ([]string, error)
	ListByIDs(ctx context.Context, ids []int64) ([]Part, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// CategoriesForParts resolves the distinct categories of the given parts.
func (r *repository) CategoriesForParts(ctx context.Context, ids []int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT category FROM parts WHERE id = ANY($1) ORDER BY category`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *repository) ListByIDs(ctx context.Context, ids []int64) ([]Part, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, sku, name, category FROM parts WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Part
	for rows.Next() {
		var p Part
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Category); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
