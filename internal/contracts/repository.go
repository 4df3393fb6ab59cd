package contracts

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed contract reads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListBySupplier returns every contract held with the supplier.
func (r *Repository) ListBySupplier(ctx context.Context, supplierID int64) ([]Contract, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, supplier_id, title, type, status, valid_from, valid_to, incoterms
FROM contracts WHERE supplier_id = $1 ORDER BY id ASC`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Contract
	for rows.Next() {
		var c Contract
		var ctype, status string
		var from, to pgtype.Date
		if err := rows.Scan(&c.ID, &c.SupplierID, &c.Title, &ctype, &status, &from, &to, &c.Incoterms); err != nil {
			return nil, err
		}
		c.Type = Type(ctype)
		c.Status = Status(status)
		if from.Valid {
			c.ValidFrom = from.Time
		}
		if to.Valid {
			c.ValidTo = to.Time
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
