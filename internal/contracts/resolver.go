package contracts

import (
	"context"
	"sort"
	"time"
)

// RepositoryPort lists a supplier's contracts for resolution.
type RepositoryPort interface {
	ListBySupplier(ctx context.Context, supplierID int64) ([]Contract, error)
}

// Resolver finds the framework agreement an order should auto-link to.
type Resolver struct {
	repo RepositoryPort
}

// NewResolver constructs a Resolver.
func NewResolver(repo RepositoryPort) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the active framework agreement covering asOf, or nil when
// none qualifies. When several qualify the most recent ValidFrom wins, with
// the highest id as the final tie-break, so resolution never depends on
// storage ordering.
func (r *Resolver) Resolve(ctx context.Context, supplierID int64, asOf time.Time) (*Contract, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	all, err := r.repo.ListBySupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	var candidates []Contract
	for _, c := range all {
		if c.Type != TypeFrameworkAgreement || c.Status != StatusActive {
			continue
		}
		if !c.CoversDate(asOf) {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].ValidFrom.Equal(candidates[j].ValidFrom) {
			return candidates[i].ValidFrom.After(candidates[j].ValidFrom)
		}
		return candidates[i].ID > candidates[j].ID
	})
	winner := candidates[0]
	return &winner, nil
}
