package contracts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryContractRepo struct {
	contracts []Contract
}

func (r *memoryContractRepo) ListBySupplier(ctx context.Context, supplierID int64) ([]Contract, error) {
	var out []Contract
	for _, c := range r.contracts {
		if c.SupplierID == supplierID {
			out = append(out, c)
		}
	}
	return out, nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestResolvePicksDateValidAgreement(t *testing.T) {
	today := day("2025-06-15")
	repo := &memoryContractRepo{contracts: []Contract{
		{ID: 1, SupplierID: 5, Title: "FY24 frame", Type: TypeFrameworkAgreement, Status: StatusActive, ValidFrom: day("2024-01-01"), ValidTo: day("2025-06-14"), Incoterms: "FOB"},
		{ID: 2, SupplierID: 5, Title: "FY25 frame", Type: TypeFrameworkAgreement, Status: StatusActive, ValidFrom: day("2025-01-01"), ValidTo: day("2025-12-31"), Incoterms: "DAP"},
	}}
	resolver := NewResolver(repo)

	got, err := resolver.Resolve(context.Background(), 5, today)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, int64(2), got.ID)
	require.Equal(t, "DAP", got.Incoterms)
}

func TestResolveReturnsNilWhenNothingQualifies(t *testing.T) {
	repo := &memoryContractRepo{contracts: []Contract{
		{ID: 1, SupplierID: 5, Type: TypeFrameworkAgreement, Status: StatusExpired, ValidFrom: day("2024-01-01"), ValidTo: day("2024-12-31")},
		{ID: 2, SupplierID: 5, Type: TypeSpot, Status: StatusActive, ValidFrom: day("2025-01-01"), ValidTo: day("2025-12-31")},
	}}
	resolver := NewResolver(repo)

	got, err := resolver.Resolve(context.Background(), 5, day("2025-06-15"))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestResolveTieBreakMostRecentValidFrom(t *testing.T) {
	repo := &memoryContractRepo{contracts: []Contract{
		{ID: 10, SupplierID: 5, Type: TypeFrameworkAgreement, Status: StatusActive, ValidFrom: day("2025-01-01"), ValidTo: day("2025-12-31")},
		{ID: 11, SupplierID: 5, Type: TypeFrameworkAgreement, Status: StatusActive, ValidFrom: day("2025-03-01"), ValidTo: day("2025-12-31")},
	}}
	resolver := NewResolver(repo)

	got, err := resolver.Resolve(context.Background(), 5, day("2025-06-15"))
	require.NoError(t, err)
	require.Equal(t, int64(11), got.ID)
}

func TestResolveTieBreakHighestIDOnEqualValidFrom(t *testing.T) {
	repo := &memoryContractRepo{contracts: []Contract{
		{ID: 10, SupplierID: 5, Type: TypeFrameworkAgreement, Status: StatusActive, ValidFrom: day("2025-01-01"), ValidTo: day("2025-12-31")},
		{ID: 12, SupplierID: 5, Type: TypeFrameworkAgreement, Status: StatusActive, ValidFrom: day("2025-01-01"), ValidTo: day("2025-12-31")},
	}}
	resolver := NewResolver(repo)

	got, err := resolver.Resolve(context.Background(), 5, day("2025-06-15"))
	require.NoError(t, err)
	require.Equal(t, int64(12), got.ID)
}

func TestResolveBoundsAreInclusive(t *testing.T) {
	repo := &memoryContractRepo{contracts: []Contract{
		{ID: 1, SupplierID: 5, Type: TypeFrameworkAgreement, Status: StatusActive, ValidFrom: day("2025-06-15"), ValidTo: day("2025-06-15")},
	}}
	resolver := NewResolver(repo)

	got, err := resolver.Resolve(context.Background(), 5, day("2025-06-15"))
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestResolveRequiresBoundedWindow(t *testing.T) {
	// Validity windows are always bounded; a contract that somehow lacks an
	// end date must never auto-link.
	repo := &memoryContractRepo{contracts: []Contract{
		{ID: 1, SupplierID: 5, Type: TypeFrameworkAgreement, Status: StatusActive, ValidFrom: day("2025-01-01")},
	}}
	resolver := NewResolver(repo)

	got, err := resolver.Resolve(context.Background(), 5, day("2025-06-15"))
	require.NoError(t, err)
	require.Nil(t, got)
}
