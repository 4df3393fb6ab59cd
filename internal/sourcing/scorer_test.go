package sourcing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-procure/meridian-procure/internal/masterdata/suppliers"
)

func sup(id int64, name string, perf, risk float64, status suppliers.Status, categories ...string) suppliers.Supplier {
	return suppliers.Supplier{
		ID:               id,
		Name:             name,
		Categories:       categories,
		PerformanceScore: perf,
		RiskScore:        risk,
		Status:           status,
	}
}

func TestRecommendPrefersLowRiskAtEqualPerformance(t *testing.T) {
	a := sup(1, "A", 90, 10, suppliers.StatusActive, "fasteners")
	b := sup(2, "B", 90, 50, suppliers.StatusActive, "fasteners")

	recs := Recommend([]suppliers.Supplier{b, a}, []string{"fasteners"})
	require.Len(t, recs, 2)
	require.Equal(t, int64(1), recs[0].Supplier.ID)
	require.InDelta(t, 60.0, recs[0].Score, 1e-9)
	require.InDelta(t, 48.0, recs[1].Score, 1e-9)
}

func TestRecommendFiltersStatusAndCategory(t *testing.T) {
	pool := []suppliers.Supplier{
		sup(1, "active match", 50, 50, suppliers.StatusActive, "castings"),
		sup(2, "blacklisted match", 99, 1, suppliers.StatusBlacklisted, "castings"),
		sup(3, "inactive match", 99, 1, suppliers.StatusInactive, "castings"),
		sup(4, "wrong category", 99, 1, suppliers.StatusActive, "electronics"),
	}

	recs := Recommend(pool, []string{"castings"})
	require.Len(t, recs, 1)
	require.Equal(t, int64(1), recs[0].Supplier.ID)
}

func TestRecommendCapsAtThree(t *testing.T) {
	pool := []suppliers.Supplier{
		sup(1, "w", 90, 0, suppliers.StatusActive, "c"),
		sup(2, "x", 80, 0, suppliers.StatusActive, "c"),
		sup(3, "y", 70, 0, suppliers.StatusActive, "c"),
		sup(4, "z", 60, 0, suppliers.StatusActive, "c"),
	}

	recs := Recommend(pool, []string{"c"})
	require.Len(t, recs, 3)
	require.Equal(t, int64(1), recs[0].Supplier.ID)
	require.Equal(t, int64(3), recs[2].Supplier.ID)
}

func TestRecommendTiesKeepInputOrder(t *testing.T) {
	first := sup(10, "first", 70, 30, suppliers.StatusActive, "c")
	second := sup(20, "second", 70, 30, suppliers.StatusActive, "c")

	recs := Recommend([]suppliers.Supplier{first, second}, []string{"c"})
	require.Len(t, recs, 2)
	require.Equal(t, int64(10), recs[0].Supplier.ID)
	require.Equal(t, int64(20), recs[1].Supplier.ID)
}

func TestRecommendReasons(t *testing.T) {
	star := sup(1, "star", 95, 5, suppliers.StatusActive, "c")
	plain := sup(2, "plain", 50, 50, suppliers.StatusActive, "c")

	recs := Recommend([]suppliers.Supplier{star, plain}, []string{"c"})
	require.Len(t, recs, 2)
	require.Equal(t, []string{"High performance history", "Very low risk profile", "Category specialist"}, recs[0].Reasons)
	require.Equal(t, []string{"Category specialist"}, recs[1].Reasons)
}

func TestRecommendBoundaryScoresGetNoExtraReasons(t *testing.T) {
	edge := sup(1, "edge", 80, 20, suppliers.StatusActive, "c")

	recs := Recommend([]suppliers.Supplier{edge}, []string{"c"})
	require.Len(t, recs, 1)
	require.Equal(t, []string{"Category specialist"}, recs[0].Reasons)
}
