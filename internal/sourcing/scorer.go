package sourcing

import (
	"sort"

	"github.com/meridian-procure/meridian-procure/internal/masterdata/suppliers"
)

const (
	performanceWeight = 0.7
	riskWeight        = 0.3
	maxRecommended    = 3
)

// Recommendation is one scored supplier with machine-readable reasons.
type Recommendation struct {
	Supplier suppliers.Supplier `json:"supplier"`
	Score    float64            `json:"score"`
	Reasons  []string           `json:"reasons"`
}

// Score weighs performance against risk. Higher is better.
func Score(s suppliers.Supplier) float64 {
	return performanceWeight*s.PerformanceScore - riskWeight*s.RiskScore
}

// Recommend ranks active suppliers whose categories intersect the requested
// set and returns the top candidates. Ties keep input order.
func Recommend(candidates []suppliers.Supplier, categories []string) []Recommendation {
	wanted := make(map[string]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}

	var recs []Recommendation
	for _, s := range candidates {
		if s.Status != suppliers.StatusActive {
			continue
		}
		match := false
		for _, c := range s.Categories {
			if wanted[c] {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		recs = append(recs, Recommendation{Supplier: s, Score: Score(s), Reasons: reasons(s)})
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
	if len(recs) > maxRecommended {
		recs = recs[:maxRecommended]
	}
	return recs
}

func reasons(s suppliers.Supplier) []string {
	out := make([]string, 0, 3)
	if s.PerformanceScore > 80 {
		out = append(out, "High performance history")
	}
	if s.RiskScore < 20 {
		out = append(out, "Very low risk profile")
	}
	out = append(out, "Category specialist")
	return out
}
