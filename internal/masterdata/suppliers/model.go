package suppliers

import "time"

// Status enumerates supplier directory states.
type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusBlacklisted Status = "blacklisted"
)

// Supplier represents a vendor in the directory. Directory editing lives
// outside the engine; this package is the read side consumed by the
// sourcing scorer and the order lifecycle.
type Supplier struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Categories       []string  `json:"categories"`
	RiskScore        float64   `json:"risk_score"`
	PerformanceScore float64   `json:"performance_score"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// Eligible reports whether the supplier may receive new orders or RFQ
// invitations.
func (s Supplier) Eligible() bool {
	return s.Status == StatusActive
}
