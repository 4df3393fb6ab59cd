package contracts

import "time"

// Type enumerates contract kinds. Only framework agreements participate in
// order auto-linking.
type Type string

const (
	TypeFrameworkAgreement Type = "framework_agreement"
	TypeSpot               Type = "spot"
)

// Status enumerates contract lifecycle states.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// Contract is a pre-negotiated, date-bounded agreement with a supplier.
type Contract struct {
	ID         int64     `json:"id"`
	SupplierID int64     `json:"supplier_id"`
	Title      string    `json:"title"`
	Type       Type      `json:"type"`
	Status     Status    `json:"status"`
	ValidFrom  time.Time `json:"valid_from"`
	ValidTo    time.Time `json:"valid_to"`
	Incoterms  string    `json:"incoterms"`
}

// CoversDate reports whether asOf falls inside the contract validity window,
// bounds inclusive.
func (c Contract) CoversDate(asOf time.Time) bool {
	day := asOf.Truncate(24 * time.Hour)
	from := c.ValidFrom.Truncate(24 * time.Hour)
	to := c.ValidTo.Truncate(24 * time.Hour)
	return !day.Before(from) && !day.After(to)
}
