package sourcing

import "time"

// RFQStatus enumerates sourcing event states. Transitions are forward only;
// a closed or cancelled RFQ never reopens.
type RFQStatus string

const (
	RFQStatusDraft     RFQStatus = "draft"
	RFQStatusOpen      RFQStatus = "open"
	RFQStatusClosed    RFQStatus = "closed"
	RFQStatusCancelled RFQStatus = "cancelled"
)

var rfqTransitions = map[RFQStatus][]RFQStatus{
	RFQStatusDraft: {RFQStatusOpen, RFQStatusCancelled},
	RFQStatusOpen:  {RFQStatusClosed, RFQStatusCancelled},
}

// CanTransition reports whether an RFQ may move from one status to another.
func CanTransition(from, to RFQStatus) bool {
	for _, allowed := range rfqTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// RFQ is a competitive sourcing event. The item list is fixed at creation.
type RFQ struct {
	ID          int64     `json:"id"`
	Number      string    `json:"number"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      RFQStatus `json:"status"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// RFQItem is one requested line of an RFQ.
type RFQItem struct {
	ID       int64   `json:"id"`
	RFQID    int64   `json:"rfq_id"`
	PartID   int64   `json:"part_id"`
	Quantity float64 `json:"quantity"`
}

// QuoteStatus enumerates a supplier's participation state within an RFQ.
type QuoteStatus string

const (
	QuoteStatusInvited  QuoteStatus = "invited"
	QuoteStatusQuoted   QuoteStatus = "quoted"
	QuoteStatusDeclined QuoteStatus = "declined"
)

// QuoteAnalysis is the structured reading of a supplier's offer.
type QuoteAnalysis struct {
	DeliveryWeeks int      `json:"delivery_weeks,omitempty"`
	Terms         string   `json:"terms,omitempty"`
	Highlights    []string `json:"highlights,omitempty"`
}

// SupplierQuote is one supplier's response within an RFQ. QuoteAmount is set
// only by quoting.
type SupplierQuote struct {
	ID          int64         `json:"id"`
	RFQID       int64         `json:"rfq_id"`
	SupplierID  int64         `json:"supplier_id"`
	Status      QuoteStatus   `json:"status"`
	QuoteAmount float64       `json:"quote_amount,omitempty"`
	Analysis    QuoteAnalysis `json:"analysis"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
