package match

import "time"

// InvoiceStatus enumerates supplier claim states. The status is derived by
// reconciliation; only an administrator may set it directly.
type InvoiceStatus string

const (
	InvoiceStatusPending  InvoiceStatus = "pending"
	InvoiceStatusMatched  InvoiceStatus = "matched"
	InvoiceStatusDisputed InvoiceStatus = "disputed"
	InvoiceStatusPaid     InvoiceStatus = "paid"
)

// Invoice is a supplier payment claim against an order.
type Invoice struct {
	ID            int64         `json:"id"`
	OrderID       int64         `json:"order_id"`
	SupplierID    int64         `json:"supplier_id"`
	InvoiceNumber string        `json:"invoice_number"`
	Amount        float64       `json:"amount"`
	Status        InvoiceStatus `json:"status"`
	MatchedAt     *time.Time    `json:"matched_at,omitempty"`
	DueAt         time.Time     `json:"due_at"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Verdict is the outcome of a three-way match run.
type Verdict string

const (
	VerdictMatched Verdict = "MATCHED"
	VerdictPending Verdict = "PENDING_MATCH"
)

// Tolerance is the absolute currency-unit tolerance for the price match.
const Tolerance = "0.01"
