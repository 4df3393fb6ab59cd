package procurement

import "time"

// Requisition lifecycle statuses.
type RequisitionStatus string

const (
	ReqStatusDraft     RequisitionStatus = "draft"
	ReqStatusPending   RequisitionStatus = "pending_approval"
	ReqStatusApproved  RequisitionStatus = "approved"
	ReqStatusRejected  RequisitionStatus = "rejected"
	ReqStatusConverted RequisitionStatus = "converted_to_po"
)

// Purchase order lifecycle statuses.
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusPending   OrderStatus = "pending_approval"
	OrderStatusSent      OrderStatus = "sent"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Requisition is an internal spend request.
type Requisition struct {
	ID              int64             `json:"id"`
	Title           string            `json:"title"`
	EstimatedAmount float64           `json:"estimated_amount"`
	Department      string            `json:"department"`
	RequestedBy     int64             `json:"requested_by"`
	Status          RequisitionStatus `json:"status"`
	RejectReason    string            `json:"reject_reason,omitempty"`
	OrderID         int64             `json:"order_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Order is a purchase commitment against a supplier.
type Order struct {
	ID            int64       `json:"id"`
	Number        string      `json:"number"`
	SupplierID    int64       `json:"supplier_id"`
	Status        OrderStatus `json:"status"`
	TotalAmount   float64     `json:"total_amount"`
	ContractID    int64       `json:"contract_id,omitempty"`
	RequisitionID int64       `json:"requisition_id,omitempty"`
	RFQID         int64       `json:"rfq_id,omitempty"`
	Incoterms     string      `json:"incoterms,omitempty"`
	Note          string      `json:"note,omitempty"`
	CreatedBy     int64       `json:"created_by"`
	CreatedAt     time.Time   `json:"created_at"`
}

// OrderItem is a purchase order line. Lines are immutable once the order
// leaves draft.
type OrderItem struct {
	ID        int64   `json:"id"`
	OrderID   int64   `json:"order_id"`
	PartID    int64   `json:"part_id"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// GoodsReceipt is evidence of physical delivery against an order.
type GoodsReceipt struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	Reference   string          `json:"reference"`
	ReceivedBy  int64           `json:"received_by"`
	ReceivedAt  time.Time       `json:"received_at"`
	QCChecklist map[string]bool `json:"qc_checklist,omitempty"`
	Note        string          `json:"note,omitempty"`
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusDraft:   {OrderStatusPending, OrderStatusCancelled},
	OrderStatusPending: {OrderStatusSent, OrderStatusCancelled},
	OrderStatusSent:    {OrderStatusFulfilled, OrderStatusCancelled},
}

// CanTransition reports whether an order may move from one status to the
// next. Fulfilled and cancelled are terminal.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
