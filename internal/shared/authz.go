package shared

// Action names a guarded engine operation.
type Action string

// Engine capabilities.
const (
	ActRequisitionCreate  Action = "requisition.create"
	ActRequisitionApprove Action = "requisition.approve"
	ActRequisitionConvert Action = "requisition.convert"
	ActRFQManage          Action = "rfq.manage"
	ActRFQAward           Action = "rfq.award"
	ActOrderManage        Action = "order.manage"
	ActOrderSupplierFlag  Action = "order.supplier_update"
	ActReceiptRecord      Action = "receipt.record"
	ActInvoiceRecord      Action = "invoice.record"
	ActInvoiceOverride    Action = "invoice.override"
	ActQuoteSubmit        Action = "quote.submit"
)

var capabilities = map[Role]map[Action]bool{
	RoleAdmin: {
		ActRequisitionCreate:  true,
		ActRequisitionApprove: true,
		ActRequisitionConvert: true,
		ActRFQManage:          true,
		ActRFQAward:           true,
		ActOrderManage:        true,
		ActReceiptRecord:      true,
		ActInvoiceRecord:      true,
		ActInvoiceOverride:    true,
		ActQuoteSubmit:        true,
	},
	RoleUser: {
		ActRequisitionCreate:  true,
		ActRequisitionApprove: true,
		ActRequisitionConvert: true,
		ActRFQManage:          true,
		ActRFQAward:           true,
		ActOrderManage:        true,
		ActReceiptRecord:      true,
		ActInvoiceRecord:      true,
		ActQuoteSubmit:        true,
	},
	RoleSupplier: {
		ActOrderSupplierFlag: true,
		ActQuoteSubmit:       true,
	},
}

// Can reports whether the actor holds the capability for the action.
// Business rules that depend on entity state (ownership, segregation of
// duties) stay in the services; this answers the pure role question.
func Can(actor Identity, action Action) bool {
	perms, ok := capabilities[actor.Role]
	if !ok {
		return false
	}
	return perms[action]
}
