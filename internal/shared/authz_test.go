package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanAdminHasEveryCapability(t *testing.T) {
	admin := Identity{UserID: 1, Role: RoleAdmin}
	for _, action := range []Action{
		ActRequisitionCreate, ActRequisitionApprove, ActRequisitionConvert,
		ActRFQManage, ActRFQAward, ActOrderManage, ActReceiptRecord,
		ActInvoiceRecord, ActInvoiceOverride, ActQuoteSubmit,
	} {
		require.True(t, Can(admin, action), "admin should hold %s", action)
	}
}

func TestCanProcurementUserCannotOverrideInvoices(t *testing.T) {
	user := Identity{UserID: 2, Role: RoleUser}
	require.True(t, Can(user, ActInvoiceRecord))
	require.True(t, Can(user, ActOrderManage))
	require.False(t, Can(user, ActInvoiceOverride))
}

func TestCanSupplierIsScopedToOwnSurface(t *testing.T) {
	supplier := Identity{UserID: 3, Role: RoleSupplier, SupplierID: 7}
	require.True(t, Can(supplier, ActOrderSupplierFlag))
	require.True(t, Can(supplier, ActQuoteSubmit))
	require.False(t, Can(supplier, ActOrderManage))
	require.False(t, Can(supplier, ActRequisitionApprove))
	require.False(t, Can(supplier, ActInvoiceOverride))
}

func TestCanUnknownRoleDeniedEverything(t *testing.T) {
	ghost := Identity{UserID: 4, Role: Role("auditor")}
	require.False(t, Can(ghost, ActRequisitionCreate))
	require.False(t, Can(ghost, ActOrderSupplierFlag))
}
