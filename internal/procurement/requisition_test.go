package procurement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-procure/meridian-procure/internal/contracts"
	"github.com/meridian-procure/meridian-procure/internal/shared"
)

func TestCreateRequisitionRejectsNonPositiveAmount(t *testing.T) {
	f := newProcFixture(nil)
	_, err := f.svc.CreateRequisition(context.Background(), requester, CreateRequisitionInput{Title: "Gloves", EstimatedAmount: 0})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.CreateRequisition(context.Background(), requester, CreateRequisitionInput{Title: "Gloves", EstimatedAmount: -5})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestApproveRequisitionSegregationOfDuties(t *testing.T) {
	f := newProcFixture(nil)
	ctx := context.Background()
	req, err := f.svc.CreateRequisition(ctx, requester, CreateRequisitionInput{Title: "Bearings", EstimatedAmount: 900})
	require.NoError(t, err)

	err = f.svc.ApproveRequisition(ctx, requester, req.ID)
	require.ErrorIs(t, err, shared.ErrPolicy)

	// Role does not lift the rule.
	adminRequester := shared.Identity{UserID: requester.UserID, Role: shared.RoleAdmin}
	err = f.svc.ApproveRequisition(ctx, adminRequester, req.ID)
	require.ErrorIs(t, err, shared.ErrPolicy)

	stored, err := f.repo.GetRequisition(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, ReqStatusPending, stored.Status)
}

func TestApproveRequisitionRequiresCapability(t *testing.T) {
	f := newProcFixture(nil)
	ctx := context.Background()
	req, err := f.svc.CreateRequisition(ctx, requester, CreateRequisitionInput{Title: "Bearings", EstimatedAmount: 900})
	require.NoError(t, err)

	supplierActor := shared.Identity{UserID: 300, Role: shared.RoleSupplier, SupplierID: 1}
	err = f.svc.ApproveRequisition(ctx, supplierActor, req.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestApproveRequisitionTwiceConflicts(t *testing.T) {
	f := newProcFixture(nil)
	ctx := context.Background()
	req, err := f.svc.CreateRequisition(ctx, requester, CreateRequisitionInput{Title: "Bearings", EstimatedAmount: 900})
	require.NoError(t, err)

	require.NoError(t, f.svc.ApproveRequisition(ctx, approver, req.ID))
	err = f.svc.ApproveRequisition(ctx, approver, req.ID)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestRejectRequisitionRequiresReason(t *testing.T) {
	f := newProcFixture(nil)
	ctx := context.Background()
	req, err := f.svc.CreateRequisition(ctx, requester, CreateRequisitionInput{Title: "Bearings", EstimatedAmount: 900})
	require.NoError(t, err)

	err = f.svc.RejectRequisition(ctx, approver, req.ID, "   ")
	require.ErrorIs(t, err, shared.ErrValidation)

	require.NoError(t, f.svc.RejectRequisition(ctx, approver, req.ID, "budget frozen"))
	stored, _ := f.repo.GetRequisition(ctx, req.ID)
	require.Equal(t, ReqStatusRejected, stored.Status)
	require.Equal(t, "budget frozen", stored.RejectReason)

	require.Len(t, f.notifier.sent, 1)
	require.Contains(t, f.notifier.sent[0].Message, "budget frozen")
}

func TestConvertRequiresApprovedStatus(t *testing.T) {
	f := newProcFixture(nil)
	ctx := context.Background()
	req, err := f.svc.CreateRequisition(ctx, requester, CreateRequisitionInput{Title: "Bearings", EstimatedAmount: 900})
	require.NoError(t, err)

	_, err = f.svc.ConvertRequisitionToOrder(ctx, approver, req.ID, 1)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestConvertRejectsInactiveSupplier(t *testing.T) {
	f := newProcFixture(nil)
	ctx := context.Background()
	req, err := f.svc.CreateRequisition(ctx, requester, CreateRequisitionInput{Title: "Bearings", EstimatedAmount: 900})
	require.NoError(t, err)
	require.NoError(t, f.svc.ApproveRequisition(ctx, approver, req.ID))

	_, err = f.svc.ConvertRequisitionToOrder(ctx, approver, req.ID, 2)
	require.ErrorIs(t, err, shared.ErrPolicy)
}

func TestConvertAtomicityOnPartialFailure(t *testing.T) {
	f := newProcFixture(nil)
	ctx := context.Background()
	req, err := f.svc.CreateRequisition(ctx, requester, CreateRequisitionInput{Title: "Bearings", EstimatedAmount: 900})
	require.NoError(t, err)
	require.NoError(t, f.svc.ApproveRequisition(ctx, approver, req.ID))

	f.repo.failOn = "SetRequisitionConverted"
	_, err = f.svc.ConvertRequisitionToOrder(ctx, approver, req.ID, 1)
	require.Error(t, err)

	// Neither half of the conversion may survive.
	stored, gerr := f.repo.GetRequisition(ctx, req.ID)
	require.NoError(t, gerr)
	require.Equal(t, ReqStatusApproved, stored.Status)
	require.Zero(t, stored.OrderID)
	require.Empty(t, f.repo.orders)
}

func TestConvertInheritsContractLink(t *testing.T) {
	contract := &contracts.Contract{ID: 77, SupplierID: 1, Title: "FY25 frame", Type: contracts.TypeFrameworkAgreement, Status: contracts.StatusActive, Incoterms: "DAP"}
	f := newProcFixture(contract)
	ctx := context.Background()
	req, err := f.svc.CreateRequisition(ctx, requester, CreateRequisitionInput{Title: "Bearings", EstimatedAmount: 900})
	require.NoError(t, err)
	require.NoError(t, f.svc.ApproveRequisition(ctx, approver, req.ID))

	order, err := f.svc.ConvertRequisitionToOrder(ctx, approver, req.ID, 1)
	require.NoError(t, err)
	require.Equal(t, int64(77), order.ContractID)
	require.Equal(t, "DAP", order.Incoterms)

	var sawAutolink bool
	for _, e := range f.audit.entries {
		if e.Action == "CONTRACT_AUTOLINK" {
			sawAutolink = true
			require.Equal(t, "FY25 frame", e.Details["contract_title"])
		}
	}
	require.True(t, sawAutolink)
}
