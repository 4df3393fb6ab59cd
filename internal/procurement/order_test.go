package procurement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-procure/meridian-procure/internal/contracts"
	"github.com/meridian-procure/meridian-procure/internal/shared"
)

func TestCreateOrderComputesTotalFromCallerPrices(t *testing.T) {
	f := newProcFixture(nil)
	order, err := f.svc.CreateOrder(context.Background(), approver, CreateOrderInput{
		SupplierID: 1,
		Items: []OrderItemInput{
			{PartID: 11, Quantity: 4, UnitPrice: 250.25},
			{PartID: 12, Quantity: 2, UnitPrice: 99.5},
		},
	})
	require.NoError(t, err)
	require.Equal(t, OrderStatusDraft, order.Status)
	require.Equal(t, 1200.0, order.TotalAmount)
}

func TestCreateOrderKeepsFractionalQuantities(t *testing.T) {
	f := newProcFixture(nil)
	order, err := f.svc.CreateOrder(context.Background(), approver, CreateOrderInput{
		SupplierID: 1,
		Items: []OrderItemInput{
			{PartID: 11, Quantity: 2.5, UnitPrice: 10.5},
			{PartID: 12, Quantity: 0.75, UnitPrice: 200},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 176.25, order.TotalAmount)

	_, items, _, err := f.svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 2.5, items[0].Quantity)
	require.Equal(t, 0.75, items[1].Quantity)
}

func TestCreateOrderValidatesLines(t *testing.T) {
	f := newProcFixture(nil)
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, approver, CreateOrderInput{SupplierID: 1})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.CreateOrder(ctx, approver, CreateOrderInput{SupplierID: 1, Items: []OrderItemInput{{PartID: 11, Quantity: 0, UnitPrice: 10}}})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.CreateOrder(ctx, approver, CreateOrderInput{SupplierID: 1, Items: []OrderItemInput{{PartID: 11, Quantity: 1, UnitPrice: -1}}})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateOrderKeepsCallerIncotermsOverContract(t *testing.T) {
	contract := &contracts.Contract{ID: 9, SupplierID: 1, Title: "frame", Type: contracts.TypeFrameworkAgreement, Status: contracts.StatusActive, Incoterms: "DAP"}
	f := newProcFixture(contract)

	order, err := f.svc.CreateOrder(context.Background(), approver, CreateOrderInput{
		SupplierID: 1,
		Incoterms:  "FOB",
		Items:      []OrderItemInput{{PartID: 11, Quantity: 1, UnitPrice: 100}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(9), order.ContractID)
	require.Equal(t, "FOB", order.Incoterms)
}

func TestUpdateOrderStatusTransitionTable(t *testing.T) {
	f := newProcFixture(nil)
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, approver, CreateOrderInput{SupplierID: 1, Items: []OrderItemInput{{PartID: 11, Quantity: 1, UnitPrice: 100}}})
	require.NoError(t, err)

	// draft cannot jump straight to fulfilled
	err = f.svc.UpdateOrderStatus(ctx, approver, order.ID, OrderStatusFulfilled)
	require.ErrorIs(t, err, shared.ErrConflict)

	require.NoError(t, f.svc.UpdateOrderStatus(ctx, approver, order.ID, OrderStatusPending))
	require.NoError(t, f.svc.UpdateOrderStatus(ctx, approver, order.ID, OrderStatusSent))
	require.NoError(t, f.svc.UpdateOrderStatus(ctx, approver, order.ID, OrderStatusFulfilled))

	// fulfilled is terminal
	err = f.svc.UpdateOrderStatus(ctx, approver, order.ID, OrderStatusCancelled)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestSupplierMayOnlyFulfilOwnSentOrders(t *testing.T) {
	f := newProcFixture(nil)
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, approver, CreateOrderInput{SupplierID: 1, Items: []OrderItemInput{{PartID: 11, Quantity: 1, UnitPrice: 100}}})
	require.NoError(t, err)
	require.NoError(t, f.svc.UpdateOrderStatus(ctx, approver, order.ID, OrderStatusPending))
	require.NoError(t, f.svc.UpdateOrderStatus(ctx, approver, order.ID, OrderStatusSent))

	otherSupplier := shared.Identity{UserID: 31, Role: shared.RoleSupplier, SupplierID: 2}
	err = f.svc.UpdateOrderStatus(ctx, otherSupplier, order.ID, OrderStatusFulfilled)
	require.ErrorIs(t, err, shared.ErrForbidden)

	owner := shared.Identity{UserID: 30, Role: shared.RoleSupplier, SupplierID: 1}
	err = f.svc.UpdateOrderStatus(ctx, owner, order.ID, OrderStatusCancelled)
	require.ErrorIs(t, err, shared.ErrForbidden)

	require.NoError(t, f.svc.UpdateOrderStatus(ctx, owner, order.ID, OrderStatusFulfilled))
}

func TestRecordGoodsReceiptRejectsWrongState(t *testing.T) {
	f := newProcFixture(nil)
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, approver, CreateOrderInput{SupplierID: 1, Items: []OrderItemInput{{PartID: 11, Quantity: 1, UnitPrice: 100}}})
	require.NoError(t, err)

	_, err = f.svc.RecordGoodsReceipt(ctx, approver, order.ID, RecordReceiptInput{})
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Empty(t, f.match.calls)
}

func TestRecordGoodsReceiptAllowsPartialFollowUps(t *testing.T) {
	f := newProcFixture(nil)
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, approver, CreateOrderInput{SupplierID: 1, Items: []OrderItemInput{{PartID: 11, Quantity: 10, UnitPrice: 100}}})
	require.NoError(t, err)
	require.NoError(t, f.svc.UpdateOrderStatus(ctx, approver, order.ID, OrderStatusPending))
	require.NoError(t, f.svc.UpdateOrderStatus(ctx, approver, order.ID, OrderStatusSent))

	_, err = f.svc.RecordGoodsReceipt(ctx, approver, order.ID, RecordReceiptInput{Reference: "GR-A", Note: "first pallet"})
	require.NoError(t, err)

	// The order is already fulfilled; a second partial receipt still lands.
	_, err = f.svc.RecordGoodsReceipt(ctx, approver, order.ID, RecordReceiptInput{Reference: "GR-B", Note: "second pallet"})
	require.NoError(t, err)

	receipts, err := f.repo.ListReceipts(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	require.Equal(t, []int64{order.ID, order.ID}, f.match.calls)
}
