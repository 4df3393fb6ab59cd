package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridian-procure/meridian-procure/internal/shared"
)

// CreateOrderInput describes a directly created purchase order.
type CreateOrderInput struct {
	SupplierID int64
	Incoterms  string
	Note       string
	Items      []OrderItemInput
}

// OrderItemInput is one caller-priced line.
type OrderItemInput struct {
	PartID    int64
	Quantity  float64
	UnitPrice float64
}

// RecordReceiptInput describes an incoming goods receipt.
type RecordReceiptInput struct {
	Reference   string
	QCChecklist map[string]bool
	Note        string
}

// CreateOrder persists a draft order. The total is computed from the
// caller-supplied unit prices; the part catalog is not consulted for
// pricing. The contract resolver runs first so a valid framework agreement
// is linked before anything is written.
func (s *Service) CreateOrder(ctx context.Context, actor shared.Identity, input CreateOrderInput) (Order, error) {
	if !shared.Can(actor, shared.ActOrderManage) {
		return Order{}, fmt.Errorf("procurement: %w: order create", shared.ErrForbidden)
	}
	if len(input.Items) == 0 {
		return Order{}, fmt.Errorf("procurement: %w: minimal 1 line", shared.ErrValidation)
	}
	var total float64
	for _, line := range input.Items {
		if line.PartID == 0 || line.Quantity <= 0 {
			return Order{}, fmt.Errorf("procurement: %w: line quantity must be positive", shared.ErrValidation)
		}
		if line.UnitPrice < 0 {
			return Order{}, fmt.Errorf("procurement: %w: line price must not be negative", shared.ErrValidation)
		}
		total += line.Quantity * line.UnitPrice
	}
	sup, err := s.activeSupplier(ctx, input.SupplierID)
	if err != nil {
		return Order{}, err
	}
	contract, err := s.contracts.Resolve(ctx, input.SupplierID, time.Now())
	if err != nil {
		return Order{}, err
	}

	order := Order{
		Number:      generateNumber("PO"),
		SupplierID:  input.SupplierID,
		Status:      OrderStatusDraft,
		TotalAmount: roundAmount(total),
		Incoterms:   input.Incoterms,
		Note:        input.Note,
		CreatedBy:   actor.UserID,
	}
	if contract != nil {
		order.ContractID = contract.ID
		if order.Incoterms == "" {
			order.Incoterms = contract.Incoterms
		}
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		orderID, err := tx.CreateOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = orderID
		for _, line := range input.Items {
			if err := tx.InsertOrderItem(ctx, OrderItem{OrderID: orderID, PartID: line.PartID, Quantity: line.Quantity, UnitPrice: line.UnitPrice}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, actor, "ORDER_CREATE", "order", order.ID, map[string]any{"number": order.Number, "supplier": sup.Name, "total": order.TotalAmount})
	if contract != nil {
		s.recordAudit(ctx, actor, "CONTRACT_AUTOLINK", "order", order.ID, map[string]any{"contract_id": contract.ID, "contract_title": contract.Title})
	}
	return order, nil
}

// GetOrder returns an order with its lines and receipts.
func (s *Service) GetOrder(ctx context.Context, id int64) (Order, []OrderItem, []GoodsReceipt, error) {
	order, items, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return Order{}, nil, nil, err
	}
	receipts, err := s.repo.ListReceipts(ctx, id)
	if err != nil {
		return Order{}, nil, nil, err
	}
	return order, items, receipts, nil
}

// ListOrders returns a filtered page of orders.
func (s *Service) ListOrders(ctx context.Context, limit, offset int, filters ListFilters) ([]Order, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListOrders(ctx, limit, offset, filters)
}

// UpdateOrderStatus advances an order along its lifecycle. Supplier actors
// may only flip their own sent orders to fulfilled; procurement actors are
// bound by the forward-only transition table.
func (s *Service) UpdateOrderStatus(ctx context.Context, actor shared.Identity, orderID int64, next OrderStatus) error {
	order, _, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if actor.IsSupplier() {
		if !shared.Can(actor, shared.ActOrderSupplierFlag) || order.SupplierID != actor.SupplierID {
			return fmt.Errorf("procurement: %w: order %d does not belong to supplier", shared.ErrForbidden, orderID)
		}
		if order.Status != OrderStatusSent || next != OrderStatusFulfilled {
			return fmt.Errorf("procurement: %w: supplier may only mark sent orders fulfilled", shared.ErrForbidden)
		}
	} else if !shared.Can(actor, shared.ActOrderManage) {
		return fmt.Errorf("procurement: %w: order update", shared.ErrForbidden)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(current.Status, next) {
			return fmt.Errorf("procurement: %w: %s -> %s", shared.ErrConflict, current.Status, next)
		}
		return tx.UpdateOrderStatus(ctx, orderID, next)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "ORDER_STATUS", "order", orderID, map[string]any{"from": string(order.Status), "to": string(next)})
	return nil
}

// RecordGoodsReceipt appends a receipt and marks the order fulfilled. The
// lifecycle does not distinguish partial from complete deliveries; only the
// reconciliation engine judges completeness for payment. The match recheck
// runs synchronously afterwards so it observes the just-written receipt.
func (s *Service) RecordGoodsReceipt(ctx context.Context, actor shared.Identity, orderID int64, input RecordReceiptInput) (GoodsReceipt, error) {
	if !shared.Can(actor, shared.ActReceiptRecord) {
		return GoodsReceipt{}, fmt.Errorf("procurement: %w: receipt record", shared.ErrForbidden)
	}
	order, _, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return GoodsReceipt{}, err
	}
	if order.Status != OrderStatusSent && order.Status != OrderStatusFulfilled {
		return GoodsReceipt{}, fmt.Errorf("procurement: %w: order is %s", shared.ErrConflict, order.Status)
	}

	receipt := GoodsReceipt{
		OrderID:     orderID,
		Reference:   input.Reference,
		ReceivedBy:  actor.UserID,
		ReceivedAt:  time.Now(),
		QCChecklist: input.QCChecklist,
		Note:        input.Note,
	}
	if receipt.Reference == "" {
		receipt.Reference = generateNumber("GR")
	}

	key := fmt.Sprintf("GR:%d:%s", orderID, receipt.Reference)
	inserted := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "procurement.receipt"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return GoodsReceipt{}, fmt.Errorf("procurement: %w: receipt %s already recorded", shared.ErrConflict, receipt.Reference)
			}
			return GoodsReceipt{}, err
		}
		inserted = true
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertGoodsReceipt(ctx, receipt)
		if err != nil {
			return err
		}
		receipt.ID = id
		return tx.UpdateOrderStatus(ctx, orderID, OrderStatusFulfilled)
	})
	if err != nil {
		if inserted {
			_ = s.idempotency.Delete(ctx, key)
		}
		return GoodsReceipt{}, err
	}
	s.recordAudit(ctx, actor, "RECEIPT_RECORD", "order", orderID, map[string]any{"reference": receipt.Reference})
	if s.match != nil {
		if verdict, merr := s.match.Reconcile(ctx, orderID); merr != nil {
			s.logger.Warn("match recheck after receipt", slog.Int64("order_id", orderID), slog.Any("error", merr))
		} else {
			s.logger.Info("match recheck after receipt", slog.Int64("order_id", orderID), slog.String("verdict", string(verdict)))
		}
	}
	return receipt, nil
}
