package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/meridian-procure/meridian-procure/internal/shared"
)

// CreateRequisitionInput describes a new spend request.
type CreateRequisitionInput struct {
	Title           string
	EstimatedAmount float64
	Department      string
}

// CreateRequisition registers an internal spend request awaiting approval.
func (s *Service) CreateRequisition(ctx context.Context, actor shared.Identity, input CreateRequisitionInput) (Requisition, error) {
	if !shared.Can(actor, shared.ActRequisitionCreate) {
		return Requisition{}, fmt.Errorf("procurement: %w: requisition create", shared.ErrForbidden)
	}
	if strings.TrimSpace(input.Title) == "" {
		return Requisition{}, fmt.Errorf("procurement: %w: title required", shared.ErrValidation)
	}
	if input.EstimatedAmount <= 0 {
		return Requisition{}, fmt.Errorf("procurement: %w: estimated amount must be positive", shared.ErrValidation)
	}
	req := Requisition{
		Title:           strings.TrimSpace(input.Title),
		EstimatedAmount: roundAmount(input.EstimatedAmount),
		Department:      input.Department,
		RequestedBy:     actor.UserID,
		Status:          ReqStatusPending,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateRequisition(ctx, req)
		if err != nil {
			return err
		}
		req.ID = id
		return nil
	})
	if err != nil {
		return Requisition{}, err
	}
	s.recordAudit(ctx, actor, "REQ_CREATE", "requisition", req.ID, map[string]any{"title": req.Title, "amount": req.EstimatedAmount})
	return req, nil
}

// ApproveRequisition moves a pending requisition to approved. The approver
// must differ from the requester (segregation of duties); the status check
// re-reads the current row inside the transaction so two concurrent
// approvals cannot both succeed.
func (s *Service) ApproveRequisition(ctx context.Context, actor shared.Identity, id int64) error {
	if !shared.Can(actor, shared.ActRequisitionApprove) {
		return fmt.Errorf("procurement: %w: requisition approve", shared.ErrForbidden)
	}
	var requester int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.GetRequisitionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != ReqStatusPending {
			return fmt.Errorf("procurement: %w: requisition is %s", shared.ErrConflict, req.Status)
		}
		if req.RequestedBy == actor.UserID {
			return fmt.Errorf("procurement: %w: segregation of duties", shared.ErrPolicy)
		}
		requester = req.RequestedBy
		return tx.SetRequisitionApproved(ctx, id)
	})
	if err != nil {
		return err
	}
	if s.approvals != nil {
		if aerr := s.approvals.Record(ctx, shared.ApprovalLog{
			Module:  "REQ",
			RefID:   shared.ApprovalRef("REQ", id),
			ActorID: actor.UserID,
			Action:  shared.ApprovalApprove,
			Note:    fmt.Sprintf("requisition %d approved", id),
		}); aerr != nil {
			s.logger.Warn("record requisition approval", slog.Any("error", aerr))
		}
	}
	s.recordAudit(ctx, actor, "REQ_APPROVE", "requisition", id, nil)
	s.notify(ctx, shared.Notification{
		UserID:   requester,
		Title:    "Requisition approved",
		Message:  fmt.Sprintf("Your requisition #%d has been approved.", id),
		Severity: shared.SeverityInfo,
		Link:     fmt.Sprintf("/requisitions/%d", id),
	})
	return nil
}

// RejectRequisition moves a pending requisition to rejected with a reason.
func (s *Service) RejectRequisition(ctx context.Context, actor shared.Identity, id int64, reason string) error {
	if !shared.Can(actor, shared.ActRequisitionApprove) {
		return fmt.Errorf("procurement: %w: requisition reject", shared.ErrForbidden)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("procurement: %w: rejection reason required", shared.ErrValidation)
	}
	var requester int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.GetRequisitionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != ReqStatusPending {
			return fmt.Errorf("procurement: %w: requisition is %s", shared.ErrConflict, req.Status)
		}
		requester = req.RequestedBy
		return tx.SetRequisitionRejected(ctx, id, reason)
	})
	if err != nil {
		return err
	}
	if s.approvals != nil {
		if aerr := s.approvals.Record(ctx, shared.ApprovalLog{
			Module:  "REQ",
			RefID:   shared.ApprovalRef("REQ", id),
			ActorID: actor.UserID,
			Action:  shared.ApprovalReject,
			Note:    reason,
		}); aerr != nil {
			s.logger.Warn("record requisition rejection", slog.Any("error", aerr))
		}
	}
	s.recordAudit(ctx, actor, "REQ_REJECT", "requisition", id, map[string]any{"reason": reason})
	s.notify(ctx, shared.Notification{
		UserID:   requester,
		Title:    "Requisition rejected",
		Message:  fmt.Sprintf("Your requisition #%d was rejected: %s", id, reason),
		Severity: shared.SeverityWarning,
		Link:     fmt.Sprintf("/requisitions/%d", id),
	})
	return nil
}

// ConvertRequisitionToOrder turns an approved requisition into a sent
// purchase order. Order creation, the requisition status flip and the link
// between them happen in one transaction.
func (s *Service) ConvertRequisitionToOrder(ctx context.Context, actor shared.Identity, id int64, supplierID int64) (Order, error) {
	if !shared.Can(actor, shared.ActRequisitionConvert) {
		return Order{}, fmt.Errorf("procurement: %w: requisition convert", shared.ErrForbidden)
	}
	sup, err := s.activeSupplier(ctx, supplierID)
	if err != nil {
		return Order{}, err
	}
	contract, err := s.contracts.Resolve(ctx, supplierID, time.Now())
	if err != nil {
		return Order{}, err
	}

	order := Order{
		Number:     generateNumber("PO"),
		SupplierID: supplierID,
		Status:     OrderStatusSent,
		CreatedBy:  actor.UserID,
	}
	if contract != nil {
		order.ContractID = contract.ID
		order.Incoterms = contract.Incoterms
	}
	var requester int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.GetRequisitionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != ReqStatusApproved {
			return fmt.Errorf("procurement: %w: requisition is %s", shared.ErrConflict, req.Status)
		}
		requester = req.RequestedBy
		order.RequisitionID = req.ID
		order.TotalAmount = req.EstimatedAmount
		order.Note = fmt.Sprintf("Converted from requisition %q", req.Title)
		orderID, err := tx.CreateOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = orderID
		return tx.SetRequisitionConverted(ctx, id, orderID)
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, actor, "REQ_CONVERT", "requisition", id, map[string]any{"order_id": order.ID, "supplier": sup.Name})
	if contract != nil {
		s.recordAudit(ctx, actor, "CONTRACT_AUTOLINK", "order", order.ID, map[string]any{"contract_id": contract.ID, "contract_title": contract.Title})
	}
	s.notify(ctx, shared.Notification{
		UserID:   requester,
		Title:    "Requisition converted",
		Message:  fmt.Sprintf("Requisition #%d became purchase order %s (%s).", id, order.Number, shared.FormatAmount(order.TotalAmount)),
		Severity: shared.SeverityInfo,
		Link:     fmt.Sprintf("/orders/%d", order.ID),
	})
	return order, nil
}
