package procurement

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-procure/meridian-procure/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	CreateRequisition(ctx context.Context, req Requisition) (int64, error)
	GetRequisitionForUpdate(ctx context.Context, id int64) (Requisition, error)
	SetRequisitionApproved(ctx context.Context, id int64) error
	SetRequisitionRejected(ctx context.Context, id int64, reason string) error
	SetRequisitionConverted(ctx context.Context, id int64, orderID int64) error
	CreateOrder(ctx context.Context, order Order) (int64, error)
	InsertOrderItem(ctx context.Context, item OrderItem) error
	GetOrderForUpdate(ctx context.Context, id int64) (Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus) error
	InsertGoodsReceipt(ctx context.Context, receipt GoodsReceipt) (int64, error)
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const requisitionColumns = `id, title, estimated_amount, department, requested_by, status, reject_reason, order_id, created_at`

func scanRequisition(row pgx.Row) (Requisition, error) {
	var req Requisition
	var status string
	var orderID pgtype.Int8
	var createdAt pgtype.Timestamptz
	if err := row.Scan(&req.ID, &req.Title, &req.EstimatedAmount, &req.Department, &req.RequestedBy, &status, &req.RejectReason, &orderID, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Requisition{}, shared.ErrNotFound
		}
		return Requisition{}, err
	}
	req.Status = RequisitionStatus(status)
	if orderID.Valid {
		req.OrderID = orderID.Int64
	}
	if createdAt.Valid {
		req.CreatedAt = createdAt.Time
	}
	return req, nil
}

// GetRequisition returns one requisition.
func (r *Repository) GetRequisition(ctx context.Context, id int64) (Requisition, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requisitionColumns+` FROM requisitions WHERE id = $1`, id)
	return scanRequisition(row)
}

const orderColumns = `id, number, supplier_id, status, total_amount, contract_id, requisition_id, rfq_id, incoterms, note, created_by, created_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var status string
	var contractID, requisitionID, rfqID pgtype.Int8
	var createdAt pgtype.Timestamptz
	if err := row.Scan(&o.ID, &o.Number, &o.SupplierID, &status, &o.TotalAmount, &contractID, &requisitionID, &rfqID, &o.Incoterms, &o.Note, &o.CreatedBy, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, shared.ErrNotFound
		}
		return Order{}, err
	}
	o.Status = OrderStatus(status)
	if contractID.Valid {
		o.ContractID = contractID.Int64
	}
	if requisitionID.Valid {
		o.RequisitionID = requisitionID.Int64
	}
	if rfqID.Valid {
		o.RFQID = rfqID.Int64
	}
	if createdAt.Valid {
		o.CreatedAt = createdAt.Time
	}
	return o, nil
}

// GetOrder returns an order and its lines.
func (r *Repository) GetOrder(ctx context.Context, id int64) (Order, []OrderItem, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM procurement_orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		return Order{}, nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, part_id, quantity, unit_price FROM order_items WHERE order_id = $1 ORDER BY id ASC`, id)
	if err != nil {
		return Order{}, nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.PartID, &it.Quantity, &it.UnitPrice); err != nil {
			return Order{}, nil, err
		}
		items = append(items, it)
	}
	return order, items, rows.Err()
}

// ListOrders returns a filtered page of orders plus the total count.
func (r *Repository) ListOrders(ctx context.Context, limit, offset int, filters ListFilters) ([]Order, int, error) {
	query := `SELECT ` + orderColumns + ` FROM procurement_orders WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM procurement_orders WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Status != "" {
		argCount++
		clause := ` AND status = $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, filters.Status)
	}
	if filters.SupplierID > 0 {
		argCount++
		clause := ` AND supplier_id = $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, filters.SupplierID)
	}
	if filters.Search != "" {
		argCount++
		clause := ` AND (number ILIKE $` + strconv.Itoa(argCount) + ` OR note ILIKE $` + strconv.Itoa(argCount) + `)`
		query += clause
		countQuery += clause
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY created_at DESC, id DESC`
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

// ListReceipts returns the receipts recorded against an order.
func (r *Repository) ListReceipts(ctx context.Context, orderID int64) ([]GoodsReceipt, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, reference, received_by, received_at, qc_checklist, note
FROM goods_receipts WHERE order_id = $1 ORDER BY received_at ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var receipts []GoodsReceipt
	for rows.Next() {
		var gr GoodsReceipt
		var receivedAt pgtype.Timestamptz
		var checklist []byte
		if err := rows.Scan(&gr.ID, &gr.OrderID, &gr.Reference, &gr.ReceivedBy, &receivedAt, &checklist, &gr.Note); err != nil {
			return nil, err
		}
		if receivedAt.Valid {
			gr.ReceivedAt = receivedAt.Time
		}
		if len(checklist) > 0 {
			if err := json.Unmarshal(checklist, &gr.QCChecklist); err != nil {
				return nil, err
			}
		}
		receipts = append(receipts, gr)
	}
	return receipts, rows.Err()
}

// Transactional writes

func (tx *txRepo) CreateRequisition(ctx context.Context, req Requisition) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO requisitions (title, estimated_amount, department, requested_by, status)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		req.Title, req.EstimatedAmount, req.Department, req.RequestedBy, string(req.Status)).Scan(&id)
	return id, err
}

func (tx *txRepo) GetRequisitionForUpdate(ctx context.Context, id int64) (Requisition, error) {
	row := tx.tx.QueryRow(ctx, `SELECT `+requisitionColumns+` FROM requisitions WHERE id = $1 FOR UPDATE`, id)
	return scanRequisition(row)
}

func (tx *txRepo) SetRequisitionApproved(ctx context.Context, id int64) error {
	_, err := tx.tx.Exec(ctx, `UPDATE requisitions SET status = $2 WHERE id = $1`, id, string(ReqStatusApproved))
	return err
}

func (tx *txRepo) SetRequisitionRejected(ctx context.Context, id int64, reason string) error {
	_, err := tx.tx.Exec(ctx, `UPDATE requisitions SET status = $2, reject_reason = $3 WHERE id = $1`, id, string(ReqStatusRejected), reason)
	return err
}

func (tx *txRepo) SetRequisitionConverted(ctx context.Context, id int64, orderID int64) error {
	_, err := tx.tx.Exec(ctx, `UPDATE requisitions SET status = $2, order_id = $3 WHERE id = $1`, id, string(ReqStatusConverted), orderID)
	return err
}

func (tx *txRepo) CreateOrder(ctx context.Context, order Order) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO procurement_orders (number, supplier_id, status, total_amount, contract_id, requisition_id, rfq_id, incoterms, note, created_by)
VALUES ($1, $2, $3, $4, NULLIF($5, 0), NULLIF($6, 0), NULLIF($7, 0), $8, $9, $10) RETURNING id`,
		order.Number, order.SupplierID, string(order.Status), order.TotalAmount, order.ContractID, order.RequisitionID, order.RFQID, order.Incoterms, order.Note, order.CreatedBy).Scan(&id)
	return id, err
}

func (tx *txRepo) InsertOrderItem(ctx context.Context, item OrderItem) error {
	_, err := tx.tx.Exec(ctx, `INSERT INTO order_items (order_id, part_id, quantity, unit_price) VALUES ($1, $2, $3, $4)`,
		item.OrderID, item.PartID, item.Quantity, item.UnitPrice)
	return err
}

func (tx *txRepo) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	row := tx.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM procurement_orders WHERE id = $1 FOR UPDATE`, id)
	return scanOrder(row)
}

func (tx *txRepo) UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus) error {
	_, err := tx.tx.Exec(ctx, `UPDATE procurement_orders SET status = $2 WHERE id = $1`, id, string(status))
	return err
}

func (tx *txRepo) InsertGoodsReceipt(ctx context.Context, receipt GoodsReceipt) (int64, error) {
	checklist, err := json.Marshal(receipt.QCChecklist)
	if err != nil {
		return 0, err
	}
	var id int64
	err = tx.tx.QueryRow(ctx, `INSERT INTO goods_receipts (order_id, reference, received_by, received_at, qc_checklist, note)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		receipt.OrderID, receipt.Reference, receipt.ReceivedBy, receipt.ReceivedAt, checklist, receipt.Note).Scan(&id)
	return id, err
}
