package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/dihanio/NesaVent-sub001/internal/model"
)

const orderCols = `id, event_id, buyer_id, buyer_name, buyer_email, buyer_phone, total_amount, status,
	expires_at, paid_at, transaction_id, snap_token, payment_url, created_at, updated_at`

const itemCols = "id, order_id, tier_id, tier_name, unit_price, quantity, subtotal"

// OrderRepo stores orders and their item snapshots.
type OrderRepo struct{ db *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// CreateTx inserts the order row followed by one row per item. Generated
// IDs are written back into o.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (event_id, buyer_id, buyer_name, buyer_email, buyer_phone, total_amount, status, expires_at, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		o.EventID, o.BuyerID, o.BuyerName, o.BuyerEmail, o.BuyerPhone, o.TotalAmount, o.Status,
		o.ExpiresAt.UTC(), o.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		res, err := tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, tier_id, tier_name, unit_price, quantity, subtotal) VALUES (?,?,?,?,?,?)",
			it.OrderID, it.TierID, it.TierName, it.UnitPrice, it.Quantity, it.Subtotal)
		if err != nil {
			return err
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		it.ID = uint64(itemID)
	}
	return nil
}

// GetByID loads an order with its items.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	return r.getOne(ctx, r.db, "SELECT "+orderCols+" FROM orders WHERE id = ?", id)
}

// GetForUpdateTx locks the order row for the rest of tx.
func (r *OrderRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Order, error) {
	return r.getOne(ctx, tx, "SELECT "+orderCols+" FROM orders WHERE id = ? FOR UPDATE", id)
}

func (r *OrderRepo) getOne(ctx context.Context, q DBTX, query string, id uint64) (*model.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	items, err := r.itemsFor(ctx, q, []uint64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

// ListByBuyer returns a buyer's orders, newest first.
func (r *OrderRepo) ListByBuyer(ctx context.Context, buyerID uint64) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderCols+" FROM orders WHERE buyer_id = ? ORDER BY created_at DESC, id DESC", buyerID)
	if err != nil {
		return nil, err
	}
	var (
		orders []model.Order
		ids    []uint64
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(ids) == 0 {
		return orders, nil
	}
	items, err := r.itemsFor(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (r *OrderRepo) itemsFor(ctx context.Context, q DBTX, orderIDs []uint64) (map[uint64][]model.OrderItem, error) {
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}
	rows, err := q.QueryContext(ctx,
		"SELECT "+itemCols+" FROM order_items WHERE order_id IN ("+placeholders(len(orderIDs))+") ORDER BY order_id, id",
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][]model.OrderItem, len(orderIDs))
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.TierID, &it.TierName, &it.UnitPrice, &it.Quantity, &it.Subtotal); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

// MarkPaidTx flips a pending order to paid.
func (r *OrderRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, id uint64, transactionID string, paidAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = ?, paid_at = ?, transaction_id = ? WHERE id = ? AND status = ?",
		model.OrderPaid, paidAt.UTC(), transactionID, id, model.OrderPending)
	return requireAffected(res, err)
}

// Transition moves an order from one status to another. Zero rows affected
// yields ErrConflict.
func (r *OrderRepo) Transition(ctx context.Context, q DBTX, id uint64, from, to string) error {
	res, err := q.ExecContext(ctx, "UPDATE orders SET status = ? WHERE id = ? AND status = ?", to, id, from)
	return requireAffected(res, err)
}

// SetPaymentSession stores the gateway token and redirect URL.
func (r *OrderRepo) SetPaymentSession(ctx context.Context, id uint64, token, url string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE orders SET snap_token = ?, payment_url = ? WHERE id = ?", token, url, id)
	return err
}

// ExpireOverdue marks every pending order whose deadline passed as expired.
func (r *OrderRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET status = ? WHERE status = ? AND expires_at <= ?",
		model.OrderExpired, model.OrderPending, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o                 model.Order
		paidAt            sql.NullTime
		txID, token, link sql.NullString
	)
	if err := row.Scan(&o.ID, &o.EventID, &o.BuyerID, &o.BuyerName, &o.BuyerEmail, &o.BuyerPhone, &o.TotalAmount, &o.Status,
		&o.ExpiresAt, &paidAt, &txID, &token, &link, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.PaidAt = timePtr(paidAt)
	o.TransactionID = txID.String
	o.SnapToken = token.String
	o.PaymentURL = link.String
	return &o, nil
}
