package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/dihanio/NesaVent-sub001/internal/model"
)

const notificationCols = "id, user_id, type, title, message, is_read, read_at, event_id, order_id, withdrawal_id, created_at"

type NotificationRepo struct{ db *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts n and writes back its ID.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, type, title, message, event_id, order_id, withdrawal_id, created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		n.UserID, n.Type, n.Title, n.Message,
		nullablePtr(n.EventID), nullablePtr(n.OrderID), nullablePtr(n.WithdrawalID), n.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// ListByUser returns the newest notifications first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]model.Notification, error) {
	q := "SELECT " + notificationCols + " FROM notifications WHERE user_id = ?"
	if unreadOnly {
		q += " AND is_read = 0"
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ?"
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		var (
			n                model.Notification
			readAt           sql.NullTime
			eventID, orderID sql.NullInt64
			withdrawalID     sql.NullInt64
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.IsRead, &readAt,
			&eventID, &orderID, &withdrawalID, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.ReadAt = timePtr(readAt)
		n.EventID = uint64Ptr(eventID)
		n.OrderID = uint64Ptr(orderID)
		n.WithdrawalID = uint64Ptr(withdrawalID)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0", userID).Scan(&n)
	return n, err
}

// MarkRead returns sql.ErrNoRows when the notification does not belong to
// userID. Marking an already-read notification is a no-op.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64, at time.Time) error {
	var exists uint64
	if err := r.db.QueryRowContext(ctx,
		"SELECT id FROM notifications WHERE id = ? AND user_id = ?", id, userID).Scan(&exists); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1, read_at = ? WHERE id = ? AND is_read = 0", at.UTC(), id)
	return err
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uint64, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1, read_at = ? WHERE user_id = ? AND is_read = 0", at.UTC(), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
