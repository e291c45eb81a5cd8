package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/dihanio/NesaVent-sub001/internal/model"
)

const withdrawalCols = `id, mitra_id, event_id, amount, admin_fee, net_amount, bank_name, account_number, account_name,
	note, status, rejection_reason, processed_at, processed_by, created_at, updated_at`

// WithdrawalRepo is the payout ledger.
type WithdrawalRepo struct{ db *sql.DB }

func NewWithdrawalRepo(db *sql.DB) *WithdrawalRepo { return &WithdrawalRepo{db: db} }

// LedgerSums aggregates withdrawal amounts by state.
type LedgerSums struct {
	Completed int64
	Reserved  int64 // pending + processing
}

// PaidOrders lists the paid orders of events owned by mitraID, optionally
// restricted to one event.
func (r *WithdrawalRepo) PaidOrders(ctx context.Context, q DBTX, mitraID uint64, eventID *uint64) ([]model.RevenueOrder, error) {
	query := `SELECT o.id, o.event_id, e.name, o.total_amount, o.paid_at
		FROM orders o JOIN events e ON e.id = o.event_id
		WHERE e.organizer_id = ? AND o.status = ?`
	args := []any{mitraID, model.OrderPaid}
	if eventID != nil {
		query += " AND o.event_id = ?"
		args = append(args, *eventID)
	}
	query += " ORDER BY o.paid_at DESC, o.id DESC"
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RevenueOrder
	for rows.Next() {
		var (
			ro     model.RevenueOrder
			paidAt sql.NullTime
		)
		if err := rows.Scan(&ro.OrderID, &ro.EventID, &ro.EventName, &ro.TotalAmount, &paidAt); err != nil {
			return nil, err
		}
		ro.PaidAt = paidAt.Time
		out = append(out, ro)
	}
	return out, rows.Err()
}

// Sums totals the mitra's withdrawals. With eventID set only withdrawals
// earmarked for that event are counted.
func (r *WithdrawalRepo) Sums(ctx context.Context, q DBTX, mitraID uint64, eventID *uint64) (LedgerSums, error) {
	query := `SELECT
		COALESCE(SUM(CASE WHEN status = ? THEN amount ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status IN (?, ?) THEN amount ELSE 0 END), 0)
		FROM withdrawals WHERE mitra_id = ?`
	args := []any{model.WithdrawalCompleted, model.WithdrawalPending, model.WithdrawalProcessing, mitraID}
	if eventID != nil {
		query += " AND event_id = ?"
		args = append(args, *eventID)
	}
	var s LedgerSums
	err := q.QueryRowContext(ctx, query, args...).Scan(&s.Completed, &s.Reserved)
	return s, err
}

// CreateTx inserts a pending withdrawal and writes back its ID.
func (r *WithdrawalRepo) CreateTx(ctx context.Context, tx *sql.Tx, w *model.Withdrawal) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO withdrawals (mitra_id, event_id, amount, admin_fee, net_amount, bank_name, account_number, account_name, note, status, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		w.MitraID, nullablePtr(w.EventID), w.Amount, w.AdminFee, w.NetAmount, w.BankName, w.AccountNumber, w.AccountName,
		nullable(w.Note), w.Status, w.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.ID = uint64(id)
	return nil
}

func (r *WithdrawalRepo) GetByID(ctx context.Context, id uint64) (model.Withdrawal, error) {
	return scanWithdrawal(r.db.QueryRowContext(ctx, "SELECT "+withdrawalCols+" FROM withdrawals WHERE id = ?", id))
}

func (r *WithdrawalRepo) ListByMitra(ctx context.Context, mitraID uint64) ([]model.Withdrawal, error) {
	return r.list(ctx, "SELECT "+withdrawalCols+" FROM withdrawals WHERE mitra_id = ? ORDER BY created_at DESC, id DESC", mitraID)
}

// List returns all withdrawals, optionally by status, oldest first so the
// admin queue is worked in order.
func (r *WithdrawalRepo) List(ctx context.Context, status string) ([]model.Withdrawal, error) {
	if status == "" {
		return r.list(ctx, "SELECT "+withdrawalCols+" FROM withdrawals ORDER BY created_at ASC, id ASC")
	}
	return r.list(ctx, "SELECT "+withdrawalCols+" FROM withdrawals WHERE status = ? ORDER BY created_at ASC, id ASC", status)
}

// Complete settles a pending withdrawal.
func (r *WithdrawalRepo) Complete(ctx context.Context, id, adminID uint64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE withdrawals SET status = ?, processed_by = ?, processed_at = ? WHERE id = ? AND status = ?",
		model.WithdrawalCompleted, adminID, at.UTC(), id, model.WithdrawalPending)
	return requireAffected(res, err)
}

// Reject declines a pending withdrawal with a reason.
func (r *WithdrawalRepo) Reject(ctx context.Context, id, adminID uint64, reason string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE withdrawals SET status = ?, rejection_reason = ?, processed_by = ?, processed_at = ? WHERE id = ? AND status = ?",
		model.WithdrawalRejected, reason, adminID, at.UTC(), id, model.WithdrawalPending)
	return requireAffected(res, err)
}

// DeletePending removes a still-pending withdrawal of mitraID.
func (r *WithdrawalRepo) DeletePending(ctx context.Context, id, mitraID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM withdrawals WHERE id = ? AND mitra_id = ? AND status = ?",
		id, mitraID, model.WithdrawalPending)
	return requireAffected(res, err)
}

func (r *WithdrawalRepo) list(ctx context.Context, q string, args ...any) ([]model.Withdrawal, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func scanWithdrawal(row rowScanner) (model.Withdrawal, error) {
	var (
		w                    model.Withdrawal
		eventID, processedBy sql.NullInt64
		note, reason         sql.NullString
		processedAt          sql.NullTime
	)
	err := row.Scan(&w.ID, &w.MitraID, &eventID, &w.Amount, &w.AdminFee, &w.NetAmount, &w.BankName, &w.AccountNumber, &w.AccountName,
		&note, &w.Status, &reason, &processedAt, &processedBy, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return model.Withdrawal{}, err
	}
	w.EventID = uint64Ptr(eventID)
	w.Note = note.String
	w.AlasanDitolak = reason.String
	w.ProcessedAt = timePtr(processedAt)
	w.ProcessedBy = uint64Ptr(processedBy)
	return w, nil
}
