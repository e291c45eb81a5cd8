package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/dihanio/NesaVent-sub001/internal/model"
)

const ticketCols = "id, order_id, event_id, tier_id, tier_name, owner_id, owner_name, code, qr_payload, status, used_at, created_at"

type TicketRepo struct{ db *sql.DB }

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// CreateBulkTx inserts tickets in a single statement. Passing an empty
// slice has no effect.
func (r *TicketRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, tickets []model.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("INSERT INTO tickets (order_id, event_id, tier_id, tier_name, owner_id, owner_name, code, qr_payload, status, created_at) VALUES ")
	args := make([]any, 0, len(tickets)*10)
	for i, t := range tickets {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?,?,?,?,?,?,?,?,?,?)")
		args = append(args, t.OrderID, t.EventID, t.TierID, t.TierName, t.OwnerID, t.OwnerName,
			t.Code, t.QRPayload, t.Status, t.CreatedAt.UTC())
	}
	_, err := tx.ExecContext(ctx, b.String(), args...)
	return err
}

func (r *TicketRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Ticket, error) {
	return r.list(ctx, "SELECT "+ticketCols+" FROM tickets WHERE owner_id = ? ORDER BY created_at DESC, id DESC", ownerID)
}

func (r *TicketRepo) GetByCode(ctx context.Context, code string) (model.Ticket, error) {
	return scanTicket(r.db.QueryRowContext(ctx, "SELECT "+ticketCols+" FROM tickets WHERE code = ?", code))
}

// MarkUsed checks a ticket in. Zero rows means it was not active.
func (r *TicketRepo) MarkUsed(ctx context.Context, id uint64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE tickets SET status = ?, used_at = ? WHERE id = ? AND status = ?",
		model.TicketUsed, at.UTC(), id, model.TicketActive)
	return requireAffected(res, err)
}

func (r *TicketRepo) list(ctx context.Context, q string, args ...any) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTicket(row rowScanner) (model.Ticket, error) {
	var (
		t      model.Ticket
		usedAt sql.NullTime
	)
	err := row.Scan(&t.ID, &t.OrderID, &t.EventID, &t.TierID, &t.TierName, &t.OwnerID, &t.OwnerName,
		&t.Code, &t.QRPayload, &t.Status, &usedAt, &t.CreatedAt)
	if err != nil {
		return model.Ticket{}, err
	}
	t.UsedAt = timePtr(usedAt)
	return t, nil
}
