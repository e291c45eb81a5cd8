package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dihanio/NesaVent-sub001/internal/model"
)

const eventCols = `id, slug, name, description, event_date, event_time, location, category,
	organizer_id, status, rejection_reason, verified_by, verified_at, dummy_score, dummy_reasons,
	created_at, updated_at`

const tierCols = `id, event_id, position, name, price, total_stock, remaining_stock,
	max_per_person, sale_start, sale_end, allowed_roles`

// EventRepo stores events and their ordered ticket tiers.
type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// EventFilter narrows public and admin listings.
type EventFilter struct {
	Status   string
	Category string
	Search   string
	Limit    int
	Offset   int
}

// CreateTx inserts the event and its tiers. IDs are written back into ev.
func (r *EventRepo) CreateTx(ctx context.Context, tx *sql.Tx, ev *model.Event) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO events (slug, name, description, event_date, event_time, location, category, organizer_id, status)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		ev.Slug, ev.Name, ev.Description, ev.Date.UTC(), ev.Time, ev.Location, ev.Category, ev.OrganizerID, ev.Status)
	if err != nil {
		if isDuplicate(err) {
			return ErrSlugExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	return r.insertTiersTx(ctx, tx, ev.ID, ev.TicketTiers)
}

// UpdateTx rewrites the editable fields and replaces the tier list. Only
// called for events that cannot have orders yet.
func (r *EventRepo) UpdateTx(ctx context.Context, tx *sql.Tx, ev *model.Event) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE events SET name = ?, description = ?, event_date = ?, event_time = ?, location = ?, category = ?, status = ?
		 WHERE id = ?`,
		ev.Name, ev.Description, ev.Date.UTC(), ev.Time, ev.Location, ev.Category, ev.Status, ev.ID)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM ticket_tiers WHERE event_id = ?", ev.ID); err != nil {
		return err
	}
	return r.insertTiersTx(ctx, tx, ev.ID, ev.TicketTiers)
}

func (r *EventRepo) insertTiersTx(ctx context.Context, tx *sql.Tx, eventID uint64, tiers []model.TicketTier) error {
	for i := range tiers {
		t := &tiers[i]
		t.EventID = eventID
		t.Position = i
		res, err := tx.ExecContext(ctx,
			`INSERT INTO ticket_tiers (event_id, position, name, price, total_stock, remaining_stock, max_per_person, sale_start, sale_end, allowed_roles)
			 VALUES (?,?,?,?,?,?,?,?,?,?)`,
			eventID, i, t.Name, t.Price, t.TotalStock, t.RemainingStock,
			nullablePtr(t.MaxPerPerson), utcPtr(t.SaleStart), utcPtr(t.SaleEnd),
			nullable(strings.Join(t.AllowedRoles, ",")))
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		t.ID = uint64(id)
	}
	return nil
}

// SlugExists reports whether any event already uses slug.
func (r *EventRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events WHERE slug = ?", slug).Scan(&n)
	return n > 0, err
}

// GetByID loads an event with its tiers.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	return r.getOne(ctx, r.db, "SELECT "+eventCols+" FROM events WHERE id = ?", id)
}

// GetBySlug loads an event with its tiers.
func (r *EventRepo) GetBySlug(ctx context.Context, slug string) (*model.Event, error) {
	return r.getOne(ctx, r.db, "SELECT "+eventCols+" FROM events WHERE slug = ?", slug)
}

// GetForUpdateTx locks the event row for a state transition.
func (r *EventRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, slug string) (*model.Event, error) {
	return r.getOne(ctx, tx, "SELECT "+eventCols+" FROM events WHERE slug = ? FOR UPDATE", slug)
}

func (r *EventRepo) getOne(ctx context.Context, q DBTX, query string, arg any) (*model.Event, error) {
	ev, err := scanEvent(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	tiers, err := r.tiersFor(ctx, q, []uint64{ev.ID})
	if err != nil {
		return nil, err
	}
	ev.TicketTiers = tiers[ev.ID]
	return ev, nil
}

// List returns events matching f, soonest first.
func (r *EventRepo) List(ctx context.Context, f EventFilter) ([]model.Event, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "(name LIKE ? OR location LIKE ?)")
		like := "%" + s + "%"
		args = append(args, like, like)
	}
	q := "SELECT " + eventCols + " FROM events"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY event_date ASC, id ASC"
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}
	return r.list(ctx, q, args...)
}

// ListByOrganizer returns every event of one mitra, newest first.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error) {
	return r.list(ctx, "SELECT "+eventCols+" FROM events WHERE organizer_id = ? ORDER BY created_at DESC, id DESC", organizerID)
}

func (r *EventRepo) list(ctx context.Context, q string, args ...any) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var (
		events []model.Event
		ids    []uint64
	)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		events = append(events, *ev)
		ids = append(ids, ev.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(ids) == 0 {
		return events, nil
	}
	tiers, err := r.tiersFor(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].TicketTiers = tiers[events[i].ID]
	}
	return events, nil
}

func (r *EventRepo) tiersFor(ctx context.Context, q DBTX, eventIDs []uint64) (map[uint64][]model.TicketTier, error) {
	args := make([]any, len(eventIDs))
	for i, id := range eventIDs {
		args[i] = id
	}
	rows, err := q.QueryContext(ctx,
		"SELECT "+tierCols+" FROM ticket_tiers WHERE event_id IN ("+placeholders(len(eventIDs))+") ORDER BY event_id, position",
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][]model.TicketTier, len(eventIDs))
	for rows.Next() {
		var (
			t          model.TicketTier
			maxPer     sql.NullInt64
			start, end sql.NullTime
			roles      sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.EventID, &t.Position, &t.Name, &t.Price, &t.TotalStock, &t.RemainingStock,
			&maxPer, &start, &end, &roles); err != nil {
			return nil, err
		}
		t.MaxPerPerson = intPtr(maxPer)
		t.SaleStart = timePtr(start)
		t.SaleEnd = timePtr(end)
		if roles.Valid && roles.String != "" {
			t.AllowedRoles = strings.Split(roles.String, ",")
		}
		out[t.EventID] = append(out[t.EventID], t)
	}
	return out, rows.Err()
}

// SubmitTx stores the detector verdict together with the new status.
func (r *EventRepo) SubmitTx(ctx context.Context, tx *sql.Tx, id uint64, status string, score int, reasons []string, rejection string) error {
	raw, err := json.Marshal(reasons)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE events SET status = ?, dummy_score = ?, dummy_reasons = ?, rejection_reason = ? WHERE id = ?",
		status, score, string(raw), nullable(rejection), id)
	return err
}

// Decide records an admin verdict on a pending event. Zero rows means the
// event was no longer pending.
func (r *EventRepo) Decide(ctx context.Context, q DBTX, id uint64, status, reason string, adminID uint64, at time.Time) error {
	res, err := q.ExecContext(ctx,
		"UPDATE events SET status = ?, rejection_reason = ?, verified_by = ?, verified_at = ? WHERE id = ? AND status = ?",
		status, nullable(reason), adminID, at.UTC(), id, model.EventPending)
	return requireAffected(res, err)
}

// DecrementStockTx takes qty units from a tier only if enough remain.
// qty must be positive.
func (r *EventRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, tierID uint64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("decrement stock of tier %d: invalid quantity %d", tierID, qty)
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE ticket_tiers SET remaining_stock = remaining_stock - ? WHERE id = ? AND remaining_stock >= ?",
		qty, tierID, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var (
		ev         model.Event
		reason     sql.NullString
		verifiedBy sql.NullInt64
		verifiedAt sql.NullTime
		reasons    sql.NullString
	)
	if err := row.Scan(&ev.ID, &ev.Slug, &ev.Name, &ev.Description, &ev.Date, &ev.Time, &ev.Location, &ev.Category,
		&ev.OrganizerID, &ev.Status, &reason, &verifiedBy, &verifiedAt, &ev.DummyScore, &reasons,
		&ev.CreatedAt, &ev.UpdatedAt); err != nil {
		return nil, err
	}
	ev.AlasanDitolak = reason.String
	ev.VerifiedBy = uint64Ptr(verifiedBy)
	ev.VerifiedAt = timePtr(verifiedAt)
	if reasons.Valid && reasons.String != "" {
		_ = json.Unmarshal([]byte(reasons.String), &ev.DummyReasons)
	}
	return &ev, nil
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
