package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/dihanio/NesaVent-sub001/internal/model"
)

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, n model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return nil
}

type published struct {
	queue   string
	payload any
}

type fakePublisher struct {
	mu  sync.Mutex
	out []published
}

func (f *fakePublisher) Publish(_ context.Context, queue string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, published{queue, payload})
	return nil
}

var (
	orderColumns = []string{"id", "event_id", "buyer_id", "buyer_name", "buyer_email", "buyer_phone", "total_amount", "status",
		"expires_at", "paid_at", "transaction_id", "snap_token", "payment_url", "created_at", "updated_at"}
	itemColumns  = []string{"id", "order_id", "tier_id", "tier_name", "unit_price", "quantity", "subtotal"}
	eventColumns = []string{"id", "slug", "name", "description", "event_date", "event_time", "location", "category",
		"organizer_id", "status", "rejection_reason", "verified_by", "verified_at", "dummy_score", "dummy_reasons",
		"created_at", "updated_at"}
	tierColumns = []string{"id", "event_id", "position", "name", "price", "total_stock", "remaining_stock",
		"max_per_person", "sale_start", "sale_end", "allowed_roles"}
	withdrawalColumns = []string{"id", "mitra_id", "event_id", "amount", "admin_fee", "net_amount", "bank_name", "account_number",
		"account_name", "note", "status", "rejection_reason", "processed_at", "processed_by", "created_at", "updated_at"}
)

func orderRows(id uint64, status string, total int64, expiresAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(orderColumns).AddRow(id, 20, 5, "Budi", "budi@example.com", "0812", total, status,
		expiresAt, nil, nil, nil, nil, fixedNow.Add(-time.Hour), fixedNow.Add(-time.Hour))
}

func eventRows(id uint64, slug, status string, organizerID uint64) *sqlmock.Rows {
	return sqlmock.NewRows(eventColumns).AddRow(id, slug, "Konser Kampus", "Konser tahunan mahasiswa", fixedNow.AddDate(0, 1, 0),
		"19:00", "Auditorium", "musik", organizerID, status, nil, nil, nil, 0, nil, fixedNow, fixedNow)
}

func withdrawalRows(id, mitraID uint64, status string, amount int64) *sqlmock.Rows {
	return sqlmock.NewRows(withdrawalColumns).AddRow(id, mitraID, nil, amount, amount/40, amount-amount/40, "BCA", "1234567890",
		"Mitra Jaya", nil, status, nil, nil, nil, fixedNow, fixedNow)
}

func activeEvent(tiers ...model.TicketTier) model.Event {
	return model.Event{ID: 20, Status: model.EventActive, OrganizerID: 9, TicketTiers: tiers}
}
