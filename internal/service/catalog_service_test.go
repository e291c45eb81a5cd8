package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dihanio/NesaVent-sub001/internal/model"
	"github.com/dihanio/NesaVent-sub001/internal/repository"
)

func TestDummyDetector(t *testing.T) {
	d := NewDummyDetector()
	genuine := model.Event{
		Name:        "Konser Kampus Tahunan",
		Description: "Konser musik tahunan mahasiswa dengan bintang tamu nasional.",
		Location:    "Auditorium Utama",
		TicketTiers: []model.TicketTier{{Price: 50000, TotalStock: 300}},
	}

	tests := []struct {
		name    string
		mutate  func(*model.Event)
		isDummy bool
		score   int
	}{
		{"genuine event", func(*model.Event) {}, false, 0},
		{"placeholder name", func(e *model.Event) { e.Name = "Test Event Kampus" }, false, 40},
		{"lorem ipsum everywhere", func(e *model.Event) {
			e.Name = "Lorem Ipsum Fest"
			e.Description = "Lorem ipsum dolor sit amet consectetur."
		}, true, 70},
		{"short junk", func(e *model.Event) {
			e.Name = "asdf"
			e.Description = "aaaaaaa"
			e.Location = "tbd"
		}, true, 120},
		{"free unlimited tickets", func(e *model.Event) {
			e.TicketTiers = []model.TicketTier{{Price: 0, TotalStock: 50000}}
		}, false, 20},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ev := genuine
			tc.mutate(&ev)
			v := d.Evaluate(ev)
			require.Equal(t, tc.isDummy, v.IsDummy)
			require.Equal(t, tc.score, v.Score)
		})
	}
}

func TestHasRun(t *testing.T) {
	require.True(t, hasRun("Heyyyy", 4))
	require.False(t, hasRun("Heyyy", 4))
	require.False(t, hasRun("!!!!!!", 4))
	require.True(t, hasRun("tiket 0000", 4))
}

func TestValidateEventInput(t *testing.T) {
	start := fixedNow
	before := fixedNow.Add(-time.Hour)
	zero := 0
	valid := func() EventInput {
		return EventInput{
			Name: "Konser Kampus", Location: "Auditorium", Date: fixedNow.AddDate(0, 1, 0),
			Tiers: []TierInput{{Name: "Reguler", Price: 50000, Stock: 100}},
		}
	}
	require.NoError(t, validateEventInput(valid()))

	tests := []struct {
		name   string
		mutate func(*EventInput)
	}{
		{"missing name", func(in *EventInput) { in.Name = " " }},
		{"missing location", func(in *EventInput) { in.Location = "" }},
		{"missing date", func(in *EventInput) { in.Date = time.Time{} }},
		{"no tiers", func(in *EventInput) { in.Tiers = nil }},
		{"duplicate tier", func(in *EventInput) { in.Tiers = append(in.Tiers, TierInput{Name: "reguler", Stock: 1}) }},
		{"negative price", func(in *EventInput) { in.Tiers[0].Price = -1 }},
		{"zero stock", func(in *EventInput) { in.Tiers[0].Stock = 0 }},
		{"zero max per person", func(in *EventInput) { in.Tiers[0].MaxPerPerson = &zero }},
		{"sale window reversed", func(in *EventInput) { in.Tiers[0].SaleStart, in.Tiers[0].SaleEnd = &start, &before }},
		{"unknown role", func(in *EventInput) { in.Tiers[0].AllowedRoles = []string{"admin"} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := valid()
			tc.mutate(&in)
			err := validateEventInput(in)
			require.Error(t, err)
			require.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func newCatalog(t *testing.T) (*CatalogService, sqlmock.Sqlmock, *fakeNotifier) {
	t.Helper()
	db, mock := newMock(t)
	n := &fakeNotifier{}
	s := NewCatalogService(db, repository.NewEventRepo(db), NewDummyDetector(), n, zaptest.NewLogger(t))
	s.now = fixedClock
	return s, mock, n
}

func TestGetEventVisibility(t *testing.T) {
	bySlug := regexp.QuoteMeta("FROM events WHERE slug = ?")
	tiers := regexp.QuoteMeta("FROM ticket_tiers WHERE event_id IN (?)")

	tests := []struct {
		name    string
		status  string
		viewer  *Actor
		visible bool
	}{
		{"active to anonymous", model.EventActive, nil, true},
		{"finished to anonymous", model.EventFinished, nil, true},
		{"draft to anonymous", model.EventDraft, nil, false},
		{"draft to other mitra", model.EventDraft, &Actor{ID: 10, Role: model.RoleMitra}, false},
		{"draft to organizer", model.EventDraft, &Actor{ID: 9, Role: model.RoleMitra}, true},
		{"pending to admin", model.EventPending, &Actor{ID: 1, Role: model.RoleAdmin}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, mock, _ := newCatalog(t)
			mock.ExpectQuery(bySlug).WithArgs("konser-kampus").WillReturnRows(eventRows(20, "konser-kampus", tc.status, 9))
			mock.ExpectQuery(tiers).WithArgs(20).WillReturnRows(sqlmock.NewRows(tierColumns))

			ev, err := s.GetEvent(context.Background(), tc.viewer, "konser-kampus")
			if tc.visible {
				require.NoError(t, err)
				require.Equal(t, "konser-kampus", ev.Slug)
			} else {
				require.Equal(t, KindNotFound, KindOf(err))
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSubmitEvent(t *testing.T) {
	lock := regexp.QuoteMeta("FROM events WHERE slug = ? FOR UPDATE")
	tiers := regexp.QuoteMeta("FROM ticket_tiers WHERE event_id IN (?)")
	submit := regexp.QuoteMeta("UPDATE events SET status = ?, dummy_score = ?, dummy_reasons = ?, rejection_reason = ? WHERE id = ?")
	mitra := Actor{ID: 9, Role: model.RoleMitra}

	t.Run("goes to review", func(t *testing.T) {
		s, mock, n := newCatalog(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs("konser-kampus").WillReturnRows(eventRows(20, "konser-kampus", model.EventDraft, 9))
		mock.ExpectQuery(tiers).WithArgs(20).WillReturnRows(sqlmock.NewRows(tierColumns))
		mock.ExpectExec(submit).WithArgs(model.EventPending, 0, sqlmock.AnyArg(), nil, 20).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		ev, v, err := s.SubmitEvent(context.Background(), mitra, "konser-kampus")
		require.NoError(t, err)
		require.False(t, v.IsDummy)
		require.Equal(t, model.EventPending, ev.Status)
		require.Empty(t, n.sent)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("dummy is auto rejected", func(t *testing.T) {
		s, mock, n := newCatalog(t)
		row := sqlmock.NewRows(eventColumns).AddRow(21, "test", "Test", "lorem ipsum", fixedNow.AddDate(0, 1, 0),
			"19:00", "Auditorium", "musik", 9, model.EventDraft, nil, nil, nil, 0, nil, fixedNow, fixedNow)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs("test").WillReturnRows(row)
		mock.ExpectQuery(tiers).WithArgs(21).WillReturnRows(sqlmock.NewRows(tierColumns))
		mock.ExpectExec(submit).WithArgs(model.EventRejected, 110, sqlmock.AnyArg(), sqlmock.AnyArg(), 21).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		ev, v, err := s.SubmitEvent(context.Background(), mitra, "test")
		require.NoError(t, err)
		require.True(t, v.IsDummy)
		require.Equal(t, model.EventRejected, ev.Status)
		require.Contains(t, ev.AlasanDitolak, "Terdeteksi konten dummy")
		require.Len(t, n.sent, 1)
		require.Equal(t, model.NotifyEventRejected, n.sent[0].Type)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other organizer", func(t *testing.T) {
		s, mock, _ := newCatalog(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs("konser-kampus").WillReturnRows(eventRows(20, "konser-kampus", model.EventDraft, 10))
		mock.ExpectQuery(tiers).WithArgs(20).WillReturnRows(sqlmock.NewRows(tierColumns))
		mock.ExpectRollback()

		_, _, err := s.SubmitEvent(context.Background(), mitra, "konser-kampus")
		require.Equal(t, KindForbidden, KindOf(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
