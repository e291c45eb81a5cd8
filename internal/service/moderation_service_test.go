package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dihanio/NesaVent-sub001/internal/model"
	"github.com/dihanio/NesaVent-sub001/internal/repository"
)

var (
	lockEventSQL  = regexp.QuoteMeta("FROM events WHERE slug = ? FOR UPDATE")
	eventTiersSQL = regexp.QuoteMeta("FROM ticket_tiers WHERE event_id IN (?)")
	decideSQL     = regexp.QuoteMeta("UPDATE events SET status = ?, rejection_reason = ?, verified_by = ?, verified_at = ? WHERE id = ? AND status = ?")
	userByIDSQL   = regexp.QuoteMeta("FROM users WHERE id = ?")
	userColumns   = []string{"id", "name", "email", "phone", "password_hash", "role", "is_active",
		"student_status", "nim", "university", "student_card_url", "student_rejection_reason", "created_at", "updated_at"}
)

func userRows(id uint64, role, studentStatus string) *sqlmock.Rows {
	return sqlmock.NewRows(userColumns).AddRow(id, "Budi", "budi@example.com", "0812", "hash", role, true,
		studentStatus, nil, nil, nil, nil, fixedNow, fixedNow)
}

type moderationFixture struct {
	svc      *ModerationService
	mock     sqlmock.Sqlmock
	notifier *fakeNotifier
	changes  int
}

func newModeration(t *testing.T) *moderationFixture {
	t.Helper()
	db, mock := newMock(t)
	f := &moderationFixture{mock: mock, notifier: &fakeNotifier{}}
	f.svc = NewModerationService(db, repository.NewEventRepo(db), repository.NewUserRepo(db), repository.NewTokenRepo(db),
		f.notifier, zaptest.NewLogger(t))
	f.svc.now = fixedClock
	f.svc.OnCatalogChange = func(context.Context) { f.changes++ }
	return f
}

func TestRejectEvent(t *testing.T) {
	f := newModeration(t)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(lockEventSQL).WithArgs("konser-kampus").
		WillReturnRows(eventRows(20, "konser-kampus", model.EventPending, 9))
	f.mock.ExpectQuery(eventTiersSQL).WithArgs(20).WillReturnRows(sqlmock.NewRows(tierColumns))
	f.mock.ExpectExec(decideSQL).
		WithArgs(model.EventRejected, "duplicate", 1, sqlmock.AnyArg(), 20, model.EventPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	ev, err := f.svc.RejectEvent(context.Background(), 1, "konser-kampus", "duplicate")
	require.NoError(t, err)
	require.Equal(t, model.EventRejected, ev.Status)
	require.Equal(t, "duplicate", ev.AlasanDitolak)
	require.Len(t, f.notifier.sent, 1)
	require.Equal(t, uint64(9), f.notifier.sent[0].UserID)
	require.Equal(t, model.NotifyEventRejected, f.notifier.sent[0].Type)
	require.Contains(t, f.notifier.sent[0].Message, "duplicate")
	require.Equal(t, 1, f.changes)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRejectEventRequiresReason(t *testing.T) {
	f := newModeration(t)
	_, err := f.svc.RejectEvent(context.Background(), 1, "konser-kampus", "   ")
	require.Equal(t, KindValidation, KindOf(err))
	require.Empty(t, f.notifier.sent)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApproveEventNotPending(t *testing.T) {
	f := newModeration(t)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(lockEventSQL).WithArgs("konser-kampus").
		WillReturnRows(eventRows(20, "konser-kampus", model.EventActive, 9))
	f.mock.ExpectQuery(eventTiersSQL).WithArgs(20).WillReturnRows(sqlmock.NewRows(tierColumns))
	f.mock.ExpectRollback()

	_, err := f.svc.ApproveEvent(context.Background(), 1, "konser-kampus")
	require.Equal(t, KindValidation, KindOf(err))
	require.Empty(t, f.notifier.sent)
	require.Zero(t, f.changes)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSubmitStudent(t *testing.T) {
	t.Run("card url must be http", func(t *testing.T) {
		f := newModeration(t)
		_, err := f.svc.SubmitStudent(context.Background(), 5, StudentInput{NIM: "21050", University: "UNESA", CardURL: "ftp://x/ktm.png"})
		require.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("already approved", func(t *testing.T) {
		f := newModeration(t)
		f.mock.ExpectQuery(userByIDSQL).WithArgs(5).WillReturnRows(userRows(5, model.RoleUser, model.StudentApproved))
		_, err := f.svc.SubmitStudent(context.Background(), 5, StudentInput{NIM: "21050", University: "UNESA", CardURL: "https://cdn.example.com/ktm.png"})
		require.Equal(t, KindValidation, KindOf(err))
		require.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("rejected may resubmit", func(t *testing.T) {
		f := newModeration(t)
		f.mock.ExpectQuery(userByIDSQL).WithArgs(5).WillReturnRows(userRows(5, model.RoleUser, model.StudentRejected))
		f.mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET student_status = ?, nim = ?")).
			WithArgs(model.StudentPending, "21050", "UNESA", "https://cdn.example.com/ktm.png", 5, model.StudentUnverified, model.StudentRejected).
			WillReturnResult(sqlmock.NewResult(0, 1))
		u, err := f.svc.SubmitStudent(context.Background(), 5, StudentInput{NIM: " 21050 ", University: "UNESA", CardURL: "https://cdn.example.com/ktm.png"})
		require.NoError(t, err)
		require.Equal(t, model.StudentPending, u.Student.Status)
		require.Equal(t, "21050", u.Student.NIM)
		require.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestApproveStudentNotifies(t *testing.T) {
	f := newModeration(t)
	f.mock.ExpectQuery(userByIDSQL).WithArgs(5).WillReturnRows(userRows(5, model.RoleUser, model.StudentPending))
	f.mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET student_status = ?, student_rejection_reason = ?")).
		WithArgs(model.StudentApproved, nil, 5, model.StudentPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u, err := f.svc.ApproveStudent(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, model.StudentApproved, u.Student.Status)
	require.Len(t, f.notifier.sent, 1)
	require.Equal(t, model.NotifyStudentApproved, f.notifier.sent[0].Type)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSetRoleAndActive(t *testing.T) {
	admin := Actor{ID: 1, Role: model.RoleAdmin}

	f := newModeration(t)
	_, err := f.svc.SetRole(context.Background(), admin, 5, "superuser")
	require.Equal(t, KindValidation, KindOf(err))
	_, err = f.svc.SetRole(context.Background(), admin, 1, model.RoleUser)
	require.Equal(t, KindValidation, KindOf(err))
	_, err = f.svc.SetActive(context.Background(), admin, 1, false)
	require.Equal(t, KindValidation, KindOf(err))

	f.mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role = ? WHERE id = ?")).WithArgs(model.RoleMitra, 77).
		WillReturnResult(sqlmock.NewResult(0, 0))
	_, err = f.svc.SetRole(context.Background(), admin, 77, model.RoleMitra)
	require.Equal(t, KindNotFound, KindOf(err))

	f.mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_active = ? WHERE id = ?")).WithArgs(false, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ?")).
		WithArgs(sqlmock.AnyArg(), 5).WillReturnResult(sqlmock.NewResult(0, 2))
	f.mock.ExpectQuery(userByIDSQL).WithArgs(5).WillReturnRows(userRows(5, model.RoleUser, model.StudentUnverified))
	_, err = f.svc.SetActive(context.Background(), admin, 5, false)
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())
}
