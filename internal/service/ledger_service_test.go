package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dihanio/NesaVent-sub001/internal/config"
	"github.com/dihanio/NesaVent-sub001/internal/model"
	"github.com/dihanio/NesaVent-sub001/internal/repository"
)

func ledgerWithMock(t *testing.T) (*LedgerService, sqlmock.Sqlmock, *fakeNotifier) {
	t.Helper()
	db, mock := newMock(t)
	n := &fakeNotifier{}
	s := NewLedgerService(db, repository.NewUserRepo(db), repository.NewEventRepo(db), repository.NewWithdrawalRepo(db),
		n, config.DefaultLedgerConfig(), zaptest.NewLogger(t))
	s.now = fixedClock
	return s, mock, n
}

func expectBalance(mock sqlmock.Sqlmock, mitraID uint64, revenue, completed, reserved int64) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders o JOIN events e")).WithArgs(mitraID, model.OrderPaid).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "name", "total_amount", "paid_at"}).
			AddRow(1, 20, "Konser Kampus", revenue, fixedNow))
	mock.ExpectQuery(regexp.QuoteMeta("FROM withdrawals WHERE mitra_id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"completed", "reserved"}).AddRow(completed, reserved))
}

func TestAdminFee(t *testing.T) {
	pct := decimal.RequireFromString("2.5")
	require.Equal(t, int64(2500), AdminFee(100000, pct))
	require.Equal(t, int64(250), AdminFee(10000, pct))
	require.Equal(t, int64(256), AdminFee(10250, pct)) // 256.25
	require.Equal(t, int64(1), AdminFee(20, pct))      // 0.5 rounds up
}

func TestComputeBalance(t *testing.T) {
	orders := []model.RevenueOrder{{TotalAmount: 60000}, {TotalAmount: 40000}}

	b := ComputeBalance(orders, repository.LedgerSums{})
	require.Equal(t, int64(100000), b.TotalPendapatan)
	require.Equal(t, int64(100000), b.SaldoTersedia)

	b = ComputeBalance(orders, repository.LedgerSums{Reserved: 100000})
	require.Equal(t, int64(0), b.SaldoTersedia)

	b = ComputeBalance(orders, repository.LedgerSums{Completed: 100000})
	require.Equal(t, int64(100000), b.TotalDitarik)
	require.Equal(t, int64(0), b.SaldoTersedia)

	require.NotNil(t, ComputeBalance(nil, repository.LedgerSums{}).Orders)
}

func TestRequestWithdrawalWholeBalance(t *testing.T) {
	s, mock, _ := ledgerWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE id = ? FOR UPDATE")).WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	expectBalance(mock, 9, 100000, 0, 0)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO withdrawals")).
		WithArgs(9, nil, 100000, 2500, 97500, "BCA", "1234567890", "Mitra Jaya", nil, model.WithdrawalPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(31, 1))
	mock.ExpectCommit()

	w, err := s.RequestWithdrawal(context.Background(), 9, WithdrawalInput{
		Amount: 100000, BankName: "BCA", AccountNumber: "1234567890", AccountName: "Mitra Jaya",
	})
	require.NoError(t, err)
	require.Equal(t, uint64(31), w.ID)
	require.Equal(t, int64(2500), w.AdminFee)
	require.Equal(t, int64(97500), w.NetAmount)
	require.Equal(t, model.WithdrawalPending, w.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestWithdrawalOverBalance(t *testing.T) {
	s, mock, _ := ledgerWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE id = ? FOR UPDATE")).WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	expectBalance(mock, 9, 100000, 0, 50000)
	mock.ExpectRollback()

	_, err := s.RequestWithdrawal(context.Background(), 9, WithdrawalInput{
		Amount: 60000, BankName: "BCA", AccountNumber: "1234567890", AccountName: "Mitra Jaya",
	})
	require.Error(t, err)
	require.Equal(t, KindValidation, KindOf(err))
	require.Contains(t, err.Error(), "Rp 50.000")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestWithdrawalValidation(t *testing.T) {
	s, mock, _ := ledgerWithMock(t)

	_, err := s.RequestWithdrawal(context.Background(), 9, WithdrawalInput{Amount: 9999, BankName: "BCA", AccountNumber: "1", AccountName: "A"})
	require.Equal(t, KindValidation, KindOf(err))

	_, err = s.RequestWithdrawal(context.Background(), 9, WithdrawalInput{Amount: 20000, BankName: " ", AccountNumber: "1", AccountName: "A"})
	require.Equal(t, KindValidation, KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelWithdrawal(t *testing.T) {
	getSQL := regexp.QuoteMeta("FROM withdrawals WHERE id = ?")

	t.Run("non pending fails", func(t *testing.T) {
		s, mock, _ := ledgerWithMock(t)
		mock.ExpectQuery(getSQL).WithArgs(3).WillReturnRows(withdrawalRows(3, 9, model.WithdrawalCompleted, 40000))
		err := s.CancelWithdrawal(context.Background(), 9, 3)
		require.Equal(t, KindValidation, KindOf(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign owner", func(t *testing.T) {
		s, mock, _ := ledgerWithMock(t)
		mock.ExpectQuery(getSQL).WithArgs(3).WillReturnRows(withdrawalRows(3, 10, model.WithdrawalPending, 40000))
		err := s.CancelWithdrawal(context.Background(), 9, 3)
		require.Equal(t, KindForbidden, KindOf(err))
	})

	t.Run("pending is deleted", func(t *testing.T) {
		s, mock, _ := ledgerWithMock(t)
		mock.ExpectQuery(getSQL).WithArgs(3).WillReturnRows(withdrawalRows(3, 9, model.WithdrawalPending, 40000))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM withdrawals WHERE id = ? AND mitra_id = ? AND status = ?")).
			WithArgs(3, 9, model.WithdrawalPending).WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, s.CancelWithdrawal(context.Background(), 9, 3))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProcessAndRejectWithdrawal(t *testing.T) {
	getSQL := regexp.QuoteMeta("FROM withdrawals WHERE id = ?")

	t.Run("process notifies net amount", func(t *testing.T) {
		s, mock, n := ledgerWithMock(t)
		mock.ExpectQuery(getSQL).WithArgs(3).WillReturnRows(withdrawalRows(3, 9, model.WithdrawalPending, 100000))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE withdrawals SET status = ?, processed_by = ?")).
			WithArgs(model.WithdrawalCompleted, 1, sqlmock.AnyArg(), 3, model.WithdrawalPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w, err := s.ProcessWithdrawal(context.Background(), 1, 3)
		require.NoError(t, err)
		require.Equal(t, model.WithdrawalCompleted, w.Status)
		require.Len(t, n.sent, 1)
		require.Equal(t, model.NotifyWithdrawalCompleted, n.sent[0].Type)
		require.Contains(t, n.sent[0].Message, "Rp 97.500")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reject requires reason", func(t *testing.T) {
		s, _, _ := ledgerWithMock(t)
		_, err := s.RejectWithdrawal(context.Background(), 1, 3, "  ")
		require.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("reject non pending", func(t *testing.T) {
		s, mock, n := ledgerWithMock(t)
		mock.ExpectQuery(getSQL).WithArgs(3).WillReturnRows(withdrawalRows(3, 9, model.WithdrawalRejected, 100000))
		_, err := s.RejectWithdrawal(context.Background(), 1, 3, "rekening salah")
		require.Equal(t, KindValidation, KindOf(err))
		require.Empty(t, n.sent)
	})
}

func TestFormatRupiah(t *testing.T) {
	require.Equal(t, "Rp 0", formatRupiah(0))
	require.Equal(t, "Rp 950", formatRupiah(950))
	require.Equal(t, "Rp 97.500", formatRupiah(97500))
	require.Equal(t, "Rp 1.250.000", formatRupiah(1250000))
	require.Equal(t, "-Rp 5.000", formatRupiah(-5000))
}
