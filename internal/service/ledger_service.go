package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dihanio/NesaVent-sub001/internal/config"
	"github.com/dihanio/NesaVent-sub001/internal/model"
	"github.com/dihanio/NesaVent-sub001/internal/repository"
)

var hundred = decimal.NewFromInt(100)

// WithdrawalInput is a mitra's payout request.
type WithdrawalInput struct {
	Amount        int64
	BankName      string
	AccountNumber string
	AccountName   string
	Note          string
	EventID       *uint64
}

// LedgerService computes mitra balances and runs the withdrawal workflow.
type LedgerService struct {
	db          *sql.DB
	users       *repository.UserRepo
	events      *repository.EventRepo
	withdrawals *repository.WithdrawalRepo
	notifier    Notifier
	cfg         config.LedgerConfig
	logger      *zap.Logger
	now         Clock
}

func NewLedgerService(db *sql.DB, users *repository.UserRepo, events *repository.EventRepo, withdrawals *repository.WithdrawalRepo,
	notifier Notifier, cfg config.LedgerConfig, logger *zap.Logger) *LedgerService {
	return &LedgerService{db: db, users: users, events: events, withdrawals: withdrawals,
		notifier: notifier, cfg: cfg, logger: logger, now: systemClock}
}

// ComputeBalance derives the ledger position from paid orders and
// withdrawal sums.
func ComputeBalance(orders []model.RevenueOrder, sums repository.LedgerSums) model.Balance {
	b := model.Balance{TotalDitarik: sums.Completed, TotalPending: sums.Reserved, Orders: orders}
	if b.Orders == nil {
		b.Orders = []model.RevenueOrder{}
	}
	for _, o := range orders {
		b.TotalPendapatan += o.TotalAmount
	}
	b.SaldoTersedia = b.TotalPendapatan - b.TotalDitarik - b.TotalPending
	return b
}

// AdminFee is percent of amount rounded half-up to whole rupiah.
func AdminFee(amount int64, percent decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(percent).Div(hundred).Round(0).IntPart()
}

// Balance returns the mitra's position, optionally for one event.
func (s *LedgerService) Balance(ctx context.Context, mitraID uint64, eventID *uint64) (model.Balance, error) {
	return s.balance(ctx, s.db, mitraID, eventID)
}

func (s *LedgerService) balance(ctx context.Context, q repository.DBTX, mitraID uint64, eventID *uint64) (model.Balance, error) {
	orders, err := s.withdrawals.PaidOrders(ctx, q, mitraID, eventID)
	if err != nil {
		return model.Balance{}, err
	}
	sums, err := s.withdrawals.Sums(ctx, q, mitraID, eventID)
	if err != nil {
		return model.Balance{}, err
	}
	return ComputeBalance(orders, sums), nil
}

// RequestWithdrawal reserves amount from the available balance. The mitra
// row stays locked from the balance read to the insert.
func (s *LedgerService) RequestWithdrawal(ctx context.Context, mitraID uint64, in WithdrawalInput) (*model.Withdrawal, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.RequestWithdrawal")
	defer span.End()

	if err := s.validateRequest(in); err != nil {
		return nil, err
	}
	if in.EventID != nil {
		ev, err := s.events.GetByID(ctx, *in.EventID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("event not found")
		}
		if err != nil {
			return nil, err
		}
		if ev.OrganizerID != mitraID {
			return nil, forbidden("event does not belong to you")
		}
	}

	fee := AdminFee(in.Amount, s.cfg.FeePercent)
	w := &model.Withdrawal{
		MitraID:       mitraID,
		EventID:       in.EventID,
		Amount:        in.Amount,
		AdminFee:      fee,
		NetAmount:     in.Amount - fee,
		BankName:      strings.TrimSpace(in.BankName),
		AccountNumber: strings.TrimSpace(in.AccountNumber),
		AccountName:   strings.TrimSpace(in.AccountName),
		Note:          strings.TrimSpace(in.Note),
		Status:        model.WithdrawalPending,
		CreatedAt:     s.now(),
	}
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.users.LockTx(ctx, tx, mitraID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound("mitra not found")
			}
			return err
		}
		bal, err := s.balance(ctx, tx, mitraID, in.EventID)
		if err != nil {
			return err
		}
		if in.Amount > bal.SaldoTersedia {
			return validationf("saldo tidak mencukupi: tersedia %s", formatRupiah(bal.SaldoTersedia))
		}
		if in.EventID != nil {
			// earmarked requests must also fit the overall balance
			global, err := s.balance(ctx, tx, mitraID, nil)
			if err != nil {
				return err
			}
			if in.Amount > global.SaldoTersedia {
				return validationf("saldo tidak mencukupi: tersedia %s", formatRupiah(global.SaldoTersedia))
			}
		}
		return s.withdrawals.CreateTx(ctx, tx, w)
	})
	if err != nil {
		return nil, err
	}
	withdrawalsTotal.WithLabelValues(model.WithdrawalPending).Inc()
	s.logger.Info("withdrawal requested",
		zap.Uint64("withdrawal_id", w.ID), zap.Uint64("mitra_id", mitraID), zap.Int64("amount", w.Amount))
	return w, nil
}

func (s *LedgerService) validateRequest(in WithdrawalInput) error {
	if in.Amount < s.cfg.MinAmount {
		return validationf("minimal penarikan %s", formatRupiah(s.cfg.MinAmount))
	}
	if strings.TrimSpace(in.BankName) == "" || strings.TrimSpace(in.AccountNumber) == "" || strings.TrimSpace(in.AccountName) == "" {
		return validationf("bank name, account number and account name are required")
	}
	return nil
}

// CancelWithdrawal deletes a pending withdrawal of its owner, releasing the
// reserved amount.
func (s *LedgerService) CancelWithdrawal(ctx context.Context, mitraID, id uint64) error {
	w, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if w.MitraID != mitraID {
		return forbidden("not your withdrawal")
	}
	if w.Status != model.WithdrawalPending {
		return validationf("only pending withdrawals can be cancelled")
	}
	if err := s.withdrawals.DeletePending(ctx, id, mitraID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return validationf("only pending withdrawals can be cancelled")
		}
		return err
	}
	s.logger.Info("withdrawal cancelled", zap.Uint64("withdrawal_id", id))
	return nil
}

func (s *LedgerService) ListMyWithdrawals(ctx context.Context, mitraID uint64) ([]model.Withdrawal, error) {
	return s.withdrawals.ListByMitra(ctx, mitraID)
}

// GetWithdrawal is visible to its owner and admins.
func (s *LedgerService) GetWithdrawal(ctx context.Context, actor Actor, id uint64) (model.Withdrawal, error) {
	w, err := s.get(ctx, id)
	if err != nil {
		return model.Withdrawal{}, err
	}
	if w.MitraID != actor.ID && !actor.IsAdmin() {
		return model.Withdrawal{}, forbidden("not your withdrawal")
	}
	return w, nil
}

func (s *LedgerService) ListWithdrawals(ctx context.Context, status string) ([]model.Withdrawal, error) {
	return s.withdrawals.List(ctx, status)
}

// ProcessWithdrawal settles a pending withdrawal.
func (s *LedgerService) ProcessWithdrawal(ctx context.Context, adminID, id uint64) (model.Withdrawal, error) {
	w, err := s.pending(ctx, id)
	if err != nil {
		return model.Withdrawal{}, err
	}
	now := s.now()
	if err := s.withdrawals.Complete(ctx, id, adminID, now); err != nil {
		return model.Withdrawal{}, s.transitionErr(err)
	}
	w.Status = model.WithdrawalCompleted
	w.ProcessedAt = &now
	w.ProcessedBy = &adminID
	withdrawalsTotal.WithLabelValues(model.WithdrawalCompleted).Inc()

	notifyBestEffort(ctx, s.notifier, s.logger, model.Notification{
		UserID:       w.MitraID,
		Type:         model.NotifyWithdrawalCompleted,
		Title:        "Penarikan dana berhasil",
		Message:      "Penarikan dana sebesar " + formatRupiah(w.NetAmount) + " telah ditransfer ke rekening " + w.BankName + ".",
		WithdrawalID: ptr(w.ID),
	})
	return w, nil
}

// RejectWithdrawal declines a pending withdrawal. reason is required.
func (s *LedgerService) RejectWithdrawal(ctx context.Context, adminID, id uint64, reason string) (model.Withdrawal, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return model.Withdrawal{}, validationf("rejection reason is required")
	}
	w, err := s.pending(ctx, id)
	if err != nil {
		return model.Withdrawal{}, err
	}
	now := s.now()
	if err := s.withdrawals.Reject(ctx, id, adminID, reason, now); err != nil {
		return model.Withdrawal{}, s.transitionErr(err)
	}
	w.Status = model.WithdrawalRejected
	w.AlasanDitolak = reason
	w.ProcessedAt = &now
	w.ProcessedBy = &adminID
	withdrawalsTotal.WithLabelValues(model.WithdrawalRejected).Inc()

	notifyBestEffort(ctx, s.notifier, s.logger, model.Notification{
		UserID:       w.MitraID,
		Type:         model.NotifyWithdrawalRejected,
		Title:        "Penarikan dana ditolak",
		Message:      "Penarikan dana sebesar " + formatRupiah(w.Amount) + " ditolak: " + reason,
		WithdrawalID: ptr(w.ID),
	})
	return w, nil
}

func (s *LedgerService) get(ctx context.Context, id uint64) (model.Withdrawal, error) {
	w, err := s.withdrawals.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Withdrawal{}, notFound("withdrawal not found")
	}
	return w, err
}

func (s *LedgerService) pending(ctx context.Context, id uint64) (model.Withdrawal, error) {
	w, err := s.get(ctx, id)
	if err != nil {
		return model.Withdrawal{}, err
	}
	if w.Status != model.WithdrawalPending {
		return model.Withdrawal{}, validationf("withdrawal is %s", w.Status)
	}
	return w, nil
}

func (s *LedgerService) transitionErr(err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return validationf("withdrawal is no longer pending")
	}
	return err
}

// formatRupiah renders 97500 as "Rp 97.500".
func formatRupiah(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-Rp " + b.String()
	}
	return "Rp " + b.String()
}
