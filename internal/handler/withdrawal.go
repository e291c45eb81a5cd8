package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dihanio/NesaVent-sub001/internal/model"
	"github.com/dihanio/NesaVent-sub001/internal/service"
)

// Ledger is the withdrawal workflow used by mitra and admin endpoints.
type Ledger interface {
	Balance(ctx context.Context, mitraID uint64, eventID *uint64) (model.Balance, error)
	RequestWithdrawal(ctx context.Context, mitraID uint64, in service.WithdrawalInput) (*model.Withdrawal, error)
	CancelWithdrawal(ctx context.Context, mitraID, id uint64) error
	ListMyWithdrawals(ctx context.Context, mitraID uint64) ([]model.Withdrawal, error)
	GetWithdrawal(ctx context.Context, actor service.Actor, id uint64) (model.Withdrawal, error)
	ListWithdrawals(ctx context.Context, status string) ([]model.Withdrawal, error)
	ProcessWithdrawal(ctx context.Context, adminID, id uint64) (model.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, adminID, id uint64, reason string) (model.Withdrawal, error)
}

type WithdrawalHandler struct {
	Ledger Ledger
}

func NewWithdrawalHandler(l Ledger) *WithdrawalHandler { return &WithdrawalHandler{Ledger: l} }

type withdrawalReq struct {
	Amount        int64   `json:"jumlah" validate:"required,gt=0"`
	BankName      string  `json:"bankName" validate:"required,max=100"`
	AccountNumber string  `json:"accountNumber" validate:"required,max=50"`
	AccountName   string  `json:"accountName" validate:"required,max=120"`
	Note          string  `json:"keterangan" validate:"max=500"`
	EventID       *uint64 `json:"eventId"`
}

type reasonReq struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Balance handles GET /api/withdrawals/balance[?eventId=].
func (h *WithdrawalHandler) Balance(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var eventID *uint64
	if raw := c.QueryParam("eventId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return message(c, http.StatusBadRequest, "invalid eventId")
		}
		eventID = &id
	}
	b, err := h.Ledger.Balance(c.Request().Context(), a.ID, eventID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *WithdrawalHandler) Create(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var req withdrawalReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	w, err := h.Ledger.RequestWithdrawal(c.Request().Context(), a.ID, service.WithdrawalInput{
		Amount: req.Amount, BankName: req.BankName, AccountNumber: req.AccountNumber,
		AccountName: req.AccountName, Note: req.Note, EventID: req.EventID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *WithdrawalHandler) Mine(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.Ledger.ListMyWithdrawals(c.Request().Context(), a.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, nonNil(list))
}

func (h *WithdrawalHandler) Get(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid withdrawal id")
	}
	w, err := h.Ledger.GetWithdrawal(c.Request().Context(), a, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, w)
}

// Cancel handles DELETE /api/withdrawals/:id.
func (h *WithdrawalHandler) Cancel(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid withdrawal id")
	}
	if err := h.Ledger.CancelWithdrawal(c.Request().Context(), a.ID, id); err != nil {
		return respondError(c, err)
	}
	return message(c, http.StatusOK, "withdrawal cancelled")
}

// AdminList handles GET /api/admin/withdrawals[?status=].
func (h *WithdrawalHandler) AdminList(c echo.Context) error {
	list, err := h.Ledger.ListWithdrawals(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, nonNil(list))
}

func (h *WithdrawalHandler) Process(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid withdrawal id")
	}
	w, err := h.Ledger.ProcessWithdrawal(c.Request().Context(), a.ID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, w)
}

func (h *WithdrawalHandler) Reject(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid withdrawal id")
	}
	var req reasonReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	w, err := h.Ledger.RejectWithdrawal(c.Request().Context(), a.ID, id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, w)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
