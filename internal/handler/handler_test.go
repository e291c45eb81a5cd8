package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/dihanio/NesaVent-sub001/internal/middleware"
	"github.com/dihanio/NesaVent-sub001/internal/model"
	"github.com/dihanio/NesaVent-sub001/internal/service"
)

// asUser stands in for JWTAuth.
func asUser(id uint64, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.CtxUserID, id)
			c.Set(middleware.CtxRole, role)
			return next(c)
		}
	}
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type fakeOrders struct {
	created   []service.Selection
	createErr error
}

func (f *fakeOrders) CreateOrder(_ context.Context, buyerID, eventID uint64, sel []service.Selection) (*model.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = sel
	return &model.Order{ID: 1, BuyerID: buyerID, EventID: eventID, Status: model.OrderPending}, nil
}

func (f *fakeOrders) GetOrder(_ context.Context, _ service.Actor, id uint64) (*model.Order, error) {
	return &model.Order{ID: id}, nil
}

func (f *fakeOrders) ListMyOrders(context.Context, uint64) ([]model.Order, error) { return nil, nil }

func (f *fakeOrders) CancelOrder(_ context.Context, _, id uint64) (*model.Order, error) {
	return &model.Order{ID: id, Status: model.OrderCancelled}, nil
}

type fakePayments struct {
	raw    []byte
	status string
	err    error
}

func (f *fakePayments) PayOrder(_ context.Context, _ service.Actor, id uint64, _ string) (*service.Confirmation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.Confirmation{Order: &model.Order{ID: id, Status: model.OrderPaid}}, nil
}

func (f *fakePayments) HandleGatewayNotification(_ context.Context, _ service.GatewayNotification, raw []byte) (string, error) {
	f.raw = raw
	return f.status, f.err
}

func TestRespondErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{service.ErrAlreadyPaid, http.StatusBadRequest},
		{service.ErrInsufficientStock, http.StatusBadRequest},
		{&service.Error{Kind: service.KindForbidden, Message: "no"}, http.StatusForbidden},
		{&service.Error{Kind: service.KindNotFound, Message: "missing"}, http.StatusNotFound},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		e := echo.New()
		e.GET("/x", func(c echo.Context) error { return respondError(c, tc.err) })
		rec := do(e, http.MethodGet, "/x", "")
		require.Equal(t, tc.code, rec.Code, tc.err.Error())
		if tc.code == http.StatusInternalServerError {
			require.NotContains(t, rec.Body.String(), "db down")
		}
	}
}

func TestCreateOrder(t *testing.T) {
	orders := &fakeOrders{}
	h := NewOrderHandler(orders, &fakePayments{})
	e := echo.New()
	e.POST("/api/orders", h.Create, asUser(5, model.RoleUser))
	e.POST("/anon/orders", h.Create)

	rec := do(e, http.MethodPost, "/api/orders", `{"eventId":20,"ticketSelections":[{"ticketTypeId":1,"quantity":2}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, []service.Selection{{TierID: 1, Quantity: 2}}, orders.created)

	rec = do(e, http.MethodPost, "/api/orders", `{"eventId":20,"ticketSelections":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "ticketSelections must be at least 1")

	rec = do(e, http.MethodPost, "/api/orders", `{"eventId":20,"ticketSelections":[{"ticketTypeId":1,"quantity":0}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "ticketSelections[0].quantity must be at least 1")

	rec = do(e, http.MethodPost, "/api/orders", `{"eventId":20,"ticketSelections":[{"ticketTypeId":1,"quantity":101}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "ticketSelections[0].quantity must be at most 100")

	// the legacy "items" key carries no selections
	rec = do(e, http.MethodPost, "/api/orders", `{"eventId":20,"items":[{"ticketTypeId":1,"quantity":2}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "ticketSelections is required")

	rec = do(e, http.MethodPost, "/api/orders", `{"eventId":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"message":"invalid request body"}`, rec.Body.String())

	require.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "/anon/orders", `{}`).Code)

	orders.createErr = service.ErrInsufficientStock
	rec = do(e, http.MethodPost, "/api/orders", `{"eventId":20,"ticketSelections":[{"ticketTypeId":1,"quantity":2}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayOrder(t *testing.T) {
	pay := &fakePayments{}
	h := NewOrderHandler(&fakeOrders{}, pay)
	e := echo.New()
	e.PUT("/api/orders/:id/pay", h.Pay, asUser(5, model.RoleUser))

	rec := do(e, http.MethodPut, "/api/orders/7/pay", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"paid"`)

	require.Equal(t, http.StatusBadRequest, do(e, http.MethodPut, "/api/orders/abc/pay", "").Code)

	pay.err = service.ErrAlreadyPaid
	require.Equal(t, http.StatusBadRequest, do(e, http.MethodPut, "/api/orders/7/pay", "").Code)
}

func TestGatewayNotification(t *testing.T) {
	pay := &fakePayments{status: model.PaymentEventProcessed}
	h := NewOrderHandler(&fakeOrders{}, pay)
	e := echo.New()
	e.POST("/api/payments/notification", h.GatewayNotification)

	body := `{"order_id":"ORDER-1","transaction_status":"settlement","gross_amount":"50000.00"}`
	rec := do(e, http.MethodPost, "/api/payments/notification", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"processed"}`, rec.Body.String())
	require.Equal(t, body, string(pay.raw))

	require.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/api/payments/notification", `{"transaction_status":"settlement"}`).Code)
	require.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/api/payments/notification", `not json`).Code)

	pay.err = &service.Error{Kind: service.KindForbidden, Message: "invalid signature"}
	require.Equal(t, http.StatusForbidden, do(e, http.MethodPost, "/api/payments/notification", body).Code)
}

type fakeLedger struct {
	last     service.WithdrawalInput
	rejected string
	err      error
}

func (f *fakeLedger) Balance(context.Context, uint64, *uint64) (model.Balance, error) {
	return model.Balance{TotalPendapatan: 100000, SaldoTersedia: 100000, Orders: []model.RevenueOrder{}}, nil
}

func (f *fakeLedger) RequestWithdrawal(_ context.Context, mitraID uint64, in service.WithdrawalInput) (*model.Withdrawal, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.last = in
	return &model.Withdrawal{ID: 31, MitraID: mitraID, Amount: in.Amount, AdminFee: 2500, NetAmount: in.Amount - 2500, Status: model.WithdrawalPending}, nil
}

func (f *fakeLedger) CancelWithdrawal(context.Context, uint64, uint64) error { return f.err }

func (f *fakeLedger) ListMyWithdrawals(context.Context, uint64) ([]model.Withdrawal, error) {
	return nil, nil
}

func (f *fakeLedger) GetWithdrawal(_ context.Context, _ service.Actor, id uint64) (model.Withdrawal, error) {
	return model.Withdrawal{ID: id}, f.err
}

func (f *fakeLedger) ListWithdrawals(context.Context, string) ([]model.Withdrawal, error) {
	return nil, nil
}

func (f *fakeLedger) ProcessWithdrawal(_ context.Context, _, id uint64) (model.Withdrawal, error) {
	return model.Withdrawal{ID: id, Status: model.WithdrawalCompleted}, f.err
}

func (f *fakeLedger) RejectWithdrawal(_ context.Context, _, id uint64, reason string) (model.Withdrawal, error) {
	f.rejected = reason
	return model.Withdrawal{ID: id, Status: model.WithdrawalRejected, AlasanDitolak: reason}, f.err
}

func TestWithdrawalEndpoints(t *testing.T) {
	l := &fakeLedger{}
	h := NewWithdrawalHandler(l)
	e := echo.New()
	mitra := asUser(9, model.RoleMitra)
	admin := asUser(1, model.RoleAdmin)
	e.GET("/api/withdrawals/balance", h.Balance, mitra)
	e.GET("/api/withdrawals", h.Mine, mitra)
	e.POST("/api/withdrawals", h.Create, mitra)
	e.PUT("/api/admin/withdrawals/:id/reject", h.Reject, admin)

	rec := do(e, http.MethodPost, "/api/withdrawals",
		`{"jumlah":100000,"bankName":"BCA","accountNumber":"1234567890","accountName":"Mitra Jaya"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"jumlahBersih":97500`)
	require.Equal(t, int64(100000), l.last.Amount)
	require.Nil(t, l.last.EventID)

	rec = do(e, http.MethodPost, "/api/withdrawals", `{"jumlah":100000,"accountNumber":"1","accountName":"A"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"message":"bankName is required"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/api/withdrawals/balance?eventId=x", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(e, http.MethodGet, "/api/withdrawals/balance?eventId=20", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"saldoTersedia":100000`)

	rec = do(e, http.MethodGet, "/api/withdrawals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())

	rec = do(e, http.MethodPut, "/api/admin/withdrawals/3/reject", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"message":"reason is required"}`, rec.Body.String())
	require.Empty(t, l.rejected)

	rec = do(e, http.MethodPut, "/api/admin/withdrawals/3/reject", `{"reason":"rekening tidak valid"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "rekening tidak valid", l.rejected)
}

type fakeModeration struct {
	Moderation
	rejectedSlug string
}

func (f *fakeModeration) RejectEvent(_ context.Context, _ uint64, slug, reason string) (*model.Event, error) {
	f.rejectedSlug = slug
	return &model.Event{Slug: slug, Status: model.EventRejected, AlasanDitolak: reason}, nil
}

func (f *fakeModeration) SetActive(_ context.Context, _ service.Actor, id uint64, active bool) (model.User, error) {
	return model.User{ID: id, IsActive: active}, nil
}

func (f *fakeModeration) SubmitStudent(_ context.Context, id uint64, in service.StudentInput) (model.User, error) {
	return model.User{ID: id, Student: model.Student{Status: model.StudentPending, NIM: in.NIM}}, nil
}

func TestAdminHandlers(t *testing.T) {
	m := &fakeModeration{}
	h := NewAdminHandler(m)
	e := echo.New()
	admin := asUser(1, model.RoleAdmin)
	e.PUT("/api/admin/events/:slug/reject", h.RejectEvent, admin)
	e.PUT("/api/admin/users/:id/status", h.SetStatus, admin)
	e.POST("/api/student-verification", h.SubmitStudent, asUser(5, model.RoleUser))

	rec := do(e, http.MethodPut, "/api/admin/events/konser-kampus/reject", `{"reason":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, m.rejectedSlug)

	rec = do(e, http.MethodPut, "/api/admin/events/konser-kampus/reject", `{"reason":"duplicate"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "konser-kampus", m.rejectedSlug)

	// isActive is a pointer so an explicit false still validates
	rec = do(e, http.MethodPut, "/api/admin/users/5/status", `{"isActive":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, http.StatusBadRequest, do(e, http.MethodPut, "/api/admin/users/5/status", `{}`).Code)

	rec = do(e, http.MethodPost, "/api/student-verification", `{"nim":"21050","university":"UNESA","studentCardUrl":"not a url"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"message":"studentCardUrl must be a valid URL"}`, rec.Body.String())

	rec = do(e, http.MethodPost, "/api/student-verification", `{"nim":"21050","university":"UNESA","studentCardUrl":"https://cdn.example.com/ktm.png"}`)
	require.Equal(t, http.StatusOK, rec.Code)
}
