package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dihanio/NesaVent-sub001/internal/model"
	"github.com/dihanio/NesaVent-sub001/internal/service"
)

// Orders is the order processor as seen by the handlers.
type Orders interface {
	CreateOrder(ctx context.Context, buyerID, eventID uint64, selections []service.Selection) (*model.Order, error)
	GetOrder(ctx context.Context, actor service.Actor, id uint64) (*model.Order, error)
	ListMyOrders(ctx context.Context, buyerID uint64) ([]model.Order, error)
	CancelOrder(ctx context.Context, buyerID, id uint64) (*model.Order, error)
}

// Payments confirms orders and accepts gateway callbacks.
type Payments interface {
	PayOrder(ctx context.Context, actor service.Actor, orderID uint64, transactionID string) (*service.Confirmation, error)
	HandleGatewayNotification(ctx context.Context, n service.GatewayNotification, raw []byte) (string, error)
}

type OrderHandler struct {
	Orders   Orders
	Payments Payments
}

func NewOrderHandler(orders Orders, payments Payments) *OrderHandler {
	return &OrderHandler{Orders: orders, Payments: payments}
}

// Quantity is bounded per line; stock and per-person caps apply to the
// merged total in the service.
type ticketSelectionReq struct {
	TicketTypeID uint64 `json:"ticketTypeId" validate:"required"`
	Quantity     int    `json:"quantity" validate:"gte=1,lte=100"`
}

type createOrderReq struct {
	EventID          uint64               `json:"eventId" validate:"required"`
	TicketSelections []ticketSelectionReq `json:"ticketSelections" validate:"required,min=1,max=20,dive"`
}

type payReq struct {
	TransactionID string `json:"transactionId"`
}

// Create handles POST /api/orders.
func (h *OrderHandler) Create(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var req createOrderReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	sel := make([]service.Selection, len(req.TicketSelections))
	for i, it := range req.TicketSelections {
		sel[i] = service.Selection{TierID: it.TicketTypeID, Quantity: it.Quantity}
	}
	order, err := h.Orders.CreateOrder(c.Request().Context(), a.ID, req.EventID, sel)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// Mine handles GET /api/orders/my.
func (h *OrderHandler) Mine(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	orders, err := h.Orders.ListMyOrders(c.Request().Context(), a.ID)
	if err != nil {
		return respondError(c, err)
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return c.JSON(http.StatusOK, orders)
}

// Get handles GET /api/orders/:id.
func (h *OrderHandler) Get(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid order id")
	}
	order, err := h.Orders.GetOrder(c.Request().Context(), a, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// Pay handles PUT /api/orders/:id/pay.
func (h *OrderHandler) Pay(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid order id")
	}
	var req payReq
	_ = c.Bind(&req) // body is optional
	conf, err := h.Payments.PayOrder(c.Request().Context(), a, id, req.TransactionID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, conf)
}

// Cancel handles PUT /api/orders/:id/cancel.
func (h *OrderHandler) Cancel(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid order id")
	}
	order, err := h.Orders.CancelOrder(c.Request().Context(), a.ID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

const maxNotificationBody = 64 << 10

// GatewayNotification handles POST /api/payments/notification. The raw body
// is kept for the payment event log.
func (h *OrderHandler) GatewayNotification(c echo.Context) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxNotificationBody))
	if err != nil {
		return message(c, http.StatusBadRequest, "invalid request body")
	}
	var n service.GatewayNotification
	if err := json.Unmarshal(raw, &n); err != nil || n.OrderID == "" {
		return message(c, http.StatusBadRequest, "invalid notification")
	}
	status, err := h.Payments.HandleGatewayNotification(c.Request().Context(), n, raw)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": status})
}
