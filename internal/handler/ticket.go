package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dihanio/NesaVent-sub001/internal/model"
	"github.com/dihanio/NesaVent-sub001/internal/service"
)

type Tickets interface {
	ListMyTickets(ctx context.Context, ownerID uint64) ([]model.Ticket, error)
	GetTicket(ctx context.Context, actor service.Actor, code string) (model.Ticket, error)
	TicketQR(ctx context.Context, actor service.Actor, code string) ([]byte, error)
	CheckInTicket(ctx context.Context, actor service.Actor, code string) (model.Ticket, error)
}

type TicketHandler struct {
	Tickets Tickets
}

func NewTicketHandler(t Tickets) *TicketHandler { return &TicketHandler{Tickets: t} }

func (h *TicketHandler) Mine(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	tickets, err := h.Tickets.ListMyTickets(c.Request().Context(), a.ID)
	if err != nil {
		return respondError(c, err)
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	return c.JSON(http.StatusOK, tickets)
}

func (h *TicketHandler) Get(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	t, err := h.Tickets.GetTicket(c.Request().Context(), a, c.Param("code"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// QR handles GET /api/tickets/:code/qr and returns a PNG.
func (h *TicketHandler) QR(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	png, err := h.Tickets.TicketQR(c.Request().Context(), a, c.Param("code"))
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set("Cache-Control", "private, max-age=300")
	return c.Blob(http.StatusOK, "image/png", png)
}

func (h *TicketHandler) CheckIn(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	t, err := h.Tickets.CheckInTicket(c.Request().Context(), a, c.Param("code"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}
