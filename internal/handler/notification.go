package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dihanio/NesaVent-sub001/internal/model"
)

type Notifications interface {
	List(ctx context.Context, userID uint64, unreadOnly bool) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID uint64) (int, error)
	MarkRead(ctx context.Context, userID, id uint64) error
	MarkAllRead(ctx context.Context, userID uint64) (int64, error)
}

type NotificationHandler struct {
	Notifications Notifications
}

func NewNotificationHandler(n Notifications) *NotificationHandler {
	return &NotificationHandler{Notifications: n}
}

// List handles GET /api/notifications[?unread=true].
func (h *NotificationHandler) List(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.Notifications.List(c.Request().Context(), a.ID, c.QueryParam("unread") == "true")
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, nonNil(list))
}

func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	n, err := h.Notifications.UnreadCount(c.Request().Context(), a.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid notification id")
	}
	if err := h.Notifications.MarkRead(c.Request().Context(), a.ID, id); err != nil {
		return respondError(c, err)
	}
	return message(c, http.StatusOK, "notification marked as read")
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	n, err := h.Notifications.MarkAllRead(c.Request().Context(), a.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}
