package router

import (
	"github.com/labstack/echo/v4"

	"github.com/dihanio/NesaVent-sub001/internal/handler"
	"github.com/dihanio/NesaVent-sub001/internal/middleware"
	"github.com/dihanio/NesaVent-sub001/internal/model"
)

// RegisterCustomer registers the routes any signed-in account may call:
// orders, tickets, notifications and student verification. Handlers and
// services check ownership.
func RegisterCustomer(e *echo.Echo, o *handler.OrderHandler, t *handler.TicketHandler, n *handler.NotificationHandler,
	a *handler.AdminHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/api", middleware.JWTAuth(jwtSecret), limiter)

	g.POST("/orders", o.Create, middleware.RequireRole(model.RoleUser, model.RoleMitra))
	g.GET("/orders/my", o.Mine)
	g.GET("/orders/:id", o.Get)
	g.PUT("/orders/:id/pay", o.Pay)
	g.PUT("/orders/:id/cancel", o.Cancel)

	g.GET("/tickets/my", t.Mine)
	g.GET("/tickets/:code", t.Get)
	g.GET("/tickets/:code/qr", t.QR)

	g.GET("/notifications", n.List)
	g.GET("/notifications/unread-count", n.UnreadCount)
	g.PUT("/notifications/read-all", n.MarkAllRead)
	g.PUT("/notifications/:id/read", n.MarkRead)

	g.PUT("/users/me/student-verification", a.SubmitStudent, middleware.RequireRole(model.RoleUser))
}
