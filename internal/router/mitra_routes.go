package router

import (
	"github.com/labstack/echo/v4"

	"github.com/dihanio/NesaVent-sub001/internal/handler"
	"github.com/dihanio/NesaVent-sub001/internal/middleware"
	"github.com/dihanio/NesaVent-sub001/internal/model"
)

// RegisterMitra registers organizer endpoints: event drafting, gate
// check-in and the withdrawal ledger.
func RegisterMitra(e *echo.Echo, ev *handler.EventHandler, t *handler.TicketHandler, w *handler.WithdrawalHandler, jwtSecret string) {
	auth := middleware.JWTAuth(jwtSecret)
	mitra := middleware.RequireRole(model.RoleMitra)

	g := e.Group("/api", auth)
	g.POST("/events", ev.Create, mitra)
	g.PUT("/events/:slug", ev.Update, mitra)
	g.PUT("/events/:slug/submit", ev.Submit, mitra)
	g.GET("/mitra/events", ev.Mine, mitra)

	g.PUT("/tickets/:code/checkin", t.CheckIn, middleware.RequireRole(model.RoleMitra, model.RoleAdmin))

	g.GET("/withdrawals/balance", w.Balance, mitra)
	g.POST("/withdrawals", w.Create, mitra)
	g.GET("/withdrawals", w.Mine, mitra)
	g.GET("/withdrawals/:id", w.Get, middleware.RequireRole(model.RoleMitra, model.RoleAdmin))
	g.DELETE("/withdrawals/:id", w.Cancel, mitra)
}
