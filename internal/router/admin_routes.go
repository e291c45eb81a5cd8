package router

import (
	"github.com/labstack/echo/v4"

	"github.com/dihanio/NesaVent-sub001/internal/handler"
	"github.com/dihanio/NesaVent-sub001/internal/middleware"
	"github.com/dihanio/NesaVent-sub001/internal/model"
)

// RegisterAdmin registers moderation, payout and account management routes.
// Every route requires the admin role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, w *handler.WithdrawalHandler, jwtSecret string) {
	g := e.Group("/api/admin", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))

	g.GET("/events", a.Events)
	g.PUT("/events/:slug/approve", a.ApproveEvent)
	g.PUT("/events/:slug/reject", a.RejectEvent)

	g.GET("/withdrawals", w.AdminList)
	g.PUT("/withdrawals/:id/process", w.Process)
	g.PUT("/withdrawals/:id/reject", w.Reject)

	g.GET("/student-verifications", a.PendingStudents)
	g.PUT("/users/:id/student-verification/approve", a.ApproveStudent)
	g.PUT("/users/:id/student-verification/reject", a.RejectStudent)

	g.GET("/users", a.Users)
	g.PUT("/users/:id/role", a.SetRole)
	g.PUT("/users/:id/status", a.SetStatus)
}
