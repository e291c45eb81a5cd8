// Package router defines how HTTP routes are registered for the API. Each
// Register function owns one audience: public, buyer, mitra or admin.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/dihanio/NesaVent-sub001/internal/handler"
	"github.com/dihanio/NesaVent-sub001/internal/middleware"
)

// RegisterRoutes registers the operational endpoints.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
	e.GET("/metrics", middleware.PrometheusHandler())
}

// RegisterAuth registers authentication routes. limiter guards the
// credential endpoints.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/api/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	e.GET("/api/auth/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the catalog and the payment webhook. cache sits
// in front of the catalog reads only.
func RegisterPublic(e *echo.Echo, ev *handler.EventHandler, o *handler.OrderHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group("/api/events", middleware.OptionalJWT(jwtSecret), cache)
	g.GET("", ev.List)
	g.GET("/:slug", ev.Get)

	e.POST("/api/payments/notification", o.GatewayNotification)
}
