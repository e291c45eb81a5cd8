package middleware // reusable Echo middleware: auth, roles, rate limiting, caching, logging, metrics

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dihanio/NesaVent-sub001/internal/utils"
)

// Context keys written by JWTAuth.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// JWTAuth validates a Bearer access token and stores the subject and role in
// the Echo context under CtxUserID (uint64) and CtxRole (string).
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "missing bearer token"})
			}
			id, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
			}
			c.Set(CtxUserID, id.UserID)
			c.Set(CtxRole, id.Role)
			return next(c)
		}
	}
}

// OptionalJWT stores the identity of a valid Bearer token and otherwise lets
// the request through anonymously.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := strings.CutPrefix(c.Request().Header.Get("Authorization"), "Bearer "); ok {
				if id, err := utils.ParseAccessToken(secret, raw); err == nil {
					c.Set(CtxUserID, id.UserID)
					c.Set(CtxRole, id.Role)
				}
			}
			return next(c)
		}
	}
}
