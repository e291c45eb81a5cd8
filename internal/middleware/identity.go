package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user id, if any.
func UserID(c echo.Context) (uint64, bool) {
	switch v := c.Get(CtxUserID).(type) {
	case uint64:
		return v, v > 0
	case float64:
		return uint64(v), v > 0
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		return n, err == nil && n > 0
	}
	return 0, false
}

// Role returns the authenticated role or "".
func Role(c echo.Context) string {
	r, _ := c.Get(CtxRole).(string)
	return r
}
