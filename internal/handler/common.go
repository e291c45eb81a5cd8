// Package handler holds the Echo HTTP handlers. Handlers bind and validate
// the request, call one service operation and translate its result.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/dihanio/NesaVent-sub001/internal/middleware"
	"github.com/dihanio/NesaVent-sub001/internal/service"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func message(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"message": msg})
}

// bindValid binds the body into dst and runs struct validation. On failure
// it writes the 400 response and returns false.
func bindValid(c echo.Context, dst any) (bool, error) {
	if err := c.Bind(dst); err != nil {
		return false, message(c, http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return false, message(c, http.StatusBadRequest, validationMessage(err))
	}
	return true, nil
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request"
	}
	fe := ve[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "url", "http_url":
		return field + " must be a valid URL"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	}
	return field + " is invalid"
}

// respondError maps a service failure to its HTTP status. Internal errors
// are handed to Echo so the request logger records the cause while the
// client only sees a generic message.
func respondError(c echo.Context, err error) error {
	var se *service.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case service.KindValidation, service.KindConflict:
			return message(c, http.StatusBadRequest, se.Message)
		case service.KindForbidden:
			return message(c, http.StatusForbidden, se.Message)
		case service.KindNotFound:
			return message(c, http.StatusNotFound, se.Message)
		}
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}

// actor reads the identity stored by the JWT middleware.
func actor(c echo.Context) (service.Actor, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{ID: id, Role: middleware.Role(c)}, true
}

func unauthorized(c echo.Context) error {
	return message(c, http.StatusUnauthorized, "unauthorized")
}

func paramID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(c echo.Context, name string, def int) int {
	if n, err := strconv.Atoi(c.QueryParam(name)); err == nil {
		return n
	}
	return def
}
