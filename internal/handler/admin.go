package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dihanio/NesaVent-sub001/internal/model"
	"github.com/dihanio/NesaVent-sub001/internal/service"
)

// Moderation covers event review, student verification and accounts.
type Moderation interface {
	ListEvents(ctx context.Context, status string) ([]model.Event, error)
	ApproveEvent(ctx context.Context, adminID uint64, slug string) (*model.Event, error)
	RejectEvent(ctx context.Context, adminID uint64, slug, reason string) (*model.Event, error)

	SubmitStudent(ctx context.Context, userID uint64, in service.StudentInput) (model.User, error)
	ListPendingStudents(ctx context.Context) ([]model.User, error)
	ApproveStudent(ctx context.Context, userID uint64) (model.User, error)
	RejectStudent(ctx context.Context, userID uint64, reason string) (model.User, error)

	ListUsers(ctx context.Context, role string, limit, offset int) ([]model.User, error)
	SetRole(ctx context.Context, actor service.Actor, userID uint64, role string) (model.User, error)
	SetActive(ctx context.Context, actor service.Actor, userID uint64, active bool) (model.User, error)
}

type AdminHandler struct {
	Moderation Moderation
}

func NewAdminHandler(m Moderation) *AdminHandler { return &AdminHandler{Moderation: m} }

type studentReq struct {
	NIM            string `json:"nim" validate:"required,max=30"`
	University     string `json:"university" validate:"required,max=150"`
	StudentCardURL string `json:"studentCardUrl" validate:"required,http_url"`
}

type roleReq struct {
	Role string `json:"role" validate:"required,oneof=user mitra admin"`
}

type statusReq struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// Events handles GET /api/admin/events[?status=].
func (h *AdminHandler) Events(c echo.Context) error {
	events, err := h.Moderation.ListEvents(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, nonNil(events))
}

func (h *AdminHandler) ApproveEvent(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	ev, err := h.Moderation.ApproveEvent(c.Request().Context(), a.ID, c.Param("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

func (h *AdminHandler) RejectEvent(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var req reasonReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ev, err := h.Moderation.RejectEvent(c.Request().Context(), a.ID, c.Param("slug"), req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// SubmitStudent handles PUT /api/users/me/student-verification.
func (h *AdminHandler) SubmitStudent(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var req studentReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	u, err := h.Moderation.SubmitStudent(c.Request().Context(), a.ID, service.StudentInput{
		NIM: req.NIM, University: req.University, CardURL: req.StudentCardURL,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AdminHandler) PendingStudents(c echo.Context) error {
	users, err := h.Moderation.ListPendingStudents(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, nonNil(users))
}

func (h *AdminHandler) ApproveStudent(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid user id")
	}
	u, err := h.Moderation.ApproveStudent(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AdminHandler) RejectStudent(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid user id")
	}
	var req reasonReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	u, err := h.Moderation.RejectStudent(c.Request().Context(), id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Users handles GET /api/admin/users[?role=&limit=&offset=].
func (h *AdminHandler) Users(c echo.Context) error {
	users, err := h.Moderation.ListUsers(c.Request().Context(), c.QueryParam("role"),
		queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, nonNil(users))
}

func (h *AdminHandler) SetRole(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid user id")
	}
	var req roleReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	u, err := h.Moderation.SetRole(c.Request().Context(), a, id, req.Role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AdminHandler) SetStatus(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid user id")
	}
	var req statusReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	u, err := h.Moderation.SetActive(c.Request().Context(), a, id, *req.IsActive)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
