package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dihanio/NesaVent-sub001/internal/config"
	"github.com/dihanio/NesaVent-sub001/internal/model"
	"github.com/dihanio/NesaVent-sub001/internal/repository"
	"github.com/dihanio/NesaVent-sub001/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	Logger *zap.Logger
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Logger: logger}
}

type registerReq struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"max=30"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=user mitra"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    model.User `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

// Register creates an account and signs it in. Admin accounts cannot be
// self-registered.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	role := req.Role
	if role == "" {
		role = model.RoleUser
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, strings.TrimSpace(req.Name), req.Email, strings.TrimSpace(req.Phone), req.Password, role, h.Cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return message(c, http.StatusBadRequest, "email already registered")
	}
	if err != nil {
		return err
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return err
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return err
	}
	h.Logger.Info("user registered", zap.Uint64("user_id", uid), zap.String("role", role))
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return message(c, http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return message(c, http.StatusUnauthorized, "invalid credentials")
	}
	if !u.IsActive {
		return message(c, http.StatusForbidden, "account is deactivated")
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh validates a refresh token by hash, revokes it and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return message(c, http.StatusBadRequest, "refreshToken is required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	userID, err := h.Tokens.ValidateRefresh(ctx, hash, now)
	if errors.Is(err, sql.ErrNoRows) {
		return message(c, http.StatusUnauthorized, "invalid refresh token")
	}
	if err != nil {
		return err
	}
	if err := h.Tokens.RevokeByHash(ctx, hash, now); err != nil {
		return err
	}
	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return message(c, http.StatusUnauthorized, "invalid refresh token")
	}
	if err != nil {
		return err
	}
	if !u.IsActive {
		return message(c, http.StatusForbidden, "account is deactivated")
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the refresh token in the body, or every refresh token of
// the bearer when the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	now := time.Now().UTC()

	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash, now); err != nil {
			return message(c, http.StatusUnauthorized, "invalid refresh token")
		}
		if err := h.Tokens.RevokeByHash(ctx, hash, now); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}

	bearer, ok := strings.CutPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
	if !ok {
		return message(c, http.StatusBadRequest, "provide Authorization header or refreshToken")
	}
	id, err := utils.ParseAccessToken(h.Cfg.JWTSecret, bearer)
	if err != nil {
		return unauthorized(c)
	}
	if err := h.Tokens.RevokeAllForUser(ctx, id.UserID, now); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the profile of the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	u, err := h.Users.GetByID(c.Request().Context(), a.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return message(c, http.StatusNotFound, "user not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}
