package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/HA0N1/pre-onboarding/internal/logging"
	"github.com/HA0N1/pre-onboarding/internal/middleware"
	"github.com/HA0N1/pre-onboarding/internal/service"
	"github.com/HA0N1/pre-onboarding/internal/tokens"
	"github.com/HA0N1/pre-onboarding/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Username == "" || req.Password == "" || req.Nickname == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username, password and nickname are required")
	}

	user, err := h.Svc.Register(ctx, req.Username, req.Nickname, req.Password)
	if err != nil {
		return httpError(err)
	}

	resp := transport.RegisterResponse{
		Username: user.Username,
		Nickname: user.Nickname,
	}
	for _, name := range user.RoleNames() {
		resp.Authorities = append(resp.Authorities, transport.AuthorityResponse{AuthorityName: name})
	}

	return c.JSON(http.StatusCreated, resp)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	pair, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, transport.LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("refresh_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "refresh_token is required")
	}

	accessToken, _, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, transport.RefreshResponse{AccessToken: accessToken})
}

// LogOut runs behind the auth gate, which attaches the verified session
// token. The body must present the same token value.
func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	var req transport.LogoutRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("logout_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.AccessToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "access_token is required")
	}

	sessionToken, _ := c.Get(middleware.CtxAccessToken).(string)
	if err := h.Svc.LogOut(ctx, req.AccessToken, sessionToken); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, transport.LogoutResponse{Message: "logged out"})
}

func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAuthFailed):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrTokenMismatch):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, tokens.ErrExpired):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, tokens.ErrInvalid):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
