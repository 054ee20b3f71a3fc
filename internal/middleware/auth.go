package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/HA0N1/pre-onboarding/internal/repo"
	"github.com/HA0N1/pre-onboarding/internal/tokens"
)

const (
	CtxUser        = "user"
	CtxAccessToken = "access_token"
)

// AuthGate guards protected routes. It checks the bearer token, resolves the
// user behind it and attaches both to the request context.
type AuthGate struct {
	Verifier tokens.Verifier
	Repo     repo.GormRepo
}

func NewAuthGate(verifier tokens.Verifier, r repo.GormRepo) *AuthGate {
	return &AuthGate{Verifier: verifier, Repo: r}
}

func (m *AuthGate) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := bearerToken(c)
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := m.Verifier.VerifyAccess(raw)
		if err != nil {
			if errors.Is(err, tokens.ErrExpired) {
				return echo.NewHTTPError(http.StatusUnauthorized, "access token expired")
			}
			return echo.NewHTTPError(http.StatusForbidden, "invalid access token")
		}
		if claims.Username == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "token has no username")
		}

		user, err := m.Repo.FindByUsername(c.Request().Context(), claims.Username)
		if err != nil {
			if errors.Is(err, repo.ErrUserNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}

		c.Set(CtxUser, user)
		c.Set(CtxAccessToken, raw)

		return next(c)
	}
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}
