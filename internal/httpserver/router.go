package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/HA0N1/pre-onboarding/internal/middleware"
)

type Deps struct {
	AuthHandler *AuthHTTP
	Gate        *middleware.AuthGate
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.POST("/register", d.AuthHandler.Register)
	e.POST("/login", d.AuthHandler.Login)
	e.POST("/refresh", d.AuthHandler.Refresh)

	private := e.Group("")
	private.Use(d.Gate.RequireAuth)

	private.POST("/logout", d.AuthHandler.LogOut)
}
