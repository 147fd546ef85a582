package router // package router wires handlers and middleware onto Echo

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/lessons-api/internal/handler"
	"github.com/iliyamo/lessons-api/internal/middleware"
)

// New returns an Echo instance with the request validator, the JSON error
// handler and the recover, request id and access log middleware installed.
func New(log *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	return e
}

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
	// liveness probe
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the /auth endpoints.  Every route shares the
// limiter; logout and me additionally need a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, authn, limiter echo.MiddlewareFunc) {
	g := e.Group("/auth", limiter)
	g.POST("/registration", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/recovery", a.Recovery)
	g.POST("/reset", a.Reset)

	// bearer-only session endpoints
	g.POST("/logout", middleware.WithPrincipal(a.Logout), authn)
	g.POST("/me", middleware.WithPrincipal(a.Me), authn)
	g.GET("/me", middleware.WithPrincipal(a.Me), authn)
}
