package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lessons-api/internal/handler"
	"github.com/iliyamo/lessons-api/internal/middleware"
)

// RegisterLessons registers /lessons.  Reads are public and go through the
// response cache; writes need any authenticated principal.
func RegisterLessons(e *echo.Echo, h *handler.LessonHandler, authn, cache echo.MiddlewareFunc) {
	g := e.Group("/lessons")
	g.GET("", h.List, cache)
	g.GET("/:id", h.Get, cache)

	write := []echo.MiddlewareFunc{authn, middleware.Require()}
	g.POST("", middleware.WithPrincipal(h.Create), write...)
	g.PUT("/:id", middleware.WithPrincipal(h.Update), write...)
	g.DELETE("/:id", middleware.WithPrincipal(h.Delete), write...)
}
