package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lessons-api/internal/auth"
	"github.com/iliyamo/lessons-api/internal/handler"
	"github.com/iliyamo/lessons-api/internal/middleware"
)

// RegisterStudents registers /student.  Every route needs a bearer token;
// admins and users may read, only admins may write.
func RegisterStudents(e *echo.Echo, h *handler.StudentHandler, authn echo.MiddlewareFunc) {
	g := e.Group("/student", authn)

	read := middleware.Require(auth.RoleAdmin, auth.RoleUser)
	g.GET("", middleware.WithPrincipal(h.List), read)
	g.GET("/:id", middleware.WithPrincipal(h.Get), read)

	write := middleware.Require(auth.RoleAdmin)
	g.POST("", middleware.WithPrincipal(h.Create), write)
	g.PUT("/:id", middleware.WithPrincipal(h.Update), write)
	g.DELETE("/:id", middleware.WithPrincipal(h.Delete), write)
}
