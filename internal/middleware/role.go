package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/lessons-api/internal/auth"
)

// Require admits principals holding at least one of roles.  With no roles
// any authenticated principal passes.  It must run after JWTAuth.
func Require(roles ...string) echo.MiddlewareFunc {
    req := auth.Requirement(roles)
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            p, ok := PrincipalFrom(c)
            if !ok {
                return unauthenticated(c)
            }
            if !auth.Allows(p, req) {
                return c.JSON(http.StatusForbidden, echo.Map{"message": "This action is unauthorized."})
            }
            return next(c)
        }
    }
}
