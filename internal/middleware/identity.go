package middleware

// identity.go moves the authenticated principal between JWTAuth and the
// handlers.  Protected handlers never read the context themselves; they are
// wrapped with WithPrincipal and receive the principal as an argument.

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/lessons-api/internal/auth"
)

const principalKey = "principal"

// PrincipalHandler is a handler that requires an authenticated caller.
type PrincipalHandler func(c echo.Context, p auth.Principal) error

// PrincipalFrom returns the principal stored by JWTAuth.
func PrincipalFrom(c echo.Context) (auth.Principal, bool) {
    p, ok := c.Get(principalKey).(auth.Principal)
    return p, ok && p.UserID != 0
}

// WithPrincipal adapts h to an echo handler.  Requests that reach it
// without a principal are answered with 401.
func WithPrincipal(h PrincipalHandler) echo.HandlerFunc {
    return func(c echo.Context) error {
        p, ok := PrincipalFrom(c)
        if !ok {
            return unauthenticated(c)
        }
        return h(c, p)
    }
}

// principalID identifies the caller for rate limiting keys.  Anonymous
// callers share the "anon" bucket dimension.
func principalID(c echo.Context) string {
    if p, ok := PrincipalFrom(c); ok {
        return strconv.FormatUint(p.UserID, 10)
    }
    return "anon"
}

func unauthenticated(c echo.Context) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthenticated."})
}
