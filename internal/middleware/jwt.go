package middleware

import (
    "context"
    "log/slog"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/lessons-api/internal/auth"
    "github.com/iliyamo/lessons-api/internal/utils"
)

// DenyChecker reports whether an access token was revoked by logout.
type DenyChecker interface {
    IsDenied(ctx context.Context, jti string) (bool, error)
}

// JWTAuth validates the Bearer access token and stores the resulting
// principal for WithPrincipal and Require.  Missing, malformed, expired or
// denied tokens get 401.  deny may be nil.
func JWTAuth(secret string, deny DenyChecker, log *slog.Logger) echo.MiddlewareFunc {
    if log == nil {
        log = slog.Default()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            header := c.Request().Header.Get(echo.HeaderAuthorization)
            if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
                return unauthenticated(c)
            }
            raw := strings.TrimSpace(header[7:])

            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return unauthenticated(c)
            }
            uid, _ := claims.UserID()

            if deny != nil {
                denied, err := deny.IsDenied(c.Request().Context(), claims.ID)
                if err != nil {
                    // fail open while Redis is unreachable
                    log.Warn("access denylist lookup failed", "err", err)
                } else if denied {
                    return unauthenticated(c)
                }
            }

            p := auth.Principal{UserID: uid, Roles: claims.Roles, TokenID: claims.ID}
            if claims.ExpiresAt != nil {
                p.ExpiresAt = claims.ExpiresAt.Time
            }
            c.Set(principalKey, p)
            return next(c)
        }
    }
}
