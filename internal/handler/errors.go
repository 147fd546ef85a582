package handler

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/lessons-api/internal/service"
    "github.com/iliyamo/lessons-api/internal/utils"
)

// requestTimeout bounds every store call made on behalf of a request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), requestTimeout)
}

var errMalformedBody = echo.NewHTTPError(http.StatusBadRequest, "The request body is malformed.")

// bindAndValidate decodes the body into v and runs the registered validator.
func bindAndValidate(c echo.Context, v any) error {
    if err := c.Bind(v); err != nil {
        return errMalformedBody
    }
    return c.Validate(v)
}

// statusOf maps service errors to a status and body.  ok is false for
// errors that are not part of the API contract.
func statusOf(err error) (code int, body echo.Map, ok bool) {
    var ve *service.ValidationError
    switch {
    case errors.As(err, &ve):
        return http.StatusUnprocessableEntity, echo.Map{"message": "The given data was invalid.", "errors": ve.Fields}, true
    case errors.Is(err, utils.ErrPasswordTooLong):
        fields := map[string][]string{"password": {"The password must not be greater than 72 bytes."}}
        return http.StatusUnprocessableEntity, echo.Map{"message": "The given data was invalid.", "errors": fields}, true
    case errors.Is(err, service.ErrInvalidCredentials):
        return http.StatusUnauthorized, echo.Map{"message": "Invalid credentials"}, true
    case errors.Is(err, service.ErrInvalidRefreshToken):
        return http.StatusUnauthorized, echo.Map{"error": "Invalid refresh token"}, true
    case errors.Is(err, service.ErrUnauthenticated):
        return http.StatusUnauthorized, echo.Map{"message": "Unauthenticated."}, true
    case errors.Is(err, service.ErrUserNotFound):
        return http.StatusNotFound, echo.Map{"message": "Invalid user"}, true
    case errors.Is(err, service.ErrResetThrottled):
        return http.StatusBadGateway, echo.Map{"message": "Requests throttled"}, true
    case errors.Is(err, service.ErrMailDispatch):
        return http.StatusBadGateway, echo.Map{"message": "Email send failed"}, true
    case errors.Is(err, service.ErrInvalidResetToken):
        return http.StatusBadGateway, echo.Map{"message": "Password reset failed"}, true
    case errors.Is(err, service.ErrNotFound):
        return http.StatusNotFound, echo.Map{"message": "Not Found"}, true
    }
    return 0, nil, false
}

// ErrorHandler replaces echo's default so every error, including routing
// and binding errors, is rendered as {"message": ...}.  Unknown errors are
// logged and answered with a generic 500.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }
        code, body, ok := statusOf(err)
        if !ok {
            var he *echo.HTTPError
            if errors.As(err, &he) {
                code = he.Code
                body = echo.Map{"message": fmt.Sprint(he.Message)}
                if he.Internal != nil {
                    log.Debug("http error", "status", code, "err", he.Internal)
                }
            } else {
                code = http.StatusInternalServerError
                body = echo.Map{"message": "Server Error"}
                log.Error("unhandled error", "method", c.Request().Method, "path", c.Path(), "err", err)
            }
        }
        if c.Request().Method == http.MethodHead {
            err = c.NoContent(code)
        } else {
            err = c.JSON(code, body)
        }
        if err != nil {
            log.Error("write error response", "err", err)
        }
    }
}
