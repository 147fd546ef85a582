package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/lessons-api/internal/auth"
    "github.com/iliyamo/lessons-api/internal/service"
)

// Authenticator is the part of service.AuthService the handlers use.
type Authenticator interface {
    Register(ctx context.Context, in service.RegisterInput) (service.UserProfile, error)
    Login(ctx context.Context, email, password string) (service.TokenPair, error)
    Refresh(ctx context.Context, raw string) (service.TokenPair, error)
    Logout(ctx context.Context, p auth.Principal, refreshRaw string) error
    Me(ctx context.Context, p auth.Principal) (service.UserProfile, error)
}

// PasswordRecoverer is the part of service.RecoveryService the handlers use.
type PasswordRecoverer interface {
    RequestRecovery(ctx context.Context, email string) error
    Reset(ctx context.Context, in service.ResetInput) (service.TokenPair, error)
}

// AuthHandler serves the /auth endpoints.
type AuthHandler struct {
    Auth     Authenticator
    Recoverer PasswordRecoverer
}

func NewAuthHandler(a Authenticator, r PasswordRecoverer) *AuthHandler {
    return &AuthHandler{Auth: a, Recoverer: r}
}

type registerReq struct {
    Name      string `json:"name" validate:"required,max=255"`
    Email     string `json:"email" validate:"required,email,max=255"`
    Password  string `json:"password" validate:"required,max=72"`
    CPassword string `json:"c_password" validate:"required,eqfield=Password"`
}

type loginReq struct {
    Email    string `json:"email" validate:"required,email"`
    Password string `json:"password" validate:"required"`
}

type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type recoveryReq struct {
    Email string `json:"email" validate:"required,email"`
}

type resetReq struct {
    Token                string `json:"token" validate:"required"`
    Email                string `json:"email" validate:"required,email"`
    Password             string `json:"password" validate:"required,confirmed,min=8,max=72"`
    PasswordConfirmation string `json:"password_confirmation"`
}

// Register creates an account with the "user" role.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    profile, err := h.Auth.Register(ctx, service.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, profile)
}

// Login exchanges credentials for a token pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    pair, err := h.Auth.Login(ctx, req.Email, req.Password)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, pair)
}

// Refresh redeems a refresh token for a new pair.  Anything wrong with the
// token is a 401.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil {
        return service.ErrInvalidRefreshToken
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    pair, err := h.Auth.Refresh(ctx, req.RefreshToken)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, pair)
}

// Logout revokes the posted refresh token, or all of the caller's refresh
// tokens when none is posted, and denies the bearer token.
func (h *AuthHandler) Logout(c echo.Context, p auth.Principal) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil {
        return errMalformedBody
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    if err := h.Auth.Logout(ctx, p, req.RefreshToken); err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context, p auth.Principal) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    profile, err := h.Auth.Me(ctx, p)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, profile)
}

// Recovery mails a password reset link.
func (h *AuthHandler) Recovery(c echo.Context) error {
    var req recoveryReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    if err := h.Recoverer.RequestRecovery(ctx, req.Email); err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Success"})
}

// Reset sets a new password with a mailed token and logs the user in.
func (h *AuthHandler) Reset(c echo.Context) error {
    var req resetReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    pair, err := h.Recoverer.Reset(ctx, service.ResetInput{Token: req.Token, Email: req.Email, Password: req.Password})
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, pair)
}
