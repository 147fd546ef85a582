package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/lessons-api/internal/database"
	"github.com/iliyamo/lessons-api/internal/handler"
	"github.com/iliyamo/lessons-api/internal/middleware"
	"github.com/iliyamo/lessons-api/internal/repository/repotest"
	"github.com/iliyamo/lessons-api/internal/service"
)

const secret = "router-test-secret"

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type app struct {
	e    *echo.Echo
	mail *repotest.Publisher
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func newApp(t *testing.T) app {
	t.Helper()
	users := repotest.NewUsers()
	_, err := database.Seed(context.Background(), users, database.DefaultSeedUsers, bcrypt.MinCost)
	require.NoError(t, err)

	deny := repotest.NewDenylist()
	mail := &repotest.Publisher{}
	authSvc := service.NewAuthService(users, repotest.NewRefreshTokens(), deny, service.TokenSettings{
		Secret:     secret,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, quiet)
	recovery := service.NewRecoveryService(users, repotest.NewResets(), mail, authSvc, service.RecoverySettings{
		TTL:         time.Hour,
		Throttle:    time.Minute,
		FrontendURL: "http://front.test/reset",
	}, quiet)

	e := New(quiet)
	authn := middleware.JWTAuth(secret, deny, quiet)
	RegisterRoutes(e)
	RegisterAuth(e, handler.NewAuthHandler(authSvc, recovery), authn, passThrough)
	RegisterLessons(e, handler.NewLessonHandler(repotest.NewLessons(), nil, quiet), authn, passThrough)
	RegisterStudents(e, handler.NewStudentHandler(repotest.NewStudents(), quiet), authn)
	return app{e: e, mail: mail}
}

func (a app) do(method, target, body, token string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

type tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func (a app) login(t *testing.T, email string) tokens {
	t.Helper()
	rec := a.do(http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"qweqwe"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tk tokens
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tk))
	return tk
}

func TestHealthz(t *testing.T) {
	a := newApp(t)
	rec := a.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_SeededAdmin(t *testing.T) {
	a := newApp(t)
	tk := a.login(t, "admin@test.com")
	assert.Equal(t, "bearer", strings.ToLower(tk.TokenType))
	assert.NotEmpty(t, tk.AccessToken)
	assert.NotEmpty(t, tk.RefreshToken)
	assert.NotEqual(t, tk.AccessToken, tk.RefreshToken)

	rec := a.do(http.MethodPost, "/auth/login", `{"email":"admin@test.com","password":"nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegistration_DuplicateEmail(t *testing.T) {
	a := newApp(t)
	body := `{"name":"Ann","email":"ann@test.com","password":"secret1","c_password":"secret1"}`

	rec := a.do(http.MethodPost, "/auth/registration", body, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"roles":["user"]`)

	rec = a.do(http.MethodPost, "/auth/registration", body, "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "The email has already been taken.")
}

func TestRefresh_SingleUse(t *testing.T) {
	a := newApp(t)
	tk := a.login(t, "user1@test.com")
	body := `{"refresh_token":"` + tk.RefreshToken + `"}`

	rec := a.do(http.MethodPost, "/auth/refresh", body, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var next tokens
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &next))
	assert.NotEqual(t, tk.RefreshToken, next.RefreshToken)

	rec = a.do(http.MethodPost, "/auth/refresh", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid refresh token"}`, rec.Body.String())
}

func TestMe_AndLogout(t *testing.T) {
	a := newApp(t)
	tk := a.login(t, "user2@test.com")

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := a.do(method, "/auth/me", "", tk.AccessToken)
		require.Equal(t, http.StatusOK, rec.Code, method)
		assert.Contains(t, rec.Body.String(), `"email":"user2@test.com"`)
	}

	rec := a.do(http.MethodPost, "/auth/logout", "", tk.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Logged out successfully")

	rec = a.do(http.MethodGet, "/auth/me", "", tk.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/auth/refresh", `{"refresh_token":"`+tk.RefreshToken+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe_RequiresBearer(t *testing.T) {
	a := newApp(t)
	rec := a.do(http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Unauthenticated."}`, rec.Body.String())

	rec = a.do(http.MethodGet, "/auth/me", "", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecoveryAndReset(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodPost, "/auth/recovery", `{"email":"user1@test.com"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	m, ok := a.mail.LastMail()
	require.True(t, ok)

	rec = a.do(http.MethodPost, "/auth/recovery", `{"email":"ghost@test.com"}`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := `{"token":"` + m.Token + `","email":"user1@test.com","password":"newsecret1","password_confirmation":"newsecret1"}`
	rec = a.do(http.MethodPost, "/auth/reset", body, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "access_token")

	rec = a.do(http.MethodPost, "/auth/login", `{"email":"user1@test.com","password":"newsecret1"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodPost, "/auth/reset", body, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestLessons_WriteNeedsBearer(t *testing.T) {
	a := newApp(t)
	body := `{"title":"T","description":"D"}`

	rec := a.do(http.MethodPost, "/lessons", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	admin := a.login(t, "admin@test.com")
	rec = a.do(http.MethodPost, "/lessons", body, admin.AccessToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"title":"T"`)
	assert.Contains(t, rec.Body.String(), `"id":1`)

	rec = a.do(http.MethodGet, "/lessons/1", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(http.MethodGet, "/lessons?countOnPage=5", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	user := a.login(t, "user1@test.com")
	rec = a.do(http.MethodDelete, "/lessons/1", "", user.AccessToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(http.MethodGet, "/lessons/1", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStudents_RoleGate(t *testing.T) {
	a := newApp(t)
	admin := a.login(t, "admin@test.com")
	user := a.login(t, "user1@test.com")
	body := `{"name":"Bob","last_name":"Stone","phone":"+1 555 0100","email":"bob@test.com"}`

	rec := a.do(http.MethodGet, "/student", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/student", body, user.AccessToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"message":"This action is unauthorized."}`, rec.Body.String())

	rec = a.do(http.MethodPost, "/student", body, admin.AccessToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/student", "", user.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(http.MethodGet, "/student/1", "", user.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodPut, "/student/1", `{"name":"Rob"}`, user.AccessToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(http.MethodDelete, "/student/1", "", user.AccessToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPut, "/student/1", `{"name":"Rob"}`, admin.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"name":"Rob"`)

	rec = a.do(http.MethodDelete, "/student/1", "", admin.AccessToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUnknownRoute_JSON404(t *testing.T) {
	a := newApp(t)
	rec := a.do(http.MethodGet, "/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message"`)
}
