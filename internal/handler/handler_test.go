package handler

import (
    "context"
    "errors"
    "fmt"
    "io"
    "log/slog"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/lessons-api/internal/auth"
    "github.com/iliyamo/lessons-api/internal/repository/repotest"
    "github.com/iliyamo/lessons-api/internal/service"
    "github.com/iliyamo/lessons-api/internal/utils"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newEcho() *echo.Echo {
    e := echo.New()
    e.Validator = NewRequestValidator()
    e.HTTPErrorHandler = ErrorHandler(quiet)
    return e
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
    var r io.Reader
    if body != "" {
        r = strings.NewReader(body)
    }
    req := httptest.NewRequest(method, target, r)
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func asAdmin(h func(echo.Context, auth.Principal) error) echo.HandlerFunc {
    return func(c echo.Context) error {
        return h(c, auth.Principal{UserID: 1, Roles: []string{auth.RoleAdmin}})
    }
}

type countingPurger struct{ scopes []string }

func (p *countingPurger) Purge(_ context.Context, scope string) error {
    p.scopes = append(p.scopes, scope)
    return nil
}

func lessonEcho(store LessonStore, purger Purger) *echo.Echo {
    h := NewLessonHandler(store, purger, quiet)
    e := newEcho()
    e.GET("/lessons", h.List)
    e.GET("/lessons/:id", h.Get)
    e.POST("/lessons", asAdmin(h.Create))
    e.PUT("/lessons/:id", asAdmin(h.Update))
    e.DELETE("/lessons/:id", asAdmin(h.Delete))
    return e
}

func TestLessonHandler_CRUD(t *testing.T) {
    purger := &countingPurger{}
    e := lessonEcho(repotest.NewLessons(), purger)

    rec := serve(e, http.MethodPost, "/lessons", `{"title":"T","description":"D"}`)
    require.Equal(t, http.StatusCreated, rec.Code)
    assert.JSONEq(t, `{"data":{"id":1,"title":"T","description":"D"}}`, rec.Body.String())

    rec = serve(e, http.MethodPut, "/lessons/1", `{"description":"New"}`)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"data":{"id":1,"title":"T","description":"New"}}`, rec.Body.String())

    rec = serve(e, http.MethodGet, "/lessons/1", "")
    assert.JSONEq(t, `{"data":{"id":1,"title":"T","description":"New"}}`, rec.Body.String())

    rec = serve(e, http.MethodDelete, "/lessons/1", "")
    assert.Equal(t, http.StatusNoContent, rec.Code)
    assert.Equal(t, []string{LessonScope, LessonScope, LessonScope}, purger.scopes)

    rec = serve(e, http.MethodGet, "/lessons/1", "")
    assert.Equal(t, http.StatusNotFound, rec.Code)
    assert.JSONEq(t, `{"message":"Not Found"}`, rec.Body.String())

    assert.Equal(t, http.StatusNotFound, serve(e, http.MethodGet, "/lessons/abc", "").Code)
    assert.Equal(t, http.StatusNotFound, serve(e, http.MethodDelete, "/lessons/42", "").Code)
}

func TestLessonHandler_Validation(t *testing.T) {
    e := lessonEcho(repotest.NewLessons(), nil)

    rec := serve(e, http.MethodPost, "/lessons", `{"title":""}`)
    require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
    assert.JSONEq(t, `{
        "message":"The given data was invalid.",
        "errors":{
            "title":["The title field is required."],
            "description":["The description field is required."]
        }
    }`, rec.Body.String())

    long := strings.Repeat("x", 256)
    rec = serve(e, http.MethodPost, "/lessons", `{"title":"`+long+`","description":"D"}`)
    require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
    assert.Contains(t, rec.Body.String(), "The title may not be greater than 255 characters.")

    rec = serve(e, http.MethodPost, "/lessons", `{"title":`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.JSONEq(t, `{"message":"The request body is malformed."}`, rec.Body.String())
}

func TestLessonHandler_ListParams(t *testing.T) {
    store := repotest.NewLessons()
    e := lessonEcho(store, nil)
    for _, title := range []string{"b", "a", "c"} {
        require.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/lessons", `{"title":"`+title+`","description":"d"}`).Code)
    }

    rec := serve(e, http.MethodGet, "/lessons?sort=title&order=desc&countOnPage=2&page=1", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{
        "data":[{"id":3,"title":"c","description":"d"},{"id":1,"title":"b","description":"d"}],
        "meta":{"current_page":1,"per_page":2,"total":3,"last_page":2}
    }`, rec.Body.String())

    rec = serve(e, http.MethodGet, "/lessons?page=5", "")
    assert.JSONEq(t, `{"data":[],"meta":{"current_page":5,"per_page":10,"total":3,"last_page":1}}`, rec.Body.String())

    rec = serve(e, http.MethodGet, "/lessons?sort=name&order=up&countOnPage=0&page=x", "")
    require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
    assert.JSONEq(t, `{
        "message":"The given data was invalid.",
        "errors":{
            "sort":["The selected sort is invalid."],
            "order":["The selected order is invalid."],
            "countOnPage":["The count on page must be at least 1."],
            "page":["The page must be an integer."]
        }
    }`, rec.Body.String())
}

func TestStudentHandler(t *testing.T) {
    h := NewStudentHandler(repotest.NewStudents(), quiet)
    e := newEcho()
    e.GET("/student", asAdmin(h.List))
    e.GET("/student/:id", asAdmin(h.Get))
    e.POST("/student", asAdmin(h.Create))
    e.PUT("/student/:id", asAdmin(h.Update))
    e.DELETE("/student/:id", asAdmin(h.Delete))

    rec := serve(e, http.MethodPost, "/student", `{"name":"Ann","last_name":"Lee","phone":"+37120000000"}`)
    require.Equal(t, http.StatusCreated, rec.Code)
    assert.JSONEq(t, `{"data":{"id":1,"name":"Ann","last_name":"Lee","phone":"+37120000000","email":""}}`, rec.Body.String())

    rec = serve(e, http.MethodPut, "/student/1", `{"email":"ann@test.com"}`)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"email":"ann@test.com"`)

    rec = serve(e, http.MethodGet, "/student?sort=last_name", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"total":1`)

    rec = serve(e, http.MethodPost, "/student", `{"name":"Bo","last_name":"Kim","phone":"nope"}`)
    assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

    assert.Equal(t, http.StatusNoContent, serve(e, http.MethodDelete, "/student/1", "").Code)
    assert.Equal(t, http.StatusNotFound, serve(e, http.MethodGet, "/student/1", "").Code)
}

func TestErrorHandler(t *testing.T) {
    e := newEcho()
    e.GET("/boom", func(echo.Context) error { return errors.New("db exploded") })
    e.GET("/throttled", func(echo.Context) error { return service.ErrResetThrottled })
    e.GET("/refresh", func(echo.Context) error { return service.ErrInvalidRefreshToken })

    rec := serve(e, http.MethodGet, "/boom", "")
    assert.Equal(t, http.StatusInternalServerError, rec.Code)
    assert.JSONEq(t, `{"message":"Server Error"}`, rec.Body.String())

    rec = serve(e, http.MethodGet, "/throttled", "")
    assert.Equal(t, http.StatusBadGateway, rec.Code)
    assert.JSONEq(t, `{"message":"Requests throttled"}`, rec.Body.String())

    rec = serve(e, http.MethodGet, "/refresh", "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    assert.JSONEq(t, `{"error":"Invalid refresh token"}`, rec.Body.String())

    rec = serve(e, http.MethodGet, "/nowhere", "")
    assert.Equal(t, http.StatusNotFound, rec.Code)
    assert.JSONEq(t, `{"message":"Not Found"}`, rec.Body.String())
}

var _ LessonStore = (*repotest.Lessons)(nil)
var _ StudentStore = (*repotest.Students)(nil)

func TestStatusOf(t *testing.T) {
    cases := []struct {
        err  error
        code int
    }{
        {service.NewValidationError("email", "x"), http.StatusUnprocessableEntity},
        {fmt.Errorf("hash password: %w", utils.ErrPasswordTooLong), http.StatusUnprocessableEntity},
        {service.ErrInvalidCredentials, http.StatusUnauthorized},
        {service.ErrInvalidRefreshToken, http.StatusUnauthorized},
        {service.ErrUserNotFound, http.StatusNotFound},
        {service.ErrResetThrottled, http.StatusBadGateway},
        {service.ErrMailDispatch, http.StatusBadGateway},
        {service.ErrInvalidResetToken, http.StatusBadGateway},
        {fmt.Errorf("get: %w", service.ErrNotFound), http.StatusNotFound},
    }
    for _, tc := range cases {
        code, body, ok := statusOf(tc.err)
        assert.True(t, ok, tc.err.Error())
        assert.Equal(t, tc.code, code, tc.err.Error())
        assert.NotEmpty(t, body)
    }

    _, _, ok := statusOf(errors.New("db down"))
    assert.False(t, ok)
}
