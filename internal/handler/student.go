package handler

import (
    "context"
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/lessons-api/internal/auth"
    "github.com/iliyamo/lessons-api/internal/model"
    "github.com/iliyamo/lessons-api/internal/repository"
)

// StudentStore is the student persistence used by StudentHandler.
type StudentStore interface {
    List(ctx context.Context, p repository.ListParams) ([]model.Student, int, error)
    Get(ctx context.Context, id uint64) (model.Student, error)
    Create(ctx context.Context, s *model.Student) error
    Update(ctx context.Context, id uint64, patch model.StudentPatch) (model.Student, error)
    Delete(ctx context.Context, id uint64) error
}

// StudentHandler serves /student.  Role checks happen in the router.
type StudentHandler struct {
    Students StudentStore
    Log      *slog.Logger
}

func NewStudentHandler(store StudentStore, log *slog.Logger) *StudentHandler {
    if log == nil {
        log = slog.Default()
    }
    return &StudentHandler{Students: store, Log: log}
}

type createStudentReq struct {
    Name     string `json:"name" validate:"required,max=50"`
    LastName string `json:"last_name" validate:"required,max=50"`
    Phone    string `json:"phone" validate:"required,max=15,phone_number"`
    Email    string `json:"email" validate:"omitempty,max=100,email"`
}

type updateStudentReq struct {
    Name     *string `json:"name" validate:"omitnil,min=1,max=50"`
    LastName *string `json:"last_name" validate:"omitnil,min=1,max=50"`
    Phone    *string `json:"phone" validate:"omitnil,max=15,phone_number"`
    Email    *string `json:"email" validate:"omitnil,max=100,email"`
}

// List returns one page of students.
func (h *StudentHandler) List(c echo.Context, _ auth.Principal) error {
    p, err := parseListParams(c, repository.StudentSortColumns)
    if err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    rows, total, err := h.Students.List(ctx, p)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, newListResponse(rows, total, p))
}

// Get returns one student.
func (h *StudentHandler) Get(c echo.Context, _ auth.Principal) error {
    id, err := parseID(c)
    if err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    s, err := h.Students.Get(ctx, id)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, itemResponse[model.Student]{Data: s})
}

// Create stores a new student.
func (h *StudentHandler) Create(c echo.Context, p auth.Principal) error {
    var req createStudentReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    s := model.Student{Name: req.Name, LastName: req.LastName, Phone: req.Phone, Email: req.Email}
    if err := h.Students.Create(ctx, &s); err != nil {
        return err
    }
    h.Log.Info("student created", "student_id", s.ID, "by", p.UserID)
    return c.JSON(http.StatusCreated, itemResponse[model.Student]{Data: s})
}

// Update changes the posted fields of a student.
func (h *StudentHandler) Update(c echo.Context, p auth.Principal) error {
    id, err := parseID(c)
    if err != nil {
        return err
    }
    var req updateStudentReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    s, err := h.Students.Update(ctx, id, model.StudentPatch{
        Name: req.Name, LastName: req.LastName, Phone: req.Phone, Email: req.Email,
    })
    if err != nil {
        return err
    }
    h.Log.Info("student updated", "student_id", id, "by", p.UserID)
    return c.JSON(http.StatusOK, itemResponse[model.Student]{Data: s})
}

// Delete removes a student.
func (h *StudentHandler) Delete(c echo.Context, p auth.Principal) error {
    id, err := parseID(c)
    if err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    if err := h.Students.Delete(ctx, id); err != nil {
        return err
    }
    h.Log.Info("student deleted", "student_id", id, "by", p.UserID)
    return c.NoContent(http.StatusNoContent)
}
