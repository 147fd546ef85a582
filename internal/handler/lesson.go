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

// LessonScope is the response cache scope of lesson reads.
const LessonScope = "lessons"

// LessonStore is the lesson persistence used by LessonHandler.
type LessonStore interface {
    List(ctx context.Context, p repository.ListParams) ([]model.Lesson, int, error)
    Get(ctx context.Context, id uint64) (model.Lesson, error)
    Create(ctx context.Context, l *model.Lesson) error
    Update(ctx context.Context, id uint64, patch model.LessonPatch) (model.Lesson, error)
    Delete(ctx context.Context, id uint64) error
}

// Purger drops cached responses of a scope after writes.
type Purger interface {
    Purge(ctx context.Context, scope string) error
}

// LessonHandler serves /lessons.  Reads are public, writes need a bearer.
type LessonHandler struct {
    Lessons LessonStore
    Cache   Purger
    Log     *slog.Logger
}

func NewLessonHandler(store LessonStore, cache Purger, log *slog.Logger) *LessonHandler {
    if log == nil {
        log = slog.Default()
    }
    return &LessonHandler{Lessons: store, Cache: cache, Log: log}
}

type createLessonReq struct {
    Title       string `json:"title" validate:"required,max=255"`
    Description string `json:"description" validate:"required,max=1000"`
}

type updateLessonReq struct {
    Title       *string `json:"title" validate:"omitnil,min=1,max=255"`
    Description *string `json:"description" validate:"omitnil,min=1,max=1000"`
}

// List returns one page of lessons.
func (h *LessonHandler) List(c echo.Context) error {
    p, err := parseListParams(c, repository.LessonSortColumns)
    if err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    rows, total, err := h.Lessons.List(ctx, p)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, newListResponse(rows, total, p))
}

// Get returns one lesson.
func (h *LessonHandler) Get(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    l, err := h.Lessons.Get(ctx, id)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, itemResponse[model.Lesson]{Data: l})
}

// Create stores a new lesson.
func (h *LessonHandler) Create(c echo.Context, p auth.Principal) error {
    var req createLessonReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    l := model.Lesson{Title: req.Title, Description: req.Description}
    if err := h.Lessons.Create(ctx, &l); err != nil {
        return err
    }
    h.purge(ctx)
    h.Log.Info("lesson created", "lesson_id", l.ID, "by", p.UserID)
    return c.JSON(http.StatusCreated, itemResponse[model.Lesson]{Data: l})
}

// Update changes the posted fields of a lesson.
func (h *LessonHandler) Update(c echo.Context, p auth.Principal) error {
    id, err := parseID(c)
    if err != nil {
        return err
    }
    var req updateLessonReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    l, err := h.Lessons.Update(ctx, id, model.LessonPatch{Title: req.Title, Description: req.Description})
    if err != nil {
        return err
    }
    h.purge(ctx)
    h.Log.Info("lesson updated", "lesson_id", id, "by", p.UserID)
    return c.JSON(http.StatusOK, itemResponse[model.Lesson]{Data: l})
}

// Delete removes a lesson.
func (h *LessonHandler) Delete(c echo.Context, p auth.Principal) error {
    id, err := parseID(c)
    if err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    if err := h.Lessons.Delete(ctx, id); err != nil {
        return err
    }
    h.purge(ctx)
    h.Log.Info("lesson deleted", "lesson_id", id, "by", p.UserID)
    return c.NoContent(http.StatusNoContent)
}

func (h *LessonHandler) purge(ctx context.Context) {
    if h.Cache == nil {
        return
    }
    if err := h.Cache.Purge(ctx, LessonScope); err != nil {
        h.Log.Warn("lesson cache purge failed", "err", err)
    }
}
