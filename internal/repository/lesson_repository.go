package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/lessons-api/internal/model"
)

// LessonSortColumns are the accepted values of the sort query parameter.
var LessonSortColumns = map[string]string{
	"id":          "id",
	"title":       "title",
	"description": "description",
}

// LessonRepo encapsulates all database queries related to lessons.
type LessonRepo struct {
	db *sql.DB
}

func NewLessonRepo(db *sql.DB) *LessonRepo { return &LessonRepo{db: db} }

// List returns one page of lessons and the total row count.
func (r *LessonRepo) List(ctx context.Context, p ListParams) ([]model.Lesson, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lessons").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count lessons: %w", err)
	}
	q := "SELECT id, title, description FROM lessons" + orderClause(p, LessonSortColumns) + " LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, p.PerPage, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("select lessons: %w", err)
	}
	defer rows.Close()

	out := []model.Lesson{}
	for rows.Next() {
		var l model.Lesson
		if err := rows.Scan(&l.ID, &l.Title, &l.Description); err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get fetches a lesson by id or returns ErrNotFound.
func (r *LessonRepo) Get(ctx context.Context, id uint64) (model.Lesson, error) {
	var l model.Lesson
	err := r.db.QueryRowContext(ctx,
		"SELECT id, title, description FROM lessons WHERE id = ?", id).
		Scan(&l.ID, &l.Title, &l.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Lesson{}, ErrNotFound
		}
		return model.Lesson{}, fmt.Errorf("select lesson: %w", err)
	}
	return l, nil
}

// Create inserts a lesson and fills in its generated id.
func (r *LessonRepo) Create(ctx context.Context, l *model.Lesson) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO lessons (title, description) VALUES (?, ?)", l.Title, l.Description)
	if err != nil {
		return fmt.Errorf("insert lesson: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// Update applies the non-nil fields of patch and returns the stored row.
func (r *LessonRepo) Update(ctx context.Context, id uint64, patch model.LessonPatch) (model.Lesson, error) {
	if patch.Empty() {
		return r.Get(ctx, id)
	}
	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	args = append(args, id)
	q := "UPDATE lessons SET " + strings.Join(sets, ", ") + ", updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return model.Lesson{}, fmt.Errorf("update lesson: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Lesson{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes a lesson or returns ErrNotFound.
func (r *LessonRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM lessons WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
