package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/lessons-api/internal/model"
)

// StudentSortColumns are the accepted values of the sort query parameter.
var StudentSortColumns = map[string]string{
	"id":        "id",
	"name":      "name",
	"last_name": "last_name",
	"phone":     "phone",
	"email":     "email",
}

// StudentRepo encapsulates all database queries related to students.
type StudentRepo struct {
	db *sql.DB
}

func NewStudentRepo(db *sql.DB) *StudentRepo { return &StudentRepo{db: db} }

const studentColumns = "id, name, last_name, phone, email"

func scanStudent(row interface{ Scan(...any) error }) (model.Student, error) {
	var s model.Student
	err := row.Scan(&s.ID, &s.Name, &s.LastName, &s.Phone, &s.Email)
	return s, err
}

// List returns one page of students and the total row count.
func (r *StudentRepo) List(ctx context.Context, p ListParams) ([]model.Student, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM students").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	q := "SELECT " + studentColumns + " FROM students" + orderClause(p, StudentSortColumns) + " LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, p.PerPage, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("select students: %w", err)
	}
	defer rows.Close()

	out := []model.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get fetches a student by id or returns ErrNotFound.
func (r *StudentRepo) Get(ctx context.Context, id uint64) (model.Student, error) {
	s, err := scanStudent(r.db.QueryRowContext(ctx,
		"SELECT "+studentColumns+" FROM students WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Student{}, ErrNotFound
		}
		return model.Student{}, fmt.Errorf("select student: %w", err)
	}
	return s, nil
}

// Create inserts a student and fills in its generated id.
func (r *StudentRepo) Create(ctx context.Context, s *model.Student) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO students (name, last_name, phone, email) VALUES (?, ?, ?, ?)",
		s.Name, s.LastName, s.Phone, s.Email)
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// Update applies the non-nil fields of patch and returns the stored row.
func (r *StudentRepo) Update(ctx context.Context, id uint64, patch model.StudentPatch) (model.Student, error) {
	if patch.Empty() {
		return r.Get(ctx, id)
	}
	var (
		sets []string
		args []any
	)
	for _, f := range []struct {
		col string
		v   *string
	}{
		{"name", patch.Name},
		{"last_name", patch.LastName},
		{"phone", patch.Phone},
		{"email", patch.Email},
	} {
		if f.v != nil {
			sets = append(sets, f.col+" = ?")
			args = append(args, *f.v)
		}
	}
	args = append(args, id)
	q := "UPDATE students SET " + strings.Join(sets, ", ") + ", updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return model.Student{}, fmt.Errorf("update student: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Student{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes a student or returns ErrNotFound.
func (r *StudentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM students WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
