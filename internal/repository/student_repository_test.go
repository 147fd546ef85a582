package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/lessons-api/internal/model"
)

var studentCols = []string{"id", "name", "last_name", "phone", "email"}

func TestStudentRepo_List(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, last_name, phone, email FROM students ORDER BY last_name ASC, id ASC LIMIT ? OFFSET ?")).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(studentCols).AddRow(1, "Ann", "Lee", "+3712000000", "ann@test.com"))

	got, total, err := repo.List(context.Background(), ListParams{Sort: "last_name", Order: "asc", PerPage: 10, Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, "Lee", got[0].LastName)
}

func TestStudentRepo_CreateUpdateDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students (name, last_name, phone, email) VALUES (?, ?, ?, ?)")).
		WithArgs("Ann", "Lee", "+3712000000", "ann@test.com").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET phone = ?, email = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?")).
		WithArgs("+3712999999", "lee@test.com", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, last_name, phone, email FROM students WHERE id = ?")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(studentCols).AddRow(5, "Ann", "Lee", "+3712999999", "lee@test.com"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = ?")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := &model.Student{Name: "Ann", LastName: "Lee", Phone: "+3712000000", Email: "ann@test.com"}
	require.NoError(t, repo.Create(context.Background(), s))
	assert.Equal(t, uint64(5), s.ID)

	got, err := repo.Update(context.Background(), 5, model.StudentPatch{Phone: strp("+3712999999"), Email: strp("lee@test.com")})
	require.NoError(t, err)
	assert.Equal(t, "lee@test.com", got.Email)

	require.NoError(t, repo.Delete(context.Background(), 5))
}

func TestStudentRepo_EmptyPatchReadsRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, last_name, phone, email FROM students WHERE id = ?")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(studentCols).AddRow(2, "Bo", "Kim", "1", "bo@test.com"))

	got, err := repo.Update(context.Background(), 2, model.StudentPatch{})
	require.NoError(t, err)
	assert.Equal(t, "Bo", got.Name)
}
