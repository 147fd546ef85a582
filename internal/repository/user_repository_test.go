package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	qInsertUser = regexp.QuoteMeta("INSERT INTO users (name, email, password_hash) VALUES (?,?,?)")
	qAttachRole = regexp.QuoteMeta("INSERT INTO role_user (user_id, role_id) SELECT ?, id FROM roles WHERE name=?")
	qUserByMail = regexp.QuoteMeta("SELECT id,name,email,password_hash,created_at,updated_at FROM users WHERE email=? LIMIT 1")
	qUserByID   = regexp.QuoteMeta("SELECT id,name,email,password_hash,created_at,updated_at FROM users WHERE id=? LIMIT 1")
	qRoles      = `(?s)SELECT r\.name FROM roles r.*WHERE ru\.user_id = \?`
)

func TestUserRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(qInsertUser).
		WithArgs("Ann", "ann@test.com", "hash").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(qAttachRole).
		WithArgs(7, "user").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, err := repo.Create(context.Background(), "Ann", "  Ann@Test.com ", "hash", "user")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), u.ID)
	assert.Equal(t, "ann@test.com", u.Email)
	assert.Equal(t, []string{"user"}, u.Roles)
}

func TestUserRepo_Create_DuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(qInsertUser).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), "Ann", "ann@test.com", "hash", "user")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepo_GetByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(qUserByMail).
		WithArgs("admin@test.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at", "updated_at"}).
			AddRow(1, "admin", "admin@test.com", "h", now, now))
	mock.ExpectQuery(qRoles).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("admin"))

	u, err := repo.GetByEmail(context.Background(), "ADMIN@test.com")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), u.ID)
	assert.Equal(t, []string{"admin"}, u.Roles)
	assert.True(t, u.HasRole("admin"))
}

func TestUserRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(qUserByID).WithArgs(9).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepo_GetByID_DBError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(qUserByID).WithArgs(9).WillReturnError(errors.New("db down"))

	_, err := repo.GetByID(context.Background(), 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.NotErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepo_UpdatePassword(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	q := regexp.QuoteMeta("UPDATE users SET password_hash=?, updated_at=CURRENT_TIMESTAMP WHERE id=?")

	mock.ExpectExec(q).WithArgs("new", 3).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("new", 4).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdatePassword(context.Background(), 3, "new"))
	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), 4, "new"), ErrUserNotFound)
}
