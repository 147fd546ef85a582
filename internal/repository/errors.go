// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without knowing which backend (MySQL or Redis) served the call.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lesson or student row does not exist.
var ErrNotFound = errors.New("not found")

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when a user with the same email already exists.
var ErrEmailExists = errors.New("email already exists")

// ErrTokenExists is returned by refresh token stores when the token value
// collides with a stored one.  Callers re-roll and try again.
var ErrTokenExists = errors.New("token already exists")

// ErrTokenNotFound is returned when a refresh or reset token is unknown,
// expired or was already consumed.
var ErrTokenNotFound = errors.New("token not found")

// isDuplicateKey reports whether err is MySQL error 1062 (duplicate entry).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
