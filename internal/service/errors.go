package service

import (
	"errors"
	"sort"
	"strings"

	"github.com/iliyamo/lessons-api/internal/repository"
)

// Sentinel errors returned by the services.  Handlers translate them into
// HTTP responses; everything else is an internal error.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrUserNotFound        = errors.New("invalid user")
	ErrResetThrottled      = errors.New("requests throttled")
	ErrMailDispatch        = errors.New("email send failed")
	ErrInvalidResetToken   = errors.New("password reset failed")
	ErrNotFound            = repository.ErrNotFound
)

// ValidationError carries per-field messages, rendered as a 422 response.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an error with a single message for field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {msg}}}
}

// Add appends msg to field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
