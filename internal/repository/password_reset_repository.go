package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/lessons-api/internal/model"
)

// PasswordResetRepo stores the pending reset token of each email.
type PasswordResetRepo struct{ DB *sql.DB }

func NewPasswordResetRepo(db *sql.DB) *PasswordResetRepo { return &PasswordResetRepo{DB: db} }

// Get returns the pending reset for email or ErrTokenNotFound.
func (r *PasswordResetRepo) Get(ctx context.Context, email string) (model.PasswordReset, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var pr model.PasswordReset
	err := r.DB.QueryRowContext(ctx,
		"SELECT email, token_hash, created_at FROM password_resets WHERE email=? LIMIT 1",
		email).Scan(&pr.Email, &pr.TokenHash, &pr.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PasswordReset{}, ErrTokenNotFound
		}
		return model.PasswordReset{}, fmt.Errorf("select password reset: %w", err)
	}
	return pr, nil
}

// Put replaces any pending reset for email with a new token hash.
func (r *PasswordResetRepo) Put(ctx context.Context, email, tokenHash string, createdAt time.Time) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.DB.ExecContext(ctx,
		"REPLACE INTO password_resets (email, token_hash, created_at) VALUES (?,?,?)",
		email, tokenHash, createdAt.UTC())
	if err != nil {
		return fmt.Errorf("store password reset: %w", err)
	}
	return nil
}

// Consume deletes the pending reset if it matches tokenHash and was created
// at or after notBefore.  Nothing deleted means the token is wrong, expired
// or already used: ErrTokenNotFound.
func (r *PasswordResetRepo) Consume(ctx context.Context, email, tokenHash string, notBefore time.Time) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM password_resets WHERE email=? AND token_hash=? AND created_at >= ?",
		email, tokenHash, notBefore.UTC())
	if err != nil {
		return fmt.Errorf("consume password reset: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return ErrTokenNotFound
	}
	return nil
}
