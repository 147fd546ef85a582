package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TokenRepo persists refresh tokens in MySQL (single 'token_hash' column).
// It is the fallback refresh store when Redis is not available.
type TokenRepo struct {
	DB  *sql.DB
	now func() time.Time
}

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db, now: time.Now} }

// Insert stores a refresh token hash.  The unique index on token_hash is
// the collision check: a clash yields ErrTokenExists.
func (r *TokenRepo) Insert(ctx context.Context, tokenHash string, userID uint64, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	if err != nil {
		if isDuplicateKey(err) {
			return ErrTokenExists
		}
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// Redeem consumes a token and returns its owner.  The DELETE is
// conditional on the row still existing, so of two concurrent redemptions
// only the one whose DELETE affects the row wins.  Expired rows are
// removed as well but reported as ErrTokenNotFound.
func (r *TokenRepo) Redeem(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrTokenNotFound
		}
		return 0, fmt.Errorf("select refresh token: %w", err)
	}

	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token_hash=?", tokenHash)
	if err != nil {
		return 0, fmt.Errorf("delete refresh token: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return 0, ErrTokenNotFound
	}
	if r.now().UTC().After(expiresAt) {
		return 0, ErrTokenNotFound
	}
	return userID, nil
}

// Revoke deletes one token if it belongs to userID.
func (r *TokenRepo) Revoke(ctx context.Context, userID uint64, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE token_hash=? AND user_id=?", tokenHash, userID)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllForUser deletes every refresh token of the user.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id=?", userID)
	if err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}
