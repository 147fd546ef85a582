package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// AccessDenylist remembers the jti of access tokens that were logged out
// until they would have expired anyway.  A nil list (or one without a
// client) denies nothing.
type AccessDenylist struct {
	rdb    *redis.Client
	prefix string
}

func NewAccessDenylist(rdb *redis.Client) *AccessDenylist {
	return &AccessDenylist{rdb: rdb, prefix: "jwt:deny"}
}

// Deny records jti until exp.  Already expired tokens are skipped.
func (d *AccessDenylist) Deny(ctx context.Context, jti string, exp time.Time) error {
	if d == nil || d.rdb == nil || jti == "" {
		return nil
	}
	ttl := time.Until(exp)
	if ttl <= 0 {
		return nil
	}
	return d.rdb.Set(ctx, d.prefix+":"+jti, 1, ttl).Err()
}

// IsDenied reports whether jti was logged out.
func (d *AccessDenylist) IsDenied(ctx context.Context, jti string) (bool, error) {
	if d == nil || d.rdb == nil || jti == "" {
		return false, nil
	}
	n, err := d.rdb.Exists(ctx, d.prefix+":"+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
