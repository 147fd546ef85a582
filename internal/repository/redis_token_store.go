package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// revokeOwnedScript deletes KEYS[1] only when its value is ARGV[1], so a
// caller cannot revoke somebody else's session.
var revokeOwnedScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisTokenStore keeps refresh tokens as "<prefix>:<hash>" -> user id with
// a TTL, plus a per-user set of hashes used for logout-everywhere.
type RedisTokenStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration // lifetime of the per-user index set
}

// NewRedisTokenStore returns a store using the given key prefix.  ttl should
// be the refresh token lifetime.
func NewRedisTokenStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisTokenStore {
	if prefix == "" {
		prefix = "rt"
	}
	return &RedisTokenStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisTokenStore) tokenKey(hash string) string { return s.prefix + ":" + hash }

func (s *RedisTokenStore) userKey(userID uint64) string {
	return s.prefix + ":user:" + strconv.FormatUint(userID, 10)
}

// Insert stores the token with SET NX; an existing key yields ErrTokenExists.
func (s *RedisTokenStore) Insert(ctx context.Context, tokenHash string, userID uint64, exp time.Time) error {
	ttl := time.Until(exp)
	if ttl <= 0 {
		return fmt.Errorf("refresh token already expired")
	}
	ok, err := s.rdb.SetNX(ctx, s.tokenKey(tokenHash), strconv.FormatUint(userID, 10), ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return ErrTokenExists
	}
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, s.userKey(userID), tokenHash)
	pipe.Expire(ctx, s.userKey(userID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis index token: %w", err)
	}
	return nil
}

// Redeem consumes the token with GETDEL, which is atomic: only one caller
// ever sees the value.  Expired tokens are gone by TTL.
func (s *RedisTokenStore) Redeem(ctx context.Context, tokenHash string) (uint64, error) {
	v, err := s.rdb.GetDel(ctx, s.tokenKey(tokenHash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrTokenNotFound
		}
		return 0, fmt.Errorf("redis getdel: %w", err)
	}
	userID, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, ErrTokenNotFound
	}
	_ = s.rdb.SRem(ctx, s.userKey(userID), tokenHash).Err()
	return userID, nil
}

// Revoke deletes one token if it belongs to userID.
func (s *RedisTokenStore) Revoke(ctx context.Context, userID uint64, tokenHash string) error {
	uid := strconv.FormatUint(userID, 10)
	if err := revokeOwnedScript.Run(ctx, s.rdb, []string{s.tokenKey(tokenHash)}, uid).Err(); err != nil {
		return fmt.Errorf("redis revoke: %w", err)
	}
	_ = s.rdb.SRem(ctx, s.userKey(userID), tokenHash).Err()
	return nil
}

// RevokeAllForUser deletes every token listed in the user's index.
func (s *RedisTokenStore) RevokeAllForUser(ctx context.Context, userID uint64) error {
	hashes, err := s.rdb.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("redis smembers: %w", err)
	}
	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, s.tokenKey(h))
	}
	keys = append(keys, s.userKey(userID))
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
