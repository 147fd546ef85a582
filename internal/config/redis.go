package config

import (
    "context"
    "crypto/tls"
    "fmt"
    "net"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server shared by the refresh token store,
// the access token denylist, the /auth rate limiter and the lesson cache.
type RedisConfig struct {
    URL      string // redis:// or rediss:// URL; wins over the fields below
    Addr     string
    Password string
    DB       int
    TLS      bool
    Timeout  time.Duration // connect and ping timeout
}

// LoadRedisConfig reads REDIS_URL, or REDIS_HOST/REDIS_PORT (REDIS_ADDR as
// a shorthand), REDIS_PASSWORD, REDIS_DB and REDIS_TLS.
func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
        addr = net.JoinHostPort(host, port)
    }
    return RedisConfig{
        URL:      envStr("REDIS_URL", ""),
        Addr:     addr,
        Password: envStr("REDIS_PASSWORD", ""),
        DB:       envInt("REDIS_DB", 0),
        TLS:      envBool("REDIS_TLS", false),
        Timeout:  envDur("REDIS_TIMEOUT", 2*time.Second),
    }
}

func (c RedisConfig) options() (*redis.Options, error) {
    if c.URL != "" {
        opts, err := redis.ParseURL(c.URL)
        if err != nil {
            return nil, fmt.Errorf("parse REDIS_URL: %w", err)
        }
        return opts, nil
    }
    opts := &redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB}
    if c.TLS {
        host := c.Addr
        if h, _, err := net.SplitHostPort(c.Addr); err == nil {
            host = h
        }
        opts.TLSConfig = &tls.Config{ServerName: strings.TrimSpace(host), MinVersion: tls.VersionTLS12}
    }
    return opts, nil
}

// NewRedisClient connects and pings.  Callers treat an error as "run
// without Redis": refresh tokens go to MySQL, cache and rate limit pass
// through.
func NewRedisClient(ctx context.Context, c RedisConfig) (*redis.Client, error) {
    opts, err := c.options()
    if err != nil {
        return nil, err
    }
    if c.Timeout > 0 {
        opts.DialTimeout = c.Timeout
    }
    client := redis.NewClient(opts)

    pingCtx, cancel := context.WithTimeout(ctx, max(c.Timeout, time.Second))
    defer cancel()
    if err := client.Ping(pingCtx).Err(); err != nil {
        _ = client.Close()
        return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
    }
    return client, nil
}
