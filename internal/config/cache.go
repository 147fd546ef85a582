package config

import (
    "strings"
    "time"
)

// CacheKeys are the accepted CACHE_KEY_STRATEGY values.
var CacheKeys = []string{"route", "route_query", "method_route", "method_route_query", "uri"}

// CacheConfig configures the Redis response cache on public lesson reads.
// Entries are stored under "<Prefix>:<scope>:..." and dropped per scope on
// writes.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int // larger responses are served but not stored
}

// LoadCacheConfig reads CACHE_*.
func LoadCacheConfig() CacheConfig {
    c := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      methodSet(envStr("CACHE_METHODS", "GET")),
        TTL:          envDur("CACHE_TTL", 30*time.Second),
        KeyStrategy:  oneOf(envStr("CACHE_KEY_STRATEGY", ""), "route_query", CacheKeys...),
        Prefix:       envStr("CACHE_PREFIX", "cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    if c.TTL <= 0 {
        c.TTL = 30 * time.Second
    }
    return c
}

// methodSet parses a comma separated method list into an upper-case set.
func methodSet(s string) map[string]bool {
    set := make(map[string]bool)
    for _, m := range strings.Split(s, ",") {
        if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
            set[m] = true
        }
    }
    return set
}
