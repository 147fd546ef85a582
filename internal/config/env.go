package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// env helpers fall back to d when the variable is unset or unparsable.

func envStr(k, d string) string {
    if v := strings.TrimSpace(os.Getenv(k)); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return d
}

func envInt(k string, d int) int {
    if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k))); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    if dur, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k))); err == nil {
        return dur
    }
    return d
}

// oneOf returns v lower-cased when it is among allowed, otherwise d.
func oneOf(v, d string, allowed ...string) string {
    v = strings.ToLower(strings.TrimSpace(v))
    for _, a := range allowed {
        if v == a {
            return v
        }
    }
    return d
}
