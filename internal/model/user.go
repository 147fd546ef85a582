package model

import "time"

// User represents an application user record as stored in the
// `users` table together with the names of the roles attached to it
// through `role_user`.  PasswordHash never leaves the service layer;
// handlers respond with a profile type instead.
type User struct {
    ID           uint64    // users.id
    Name         string    // users.name
    Email        string    // users.email (unique, lower-cased)
    PasswordHash string    // users.password_hash (bcrypt)
    Roles        []string  // roles.name via role_user
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// HasRole reports whether the user holds the named role.
func (u User) HasRole(name string) bool {
    for _, r := range u.Roles {
        if r == name {
            return true
        }
    }
    return false
}

// Role represents a row in the `roles` table.  Roles are static
// reference data seeded by the migrations ("admin", "user").
type Role struct {
    ID   uint8  // roles.id
    Name string // roles.name
}

// RefreshToken models an entry in the `refresh_tokens` table.  The
// plain token is never stored; only its SHA‑256 hash.
type RefreshToken struct {
    ID        uint64    // refresh_tokens.id
    UserID    uint64    // refresh_tokens.user_id
    TokenHash string    // refresh_tokens.token_hash
    ExpiresAt time.Time // refresh_tokens.expires_at
    CreatedAt time.Time // refresh_tokens.created_at
}

// PasswordReset models the `password_resets` table: at most one pending
// reset token per email.  Expiry is derived from CreatedAt and the
// configured reset TTL.
type PasswordReset struct {
    Email     string    // password_resets.email
    TokenHash string    // password_resets.token_hash
    CreatedAt time.Time // password_resets.created_at
}
