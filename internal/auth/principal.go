// Package auth holds the authenticated caller and the single place where
// role requirements are decided.
package auth

import "time"

// Role names as stored in the roles table.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Principal is the verified identity of a request.  Handlers receive it as
// an argument; it is built only from a valid access token.
type Principal struct {
	UserID    uint64
	Roles     []string
	TokenID   string    // jti of the access token
	ExpiresAt time.Time // exp of the access token
}

// HasRole reports whether the principal holds role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Requirement lists the roles that may pass a route.  An empty requirement
// admits any authenticated principal.
type Requirement []string

// Allows decides whether p satisfies req.  Every role gate in the
// application goes through this function.
func Allows(p Principal, req Requirement) bool {
	if p.UserID == 0 {
		return false
	}
	if len(req) == 0 {
		return true
	}
	for _, r := range req {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}
