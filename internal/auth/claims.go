// ABOUTME: Identity claims carried inside portal session tokens
// ABOUTME: Defines the closed Role set and the Claims payload shape

package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the closed set of portal roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Area roots each role lands on after signing in.
const (
	UserHome  = "/dashboard"
	AdminHome = "/admin"
	LoginPage = "/login"
)

// ParseRole converts a raw string into a Role.
// The second return value is false for anything outside the closed set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Home returns the area root for the role.
func (r Role) Home() string {
	switch r {
	case RoleAdmin:
		return AdminHome
	default:
		return UserHome
	}
}

// Identity is the part of a session a caller asks the codec to sign.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// Claims is the full token payload: the identity plus issued-at and expiry.
type Claims struct {
	Identity
	jwt.RegisteredClaims
}

// IsAdmin returns true if the claims carry the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
