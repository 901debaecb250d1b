// internal/core/domain/session.go
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role gates which surfaces are reachable.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// ParseRole maps the auth service's role names. The service calls
// customers "user".
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "user", "customer":
		return RoleCustomer, nil
	}
	return "", NewValidationError("role", fmt.Sprintf("unknown role %q", s))
}

// WireName is the role name the auth service expects on registration.
func (r Role) WireName() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "user"
}

// AuthResult is what login and register return.
type AuthResult struct {
	Token string
	Role  Role
}

// Session is the persisted sign-in state.
type Session struct {
	Token     string    `json:"token"`
	Role      Role      `json:"role"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the token's expiry has passed. Sessions without a
// known expiry never expire client-side.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Valid reports whether the session can be used for requests.
func (s Session) Valid(now time.Time) bool {
	return s.Token != "" && !s.Expired(now)
}
