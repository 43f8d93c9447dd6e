package domain

import (
	"errors"
	"fmt"
)

// Role is the closed set of administrator roles. The store boundary rejects
// anything outside this set so unknown role strings never propagate.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleModerator  Role = "MODERATOR"
)

var ErrUnknownRole = errors.New("domain: unknown role")

// Rank maps a role onto the privilege total order used for authorization
// comparisons. Higher rank means more privilege.
func (r Role) Rank() int {
	switch r {
	case RoleSuperAdmin:
		return 3
	case RoleAdmin:
		return 2
	case RoleModerator:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r grants the privilege of required or more.
func (r Role) AtLeast(required Role) bool {
	return r.Rank() >= required.Rank()
}

func (r Role) String() string { return string(r) }

// ParseRole validates a stored or transported role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSuperAdmin, RoleAdmin, RoleModerator:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}
