package enums

import (
	"fmt"
	"strings"
)

// UserRole is the system-wide role carried on every user and in access tokens.
type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRolePlayer UserRole = "player"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRolePlayer,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole, ignoring case.
func ParseUserRole(value string) (UserRole, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validUserRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
