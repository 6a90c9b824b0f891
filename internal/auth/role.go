package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleBuyer  Role = "Buyer"
	RoleSeller Role = "Seller"
	RoleAdmin  Role = "Admin"
)

// ParseRole converts a stored or submitted role name into a Role.
// Matching is case-insensitive; the canonical spelling is returned.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buyer":
		return RoleBuyer, nil
	case "seller":
		return RoleSeller, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string { return string(r) }
