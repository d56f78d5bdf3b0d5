package auth

import (
	"fmt"
	"strings"

	"salonhub.io/internal/apperr"
)

// Role is the closed set of principal roles.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleSuperAdmin
	RoleAdmin
	RoleManager
	RoleStaff
	RoleEmployee
	RoleCustomer
	roleCount
)

var roleNames = [roleCount]string{
	RoleUnknown:    "",
	RoleSuperAdmin: "SuperAdmin",
	RoleAdmin:      "Admin",
	RoleManager:    "Manager",
	RoleStaff:      "Staff",
	RoleEmployee:   "Employee",
	RoleCustomer:   "Customer",
}

// ErrUnknownRole is returned by ParseRole.
var ErrUnknownRole = fmt.Errorf("%w: unknown role", apperr.ErrValidation)

func (r Role) String() string {
	if r >= roleCount {
		return ""
	}
	return roleNames[r]
}

func (r Role) Valid() bool { return r > RoleUnknown && r < roleCount }

// ParseRole matches case-insensitively and ignores inner spaces, so
// "super admin" and "SUPERADMIN" both resolve to RoleSuperAdmin.
func ParseRole(s string) (Role, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	if key == "" {
		return RoleUnknown, ErrUnknownRole
	}
	for r := RoleSuperAdmin; r < roleCount; r++ {
		if strings.ToLower(roleNames[r]) == key {
			return r, nil
		}
	}
	return RoleUnknown, fmt.Errorf("%w %q", ErrUnknownRole, s)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("marshal role %d: %w", r, ErrUnknownRole)
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// TenantBound reports whether principals with this role must belong to a tenant.
func (r Role) TenantBound() bool {
	return r.Valid() && r != RoleSuperAdmin
}

// RoleSet is a bitset of roles.
type RoleSet uint16

func Roles(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		if r.Valid() {
			s |= 1 << r
		}
	}
	return s
}

func (s RoleSet) Contains(r Role) bool {
	return r.Valid() && s&(1<<r) != 0
}

func (s RoleSet) Members() []Role {
	var out []Role
	for r := RoleSuperAdmin; r < roleCount; r++ {
		if s.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s RoleSet) String() string {
	members := s.Members()
	names := make([]string, len(members))
	for i, r := range members {
		names[i] = r.String()
	}
	return strings.Join(names, ",")
}
