package auth

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonhub.io/internal/apperr"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"SuperAdmin":  RoleSuperAdmin,
		"super admin": RoleSuperAdmin,
		"SUPERADMIN":  RoleSuperAdmin,
		"admin":       RoleAdmin,
		" Manager ":   RoleManager,
		"staff":       RoleStaff,
		"EMPLOYEE":    RoleEmployee,
		"customer":    RoleCustomer,
	}
	for in, want := range cases {
		got, err := ParseRole(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "root", "owner"} {
		_, err := ParseRole(bad)
		assert.True(t, errors.Is(err, ErrUnknownRole), bad)
		assert.True(t, errors.Is(err, apperr.ErrValidation), bad)
	}
}

func TestRoleJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Role Role `json:"role"`
	}{RoleManager})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"Manager"}`, string(data))

	var out struct {
		Role Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"role":"super admin"}`), &out))
	assert.Equal(t, RoleSuperAdmin, out.Role)

	assert.Error(t, json.Unmarshal([]byte(`{"role":"wizard"}`), &out))
}

func TestRoleSet(t *testing.T) {
	set := Roles(RoleAdmin, RoleManager, RoleUnknown)
	assert.True(t, set.Contains(RoleAdmin))
	assert.True(t, set.Contains(RoleManager))
	assert.False(t, set.Contains(RoleEmployee))
	assert.False(t, set.Contains(RoleUnknown))
	assert.Equal(t, []Role{RoleAdmin, RoleManager}, set.Members())
	assert.Equal(t, "Admin,Manager", set.String())
}

func TestTenantBound(t *testing.T) {
	assert.False(t, RoleSuperAdmin.TenantBound())
	assert.False(t, RoleUnknown.TenantBound())
	for _, r := range []Role{RoleAdmin, RoleManager, RoleStaff, RoleEmployee, RoleCustomer} {
		assert.True(t, r.TenantBound(), r.String())
	}
}
