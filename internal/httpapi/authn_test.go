package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonhub.io/internal/apperr"
	"salonhub.io/internal/auth"
	"salonhub.io/internal/sales"
	"salonhub.io/internal/tenancy"
)

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func withPrincipal(r *http.Request, role auth.Role) *http.Request {
	tenant := int64(1)
	return r.WithContext(auth.WithPrincipal(r.Context(), auth.Principal{ID: 1, Role: role, TenantID: &tenant}))
}

func TestRequireRolesAllowsMatchingRole(t *testing.T) {
	handler := requireRoles(auth.CategorySaleResolve, okHandler())

	for _, role := range []auth.Role{auth.RoleAdmin, auth.RoleManager} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, withPrincipal(httptest.NewRequest(http.MethodPatch, "/v1/sales/1/approve", nil), role))
		assert.Equal(t, http.StatusOK, rr.Code, role.String())
	}
}

func TestRequireRolesRejectsOtherRoles(t *testing.T) {
	handler := requireRoles(auth.CategorySaleResolve, okHandler())

	for _, role := range []auth.Role{auth.RoleSuperAdmin, auth.RoleStaff, auth.RoleEmployee, auth.RoleCustomer} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, withPrincipal(httptest.NewRequest(http.MethodPatch, "/v1/sales/1/approve", nil), role))
		assert.Equal(t, http.StatusForbidden, rr.Code, role.String())
		assert.Contains(t, rr.Body.String(), "insufficient role")
	}
}

func TestRequireRolesRejectsMissingPrincipal(t *testing.T) {
	rr := httptest.NewRecorder()
	requireRoles(auth.CategorySelf, okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestExtractBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":     "abc",
		"bearer   abc  ": "abc",
		"BEARER abc":     "abc",
	}
	for header, want := range cases {
		got, err := extractBearerToken(header)
		require.NoError(t, err, header)
		assert.Equal(t, want, got)
	}
	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic abc", "abc"} {
		_, err := extractBearerToken(header)
		assert.ErrorIs(t, err, errMissingAuth, header)
	}
}

func TestFailMapsTaxonomy(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{tenancy.ErrCrossTenant, http.StatusForbidden, "cross-tenant access denied"},
		{sales.ErrNotPending, http.StatusConflict, "sale is not pending"},
		{sales.ErrSaleNotFound, http.StatusNotFound, "sale not found"},
		{auth.ErrEmailTaken, http.StatusConflict, "email already registered"},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid email or password"},
		{fmt.Errorf("%w: smtp down", apperr.ErrDependency), http.StatusInternalServerError, "internal error"},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		fail(rr, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
		assert.Equal(t, tc.code, rr.Code, tc.err.Error())
		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, tc.msg, body["error"])
	}

	rr := httptest.NewRecorder()
	fail(rr, httptest.NewRequest(http.MethodGet, "/", nil), apperr.FieldErrors{"totalPrice": "must be greater than zero"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Equal(t, "must be greater than zero", body.Details["totalPrice"])
}
