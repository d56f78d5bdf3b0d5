// Package tenancy decides which tenant a request acts on and whether a
// principal may touch a resource owned by a given tenant.
package tenancy

import (
	"fmt"

	"salonhub.io/internal/apperr"
	"salonhub.io/internal/auth"
)

var (
	ErrTenantRequired = fmt.Errorf("%w: tenant access required", apperr.ErrForbidden)
	ErrCrossTenant    = fmt.Errorf("%w: cross-tenant access denied", apperr.ErrForbidden)
)

// Request carries the tenant hints available to a handler.
type Request struct {
	// Requested is an explicit tenant filter from the caller.
	Requested *int64
	// Related is the tenant of an entity the request references, such as
	// the store a sale is recorded in.
	Related *int64
}

// Context is the tenant a request operates on.
type Context struct {
	TenantID int64
	// All is set only for a SuperAdmin without a filter.
	All bool
}

// Filter returns the tenant to filter collections by, nil meaning all.
func (c Context) Filter() *int64 {
	if c.All {
		return nil
	}
	id := c.TenantID
	return &id
}

type source uint8

const (
	fromRequest source = iota
	fromToken
	fromTokenOrRelated
)

// How each role obtains its tenant:
//
//	SuperAdmin                        explicit filter, none means all tenants
//	Admin, Manager, Staff, Customer   token tenant; a filter must equal it
//	Employee                          token tenant, else the related entity's tenant;
//	                                  both present and different is denied
var resolution = map[auth.Role]source{
	auth.RoleSuperAdmin: fromRequest,
	auth.RoleAdmin:      fromToken,
	auth.RoleManager:    fromToken,
	auth.RoleStaff:      fromToken,
	auth.RoleCustomer:   fromToken,
	auth.RoleEmployee:   fromTokenOrRelated,
}

// Resolve applies the per-role rule above.
func Resolve(p auth.Principal, req Request) (Context, error) {
	src, ok := resolution[p.Role]
	if !ok {
		return Context{}, fmt.Errorf("%w: unknown role", apperr.ErrForbidden)
	}
	token, hasToken := p.Tenant()

	switch src {
	case fromRequest:
		if req.Requested != nil {
			return Context{TenantID: *req.Requested}, nil
		}
		return Context{All: true}, nil

	case fromToken:
		if !hasToken {
			return Context{}, ErrTenantRequired
		}
		if req.Requested != nil && *req.Requested != token {
			return Context{}, ErrCrossTenant
		}
		return Context{TenantID: token}, nil

	default:
		if req.Requested != nil && hasToken && *req.Requested != token {
			return Context{}, ErrCrossTenant
		}
		switch {
		case hasToken && req.Related != nil && *req.Related != token:
			return Context{}, ErrCrossTenant
		case hasToken:
			return Context{TenantID: token}, nil
		case req.Related != nil:
			return Context{TenantID: *req.Related}, nil
		default:
			return Context{}, ErrTenantRequired
		}
	}
}

// CheckScope authorizes p against a resource owned by resourceTenantID.
// The error never names the owning tenant.
func CheckScope(p auth.Principal, resourceTenantID int64) error {
	if p.IsSuperAdmin() {
		return nil
	}
	token, ok := p.Tenant()
	if !ok {
		return ErrTenantRequired
	}
	if token != resourceTenantID {
		return ErrCrossTenant
	}
	return nil
}
