package auth

// Category groups endpoints that share one access rule.
type Category uint8

const (
	CategorySelf Category = iota
	CategorySecondFactor
	CategoryUserCreate
	CategoryTenantAdmin
	CategoryTenantView
	CategoryTenantCurrent
	CategoryEmployeeRead
	CategoryEmployeeWrite
	CategoryStoreRead
	CategoryStoreWrite
	CategoryProductRead
	CategoryProductWrite
	CategorySaleRecord
	CategorySaleResolve
	CategorySaleRead
	CategorySaleOwn
	CategoryAuditRead
	categoryCount
)

var allRoles = Roles(RoleSuperAdmin, RoleAdmin, RoleManager, RoleStaff, RoleEmployee, RoleCustomer)

// permissionTable is indexed by Category. Its length is fixed by categoryCount,
// so a category added without an entry denies every role.
var permissionTable = [categoryCount]RoleSet{
	CategorySelf:          allRoles,
	CategorySecondFactor:  Roles(RoleSuperAdmin, RoleAdmin),
	CategoryUserCreate:    Roles(RoleSuperAdmin, RoleAdmin, RoleManager),
	CategoryTenantAdmin:   Roles(RoleSuperAdmin),
	CategoryTenantView:    Roles(RoleSuperAdmin, RoleAdmin, RoleManager),
	CategoryTenantCurrent: Roles(RoleAdmin, RoleManager),
	CategoryEmployeeRead:  Roles(RoleSuperAdmin, RoleAdmin, RoleManager),
	CategoryEmployeeWrite: Roles(RoleSuperAdmin, RoleAdmin),
	CategoryStoreRead:     Roles(RoleSuperAdmin, RoleAdmin, RoleManager, RoleStaff, RoleEmployee),
	CategoryStoreWrite:    Roles(RoleSuperAdmin, RoleAdmin),
	CategoryProductRead:   allRoles,
	CategoryProductWrite:  Roles(RoleSuperAdmin, RoleAdmin, RoleManager),
	CategorySaleRecord:    Roles(RoleEmployee),
	CategorySaleResolve:   Roles(RoleAdmin, RoleManager),
	CategorySaleRead:      Roles(RoleSuperAdmin, RoleAdmin, RoleManager),
	CategorySaleOwn:       Roles(RoleEmployee),
	CategoryAuditRead:     Roles(RoleSuperAdmin, RoleAdmin),
}

// Permitted returns the roles allowed for c.
func Permitted(c Category) RoleSet {
	if c >= categoryCount {
		return 0
	}
	return permissionTable[c]
}

// Allowed reports whether role may access endpoints in category c.
func Allowed(c Category, role Role) bool {
	return Permitted(c).Contains(role)
}

// assignable lists, per actor role, the roles it may create users for.
var assignable = [roleCount]RoleSet{
	RoleSuperAdmin: allRoles,
	RoleAdmin:      Roles(RoleManager, RoleStaff, RoleEmployee, RoleCustomer),
	RoleManager:    Roles(RoleStaff, RoleEmployee),
}

// CanAssign reports whether actor may create a user holding target.
func CanAssign(actor, target Role) bool {
	if !actor.Valid() {
		return false
	}
	return assignable[actor].Contains(target)
}
