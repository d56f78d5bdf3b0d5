// Package memory is a process-local implementation of every repository. It
// backs development runs without DATABASE_URL and the handler tests, and
// mirrors the uniqueness and conditional-update rules of the Postgres store.
package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"

	"salonhub.io/internal/audit"
	"salonhub.io/internal/auth"
	"salonhub.io/internal/retail"
	"salonhub.io/internal/sales"
	"salonhub.io/internal/staff"
	"salonhub.io/internal/tenant"
)

type Store struct {
	mu sync.RWMutex

	seq map[string]int64

	users     map[int64]auth.User
	tenants   map[int64]tenant.Tenant
	employees map[int64]staff.Employee
	stores    map[int64]retail.Store
	products  map[int64]retail.Product
	sales     map[int64]sales.Sale
	audit     []audit.Entry
	outbox    map[string]*outboxRow
}

func New() *Store {
	return &Store{
		seq:       map[string]int64{},
		users:     map[int64]auth.User{},
		tenants:   map[int64]tenant.Tenant{},
		employees: map[int64]staff.Employee{},
		stores:    map[int64]retail.Store{},
		products:  map[int64]retail.Product{},
		sales:     map[int64]sales.Sale{},
		outbox:    map[string]*outboxRow{},
	}
}

func (s *Store) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// Ping always succeeds; there is no external dependency.
func (s *Store) Ping(context.Context) error { return nil }

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func matchTenant(filter *int64, id int64) bool {
	return filter == nil || *filter == id
}

// --- users ---

func (s *Store) CreateUser(_ context.Context, u *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertUser(u)
}

func (s *Store) insertUser(u *auth.User) error {
	email := strings.ToLower(u.Email)
	for _, existing := range s.users {
		if strings.ToLower(existing.Email) == email {
			return auth.ErrEmailTaken
		}
	}
	u.ID = s.next("users")
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id int64) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			return &u, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *Store) SetTwoFactorSecret(_ context.Context, userID int64, secret string) error {
	return s.updateUser(userID, func(u *auth.User) {
		u.TwoFactorSecret = secret
		u.TwoFactorEnabled = false
	})
}

func (s *Store) EnableTwoFactor(_ context.Context, userID int64) error {
	return s.updateUser(userID, func(u *auth.User) { u.TwoFactorEnabled = true })
}

func (s *Store) updateUser(id int64, fn func(*auth.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	fn(&u)
	s.users[id] = u
	return nil
}

// --- tenants ---

func (s *Store) CreateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertTenant(t)
}

func (s *Store) insertTenant(t *tenant.Tenant) error {
	for _, existing := range s.tenants {
		if existing.Subdomain == t.Subdomain {
			return tenant.ErrSubdomainTaken
		}
	}
	t.ID = s.next("tenants")
	cp := *t
	cp.Features = maps.Clone(t.Features)
	s.tenants[t.ID] = cp
	return nil
}

func (s *Store) RegisterTenant(_ context.Context, t *tenant.Tenant, admin *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(admin.Email)
	for _, existing := range s.users {
		if strings.ToLower(existing.Email) == email {
			return auth.ErrEmailTaken
		}
	}
	if err := s.insertTenant(t); err != nil {
		return err
	}
	id := t.ID
	admin.TenantID = &id
	return s.insertUser(admin)
}

func (s *Store) GetTenant(_ context.Context, id int64) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	t.Features = maps.Clone(t.Features)
	return &t, nil
}

func (s *Store) GetTenantBySubdomain(_ context.Context, subdomain string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tenants {
		if t.Subdomain == subdomain {
			t.Features = maps.Clone(t.Features)
			return &t, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (s *Store) ListTenants(context.Context) ([]tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]tenant.Tenant, 0, len(s.tenants))
	for _, id := range sortedIDs(s.tenants) {
		t := s.tenants[id]
		t.Features = maps.Clone(t.Features)
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) UpdateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[t.ID]; !ok {
		return tenant.ErrTenantNotFound
	}
	cp := *t
	cp.Features = maps.Clone(t.Features)
	s.tenants[t.ID] = cp
	return nil
}

// --- employees ---

func (s *Store) CreateEmployee(_ context.Context, e *staff.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.next("employees")
	s.employees[e.ID] = *e
	return nil
}

func (s *Store) GetEmployee(_ context.Context, id int64) (*staff.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[id]
	if !ok {
		return nil, staff.ErrEmployeeNotFound
	}
	return &e, nil
}

func (s *Store) ListEmployees(_ context.Context, tenantID *int64) ([]staff.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []staff.Employee{}
	for _, id := range sortedIDs(s.employees) {
		if e := s.employees[id]; matchTenant(tenantID, e.TenantID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) UpdateEmployee(_ context.Context, e *staff.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[e.ID]; !ok {
		return staff.ErrEmployeeNotFound
	}
	s.employees[e.ID] = *e
	return nil
}

func (s *Store) EmployeeByUser(_ context.Context, tenantID, userID int64) (*staff.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range sortedIDs(s.employees) {
		e := s.employees[id]
		if e.TenantID == tenantID && e.UserID != nil && *e.UserID == userID {
			return &e, nil
		}
	}
	return nil, staff.ErrEmployeeNotFound
}

// --- stores and products ---

func (s *Store) CreateStore(_ context.Context, st *retail.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.ID = s.next("stores")
	s.stores[st.ID] = *st
	return nil
}

func (s *Store) GetStore(_ context.Context, id int64) (*retail.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stores[id]
	if !ok {
		return nil, retail.ErrStoreNotFound
	}
	return &st, nil
}

func (s *Store) ListStores(_ context.Context, tenantID *int64) ([]retail.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []retail.Store{}
	for _, id := range sortedIDs(s.stores) {
		if st := s.stores[id]; matchTenant(tenantID, st.TenantID) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *Store) UpdateStore(_ context.Context, st *retail.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stores[st.ID]; !ok {
		return retail.ErrStoreNotFound
	}
	s.stores[st.ID] = *st
	return nil
}

func (s *Store) skuTaken(p *retail.Product) bool {
	if p.SKU == "" {
		return false
	}
	for id, existing := range s.products {
		if id != p.ID && existing.TenantID == p.TenantID && existing.SKU == p.SKU {
			return true
		}
	}
	return false
}

func (s *Store) CreateProduct(_ context.Context, p *retail.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.skuTaken(p) {
		return retail.ErrSKUTaken
	}
	p.ID = s.next("products")
	s.products[p.ID] = *p
	return nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (*retail.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, retail.ErrProductNotFound
	}
	return &p, nil
}

func (s *Store) ListProducts(_ context.Context, tenantID *int64) ([]retail.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []retail.Product{}
	for _, id := range sortedIDs(s.products) {
		if p := s.products[id]; matchTenant(tenantID, p.TenantID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) UpdateProduct(_ context.Context, p *retail.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return retail.ErrProductNotFound
	}
	if s.skuTaken(p) {
		return retail.ErrSKUTaken
	}
	s.products[p.ID] = *p
	return nil
}
