package retail

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonhub.io/internal/apperr"
	"salonhub.io/internal/auth"
	"salonhub.io/internal/tenancy"
)

type stubRepo struct {
	stores   map[int64]*Store
	products map[int64]*Product
	nextID   int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{stores: map[int64]*Store{}, products: map[int64]*Product{}}
}

func (r *stubRepo) CreateStore(_ context.Context, s *Store) error {
	r.nextID++
	s.ID = r.nextID
	cp := *s
	r.stores[s.ID] = &cp
	return nil
}

func (r *stubRepo) GetStore(_ context.Context, id int64) (*Store, error) {
	s, ok := r.stores[id]
	if !ok {
		return nil, ErrStoreNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *stubRepo) ListStores(_ context.Context, tenantID *int64) ([]Store, error) {
	var out []Store
	for i := int64(1); i <= r.nextID; i++ {
		if s, ok := r.stores[i]; ok && (tenantID == nil || s.TenantID == *tenantID) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *stubRepo) UpdateStore(_ context.Context, s *Store) error {
	cp := *s
	r.stores[s.ID] = &cp
	return nil
}

func (r *stubRepo) CreateProduct(_ context.Context, p *Product) error {
	for _, existing := range r.products {
		if p.SKU != "" && existing.TenantID == p.TenantID && existing.SKU == p.SKU {
			return ErrSKUTaken
		}
	}
	r.nextID++
	p.ID = r.nextID
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *stubRepo) GetProduct(_ context.Context, id int64) (*Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubRepo) ListProducts(_ context.Context, tenantID *int64) ([]Product, error) {
	var out []Product
	for i := int64(1); i <= r.nextID; i++ {
		if p, ok := r.products[i]; ok && (tenantID == nil || p.TenantID == *tenantID) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubRepo) UpdateProduct(_ context.Context, p *Product) error {
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

type activeTenants map[int64]bool

func (a activeTenants) EnsureActive(_ context.Context, id int64) error {
	active, ok := a[id]
	switch {
	case !ok:
		return apperr.ErrNotFound
	case !active:
		return apperr.ErrForbidden
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

var (
	tenantA    = int64(1)
	tenantB    = int64(2)
	superAdmin = auth.Principal{ID: 1, Role: auth.RoleSuperAdmin}
	adminA     = auth.Principal{ID: 2, Role: auth.RoleAdmin, TenantID: &tenantA}
	managerB   = auth.Principal{ID: 3, Role: auth.RoleManager, TenantID: &tenantB}
)

func newTestService() (*Service, *stubRepo) {
	repo := newStubRepo()
	return NewService(repo, activeTenants{tenantA: true, tenantB: true, 3: false}), repo
}

func TestCreateStoreUsesTokenTenant(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	// The requested tenant is ignored for tenant-bound roles.
	st, err := svc.CreateStore(ctx, adminA, StoreInput{TenantID: &tenantB, Name: ptr(" Westlands ")})
	require.NoError(t, err)
	assert.Equal(t, tenantA, st.TenantID)
	assert.Equal(t, "Westlands", st.Name)

	_, err = svc.CreateStore(ctx, superAdmin, StoreInput{Name: ptr("No tenant")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	st, err = svc.CreateStore(ctx, superAdmin, StoreInput{TenantID: &tenantB, Name: ptr("Karen")})
	require.NoError(t, err)
	assert.Equal(t, tenantB, st.TenantID)

	_, err = svc.CreateStore(ctx, superAdmin, StoreInput{TenantID: ptr(int64(3)), Name: ptr("Closed")})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.CreateStore(ctx, adminA, StoreInput{Name: ptr("  ")})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestStoreScope(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	a, err := svc.CreateStore(ctx, adminA, StoreInput{Name: ptr("A1")})
	require.NoError(t, err)
	b, err := svc.CreateStore(ctx, superAdmin, StoreInput{TenantID: &tenantB, Name: ptr("B1")})
	require.NoError(t, err)

	_, err = svc.GetStore(ctx, managerB, a.ID)
	assert.ErrorIs(t, err, tenancy.ErrCrossTenant)
	_, err = svc.UpdateStore(ctx, managerB, a.ID, StoreInput{Name: ptr("hijack")})
	assert.ErrorIs(t, err, tenancy.ErrCrossTenant)
	_, err = svc.GetStore(ctx, managerB, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := svc.UpdateStore(ctx, managerB, b.ID, StoreInput{Location: ptr("Karen Rd")})
	require.NoError(t, err)
	assert.Equal(t, "B1", got.Name)
	assert.Equal(t, "Karen Rd", got.Location)

	_, err = svc.ListStores(ctx, managerB, &tenantA)
	assert.ErrorIs(t, err, tenancy.ErrCrossTenant)

	list, err := svc.ListStores(ctx, managerB, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	list, err = svc.ListStores(ctx, superAdmin, nil)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.ListStores(ctx, auth.Principal{ID: 9, Role: auth.RoleStaff}, nil)
	assert.ErrorIs(t, err, tenancy.ErrTenantRequired)
}

func TestProducts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, adminA, ProductInput{Price: ptr(decimal.NewFromInt(-1)), Stock: ptr(-2)})
	require.ErrorIs(t, err, apperr.ErrValidation)
	details := apperr.Details(err)
	assert.Contains(t, details, "name")
	assert.Contains(t, details, "price")
	assert.Contains(t, details, "stock")

	pr, err := svc.CreateProduct(ctx, adminA, ProductInput{
		Name:  ptr("Argan oil"),
		SKU:   ptr("ARG-1"),
		Price: ptr(decimal.RequireFromString("12.345")),
	})
	require.NoError(t, err)
	assert.True(t, pr.Active)
	assert.Equal(t, "12.35", pr.Price.StringFixed(2))

	_, err = svc.CreateProduct(ctx, adminA, ProductInput{Name: ptr("Dup"), SKU: ptr("ARG-1"), Price: ptr(decimal.NewFromInt(1))})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// Same SKU in another tenant is fine.
	_, err = svc.CreateProduct(ctx, managerB, ProductInput{Name: ptr("Other"), SKU: ptr("ARG-1"), Price: ptr(decimal.NewFromInt(1))})
	require.NoError(t, err)

	_, err = svc.GetProduct(ctx, managerB, pr.ID)
	assert.ErrorIs(t, err, tenancy.ErrCrossTenant)

	updated, err := svc.UpdateProduct(ctx, adminA, pr.ID, ProductInput{Stock: ptr(7), Active: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Stock)
	assert.False(t, updated.Active)
	assert.Equal(t, "Argan oil", updated.Name)

	list, err := svc.ListProducts(ctx, adminA, nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
