package retail

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salonhub.io/internal/apperr"
	"salonhub.io/internal/auth"
	"salonhub.io/internal/tenancy"
)

// StoreInput is the create and update payload for stores.
type StoreInput struct {
	TenantID *int64
	Name     *string
	Location *string
	Notes    *string
}

// ProductInput is the create and update payload for products.
type ProductInput struct {
	TenantID    *int64
	Name        *string
	Category    *string
	SKU         *string
	Price       *decimal.Decimal
	Stock       *int
	Description *string
	Active      *bool
}

type Service struct {
	repo    Repository
	tenants auth.TenantChecker
	now     func() time.Time
}

func NewService(repo Repository, tenants auth.TenantChecker) *Service {
	return &Service{repo: repo, tenants: tenants, now: time.Now}
}

// writeTenant picks the tenant a new record belongs to and checks it
// accepts writes.
func (s *Service) writeTenant(ctx context.Context, p auth.Principal, requested *int64) (int64, error) {
	tc, err := tenancy.Resolve(p, tenancy.Request{Requested: requested})
	if err != nil {
		return 0, err
	}
	if tc.All {
		return 0, apperr.FieldErrors{"tenantId": "is required"}
	}
	if err := s.tenants.EnsureActive(ctx, tc.TenantID); err != nil {
		return 0, err
	}
	return tc.TenantID, nil
}

func (s *Service) CreateStore(ctx context.Context, p auth.Principal, in StoreInput) (*Store, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperr.FieldErrors{"name": "is required"}
	}
	tenantID, err := s.writeTenant(ctx, p, in.TenantID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	st := &Store{TenantID: tenantID, CreatedAt: now, UpdatedAt: now}
	applyStore(st, in)
	if err := s.repo.CreateStore(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) ListStores(ctx context.Context, p auth.Principal, requested *int64) ([]Store, error) {
	tc, err := tenancy.Resolve(p, tenancy.Request{Requested: requested})
	if err != nil {
		return nil, err
	}
	return s.repo.ListStores(ctx, tc.Filter())
}

func (s *Service) GetStore(ctx context.Context, p auth.Principal, id int64) (*Store, error) {
	st, err := s.repo.GetStore(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tenancy.CheckScope(p, st.TenantID); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) UpdateStore(ctx context.Context, p auth.Principal, id int64, in StoreInput) (*Store, error) {
	st, err := s.GetStore(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, apperr.FieldErrors{"name": "must not be empty"}
	}
	if err := s.tenants.EnsureActive(ctx, st.TenantID); err != nil {
		return nil, err
	}
	applyStore(st, in)
	st.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateStore(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func applyStore(st *Store, in StoreInput) {
	if in.Name != nil {
		st.Name = strings.TrimSpace(*in.Name)
	}
	if in.Location != nil {
		st.Location = strings.TrimSpace(*in.Location)
	}
	if in.Notes != nil {
		st.Notes = *in.Notes
	}
}

func (s *Service) CreateProduct(ctx context.Context, p auth.Principal, in ProductInput) (*Product, error) {
	fe := apperr.FieldErrors{}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		fe.Add("name", "is required")
	}
	if in.Price == nil {
		fe.Add("price", "is required")
	}
	validateProduct(fe, in)
	if err := fe.OrNil(); err != nil {
		return nil, err
	}
	tenantID, err := s.writeTenant(ctx, p, in.TenantID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	pr := &Product{TenantID: tenantID, Active: true, CreatedAt: now, UpdatedAt: now}
	applyProduct(pr, in)
	if err := s.repo.CreateProduct(ctx, pr); err != nil {
		return nil, err
	}
	return pr, nil
}

func (s *Service) ListProducts(ctx context.Context, p auth.Principal, requested *int64) ([]Product, error) {
	tc, err := tenancy.Resolve(p, tenancy.Request{Requested: requested})
	if err != nil {
		return nil, err
	}
	return s.repo.ListProducts(ctx, tc.Filter())
}

func (s *Service) GetProduct(ctx context.Context, p auth.Principal, id int64) (*Product, error) {
	pr, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tenancy.CheckScope(p, pr.TenantID); err != nil {
		return nil, err
	}
	return pr, nil
}

func (s *Service) UpdateProduct(ctx context.Context, p auth.Principal, id int64, in ProductInput) (*Product, error) {
	pr, err := s.GetProduct(ctx, p, id)
	if err != nil {
		return nil, err
	}
	fe := apperr.FieldErrors{}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		fe.Add("name", "must not be empty")
	}
	validateProduct(fe, in)
	if err := fe.OrNil(); err != nil {
		return nil, err
	}
	if err := s.tenants.EnsureActive(ctx, pr.TenantID); err != nil {
		return nil, err
	}
	applyProduct(pr, in)
	pr.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateProduct(ctx, pr); err != nil {
		return nil, err
	}
	return pr, nil
}

func validateProduct(fe apperr.FieldErrors, in ProductInput) {
	if in.Price != nil && in.Price.IsNegative() {
		fe.Add("price", "must not be negative")
	}
	if in.Stock != nil && *in.Stock < 0 {
		fe.Add("stock", "must not be negative")
	}
}

func applyProduct(pr *Product, in ProductInput) {
	if in.Name != nil {
		pr.Name = strings.TrimSpace(*in.Name)
	}
	if in.Category != nil {
		pr.Category = strings.TrimSpace(*in.Category)
	}
	if in.SKU != nil {
		pr.SKU = strings.TrimSpace(*in.SKU)
	}
	if in.Price != nil {
		pr.Price = in.Price.Round(2)
	}
	if in.Stock != nil {
		pr.Stock = *in.Stock
	}
	if in.Description != nil {
		pr.Description = *in.Description
	}
	if in.Active != nil {
		pr.Active = *in.Active
	}
}
