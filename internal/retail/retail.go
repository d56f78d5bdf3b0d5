// Package retail manages the physical stores and the product catalogue of
// each tenant.
package retail

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"salonhub.io/internal/apperr"
)

var (
	ErrStoreNotFound   = fmt.Errorf("%w: store not found", apperr.ErrNotFound)
	ErrProductNotFound = fmt.Errorf("%w: product not found", apperr.ErrNotFound)
	ErrSKUTaken        = fmt.Errorf("%w: sku already used in this tenant", apperr.ErrConflict)
)

// Store is a branch location.
type Store struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenantId"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Product is a sellable item. SKU is unique within a tenant.
type Product struct {
	ID          int64           `json:"id"`
	TenantID    int64           `json:"tenantId"`
	Name        string          `json:"name"`
	Category    string          `json:"category,omitempty"`
	SKU         string          `json:"sku,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Description string          `json:"description,omitempty"`
	Active      bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Repository persists stores and products. List methods filter by tenant;
// nil means every tenant.
type Repository interface {
	CreateStore(ctx context.Context, s *Store) error
	GetStore(ctx context.Context, id int64) (*Store, error)
	ListStores(ctx context.Context, tenantID *int64) ([]Store, error)
	UpdateStore(ctx context.Context, s *Store) error

	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id int64) (*Product, error)
	ListProducts(ctx context.Context, tenantID *int64) ([]Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
}
