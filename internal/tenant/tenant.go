// Package tenant manages the businesses (spas, barbershops) hosted on the
// platform.
package tenant

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"salonhub.io/internal/apperr"
	"salonhub.io/internal/auth"
)

type Plan string

const (
	PlanMonthly    Plan = "monthly"
	PlanCommission Plan = "commission"
)

func (p Plan) Valid() bool { return p == PlanMonthly || p == PlanCommission }

var (
	ErrTenantNotFound  = fmt.Errorf("%w: tenant not found", apperr.ErrNotFound)
	ErrTenantInactive  = fmt.Errorf("%w: tenant is inactive", apperr.ErrForbidden)
	ErrSubdomainTaken  = fmt.Errorf("%w: subdomain already in use", apperr.ErrConflict)
	ErrNoTenantContext = fmt.Errorf("%w: tenant access required", apperr.ErrForbidden)
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Tenant is one hosted business.
type Tenant struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Subdomain string         `json:"subdomain"`
	Plan      Plan           `json:"plan"`
	Active    bool           `json:"isActive"`
	Email     string         `json:"email,omitempty"`
	Phone     string         `json:"phone,omitempty"`
	Address   string         `json:"address,omitempty"`
	MapURL    string         `json:"mapUrl,omitempty"`
	Features  map[string]any `json:"features"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Contact is the public subset of a tenant.
type Contact struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	MapURL  string `json:"mapUrl,omitempty"`
}

func (t *Tenant) Contact() Contact {
	return Contact{Name: t.Name, Email: t.Email, Phone: t.Phone, Address: t.Address, MapURL: t.MapURL}
}

// Repository persists tenants.
type Repository interface {
	CreateTenant(ctx context.Context, t *Tenant) error
	// RegisterTenant stores t and its first admin atomically.
	RegisterTenant(ctx context.Context, t *Tenant, admin *auth.User) error
	GetTenant(ctx context.Context, id int64) (*Tenant, error)
	GetTenantBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)
	ListTenants(ctx context.Context) ([]Tenant, error)
	UpdateTenant(ctx context.Context, t *Tenant) error
}

// RegisterInput is the public signup payload.
type RegisterInput struct {
	Name          string
	Subdomain     string
	Plan          Plan
	Email         string
	Phone         string
	Address       string
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// CreateInput is a SuperAdmin tenant creation.
type CreateInput struct {
	Name      string
	Subdomain string
	Plan      Plan
	Email     string
	Phone     string
	Address   string
	MapURL    string
}

// UpdateInput changes selected fields; nil leaves a field untouched.
type UpdateInput struct {
	Name     *string
	Plan     *Plan
	Active   *bool
	Email    *string
	Phone    *string
	Address  *string
	MapURL   *string
	Features map[string]any
}

func normalizeSubdomain(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validateBase(fe apperr.FieldErrors, name, subdomain string, plan Plan) {
	if strings.TrimSpace(name) == "" {
		fe.Add("name", "is required")
	}
	if !subdomainPattern.MatchString(subdomain) {
		fe.Add("subdomain", "must be lowercase letters, digits or hyphens")
	}
	if !plan.Valid() {
		fe.Add("plan", "must be monthly or commission")
	}
}
