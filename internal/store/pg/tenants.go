package pg

import (
	"context"
	"database/sql"

	"salonhub.io/internal/auth"
	"salonhub.io/internal/tenant"
)

var tenantUnique = constraintErrors{
	"tenants_subdomain_key": tenant.ErrSubdomainTaken,
	"users_email_key":       auth.ErrEmailTaken,
}

const tenantColumns = `id, name, subdomain, plan, is_active, email, phone, address, map_url, features, created_at, updated_at`

func (s *Store) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	if s.db == nil {
		return errNoDB
	}
	return insertTenant(ctx, s.db, t)
}

func insertTenant(ctx context.Context, q querier, t *tenant.Tenant) error {
	features, err := marshalJSON(t.Features)
	if err != nil {
		return err
	}
	err = q.QueryRowContext(ctx, `
		insert into tenants (name, subdomain, plan, is_active, email, phone, address, map_url, features, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		returning id
	`, t.Name, t.Subdomain, string(t.Plan), t.Active, t.Email, t.Phone, t.Address, t.MapURL,
		features, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
	return mapErr(err, tenant.ErrTenantNotFound, tenantUnique)
}

// RegisterTenant inserts the tenant and its first admin in one transaction.
func (s *Store) RegisterTenant(ctx context.Context, t *tenant.Tenant, admin *auth.User) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertTenant(ctx, tx, t); err != nil {
			return err
		}
		id := t.ID
		admin.TenantID = &id
		return insertUser(ctx, tx, admin)
	})
}

func scanTenant(row interface{ Scan(...any) error }) (*tenant.Tenant, error) {
	var (
		t        tenant.Tenant
		plan     string
		features []byte
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Subdomain, &plan, &t.Active, &t.Email, &t.Phone,
		&t.Address, &t.MapURL, &features, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Plan = tenant.Plan(plan)
	f, err := unmarshalJSON(features)
	if err != nil {
		return nil, err
	}
	t.Features = f
	return &t, nil
}

func (s *Store) GetTenant(ctx context.Context, id int64) (*tenant.Tenant, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	t, err := scanTenant(s.db.QueryRowContext(ctx, `select `+tenantColumns+` from tenants where id = $1`, id))
	if err != nil {
		return nil, mapErr(err, tenant.ErrTenantNotFound, nil)
	}
	return t, nil
}

func (s *Store) GetTenantBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	t, err := scanTenant(s.db.QueryRowContext(ctx, `select `+tenantColumns+` from tenants where subdomain = $1`, subdomain))
	if err != nil {
		return nil, mapErr(err, tenant.ErrTenantNotFound, nil)
	}
	return t, nil
}

func (s *Store) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `select `+tenantColumns+` from tenants order by id`)
	if err != nil {
		return nil, mapErr(err, nil, nil)
	}
	defer rows.Close()

	out := []tenant.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, mapErr(rows.Err(), nil, nil)
}

func (s *Store) UpdateTenant(ctx context.Context, t *tenant.Tenant) error {
	if s.db == nil {
		return errNoDB
	}
	features, err := marshalJSON(t.Features)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		update tenants
		set name = $2, plan = $3, is_active = $4, email = $5, phone = $6,
		    address = $7, map_url = $8, features = $9, updated_at = $10
		where id = $1
	`, t.ID, t.Name, string(t.Plan), t.Active, t.Email, t.Phone, t.Address, t.MapURL, features, t.UpdatedAt)
	if err != nil {
		return mapErr(err, tenant.ErrTenantNotFound, tenantUnique)
	}
	return expectOne(res, tenant.ErrTenantNotFound)
}
