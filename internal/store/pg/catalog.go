package pg

import (
	"context"
	"database/sql"

	"salonhub.io/internal/retail"
	"salonhub.io/internal/staff"
)

var productUnique = constraintErrors{"products_tenant_sku_key": retail.ErrSKUTaken}

// --- employees ---

const employeeColumns = `id, tenant_id, store_id, user_id, name, email, contact, position, commission_rate, created_at, updated_at`

func scanEmployee(row interface{ Scan(...any) error }) (*staff.Employee, error) {
	var (
		e             staff.Employee
		store, user   sql.NullInt64
		commissionRaw sql.NullString
	)
	if err := row.Scan(&e.ID, &e.TenantID, &store, &user, &e.Name, &e.Email, &e.Contact,
		&e.Position, &commissionRaw, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.StoreID = intPtr(store)
	e.UserID = intPtr(user)
	e.CommissionRate = stringPtr(commissionRaw)
	return &e, nil
}

func (s *Store) CreateEmployee(ctx context.Context, e *staff.Employee) error {
	if s.db == nil {
		return errNoDB
	}
	err := s.db.QueryRowContext(ctx, `
		insert into employees (tenant_id, store_id, user_id, name, email, contact, position, commission_rate, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		returning id
	`, e.TenantID, nullInt(e.StoreID), nullInt(e.UserID), e.Name, e.Email, e.Contact, e.Position,
		nullString(e.CommissionRate), e.CreatedAt, e.UpdatedAt).Scan(&e.ID)
	return mapErr(err, staff.ErrEmployeeNotFound, nil)
}

func (s *Store) GetEmployee(ctx context.Context, id int64) (*staff.Employee, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	e, err := scanEmployee(s.db.QueryRowContext(ctx, `select `+employeeColumns+` from employees where id = $1`, id))
	if err != nil {
		return nil, mapErr(err, staff.ErrEmployeeNotFound, nil)
	}
	return e, nil
}

func (s *Store) EmployeeByUser(ctx context.Context, tenantID, userID int64) (*staff.Employee, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	e, err := scanEmployee(s.db.QueryRowContext(ctx,
		`select `+employeeColumns+` from employees where tenant_id = $1 and user_id = $2`, tenantID, userID))
	if err != nil {
		return nil, mapErr(err, staff.ErrEmployeeNotFound, nil)
	}
	return e, nil
}

func (s *Store) ListEmployees(ctx context.Context, tenantID *int64) ([]staff.Employee, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+employeeColumns+` from employees
		where ($1::bigint is null or tenant_id = $1)
		order by id
	`, nullInt(tenantID))
	if err != nil {
		return nil, mapErr(err, nil, nil)
	}
	defer rows.Close()
	out := []staff.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, mapErr(rows.Err(), nil, nil)
}

func (s *Store) UpdateEmployee(ctx context.Context, e *staff.Employee) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `
		update employees
		set store_id = $2, user_id = $3, name = $4, email = $5, contact = $6,
		    position = $7, commission_rate = $8, updated_at = $9
		where id = $1
	`, e.ID, nullInt(e.StoreID), nullInt(e.UserID), e.Name, e.Email, e.Contact, e.Position,
		nullString(e.CommissionRate), e.UpdatedAt)
	if err != nil {
		return mapErr(err, staff.ErrEmployeeNotFound, nil)
	}
	return expectOne(res, staff.ErrEmployeeNotFound)
}

// --- stores ---

const storeColumns = `id, tenant_id, name, location, notes, created_at, updated_at`

func scanStore(row interface{ Scan(...any) error }) (*retail.Store, error) {
	var st retail.Store
	if err := row.Scan(&st.ID, &st.TenantID, &st.Name, &st.Location, &st.Notes, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) CreateStore(ctx context.Context, st *retail.Store) error {
	if s.db == nil {
		return errNoDB
	}
	err := s.db.QueryRowContext(ctx, `
		insert into stores (tenant_id, name, location, notes, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6)
		returning id
	`, st.TenantID, st.Name, st.Location, st.Notes, st.CreatedAt, st.UpdatedAt).Scan(&st.ID)
	return mapErr(err, retail.ErrStoreNotFound, nil)
}

func (s *Store) GetStore(ctx context.Context, id int64) (*retail.Store, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	st, err := scanStore(s.db.QueryRowContext(ctx, `select `+storeColumns+` from stores where id = $1`, id))
	if err != nil {
		return nil, mapErr(err, retail.ErrStoreNotFound, nil)
	}
	return st, nil
}

func (s *Store) ListStores(ctx context.Context, tenantID *int64) ([]retail.Store, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+storeColumns+` from stores
		where ($1::bigint is null or tenant_id = $1)
		order by id
	`, nullInt(tenantID))
	if err != nil {
		return nil, mapErr(err, nil, nil)
	}
	defer rows.Close()
	out := []retail.Store{}
	for rows.Next() {
		st, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, mapErr(rows.Err(), nil, nil)
}

func (s *Store) UpdateStore(ctx context.Context, st *retail.Store) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `
		update stores set name = $2, location = $3, notes = $4, updated_at = $5
		where id = $1
	`, st.ID, st.Name, st.Location, st.Notes, st.UpdatedAt)
	if err != nil {
		return mapErr(err, retail.ErrStoreNotFound, nil)
	}
	return expectOne(res, retail.ErrStoreNotFound)
}

// --- products ---

const productColumns = `id, tenant_id, name, category, sku, price, stock, description, is_active, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*retail.Product, error) {
	var p retail.Product
	if err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Category, &p.SKU, &p.Price, &p.Stock,
		&p.Description, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *retail.Product) error {
	if s.db == nil {
		return errNoDB
	}
	err := s.db.QueryRowContext(ctx, `
		insert into products (tenant_id, name, category, sku, price, stock, description, is_active, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		returning id
	`, p.TenantID, p.Name, p.Category, p.SKU, p.Price, p.Stock, p.Description, p.Active,
		p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	return mapErr(err, retail.ErrProductNotFound, productUnique)
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*retail.Product, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	p, err := scanProduct(s.db.QueryRowContext(ctx, `select `+productColumns+` from products where id = $1`, id))
	if err != nil {
		return nil, mapErr(err, retail.ErrProductNotFound, nil)
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, tenantID *int64) ([]retail.Product, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+productColumns+` from products
		where ($1::bigint is null or tenant_id = $1)
		order by id
	`, nullInt(tenantID))
	if err != nil {
		return nil, mapErr(err, nil, nil)
	}
	defer rows.Close()
	out := []retail.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, mapErr(rows.Err(), nil, nil)
}

func (s *Store) UpdateProduct(ctx context.Context, p *retail.Product) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `
		update products
		set name = $2, category = $3, sku = $4, price = $5, stock = $6,
		    description = $7, is_active = $8, updated_at = $9
		where id = $1
	`, p.ID, p.Name, p.Category, p.SKU, p.Price, p.Stock, p.Description, p.Active, p.UpdatedAt)
	if err != nil {
		return mapErr(err, retail.ErrProductNotFound, productUnique)
	}
	return expectOne(res, retail.ErrProductNotFound)
}
