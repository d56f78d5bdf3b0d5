package pg

import (
	"context"
	"database/sql"

	"salonhub.io/internal/auth"
)

var userUnique = constraintErrors{"users_email_key": auth.ErrEmailTaken}

const userColumns = `id, username, email, password_hash, role, tenant_id, two_factor_secret, two_factor_enabled, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u *auth.User) error {
	if s.db == nil {
		return errNoDB
	}
	return insertUser(ctx, s.db, u)
}

func insertUser(ctx context.Context, q querier, u *auth.User) error {
	err := q.QueryRowContext(ctx, `
		insert into users (username, email, password_hash, role, tenant_id, two_factor_secret, two_factor_enabled, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		returning id
	`, u.Username, u.Email, u.PasswordHash, u.Role.String(), nullInt(u.TenantID),
		u.TwoFactorSecret, u.TwoFactorEnabled, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	return mapErr(err, auth.ErrNotFound, userUnique)
}

func scanUser(row interface{ Scan(...any) error }) (*auth.User, error) {
	var (
		u      auth.User
		role   string
		tenant sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &tenant,
		&u.TwoFactorSecret, &u.TwoFactorEnabled, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	r, err := auth.ParseRole(role)
	if err != nil {
		return nil, err
	}
	u.Role = r
	u.TenantID = intPtr(tenant)
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*auth.User, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	u, err := scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, id))
	if err != nil {
		return nil, mapErr(err, auth.ErrNotFound, nil)
	}
	return u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	u, err := scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where lower(email) = lower($1)`, email))
	if err != nil {
		return nil, mapErr(err, auth.ErrNotFound, nil)
	}
	return u, nil
}

// SetTwoFactorSecret stores a new secret and disables 2FA until confirmed.
func (s *Store) SetTwoFactorSecret(ctx context.Context, userID int64, secret string) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `
		update users set two_factor_secret = $2, two_factor_enabled = false, updated_at = now()
		where id = $1
	`, userID, secret)
	if err != nil {
		return mapErr(err, auth.ErrNotFound, nil)
	}
	return expectOne(res, auth.ErrNotFound)
}

func (s *Store) EnableTwoFactor(ctx context.Context, userID int64) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `
		update users set two_factor_enabled = true, updated_at = now()
		where id = $1 and two_factor_secret <> ''
	`, userID)
	if err != nil {
		return mapErr(err, auth.ErrNotFound, nil)
	}
	return expectOne(res, auth.ErrNotFound)
}
