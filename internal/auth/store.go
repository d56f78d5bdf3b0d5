package auth

import "context"

// UserStore describes persistence operations required by the auth subsystem.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	SetTwoFactorSecret(ctx context.Context, userID int64, secret string) error
	EnableTwoFactor(ctx context.Context, userID int64) error
}

// TenantChecker confirms a tenant exists and accepts writes.
type TenantChecker interface {
	EnsureActive(ctx context.Context, tenantID int64) error
}
