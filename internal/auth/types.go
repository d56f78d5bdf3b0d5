package auth

import "time"

// Principal is the authenticated actor derived from a session token.
type Principal struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	TenantID *int64 `json:"tenantId"`
}

// Tenant returns the tenant affiliation, if any.
func (p Principal) Tenant() (int64, bool) {
	if p.TenantID == nil {
		return 0, false
	}
	return *p.TenantID, true
}

func (p Principal) IsSuperAdmin() bool { return p.Role == RoleSuperAdmin }

// User is a persisted account.
type User struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	Role             Role      `json:"role"`
	TenantID         *int64    `json:"tenantId"`
	TwoFactorSecret  string    `json:"-"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (u User) Principal() Principal {
	return Principal{ID: u.ID, Email: u.Email, Role: u.Role, TenantID: u.TenantID}
}

// Session is the result of a successful authentication.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Principal Principal `json:"user"`
}

// Enrollment carries a freshly generated second-factor secret.
type Enrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauthUrl"`
}

// RegisterInput describes a user to create.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     Role
	TenantID *int64
}
