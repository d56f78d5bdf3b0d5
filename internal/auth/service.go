package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"salonhub.io/internal/apperr"
	"salonhub.io/internal/audit"
	"salonhub.io/internal/obs"
)

const minPasswordLength = 8

// Auditor records security events. audit.Recorder satisfies it.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

// Service authenticates principals and manages accounts.
type Service struct {
	users   UserStore
	tenants TenantChecker
	tokens  *TokenService
	totp    *TOTP
	audit   Auditor
	now     func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithTOTP replaces the second factor verifier.
func WithTOTP(t *TOTP) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.totp = t
		}
	}
}

// WithAuditor sets the audit sink. Without one events are dropped.
func WithAuditor(a Auditor) ServiceOption {
	return func(s *Service) { s.audit = a }
}

func NewService(users UserStore, tenants TenantChecker, tokens *TokenService, opts ...ServiceOption) *Service {
	svc := &Service{
		users:   users,
		tenants: tenants,
		tokens:  tokens,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.totp == nil {
		svc.totp = NewTOTP(DefaultIssuer, svc.now)
	}
	return svc
}

// Authenticate checks credentials and, when enabled, the second factor.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password, code string) (Session, error) {
	email = normalizeEmail(email)
	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return Session{}, fmt.Errorf("%w: find user: %v", apperr.ErrDependency, err)
		}
		burnPasswordCheck(password)
		s.loginFailed(ctx, nil, email, "User not found")
		return Session{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		s.loginFailed(ctx, user, email, "Password mismatch")
		return Session{}, ErrInvalidCredentials
	}
	if user.TwoFactorEnabled {
		code = strings.TrimSpace(code)
		if code == "" {
			s.loginFailed(ctx, user, email, "2FA required")
			return Session{}, ErrSecondFactorRequired
		}
		if !s.totp.Validate(code, user.TwoFactorSecret) {
			s.loginFailed(ctx, user, email, "Invalid 2FA token")
			return Session{}, ErrInvalidSecondFactor
		}
	}

	principal := user.Principal()
	token, expires, err := s.tokens.Issue(principal)
	if err != nil {
		return Session{}, err
	}
	obs.RecordAuthAttempt("success")
	s.record(ctx, audit.Entry{
		Action:     audit.ActionLoginSuccess,
		ActorID:    &user.ID,
		TenantID:   user.TenantID,
		TargetType: "user",
		TargetID:   fmt.Sprint(user.ID),
		Details:    map[string]any{"email": email},
	})
	return Session{Token: token, ExpiresAt: expires, Principal: principal}, nil
}

// Validate verifies a session token without touching the store.
func (s *Service) Validate(token string) (Principal, error) {
	return s.tokens.Validate(token)
}

// Register creates a user. A nil actor is public self-signup and may only
// create customers.
func (s *Service) Register(ctx context.Context, actor *Principal, in RegisterInput) (*User, error) {
	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	fe := apperr.FieldErrors{}
	if in.Username == "" {
		fe.Add("username", "is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil || in.Email == "" {
		fe.Add("email", "must be a valid email")
	}
	if len(in.Password) < minPasswordLength {
		fe.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if !in.Role.Valid() {
		fe.Add("role", "is invalid")
	}
	if err := fe.OrNil(); err != nil {
		return nil, err
	}

	switch {
	case actor == nil:
		if in.Role != RoleCustomer {
			return nil, fmt.Errorf("%w: self-signup may only create customers", apperr.ErrForbidden)
		}
	case !CanAssign(actor.Role, in.Role):
		return nil, fmt.Errorf("%w: %s may not create %s users", apperr.ErrForbidden, actor.Role, in.Role)
	case !actor.IsSuperAdmin():
		// Tenant administrators create users inside their own tenant only.
		own, ok := actor.Tenant()
		if !ok {
			return nil, fmt.Errorf("%w: tenant access required", apperr.ErrForbidden)
		}
		if in.TenantID != nil && *in.TenantID != own {
			return nil, fmt.Errorf("%w: cross-tenant access denied", apperr.ErrForbidden)
		}
		in.TenantID = &own
	}

	if in.Role == RoleSuperAdmin {
		in.TenantID = nil
	} else {
		if in.TenantID == nil {
			return nil, apperr.FieldErrors{"tenantId": "is required for this role"}
		}
		if err := s.tenants.EnsureActive(ctx, *in.TenantID); err != nil {
			return nil, err
		}
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	user := &User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		TenantID:     in.TenantID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	entry := audit.Entry{
		Action:     audit.ActionUserCreated,
		TenantID:   user.TenantID,
		TargetType: "user",
		TargetID:   fmt.Sprint(user.ID),
		Details:    map[string]any{"role": user.Role.String()},
	}
	if actor != nil {
		entry.ActorID = &actor.ID
	}
	s.record(ctx, entry)
	return user, nil
}

// EnrollSecondFactor stores a fresh secret for p. The factor stays disabled
// until ConfirmSecondFactor sees a valid code.
func (s *Service) EnrollSecondFactor(ctx context.Context, p Principal) (Enrollment, error) {
	user, err := s.users.GetUser(ctx, p.ID)
	if err != nil {
		return Enrollment{}, err
	}
	enr, err := s.totp.Generate(user.Email)
	if err != nil {
		return Enrollment{}, err
	}
	if err := s.users.SetTwoFactorSecret(ctx, user.ID, enr.Secret); err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}

// ConfirmSecondFactor enables the second factor after checking code.
func (s *Service) ConfirmSecondFactor(ctx context.Context, p Principal, code string) error {
	user, err := s.users.GetUser(ctx, p.ID)
	if err != nil {
		return err
	}
	if user.TwoFactorSecret == "" {
		return fmt.Errorf("%w: second factor not enrolled", apperr.ErrInvalidState)
	}
	if !s.totp.Validate(code, user.TwoFactorSecret) {
		return ErrInvalidSecondFactor
	}
	if err := s.users.EnableTwoFactor(ctx, user.ID); err != nil {
		return err
	}
	s.record(ctx, audit.Entry{
		Action:     audit.ActionSecondFactorEnabled,
		ActorID:    &user.ID,
		TenantID:   user.TenantID,
		TargetType: "user",
		TargetID:   fmt.Sprint(user.ID),
	})
	return nil
}

// EnsureSuperAdmin creates the platform operator account on first start.
// An existing account with that email is left untouched.
func (s *Service) EnsureSuperAdmin(ctx context.Context, email, password string) (*User, bool, error) {
	email = normalizeEmail(email)
	existing, err := s.users.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, false, err
	}
	if len(password) < minPasswordLength {
		return nil, false, apperr.FieldErrors{"password": fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	user := &User{
		Username:     "superadmin",
		Email:        email,
		PasswordHash: hash,
		Role:         RoleSuperAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, false, err
	}
	s.record(ctx, audit.Entry{
		Action:     audit.ActionUserCreated,
		TargetType: "user",
		TargetID:   fmt.Sprint(user.ID),
		Details:    map[string]any{"role": user.Role.String(), "bootstrap": true},
	})
	return user, true, nil
}

// Me loads the account behind p.
func (s *Service) Me(ctx context.Context, p Principal) (*User, error) {
	return s.users.GetUser(ctx, p.ID)
}

func (s *Service) loginFailed(ctx context.Context, user *User, email, reason string) {
	obs.RecordAuthAttempt("failure")
	entry := audit.Entry{
		Action:  audit.ActionLoginFailed,
		Details: map[string]any{"email": email, "reason": reason},
	}
	if user != nil {
		entry.ActorID = &user.ID
		entry.TenantID = user.TenantID
		entry.TargetType = "user"
		entry.TargetID = fmt.Sprint(user.ID)
	}
	s.record(ctx, entry)
}

func (s *Service) record(ctx context.Context, e audit.Entry) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, e)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
