package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"salonhub.io/internal/apperr"
	"salonhub.io/internal/audit"
	"salonhub.io/internal/auth"
	"salonhub.io/internal/notify"
	"salonhub.io/internal/tenancy"
)

const minAdminPassword = 8

// Service implements tenant lifecycle operations.
type Service struct {
	repo   Repository
	outbox notify.Enqueuer
	audit  auth.Auditor
	now    func() time.Time
}

func NewService(repo Repository, outbox notify.Enqueuer, auditor auth.Auditor) *Service {
	return &Service{repo: repo, outbox: outbox, audit: auditor, now: time.Now}
}

// Register is the public signup: a new active tenant and its Admin.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Tenant, *auth.User, error) {
	in.Subdomain = normalizeSubdomain(in.Subdomain)
	in.AdminEmail = strings.ToLower(strings.TrimSpace(in.AdminEmail))
	in.AdminUsername = strings.TrimSpace(in.AdminUsername)

	fe := apperr.FieldErrors{}
	validateBase(fe, in.Name, in.Subdomain, in.Plan)
	if in.AdminUsername == "" {
		fe.Add("adminUsername", "is required")
	}
	if _, err := mail.ParseAddress(in.AdminEmail); err != nil {
		fe.Add("adminEmail", "must be a valid email")
	}
	if len(in.AdminPassword) < minAdminPassword {
		fe.Add("adminPassword", fmt.Sprintf("must be at least %d characters", minAdminPassword))
	}
	if err := fe.OrNil(); err != nil {
		return nil, nil, err
	}

	hash, err := auth.HashPassword(in.AdminPassword)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	t := &Tenant{
		Name:      strings.TrimSpace(in.Name),
		Subdomain: in.Subdomain,
		Plan:      in.Plan,
		Active:    true,
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Address:   strings.TrimSpace(in.Address),
		Features:  map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	admin := &auth.User{
		Username:     in.AdminUsername,
		Email:        in.AdminEmail,
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.RegisterTenant(ctx, t, admin); err != nil {
		return nil, nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionTenantRegistered,
		ActorID:    &admin.ID,
		TenantID:   &t.ID,
		TargetType: "tenant",
		TargetID:   fmt.Sprint(t.ID),
		Details:    map[string]any{"subdomain": t.Subdomain, "plan": string(t.Plan)},
	})
	s.outbox.Enqueue(ctx, notify.Intent{
		Channel:   notify.ChannelEmail,
		Recipient: admin.Email,
		Template:  notify.TemplateTenantWelcome,
		TenantID:  &t.ID,
		Payload: map[string]any{
			"name":      admin.Username,
			"tenant":    t.Name,
			"subdomain": t.Subdomain,
			"email":     admin.Email,
		},
	})
	return t, admin, nil
}

// Create adds a tenant without an admin.
func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*Tenant, error) {
	in.Subdomain = normalizeSubdomain(in.Subdomain)
	fe := apperr.FieldErrors{}
	validateBase(fe, in.Name, in.Subdomain, in.Plan)
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			fe.Add("email", "must be a valid email")
		}
	}
	if err := fe.OrNil(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	t := &Tenant{
		Name:      strings.TrimSpace(in.Name),
		Subdomain: in.Subdomain,
		Plan:      in.Plan,
		Active:    true,
		Email:     in.Email,
		Phone:     in.Phone,
		Address:   in.Address,
		MapURL:    in.MapURL,
		Features:  map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateTenant(ctx, t); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionTenantCreated,
		ActorID:    &p.ID,
		TenantID:   &t.ID,
		TargetType: "tenant",
		TargetID:   fmt.Sprint(t.ID),
	})
	return t, nil
}

func (s *Service) List(ctx context.Context) ([]Tenant, error) {
	return s.repo.ListTenants(ctx)
}

// Get fetches a tenant and then checks the caller may see it.
func (s *Service) Get(ctx context.Context, p auth.Principal, id int64) (*Tenant, error) {
	t, err := s.repo.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tenancy.CheckScope(p, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

// Current returns the caller's own tenant.
func (s *Service) Current(ctx context.Context, p auth.Principal) (*Tenant, error) {
	id, ok := p.Tenant()
	if !ok {
		return nil, ErrNoTenantContext
	}
	return s.repo.GetTenant(ctx, id)
}

// UpdateCurrent lets a tenant's Admin or Manager edit its contact details
// and features. Plan and active flag stay with the SuperAdmin.
func (s *Service) UpdateCurrent(ctx context.Context, p auth.Principal, in UpdateInput) (*Tenant, error) {
	id, ok := p.Tenant()
	if !ok {
		return nil, ErrNoTenantContext
	}
	in.Plan = nil
	in.Active = nil
	return s.update(ctx, p, id, in)
}

// Update edits any tenant field.
func (s *Service) Update(ctx context.Context, p auth.Principal, id int64, in UpdateInput) (*Tenant, error) {
	return s.update(ctx, p, id, in)
}

// SetFeatures replaces the feature flags of tenant id.
func (s *Service) SetFeatures(ctx context.Context, p auth.Principal, id int64, features map[string]any) (*Tenant, error) {
	if features == nil {
		return nil, apperr.FieldErrors{"features": "is required"}
	}
	return s.update(ctx, p, id, UpdateInput{Features: features})
}

// Deactivate soft-deletes a tenant. Tenants are never removed.
func (s *Service) Deactivate(ctx context.Context, p auth.Principal, id int64) (*Tenant, error) {
	inactive := false
	t, err := s.update(ctx, p, id, UpdateInput{Active: &inactive})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionTenantDeactivated,
		ActorID:    &p.ID,
		TenantID:   &t.ID,
		TargetType: "tenant",
		TargetID:   fmt.Sprint(t.ID),
	})
	return t, nil
}

// PublicContact looks up an active tenant by subdomain or id.
func (s *Service) PublicContact(ctx context.Context, subdomain string, id int64) (Contact, error) {
	var (
		t   *Tenant
		err error
	)
	switch {
	case strings.TrimSpace(subdomain) != "":
		t, err = s.repo.GetTenantBySubdomain(ctx, normalizeSubdomain(subdomain))
	case id > 0:
		t, err = s.repo.GetTenant(ctx, id)
	default:
		return Contact{}, fmt.Errorf("%w: subdomain or tenantId required", apperr.ErrValidation)
	}
	if err != nil {
		return Contact{}, err
	}
	if !t.Active {
		return Contact{}, ErrTenantNotFound
	}
	return t.Contact(), nil
}

// EnsureActive fails unless tenant id exists and is active. Every write to
// tenant-owned data goes through it.
func (s *Service) EnsureActive(ctx context.Context, id int64) error {
	t, err := s.repo.GetTenant(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return ErrTenantNotFound
		}
		return err
	}
	if !t.Active {
		return ErrTenantInactive
	}
	return nil
}

func (s *Service) update(ctx context.Context, p auth.Principal, id int64, in UpdateInput) (*Tenant, error) {
	t, err := s.repo.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tenancy.CheckScope(p, t.ID); err != nil {
		return nil, err
	}

	fe := apperr.FieldErrors{}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			fe.Add("name", "must not be empty")
		}
		t.Name = strings.TrimSpace(*in.Name)
	}
	if in.Plan != nil {
		if !in.Plan.Valid() {
			fe.Add("plan", "must be monthly or commission")
		}
		t.Plan = *in.Plan
	}
	if in.Email != nil {
		if *in.Email != "" {
			if _, err := mail.ParseAddress(*in.Email); err != nil {
				fe.Add("email", "must be a valid email")
			}
		}
		t.Email = *in.Email
	}
	if err := fe.OrNil(); err != nil {
		return nil, err
	}
	if in.Active != nil {
		t.Active = *in.Active
	}
	if in.Phone != nil {
		t.Phone = *in.Phone
	}
	if in.Address != nil {
		t.Address = *in.Address
	}
	if in.MapURL != nil {
		t.MapURL = *in.MapURL
	}
	if in.Features != nil {
		t.Features = in.Features
	}
	t.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateTenant(ctx, t); err != nil {
		return nil, err
	}
	if in.Active == nil || *in.Active {
		s.audit.Record(ctx, audit.Entry{
			Action:     audit.ActionTenantUpdated,
			ActorID:    &p.ID,
			TenantID:   &t.ID,
			TargetType: "tenant",
			TargetID:   fmt.Sprint(t.ID),
		})
	}
	return t, nil
}
