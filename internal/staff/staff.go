// Package staff manages the employees of a tenant.
package staff

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salonhub.io/internal/apperr"
	"salonhub.io/internal/audit"
	"salonhub.io/internal/auth"
	"salonhub.io/internal/notify"
	"salonhub.io/internal/retail"
	"salonhub.io/internal/tenancy"
)

var ErrEmployeeNotFound = fmt.Errorf("%w: employee not found", apperr.ErrNotFound)

// smsContact matches E.164 style numbers the SMS gateway accepts.
var smsContact = regexp.MustCompile(`^\+\d{10,15}$`)

// Employee is a person working for a tenant, optionally linked to a login.
type Employee struct {
	ID             int64     `json:"id"`
	TenantID       int64     `json:"tenantId"`
	StoreID        *int64    `json:"storeId"`
	UserID         *int64    `json:"userId"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	Contact        string    `json:"contact,omitempty"`
	Position       string    `json:"position,omitempty"`
	CommissionRate *string   `json:"commissionRate"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Repository persists employees.
type Repository interface {
	CreateEmployee(ctx context.Context, e *Employee) error
	GetEmployee(ctx context.Context, id int64) (*Employee, error)
	// ListEmployees filters by tenant; nil lists every tenant.
	ListEmployees(ctx context.Context, tenantID *int64) ([]Employee, error)
	UpdateEmployee(ctx context.Context, e *Employee) error
	// EmployeeByUser finds the employee record linked to a login.
	EmployeeByUser(ctx context.Context, tenantID, userID int64) (*Employee, error)
}

// StoreLookup resolves stores for cross-tenant checks.
type StoreLookup interface {
	GetStore(ctx context.Context, id int64) (*retail.Store, error)
}

// Input is the create and update payload. On update nil fields are kept.
type Input struct {
	TenantID       *int64
	StoreID        *int64
	UserID         *int64
	Name           *string
	Email          *string
	Contact        *string
	Position       *string
	CommissionRate *string
}

type Service struct {
	repo    Repository
	stores  StoreLookup
	tenants auth.TenantChecker
	outbox  notify.Enqueuer
	audit   auth.Auditor
	now     func() time.Time
}

func NewService(repo Repository, stores StoreLookup, tenants auth.TenantChecker, outbox notify.Enqueuer, auditor auth.Auditor) *Service {
	return &Service{repo: repo, stores: stores, tenants: tenants, outbox: outbox, audit: auditor, now: time.Now}
}

// Create adds an employee to the caller's tenant (SuperAdmin picks one).
func (s *Service) Create(ctx context.Context, p auth.Principal, in Input) (*Employee, error) {
	tc, err := tenancy.Resolve(p, tenancy.Request{Requested: in.TenantID})
	if err != nil {
		return nil, err
	}
	if tc.All {
		return nil, apperr.FieldErrors{"tenantId": "is required"}
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperr.FieldErrors{"name": "is required"}
	}

	now := s.now().UTC()
	e := &Employee{TenantID: tc.TenantID, CreatedAt: now, UpdatedAt: now}
	if err := s.apply(ctx, e, in); err != nil {
		return nil, err
	}
	if err := s.tenants.EnsureActive(ctx, e.TenantID); err != nil {
		return nil, err
	}
	if err := s.repo.CreateEmployee(ctx, e); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionEmployeeCreated,
		ActorID:    &p.ID,
		TenantID:   &e.TenantID,
		TargetType: "employee",
		TargetID:   fmt.Sprint(e.ID),
	})
	s.welcome(ctx, e)
	return e, nil
}

// List returns the employees visible to p.
func (s *Service) List(ctx context.Context, p auth.Principal, requested *int64) ([]Employee, error) {
	tc, err := tenancy.Resolve(p, tenancy.Request{Requested: requested})
	if err != nil {
		return nil, err
	}
	return s.repo.ListEmployees(ctx, tc.Filter())
}

func (s *Service) Get(ctx context.Context, p auth.Principal, id int64) (*Employee, error) {
	e, err := s.repo.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tenancy.CheckScope(p, e.TenantID); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Update(ctx context.Context, p auth.Principal, id int64, in Input) (*Employee, error) {
	e, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.tenants.EnsureActive(ctx, e.TenantID); err != nil {
		return nil, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, apperr.FieldErrors{"name": "must not be empty"}
	}
	if err := s.apply(ctx, e, in); err != nil {
		return nil, err
	}
	e.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateEmployee(ctx, e); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionEmployeeUpdated,
		ActorID:    &p.ID,
		TenantID:   &e.TenantID,
		TargetType: "employee",
		TargetID:   fmt.Sprint(e.ID),
	})
	return e, nil
}

// CommissionRate returns the raw stored rate of the employee linked to
// userID, and whether one is set.
func (s *Service) CommissionRate(ctx context.Context, tenantID, userID int64) (string, bool, error) {
	e, err := s.repo.EmployeeByUser(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if e.CommissionRate == nil || strings.TrimSpace(*e.CommissionRate) == "" {
		return "", false, nil
	}
	return *e.CommissionRate, true, nil
}

func (s *Service) apply(ctx context.Context, e *Employee, in Input) error {
	fe := apperr.FieldErrors{}
	if in.Name != nil {
		e.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email != "" {
			if _, err := mail.ParseAddress(email); err != nil {
				fe.Add("email", "must be a valid email")
			}
		}
		e.Email = email
	}
	if in.Contact != nil {
		e.Contact = strings.TrimSpace(*in.Contact)
	}
	if in.Position != nil {
		e.Position = strings.TrimSpace(*in.Position)
	}
	if in.UserID != nil {
		e.UserID = in.UserID
	}
	if in.CommissionRate != nil {
		raw := strings.TrimSpace(*in.CommissionRate)
		if raw == "" {
			e.CommissionRate = nil
		} else if rate, err := decimal.NewFromString(raw); err != nil || rate.LessThanOrEqual(decimal.Zero) || rate.GreaterThan(decimal.NewFromInt(1)) {
			fe.Add("commissionRate", "must be a number in (0, 1]")
		} else {
			e.CommissionRate = &raw
		}
	}
	if err := fe.OrNil(); err != nil {
		return err
	}
	if in.StoreID != nil {
		store, err := s.stores.GetStore(ctx, *in.StoreID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.FieldErrors{"storeId": "store not found"}
			}
			return err
		}
		if store.TenantID != e.TenantID {
			return apperr.FieldErrors{"storeId": "store belongs to another tenant"}
		}
		e.StoreID = in.StoreID
	}
	return nil
}

func (s *Service) welcome(ctx context.Context, e *Employee) {
	payload := map[string]any{
		"name":     e.Name,
		"position": e.Position,
	}
	if e.Position == "" {
		payload["position"] = "a team member"
	}
	if e.Email != "" {
		s.outbox.Enqueue(ctx, notify.Intent{
			Channel:   notify.ChannelEmail,
			Recipient: e.Email,
			Template:  notify.TemplateEmployeeWelcome,
			Payload:   payload,
			TenantID:  &e.TenantID,
		})
	}
	if smsContact.MatchString(e.Contact) {
		s.outbox.Enqueue(ctx, notify.Intent{
			Channel:   notify.ChannelSMS,
			Recipient: e.Contact,
			Template:  notify.TemplateEmployeeWelcome,
			Payload:   payload,
			TenantID:  &e.TenantID,
		})
	}
}
