// Package audit keeps the append-only record of security relevant actions.
package audit

import (
	"context"
	"strings"
	"time"
)

// Actions written by the services.
const (
	ActionLoginSuccess        = "login_success"
	ActionLoginFailed         = "login_failed"
	ActionUserCreated         = "user_created"
	ActionSecondFactorEnabled = "second_factor_enabled"
	ActionTenantRegistered    = "tenant_registered"
	ActionTenantCreated       = "tenant_created"
	ActionTenantUpdated       = "tenant_updated"
	ActionTenantDeactivated   = "tenant_deactivated"
	ActionEmployeeCreated     = "employee_created"
	ActionEmployeeUpdated     = "employee_updated"
	ActionSaleRecorded        = "sale_recorded"
	ActionSaleApproved        = "sale_approved"
	ActionSaleRejected        = "sale_rejected"
)

// MaxListLimit caps a single List page.
const MaxListLimit = 200

// Entry is one audit record. Entries are never updated or deleted.
type Entry struct {
	ID         int64          `json:"id"`
	Action     string         `json:"action"`
	ActorID    *int64         `json:"userId"`
	TenantID   *int64         `json:"tenantId"`
	TargetType string         `json:"targetType,omitempty"`
	TargetID   string         `json:"targetId,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	IP         string         `json:"ip,omitempty"`
	RequestID  string         `json:"requestId,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Filter narrows List. A nil TenantID means every tenant.
type Filter struct {
	TenantID *int64
	Action   string
	ActorID  *int64
	From     time.Time
	To       time.Time
	Limit    int
}

// Normalize clamps the limit into (0, MaxListLimit].
func (f Filter) Normalize() Filter {
	f.Action = strings.TrimSpace(f.Action)
	if f.Limit <= 0 || f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	return f
}

// Store persists entries.
type Store interface {
	AppendAudit(ctx context.Context, e *Entry) error
	ListAudit(ctx context.Context, f Filter) ([]Entry, error)
}

type metaKey struct{}

// Meta is request metadata copied onto entries.
type Meta struct {
	RequestID string
	IP        string
}

// WithMeta attaches request metadata to the context for audit logging.
func WithMeta(ctx context.Context, m Meta) context.Context {
	m.RequestID = strings.TrimSpace(m.RequestID)
	m.IP = strings.TrimSpace(m.IP)
	if m == (Meta{}) {
		return ctx
	}
	return context.WithValue(ctx, metaKey{}, m)
}

// MetaFromContext extracts request metadata if present.
func MetaFromContext(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	m, _ := ctx.Value(metaKey{}).(Meta)
	return m
}
