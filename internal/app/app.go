// Package app assembles the domain services on top of a storage backend.
package app

import (
	"context"
	"time"

	"salonhub.io/internal/audit"
	"salonhub.io/internal/auth"
	"salonhub.io/internal/notify"
	"salonhub.io/internal/retail"
	"salonhub.io/internal/sales"
	"salonhub.io/internal/staff"
	"salonhub.io/internal/stream"
	"salonhub.io/internal/tenant"
)

// Backend is implemented by store/pg and store/memory.
type Backend interface {
	auth.UserStore
	tenant.Repository
	staff.Repository
	retail.Repository
	sales.Repository
	audit.Store
	notify.Queue
	Ping(ctx context.Context) error
}

// Options configures token issuance.
type Options struct {
	JWTSecret   string
	TokenTTL    time.Duration
	TokenIssuer string
	TOTPIssuer  string
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Services is the wired object graph.
type Services struct {
	Auth    *auth.Service
	Tenants *tenant.Service
	Staff   *staff.Service
	Retail  *retail.Service
	Sales   *sales.Service
	Audit   *audit.Recorder
	Outbox  *notify.Outbox
	Events  *stream.Hub
}

func Wire(b Backend, opts Options) (*Services, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	tokenOpts := []auth.TokenOption{auth.WithTokenClock(now)}
	if opts.TokenTTL > 0 {
		tokenOpts = append(tokenOpts, auth.WithTokenTTL(opts.TokenTTL))
	}
	if opts.TokenIssuer != "" {
		tokenOpts = append(tokenOpts, auth.WithTokenIssuer(opts.TokenIssuer))
	}
	tokens, err := auth.NewTokenService(opts.JWTSecret, tokenOpts...)
	if err != nil {
		return nil, err
	}
	issuer := opts.TOTPIssuer
	if issuer == "" {
		issuer = auth.DefaultIssuer
	}

	recorder := audit.NewRecorder(b)
	outbox := notify.NewOutbox(b)
	tenants := tenant.NewService(b, outbox, recorder)
	employees := staff.NewService(b, b, tenants, outbox, recorder)
	events := stream.New()

	return &Services{
		Auth: auth.NewService(b, tenants, tokens,
			auth.WithClock(now),
			auth.WithTOTP(auth.NewTOTP(issuer, now)),
			auth.WithAuditor(recorder),
		),
		Tenants: tenants,
		Staff:   employees,
		Retail:  retail.NewService(b, tenants),
		Sales: sales.NewService(sales.Deps{
			Repo:    b,
			Catalog: b,
			Rates:   employees,
			Users:   b,
			Tenants: tenants,
			Outbox:  outbox,
			Audit:   recorder,
			Events:  events,
		}),
		Audit:  recorder,
		Outbox: outbox,
		Events: events,
	}, nil
}
