package auth

import "context"

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p. The tenant pointer is
// copied so later handlers cannot rewrite the caller's affiliation.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if p.TenantID != nil {
		tenant := *p.TenantID
		p.TenantID = &tenant
	}
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom reports the principal set by the authentication middleware.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
