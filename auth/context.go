// Package auth provides request context helpers for authenticated principals.
package auth

import "context"

type ctxKey int

const principalKey ctxKey = iota

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID    string
	Email string
}

// WithPrincipal stores a principal in a context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal from a context.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}
