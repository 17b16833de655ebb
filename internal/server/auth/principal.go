package auth

import "context"

// Principal is the authenticated identity for a single request.
type Principal struct {
	ID       int64
	Username string
	Email    string
}

type ctxKey struct{}

// WithPrincipal returns a child context carrying p. The principal is
// stored by value so downstream handlers cannot mutate what others see.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFromContext returns the principal attached by the request
// authenticator, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
