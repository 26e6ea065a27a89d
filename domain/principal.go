package domain

import "context"

// Principal is the authenticated identity attached to a request context after
// the authentication gate accepts a token. Roles are resolved from the
// identity store at request time, not taken from the token.
type Principal struct {
	Subject string
	Roles   []string
}

// HasRole reports whether the principal carries the given role.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type principalContextKey struct{}

// ContextWithPrincipal returns a child context carrying the principal. The
// principal rides the request's own context, never ambient state.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext retrieves the principal attached by the authentication
// gate, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*Principal)
	return p, ok
}
