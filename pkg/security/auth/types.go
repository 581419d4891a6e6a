package auth

import (
	"context"
	"errors"
	"slices"
)

// Scopes accepted in key configuration.
const (
	ScopeExport = "export"
	ScopeAudit  = "audit"
)

var (
	// ErrMissingKey is returned when the request carries no API key.
	ErrMissingKey = errors.New("missing API key")

	// ErrInvalidKey is returned for unknown or disabled keys.
	ErrInvalidKey = errors.New("invalid API key")

	// ErrForbidden is returned when a valid key lacks the required scope.
	ErrForbidden = errors.New("API key not permitted for this endpoint")
)

// Principal is the authenticated caller.
type Principal struct {
	Name   string
	Scopes []string
}

// Allows reports whether the principal may use scope.
func (p *Principal) Allows(scope string) bool {
	return len(p.Scopes) == 0 || slices.Contains(p.Scopes, scope)
}

type contextKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFrom returns the principal stored by the middleware.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(*Principal)
	return p, ok
}
