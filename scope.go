package stockledger

import "context"

// Role is the caller's role within a store.
type Role string

// Roles recognized by the access layer.
const (
	RoleOwner Role = "owner"
	RoleStaff Role = "staff"
)

// Scope is the authenticated tenant identity of a request. The access layer
// establishes it before the engine is called.
type Scope struct {
	StoreID string
	UserID  string
	Role    Role
}

type scopeKey struct{}

// WithScope returns a context carrying s.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFromContext returns the scope stored by WithScope.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(Scope)
	return s, ok
}
