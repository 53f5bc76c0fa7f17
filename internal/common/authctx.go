package common

import "context"

// RoleAdmin is the claim value granting access to catalog administration.
const RoleAdmin = "admin"

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID string
	Role   string
}

type principalKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller attached to ctx. ok is false for
// anonymous requests.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != ""
}

// WithUserID sets the caller's user id, keeping any role already attached.
func WithUserID(ctx context.Context, id string) context.Context {
	p, _ := ctx.Value(principalKey{}).(Principal)
	p.UserID = id
	return WithPrincipal(ctx, p)
}

// WithRole sets the caller's role claim.
func WithRole(ctx context.Context, role string) context.Context {
	p, _ := ctx.Value(principalKey{}).(Principal)
	p.Role = role
	return WithPrincipal(ctx, p)
}

// UserID returns the authenticated user id.
func UserID(ctx context.Context) (string, bool) {
	p, ok := PrincipalFrom(ctx)
	return p.UserID, ok
}

// Role returns the caller's role claim, empty when absent.
func Role(ctx context.Context) string {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p.Role
}
