package shared

import "context"

// Identity names the organization and acting user behind a command. It is
// resolved by the external identity collaborator before a command reaches
// the core; the core never trusts a caller-supplied organization id without
// this context.
type Identity struct {
	OrgID  int64
	UserID int64
}

// Valid reports whether both identifiers are set.
func (id Identity) Valid() bool {
	return id.OrgID > 0 && id.UserID > 0
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok && id.Valid()
}
