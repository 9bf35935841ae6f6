package shared

import "context"

// Identity describes the acting user for a request. It is injected by the
// caller (HTTP middleware) rather than read from ambient globals.
type Identity struct {
	UserID int64
}

type identityContextKey struct{}

// DefaultActorID is used when the caller supplies no identity.
const DefaultActorID int64 = 1

// ContextWithIdentity stores the acting identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the acting identity, falling back to the
// default actor when none was injected.
func IdentityFromContext(ctx context.Context) Identity {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok || id.UserID <= 0 {
		return Identity{UserID: DefaultActorID}
	}
	return id
}
