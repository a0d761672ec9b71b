package farmapi

import "context"

// Identity is the signed-in user a request acts for.
type Identity struct {
	Email string
	Token string
}

type identityKey struct{}

// WithIdentity returns a context carrying id. Clients without a token of
// their own authenticate with id.Token.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity carried by ctx, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
