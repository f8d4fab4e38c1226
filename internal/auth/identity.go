package auth

import "context"

// Identity is the authenticated user of a request.
type Identity struct {
	UserID    int64
	Username  string
	FullName  string
	IsAdmin   bool
	TokenHash string
}

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored on ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok && id.UserID > 0
}
