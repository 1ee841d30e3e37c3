package auth

import (
	"context"

	"github.com/guardpost/apiserver/types"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	sessionKey  contextKey = "session"
)

// WithIdentity returns a copy of ctx carrying the authenticated identity.
func WithIdentity(ctx context.Context, identity types.UserIdentity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the identity attached by the guard.
func IdentityFromContext(ctx context.Context) (types.UserIdentity, bool) {
	identity, ok := ctx.Value(identityKey).(types.UserIdentity)
	if !ok || identity.ID == "" {
		return types.UserIdentity{}, false
	}
	return identity, true
}

func withSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey, sessionID)
}

// SessionIDFromContext returns the digest of the session that authenticated
// the request.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionKey).(string)
	return id, ok && id != ""
}
