package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/guardpost/apiserver/internal/logging"
	"github.com/guardpost/apiserver/internal/metrics"
	"github.com/guardpost/apiserver/internal/store"
	"github.com/guardpost/apiserver/types"
	"go.uber.org/zap"
)

// UserGetter loads users by id.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (types.User, error)
}

// Guard authenticates requests from the session cookie and enforces
// per-route capabilities.
type Guard struct {
	sessions *Manager
	users    UserGetter
	policy   *Policy
	cookie   CookieConfig
	logger   *zap.Logger
}

func NewGuard(sessions *Manager, users UserGetter, policy *Policy, cookie CookieConfig, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		sessions: sessions,
		users:    users,
		policy:   policy,
		cookie:   cookie,
		logger:   logger,
	}
}

// Cookie returns the session cookie settings.
func (g *Guard) Cookie() CookieConfig {
	return g.cookie
}

// Policy returns the capability policy.
func (g *Guard) Policy() *Policy {
	return g.policy
}

// Identify maps a session token to the identity of an active user. A
// session whose user is gone or inactive is destroyed and reported as
// ErrUnauthenticated. It returns the session digest alongside the identity.
func (g *Guard) Identify(ctx context.Context, token string) (types.UserIdentity, string, error) {
	if token == "" {
		return types.UserIdentity{}, "", ErrUnauthenticated
	}

	session, err := g.sessions.Resolve(ctx, token)
	if err != nil {
		return types.UserIdentity{}, "", err
	}
	if session == nil {
		return types.UserIdentity{}, "", ErrUnauthenticated
	}

	user, err := g.users.GetByID(ctx, session.UserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return types.UserIdentity{}, "", fmt.Errorf("load session user: %w", err)
	}
	if err != nil || !user.Active() {
		if err := g.sessions.DestroyByID(ctx, session.ID); err != nil {
			g.logger.Warn("failed to destroy orphaned session",
				logging.SessionField(session.ID),
				zap.String("user_id", session.UserID),
				zap.Error(err),
			)
		}
		return types.UserIdentity{}, "", ErrUnauthenticated
	}
	return user.Identity(), session.ID, nil
}

// Authenticate rejects requests without a valid session with 401 and
// attaches the caller's identity to the request context otherwise.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := g.cookie.Token(r)
		identity, sessionID, err := g.Identify(r.Context(), token)
		if err != nil {
			if errors.Is(err, ErrUnauthenticated) {
				if token != "" {
					g.cookie.Clear(w)
				}
				metrics.GuardRejections.WithLabelValues("unauthenticated").Inc()
				writeGuardError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			g.logger.Error("session lookup failed", zap.Error(err))
			writeGuardError(w, http.StatusInternalServerError, "authentication unavailable")
			return
		}

		ctx := WithIdentity(r.Context(), identity)
		ctx = withSessionID(ctx, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require returns middleware that allows the request only when the
// authenticated role holds capability. It must run after Authenticate.
func (g *Guard) Require(capability Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				metrics.GuardRejections.WithLabelValues("unauthenticated").Inc()
				writeGuardError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			if !g.policy.Allows(identity.Role, capability) {
				metrics.GuardRejections.WithLabelValues("forbidden").Inc()
				g.logger.Debug("capability denied",
					zap.String("user_id", identity.ID),
					zap.String("role", string(identity.Role)),
					zap.String("capability", string(capability)),
				)
				writeGuardError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeGuardError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
