package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/guardpost/apiserver/internal/logging"
	"github.com/guardpost/apiserver/internal/metrics"
	"github.com/guardpost/apiserver/internal/store"
	"github.com/guardpost/apiserver/types"
	"go.uber.org/zap"
)

const tokenBytes = 32

// SessionStore persists sessions keyed by token digest.
type SessionStore interface {
	Create(ctx context.Context, session types.Session) error
	Get(ctx context.Context, id string) (types.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Metadata describes the client a session is issued to.
type Metadata struct {
	IP        string
	UserAgent string
}

// Manager issues, resolves and destroys durable sessions.
type Manager struct {
	store  SessionStore
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewManager(sessions SessionStore, ttl time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:  sessions,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// TTL returns the lifetime of newly created sessions.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create stores a new session for identity and returns the opaque token to
// hand to the client.
func (m *Manager) Create(ctx context.Context, identity types.UserIdentity, meta Metadata) (string, types.Session, error) {
	if identity.ID == "" {
		return "", types.Session{}, errors.New("session requires a user id")
	}

	token, err := newToken()
	if err != nil {
		return "", types.Session{}, err
	}

	now := m.now().UTC()
	session := types.Session{
		ID:     hashToken(token),
		UserID: identity.ID,
		Data: types.SessionData{
			UserID:    identity.ID,
			IP:        meta.IP,
			UserAgent: meta.UserAgent,
			IssuedAt:  now,
		},
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
	}
	if err := m.store.Create(ctx, session); err != nil {
		return "", types.Session{}, fmt.Errorf("create session: %w", err)
	}
	metrics.SessionsCreated.Inc()
	return token, session, nil
}

// Resolve returns the live session for token, or nil when the token is
// malformed, unknown or expired. Expired sessions are deleted on sight.
func (m *Manager) Resolve(ctx context.Context, token string) (*types.Session, error) {
	if !wellFormed(token) {
		return nil, nil
	}

	session, err := m.store.Get(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	if session.Expired(m.now()) {
		if err := m.store.Delete(ctx, session.ID); err != nil {
			m.logger.Warn("failed to purge expired session", logging.SessionField(session.ID), zap.Error(err))
		} else {
			metrics.SessionsPurged.Inc()
		}
		return nil, nil
	}
	return &session, nil
}

// Destroy deletes the session for token. Unknown or malformed tokens are
// not an error.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if !wellFormed(token) {
		return nil
	}
	return m.DestroyByID(ctx, hashToken(token))
}

// DestroyByID deletes a session by its stored digest.
func (m *Manager) DestroyByID(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// DestroyForUser deletes every session of userID.
func (m *Manager) DestroyForUser(ctx context.Context, userID string) (int64, error) {
	n, err := m.store.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("destroy user sessions: %w", err)
	}
	return n, nil
}

// PurgeExpired deletes every expired session.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	metrics.SessionsPurged.Add(float64(n))
	return n, nil
}

// RunPurger calls PurgeExpired every interval until ctx is done.
func (m *Manager) RunPurger(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.PurgeExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					m.logger.Warn("session purge failed", zap.Error(err))
				}
				continue
			}
			if n > 0 {
				m.logger.Debug("purged expired sessions", zap.Int64("count", n))
			}
		}
	}
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func wellFormed(token string) bool {
	if token == "" || len(token) != base64.RawURLEncoding.EncodedLen(tokenBytes) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(token)
	return err == nil
}
