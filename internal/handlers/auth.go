package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/guardpost/apiserver/internal/auth"
	"github.com/guardpost/apiserver/internal/metrics"
	"github.com/guardpost/apiserver/types"
	"go.uber.org/zap"
)

const loginFailed = "login failed"

// CredentialVerifier checks a username and password.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (types.UserIdentity, error)
}

// PasswordChanger replaces a user's password.
type PasswordChanger interface {
	ChangePassword(ctx context.Context, id, current, next string) error
}

// AuthHandler serves login, logout and session status.
type AuthHandler struct {
	verifier  CredentialVerifier
	sessions  *auth.Manager
	guard     *auth.Guard
	throttle  auth.Throttle
	passwords PasswordChanger
	logger    *zap.Logger
}

func NewAuthHandler(verifier CredentialVerifier, sessions *auth.Manager, guard *auth.Guard, throttle auth.Throttle, passwords PasswordChanger, logger *zap.Logger) *AuthHandler {
	if throttle == nil {
		throttle = auth.NoThrottle{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		verifier:  verifier,
		sessions:  sessions,
		guard:     guard,
		throttle:  throttle,
		passwords: passwords,
		logger:    logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool                `json:"success"`
	User    *types.UserIdentity `json:"user,omitempty"`
	Error   string              `json:"error,omitempty"`
}

type statusResponse struct {
	Authenticated bool                `json:"authenticated"`
	User          *types.UserIdentity `json:"user,omitempty"`
}

type meResponse struct {
	User         types.UserIdentity `json:"user"`
	Capabilities []string           `json:"capabilities"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Login verifies credentials and starts a session. Every credential
// failure produces the same response.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, loginResponse{Error: err.Error()})
		return
	}

	key := clientIP(r) + "|" + types.UsernameKey(req.Username)
	allowed, err := h.throttle.Allow(r.Context(), key)
	if err != nil {
		h.logger.Warn("login throttle unavailable", zap.Error(err))
		allowed = true
	}
	if !allowed {
		metrics.LoginAttempts.WithLabelValues("throttled").Inc()
		writeJSON(w, http.StatusTooManyRequests, loginResponse{Error: auth.ErrThrottled.Error()})
		return
	}

	identity, err := h.verifier.Verify(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.LoginAttempts.WithLabelValues("invalid").Inc()
			writeJSON(w, http.StatusUnauthorized, loginResponse{Error: loginFailed})
			return
		}
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		h.logger.Error("verify credentials", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, loginResponse{Error: loginFailed})
		return
	}

	if previous := h.guard.Cookie().Token(r); previous != "" {
		if err := h.sessions.Destroy(r.Context(), previous); err != nil {
			h.logger.Warn("destroy previous session", zap.Error(err))
		}
	}

	token, _, err := h.sessions.Create(r.Context(), identity, auth.Metadata{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		h.logger.Error("create session", zap.String("user_id", identity.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, loginResponse{Error: loginFailed})
		return
	}
	if err := h.throttle.Reset(r.Context(), key); err != nil {
		h.logger.Warn("reset login throttle", zap.Error(err))
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	h.guard.Cookie().Set(w, token)
	writeJSON(w, http.StatusOK, loginResponse{Success: true, User: &identity})
}

// Status reports whether the request carries a valid session.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	token := h.guard.Cookie().Token(r)
	identity, _, err := h.guard.Identify(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			if token != "" {
				h.guard.Cookie().Clear(w)
			}
			writeJSON(w, http.StatusOK, statusResponse{Authenticated: false})
			return
		}
		h.logger.Error("session status", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "authentication unavailable")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Authenticated: true, User: &identity})
}

// Logout destroys the session, if any, and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.guard.Cookie().Token(r); token != "" {
		if err := h.sessions.Destroy(r.Context(), token); err != nil {
			h.logger.Error("destroy session", zap.Error(err))
		}
	}
	h.guard.Cookie().Clear(w)
	writeJSON(w, http.StatusOK, loginResponse{Success: true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		User:         identity,
		Capabilities: h.guard.Policy().Capabilities(identity.Role),
	})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.passwords.ChangePassword(r.Context(), identity.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err, "user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// clientIP returns the host part of RemoteAddr. Proxy headers are applied
// upstream only when TRUST_PROXY_HEADERS is set.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
