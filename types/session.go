package types

import "time"

// Session is a server-side login session. ID is the SHA-256 digest of the
// opaque token handed to the client; the token itself is never stored.
type Session struct {
	ID        string      `json:"-" db:"id"`
	UserID    string      `json:"user_id" db:"user_id"`
	Data      SessionData `json:"data" db:"data"`
	ExpiresAt time.Time   `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// SessionData is the serialized payload stored with a session.
type SessionData struct {
	UserID    string    `json:"user_id"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
