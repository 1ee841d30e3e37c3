package services

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const linkAudience = "file-link"

// ErrInvalidLink is returned for shared links that are malformed, expired
// or signed with another key.
var ErrInvalidLink = errors.New("invalid or expired link")

// LinkSigner issues and verifies HMAC-signed, expiring download links.
type LinkSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewLinkSigner(secret string, ttl time.Duration) *LinkSigner {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &LinkSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a token naming fileID and its expiry.
func (l *LinkSigner) Issue(fileID string) (string, time.Time, error) {
	now := l.now()
	expires := now.Add(l.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   fileID,
		Audience:  jwt.ClaimStrings{linkAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// Parse returns the file id carried by a valid token.
func (l *LinkSigner) Parse(token string) (string, error) {
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return l.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(linkAudience),
		jwt.WithTimeFunc(l.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidLink
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidLink
	}
	return claims.Subject, nil
}
