package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for an unknown user, an inactive
	// user and a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated means the request carries no usable session.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the caller is authenticated but lacks a capability.
	ErrForbidden = errors.New("forbidden")

	// ErrThrottled means too many login attempts were made for a key.
	ErrThrottled = errors.New("too many login attempts")
)
