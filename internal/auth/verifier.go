package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/guardpost/apiserver/internal/store"
	"github.com/guardpost/apiserver/types"
)

// UserFinder looks users up by username. Lookups are case-insensitive.
type UserFinder interface {
	GetByUsername(ctx context.Context, username string) (types.User, error)
}

// PasswordChecker compares plaintext passwords with stored hashes.
type PasswordChecker interface {
	Compare(ctx context.Context, hash, password string) (bool, error)
	CompareDummy(ctx context.Context, password string) error
}

// Verifier checks a username and password against the stored hash.
type Verifier struct {
	users  UserFinder
	hasher PasswordChecker
}

func NewVerifier(users UserFinder, hasher PasswordChecker) *Verifier {
	return &Verifier{users: users, hasher: hasher}
}

// Verify returns the public identity of the active user matching username
// and password. Every rejection, whatever its cause, is ErrInvalidCredentials.
// Other errors come from the store or from ctx.
func (v *Verifier) Verify(ctx context.Context, username, password string) (types.UserIdentity, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return types.UserIdentity{}, ErrInvalidCredentials
	}

	user, err := v.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if err := v.hasher.CompareDummy(ctx, password); err != nil {
				return types.UserIdentity{}, err
			}
			return types.UserIdentity{}, ErrInvalidCredentials
		}
		return types.UserIdentity{}, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := v.hasher.Compare(ctx, user.PasswordHash, password)
	if err != nil {
		return types.UserIdentity{}, err
	}
	if !ok || !user.Active() {
		return types.UserIdentity{}, ErrInvalidCredentials
	}
	return user.Identity(), nil
}
