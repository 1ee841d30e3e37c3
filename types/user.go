package types

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Role is the authorization level attached to a user.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleSupervisor      Role = "supervisor"
	RoleSecurityOfficer Role = "security_officer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleSecurityOfficer:
		return true
	}
	return false
}

// UserStatus is the employment state of a user. Only active users may
// authenticate.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusOnLeave  UserStatus = "on_leave"
)

// User represents a staff account.
// Users are never hard-deleted; deactivation flips Status to inactive.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"id" db:"id"`

	// Username is the login name. Uniqueness is enforced on its
	// case-folded form, see UsernameKey.
	Username string `json:"username" db:"username" validate:"required,min=3,max=64"`

	// Email is the user's email address, unique regardless of case.
	Email string `json:"email" db:"email" validate:"required,email,max=254"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	FirstName string `json:"first_name" db:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" db:"last_name" validate:"required,max=100"`
	Phone     string `json:"phone" db:"phone" validate:"max=40"`

	// Role indicates the user's authorization level.
	Role Role `json:"role" db:"role" validate:"required,oneof=admin supervisor security_officer"`

	// Status indicates whether the account may sign in.
	Status UserStatus `json:"status" db:"status" validate:"required,oneof=active inactive on_leave"`

	// Zone is the patrol zone the officer is assigned to.
	Zone string `json:"zone" db:"zone" validate:"max=100"`

	// Shift is one of day, night or swing; empty when unassigned.
	Shift string `json:"shift" db:"shift" validate:"omitempty,oneof=day night swing"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Active reports whether the user is allowed to authenticate.
func (u User) Active() bool {
	return u.Status == UserStatusActive
}

// Identity returns the public identity of the user. The password hash is
// never part of it.
func (u User) Identity() UserIdentity {
	return UserIdentity{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

// UserIdentity is the public view of an authenticated user attached to
// request contexts and returned by the auth endpoints.
type UserIdentity struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
}

// UsernameKey returns the canonical lookup form of a username. Usernames are
// unique and matched case-insensitively through this key.
func UsernameKey(username string) string {
	return cases.Fold().String(strings.TrimSpace(username))
}

// UserFilter narrows user listings.
type UserFilter struct {
	Role   Role
	Status UserStatus
}
