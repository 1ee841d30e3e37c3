package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/guardpost/apiserver/internal/auth"
	"github.com/guardpost/apiserver/internal/notify"
	"github.com/guardpost/apiserver/internal/validation"
	"github.com/guardpost/apiserver/types"
	"go.uber.org/zap"
)

// MaxPasswordBytes is the longest password bcrypt will hash.
const MaxPasswordBytes = 72

// ErrLastAdmin prevents removing the only remaining active administrator.
var ErrLastAdmin = errors.New("cannot remove the last active admin")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	List(ctx context.Context, filter types.UserFilter, offset, limit int) ([]types.User, int, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetStatus(ctx context.Context, id string, status types.UserStatus) error
	CountByRole(ctx context.Context, role types.Role) (int, error)
}

// PasswordHasher hashes and compares passwords.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Compare(ctx context.Context, hash, password string) (bool, error)
}

// SessionRevoker ends every session of a user.
type SessionRevoker interface {
	DestroyForUser(ctx context.Context, userID string) (int64, error)
}

// NewUser is the input for account creation.
type NewUser struct {
	types.User
	Password string `json:"password"`
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo     UserRepository
	hasher   PasswordHasher
	sessions SessionRevoker
	activity *ActivityService
	notifier Notifier
	logger   *zap.Logger
}

func NewUserService(repo UserRepository, hasher PasswordHasher, sessions SessionRevoker, activity *ActivityService, notifier Notifier, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		repo:     repo,
		hasher:   hasher,
		sessions: sessions,
		activity: activity,
		notifier: orNoop(notifier),
		logger:   logger,
	}
}

func (s *UserService) List(ctx context.Context, filter types.UserFilter, offset, limit int) ([]types.User, int, error) {
	return s.repo.List(ctx, filter, offset, clampLimit(limit))
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Create registers a user with a hashed password and announces the account.
func (s *UserService) Create(ctx context.Context, input NewUser) (types.User, error) {
	user := input.User
	user.ID = ""
	user.Username = strings.TrimSpace(user.Username)
	user.Email = strings.TrimSpace(user.Email)
	if user.Status == "" {
		user.Status = types.UserStatusActive
	}

	verr := &types.ValidationError{}
	if err := validation.Struct(user); err != nil {
		var fieldErrs *types.ValidationError
		if !errors.As(err, &fieldErrs) {
			return types.User{}, err
		}
		for field, msg := range fieldErrs.Fields {
			verr.Add(field, msg)
		}
	}
	if msg := passwordProblem(input.Password); msg != "" {
		verr.Add("password", msg)
	}
	if !verr.Empty() {
		return types.User{}, verr
	}

	hash, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return types.User{}, err
	}
	s.activity.Record(ctx, "create", "user", created.ID, created.Username)

	s.notifier.NotifyAsync(notify.EventUserRegistered, notify.Payload{
		"user_id":    created.ID,
		"username":   created.Username,
		"email":      created.Email,
		"first_name": created.FirstName,
		"last_name":  created.LastName,
		"role":       string(created.Role),
	})
	return created, nil
}

// Update changes profile, role and status. Moving a user out of the active
// state ends their sessions.
func (s *UserService) Update(ctx context.Context, id string, user types.User) (types.User, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	user.ID = id
	user.Username = strings.TrimSpace(user.Username)
	user.Email = strings.TrimSpace(user.Email)
	if err := validation.Struct(user); err != nil {
		return types.User{}, err
	}
	if err := s.guardLastAdmin(ctx, current, user.Role, user.Status); err != nil {
		return types.User{}, err
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, err
	}
	updated.CreatedAt = current.CreatedAt
	s.activity.Record(ctx, "update", "user", id, "")

	if current.Active() && !updated.Active() {
		s.revokeSessions(ctx, id)
	}
	return updated, nil
}

// Deactivate marks the user inactive and ends every session they hold.
// Users are never hard-deleted.
func (s *UserService) Deactivate(ctx context.Context, id string) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guardLastAdmin(ctx, current, current.Role, types.UserStatusInactive); err != nil {
		return err
	}
	if err := s.repo.SetStatus(ctx, id, types.UserStatusInactive); err != nil {
		return err
	}
	s.activity.Record(ctx, "deactivate", "user", id, "")
	s.revokeSessions(ctx, id)
	return nil
}

// ChangePassword replaces the caller's password after checking the current
// one. Existing sessions stay valid.
func (s *UserService) ChangePassword(ctx context.Context, id, current, next string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Compare(ctx, user.PasswordHash, current)
	if err != nil {
		return err
	}
	if !ok {
		return types.NewValidationError("current_password", "is incorrect")
	}
	if msg := passwordProblem(next); msg != "" {
		return types.NewValidationError("new_password", msg)
	}
	if next == current {
		return types.NewValidationError("new_password", "must differ from the current password")
	}

	hash, err := s.hasher.Hash(ctx, next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}
	s.activity.Record(ctx, "change_password", "user", id, "")
	return nil
}

func (s *UserService) guardLastAdmin(ctx context.Context, current types.User, role types.Role, status types.UserStatus) error {
	if current.Role != types.RoleAdmin || !current.Active() {
		return nil
	}
	if role == types.RoleAdmin && status == types.UserStatusActive {
		return nil
	}
	admins, err := s.repo.CountByRole(ctx, types.RoleAdmin)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func (s *UserService) revokeSessions(ctx context.Context, userID string) {
	if s.sessions == nil {
		return
	}
	if _, err := s.sessions.DestroyForUser(ctx, userID); err != nil {
		s.logger.Warn("revoke sessions", zap.String("user_id", userID), zap.Error(err))
	}
}

func passwordProblem(password string) string {
	switch {
	case len([]rune(password)) < auth.MinPasswordLength:
		return fmt.Sprintf("must be at least %d characters", auth.MinPasswordLength)
	case len(password) > MaxPasswordBytes:
		return fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes)
	}
	return ""
}
