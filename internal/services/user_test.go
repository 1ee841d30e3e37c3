package services

import (
	"context"
	"errors"
	"testing"

	"github.com/guardpost/apiserver/internal/notify"
	"github.com/guardpost/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userFixture struct {
	svc      *UserService
	repo     *memUserRepo
	revoked  *revokeRecorder
	notifier *recordingNotifier
}

func newUserFixture() userFixture {
	repo := newMemUserRepo()
	revoked := &revokeRecorder{}
	notifier := &recordingNotifier{}
	svc := NewUserService(repo, plainHasher{}, revoked, NewActivityService(&memActivities{}, nil), notifier, nil)
	return userFixture{svc: svc, repo: repo, revoked: revoked, notifier: notifier}
}

func newUserInput(username string, role types.Role) NewUser {
	return NewUser{
		User: types.User{
			Username:  username,
			Email:     username + "@example.com",
			FirstName: "Test",
			LastName:  "User",
			Role:      role,
		},
		Password: "correct-horse-battery",
	}
}

func TestUserCreateHashesAndNotifies(t *testing.T) {
	f := newUserFixture()

	created, err := f.svc.Create(context.Background(), newUserInput("alice", types.RoleSecurityOfficer))
	require.NoError(t, err)

	assert.Equal(t, types.UserStatusActive, created.Status)
	assert.Equal(t, "hashed:correct-horse-battery", created.PasswordHash)
	require.Equal(t, []notify.EventType{notify.EventUserRegistered}, f.notifier.events())
	assert.Equal(t, "alice@example.com", f.notifier.sent[0].payload["email"])
	assert.NotContains(t, f.notifier.sent[0].payload, "password")
}

func TestUserCreateCollectsFieldErrors(t *testing.T) {
	f := newUserFixture()
	input := newUserInput("al", types.Role("janitor"))
	input.Password = "short"

	_, err := f.svc.Create(context.Background(), input)

	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "username")
	assert.Contains(t, verr.Fields, "role")
	assert.Equal(t, "must be at least 10 characters", verr.Fields["password"])
	assert.Empty(t, f.notifier.sent)
}

func TestUserCreateRejectsOverlongPassword(t *testing.T) {
	f := newUserFixture()
	input := newUserInput("alice", types.RoleSupervisor)
	input.Password = string(make([]byte, 73))

	_, err := f.svc.Create(context.Background(), input)

	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "must be at most 72 bytes", verr.Fields["password"])
}

func TestUserDeactivateRevokesSessions(t *testing.T) {
	f := newUserFixture()
	user, err := f.svc.Create(context.Background(), newUserInput("bob", types.RoleSecurityOfficer))
	require.NoError(t, err)

	require.NoError(t, f.svc.Deactivate(context.Background(), user.ID))

	stored, err := f.repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, types.UserStatusInactive, stored.Status)
	assert.Equal(t, []string{user.ID}, f.revoked.users)
}

func TestUserUpdateToLeaveRevokesSessions(t *testing.T) {
	f := newUserFixture()
	user, err := f.svc.Create(context.Background(), newUserInput("carol", types.RoleSecurityOfficer))
	require.NoError(t, err)

	user.Status = types.UserStatusOnLeave
	updated, err := f.svc.Update(context.Background(), user.ID, user)
	require.NoError(t, err)

	assert.Equal(t, types.UserStatusOnLeave, updated.Status)
	assert.Equal(t, []string{user.ID}, f.revoked.users)
}

func TestUserLastAdminIsProtected(t *testing.T) {
	f := newUserFixture()
	admin, err := f.svc.Create(context.Background(), newUserInput("root", types.RoleAdmin))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Deactivate(context.Background(), admin.ID), ErrLastAdmin)

	admin.Role = types.RoleSupervisor
	_, err = f.svc.Update(context.Background(), admin.ID, admin)
	assert.ErrorIs(t, err, ErrLastAdmin)

	_, err = f.svc.Create(context.Background(), newUserInput("root2", types.RoleAdmin))
	require.NoError(t, err)
	assert.NoError(t, f.svc.Deactivate(context.Background(), admin.ID))
}

func TestChangePassword(t *testing.T) {
	f := newUserFixture()
	user, err := f.svc.Create(context.Background(), newUserInput("dave", types.RoleSupervisor))
	require.NoError(t, err)

	err = f.svc.ChangePassword(context.Background(), user.ID, "wrong-password", "another-long-password")
	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "current_password")

	err = f.svc.ChangePassword(context.Background(), user.ID, "correct-horse-battery", "short")
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "new_password")

	require.NoError(t, f.svc.ChangePassword(context.Background(), user.ID, "correct-horse-battery", "another-long-password"))
	stored, _ := f.repo.GetByID(context.Background(), user.ID)
	assert.Equal(t, "hashed:another-long-password", stored.PasswordHash)
}
