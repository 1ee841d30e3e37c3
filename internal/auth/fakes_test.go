package auth

import (
	"context"
	"sync"
	"time"

	"github.com/guardpost/apiserver/internal/store"
	"github.com/guardpost/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]types.Session
	gets     int
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]types.Session)}
}

func (m *memSessions) Create(_ context.Context, session types.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return nil
}

func (m *memSessions) Get(_ context.Context, id string) (types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	session, ok := m.sessions[id]
	if !ok {
		return types.Session{}, store.ErrNotFound
	}
	return session, nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memSessions) DeleteByUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, session := range m.sessions {
		if session.UserID == userID {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, session := range m.sessions {
		if session.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]types.User
}

func newMemUsers(users ...types.User) *memUsers {
	m := &memUsers{users: make(map[string]types.User)}
	for _, user := range users {
		m.users[user.ID] = user
	}
	return m
}

func (m *memUsers) GetByID(_ context.Context, id string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := types.UsernameKey(username)
	for _, user := range m.users {
		if types.UsernameKey(user.Username) == key {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) setStatus(id string, status types.UserStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := m.users[id]
	user.Status = status
	m.users[id] = user
}

func (m *memUsers) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

func testUser(id, username, password string, role types.Role) types.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return types.User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		Status:       types.UserStatusActive,
	}
}
