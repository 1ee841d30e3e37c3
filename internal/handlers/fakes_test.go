package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/guardpost/apiserver/internal/store"
	"github.com/guardpost/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]types.Session
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

func testUser(username, password string, role types.Role, status types.UserStatus) types.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return types.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		Status:       status,
	}
}

type memClients struct {
	mu      sync.Mutex
	clients map[string]types.Client
}

func newMemClients() *memClients {
	return &memClients{clients: make(map[string]types.Client)}
}

func (m *memClients) Get(_ context.Context, id string) (types.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	client, ok := m.clients[id]
	if !ok {
		return types.Client{}, store.ErrNotFound
	}
	return client, nil
}

func (m *memClients) List(_ context.Context, filter types.ClientFilter, offset, limit int) ([]types.Client, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Client
	for _, client := range m.clients {
		if filter.Status != "" && client.Status != filter.Status {
			continue
		}
		out = append(out, client)
	}
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *memClients) Create(_ context.Context, client types.Client) (types.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	client.ID = uuid.NewString()
	m.clients[client.ID] = client
	return client, nil
}

func (m *memClients) Update(_ context.Context, client types.Client) (types.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[client.ID]; !ok {
		return types.Client{}, store.ErrNotFound
	}
	m.clients[client.ID] = client
	return client, nil
}

func (m *memClients) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.clients, id)
	return nil
}
