package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/guardpost/apiserver/internal/notify"
	"github.com/guardpost/apiserver/internal/storage"
	"github.com/guardpost/apiserver/internal/store"
	"github.com/guardpost/apiserver/types"
)

type memRepo[T any, F any] struct {
	mu    sync.Mutex
	items map[string]T
	id    func(*T) *string
	err   error
}

func newMemRepo[T any, F any](id func(*T) *string) *memRepo[T, F] {
	return &memRepo[T, F]{items: make(map[string]T), id: id}
}

func (r *memRepo[T, F]) Get(_ context.Context, id string) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		var zero T
		return zero, store.ErrNotFound
	}
	return item, nil
}

func (r *memRepo[T, F]) List(_ context.Context, _ F, _, _ int) ([]T, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, len(out), nil
}

func (r *memRepo[T, F]) Create(_ context.Context, item T) (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.id(&item) = uuid.NewString()
	r.items[*r.id(&item)] = item
	return item, nil
}

func (r *memRepo[T, F]) Update(_ context.Context, item T) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := *r.id(&item)
	if _, ok := r.items[id]; !ok {
		var zero T
		return zero, store.ErrNotFound
	}
	r.items[id] = item
	return item, nil
}

func (r *memRepo[T, F]) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

type memActivities struct {
	mu      sync.Mutex
	entries []types.Activity
	err     error
}

func (m *memActivities) Create(_ context.Context, activity types.Activity) (types.Activity, error) {
	if m.err != nil {
		return types.Activity{}, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, activity)
	return activity, nil
}

func (m *memActivities) List(_ context.Context, _ types.ActivityFilter, _, _ int) ([]types.Activity, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Activity(nil), m.entries...), len(m.entries), nil
}

type sentNotification struct {
	event   notify.EventType
	payload notify.Payload
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) NotifyAsync(event notify.EventType, payload notify.Payload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{event: event, payload: payload})
}

func (n *recordingNotifier) events() []notify.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.EventType
	for _, s := range n.sent {
		out = append(out, s.event)
	}
	return out
}

// plainHasher stores "hashed:" + password so tests stay fast.
type plainHasher struct{}

func (plainHasher) Hash(_ context.Context, password string) (string, error) {
	return "hashed:" + password, nil
}

func (plainHasher) Compare(_ context.Context, hash, password string) (bool, error) {
	return hash == "hashed:"+password, nil
}

type memUserRepo struct {
	*memRepo[types.User, types.UserFilter]
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{newMemRepo[types.User, types.UserFilter](func(u *types.User) *string { return &u.ID })}
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (types.User, error) {
	return r.Get(ctx, id)
}

func (r *memUserRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	current, err := r.Get(ctx, user.ID)
	if err != nil {
		return types.User{}, err
	}
	user.PasswordHash = current.PasswordHash
	return r.memRepo.Update(ctx, user)
}

func (r *memUserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	user, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	_, err = r.memRepo.Update(ctx, user)
	return err
}

func (r *memUserRepo) SetStatus(ctx context.Context, id string, status types.UserStatus) error {
	user, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	user.Status = status
	_, err = r.memRepo.Update(ctx, user)
	return err
}

func (r *memUserRepo) CountByRole(_ context.Context, role types.Role) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, u := range r.items {
		if u.Role == role && u.Active() {
			total++
		}
	}
	return total, nil
}

type revokeRecorder struct {
	users []string
}

func (r *revokeRecorder) DestroyForUser(_ context.Context, userID string) (int64, error) {
	r.users = append(r.users, userID)
	return 1, nil
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte)}
}

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

var errBoom = errors.New("boom")
