package services

import (
	"context"

	"github.com/guardpost/apiserver/internal/auth"
	"github.com/guardpost/apiserver/internal/notify"
	"github.com/guardpost/apiserver/internal/validation"
	"github.com/guardpost/apiserver/types"
	"go.uber.org/zap"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// Notifier sends event notifications without blocking the caller.
type Notifier interface {
	NotifyAsync(event notify.EventType, payload notify.Payload)
}

type noopNotifier struct{}

func (noopNotifier) NotifyAsync(notify.EventType, notify.Payload) {}

func orNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// ActivityRepository persists the audit log.
type ActivityRepository interface {
	Create(ctx context.Context, activity types.Activity) (types.Activity, error)
	List(ctx context.Context, filter types.ActivityFilter, offset, limit int) ([]types.Activity, int, error)
}

// ActivityService records and lists audit entries. Recording is best
// effort; a failed write is logged and otherwise ignored.
type ActivityService struct {
	repo   ActivityRepository
	logger *zap.Logger
}

func NewActivityService(repo ActivityRepository, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, logger: logger}
}

func (s *ActivityService) List(ctx context.Context, filter types.ActivityFilter, offset, limit int) ([]types.Activity, int, error) {
	return s.repo.List(ctx, filter, offset, clampLimit(limit))
}

// Record appends an entry attributed to the identity on ctx, if any.
func (s *ActivityService) Record(ctx context.Context, action, entityType, entityID, details string) {
	if s == nil {
		return
	}
	activity := types.Activity{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	}
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		activity.UserID = &identity.ID
	}
	if _, err := s.repo.Create(ctx, activity); err != nil {
		s.logger.Warn("record activity",
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}

// Repository is the storage contract shared by the plain CRUD entities.
type Repository[T any, F any] interface {
	Get(ctx context.Context, id string) (T, error)
	List(ctx context.Context, filter F, offset, limit int) ([]T, int, error)
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, item T) (T, error)
	Delete(ctx context.Context, id string) error
}

// Resource implements validated CRUD with audit logging for one entity
// type. Services with extra rules embed it and override what they need.
type Resource[T any, F any] struct {
	repo     Repository[T, F]
	entity   string
	id       func(*T) *string
	check    func(T) error
	activity *ActivityService
}

// NewResource builds a Resource. id returns a pointer to the item's ID
// field; check runs after tag validation and may be nil.
func NewResource[T any, F any](repo Repository[T, F], entity string, id func(*T) *string, check func(T) error, activity *ActivityService) *Resource[T, F] {
	return &Resource[T, F]{
		repo:     repo,
		entity:   entity,
		id:       id,
		check:    check,
		activity: activity,
	}
}

func (s *Resource[T, F]) List(ctx context.Context, filter F, offset, limit int) ([]T, int, error) {
	return s.repo.List(ctx, filter, offset, clampLimit(limit))
}

func (s *Resource[T, F]) Get(ctx context.Context, id string) (T, error) {
	return s.repo.Get(ctx, id)
}

func (s *Resource[T, F]) Create(ctx context.Context, item T) (T, error) {
	if err := s.validate(item); err != nil {
		var zero T
		return zero, err
	}
	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return created, err
	}
	s.activity.Record(ctx, "create", s.entity, *s.id(&created), "")
	return created, nil
}

// Update replaces the entity stored under id with item.
func (s *Resource[T, F]) Update(ctx context.Context, id string, item T) (T, error) {
	*s.id(&item) = id
	if err := s.validate(item); err != nil {
		var zero T
		return zero, err
	}
	updated, err := s.repo.Update(ctx, item)
	if err != nil {
		return updated, err
	}
	s.activity.Record(ctx, "update", s.entity, id, "")
	return updated, nil
}

func (s *Resource[T, F]) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.activity.Record(ctx, "delete", s.entity, id, "")
	return nil
}

func (s *Resource[T, F]) validate(item T) error {
	if err := validation.Struct(item); err != nil {
		return err
	}
	if s.check != nil {
		return s.check(item)
	}
	return nil
}
