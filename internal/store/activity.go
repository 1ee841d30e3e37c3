package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/guardpost/apiserver/types"
)

// ActivityRepository stores the append-only audit log.
type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, activity types.Activity) (types.Activity, error) {
	activity.ID = uuid.NewString()
	activity.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO activities (id, user_id, action, entity_type, entity_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		activity.ID,
		activity.UserID,
		activity.Action,
		activity.EntityType,
		activity.EntityID,
		activity.Details,
		activity.CreatedAt,
	); err != nil {
		return types.Activity{}, mapError(err)
	}
	return activity, nil
}

func (r *ActivityRepository) List(ctx context.Context, filter types.ActivityFilter, offset, limit int) ([]types.Activity, int, error) {
	var conds conditions
	conds.addIf(filter.UserID, "user_id = ?")
	conds.addIf(filter.EntityType, "entity_type = ?")
	conds.addIf(filter.EntityID, "entity_id = ?")

	total, err := conds.count(ctx, r.db, "activities")
	if err != nil {
		return nil, 0, err
	}

	suffix, args := conds.page(offset, limit)
	query := `
		SELECT id, user_id, action, entity_type, entity_id, details, created_at
		FROM activities` + conds.where() + ` ORDER BY created_at DESC` + suffix
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	activities := make([]types.Activity, 0)
	for rows.Next() {
		var activity types.Activity
		if err := rows.Scan(
			&activity.ID,
			&activity.UserID,
			&activity.Action,
			&activity.EntityType,
			&activity.EntityID,
			&activity.Details,
			&activity.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		activities = append(activities, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return activities, total, nil
}
