package types

import "time"

// Activity is an audit record of an action a user took against an entity.
type Activity struct {
	ID         string    `json:"id" db:"id"`
	UserID     *string   `json:"user_id" db:"user_id"`
	Action     string    `json:"action" db:"action"`
	EntityType string    `json:"entity_type" db:"entity_type"`
	EntityID   string    `json:"entity_id" db:"entity_id"`
	Details    string    `json:"details" db:"details"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type ActivityFilter struct {
	UserID     string
	EntityType string
	EntityID   string
}
