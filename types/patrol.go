package types

import "time"

type PatrolStatus string

const (
	PatrolStatusInProgress PatrolStatus = "in_progress"
	PatrolStatusCompleted  PatrolStatus = "completed"
	PatrolStatusReviewed   PatrolStatus = "reviewed"
)

// PatrolReport records an officer's patrol of a property over a time window.
type PatrolReport struct {
	ID         string  `json:"id" db:"id"`
	PropertyID *string `json:"property_id" db:"property_id" validate:"omitempty,uuid"`
	OfficerID  *string `json:"officer_id" db:"officer_id" validate:"omitempty,uuid"`

	StartedAt time.Time  `json:"started_at" db:"started_at" validate:"required"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	// Checkpoints lists the checkpoint names visited, in order.
	Checkpoints []string `json:"checkpoints" db:"checkpoints" validate:"dive,required,max=200"`

	// PhotoRefs holds file upload ids or object keys of patrol photos.
	PhotoRefs []string `json:"photo_refs" db:"photo_refs" validate:"dive,required"`

	Notes  string       `json:"notes" db:"notes"`
	Status PatrolStatus `json:"status" db:"status" validate:"required,oneof=in_progress completed reviewed"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DurationMinutes returns the patrol length, or zero while it is in progress.
func (p PatrolReport) DurationMinutes() int {
	if p.EndedAt == nil || p.EndedAt.Before(p.StartedAt) {
		return 0
	}
	return int(p.EndedAt.Sub(p.StartedAt).Minutes())
}

type PatrolFilter struct {
	PropertyID string
	OfficerID  string
	Status     PatrolStatus
}
