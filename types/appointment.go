package types

import "time"

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment ties a client, a property and an assigned officer to a
// scheduled slot. Any of the references may be nil.
type Appointment struct {
	ID         string  `json:"id" db:"id"`
	ClientID   *string `json:"client_id" db:"client_id" validate:"omitempty,uuid"`
	PropertyID *string `json:"property_id" db:"property_id" validate:"omitempty,uuid"`
	OfficerID  *string `json:"officer_id" db:"officer_id" validate:"omitempty,uuid"`

	Title           string            `json:"title" db:"title" validate:"required,max=200"`
	ScheduledAt     time.Time         `json:"scheduled_at" db:"scheduled_at" validate:"required"`
	DurationMinutes int               `json:"duration_minutes" db:"duration_minutes" validate:"required,gt=0,lte=1440"`
	Status          AppointmentStatus `json:"status" db:"status" validate:"required,oneof=scheduled completed cancelled"`
	Notes           string            `json:"notes" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type AppointmentFilter struct {
	OfficerID  string
	PropertyID string
	From       *time.Time
	To         *time.Time
}
