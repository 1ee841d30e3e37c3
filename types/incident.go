package types

import "time"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type IncidentStatus string

const (
	IncidentStatusOpen          IncidentStatus = "open"
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusResolved      IncidentStatus = "resolved"
	IncidentStatusClosed        IncidentStatus = "closed"
)

// Settled reports whether the incident no longer needs action.
func (s IncidentStatus) Settled() bool {
	return s == IncidentStatusResolved || s == IncidentStatusClosed
}

// Incident represents a reported security event.
// It is tied to the property where it happened and to the reporting user.
type Incident struct {
	// ID is the unique identifier of the incident.
	ID string `json:"id" db:"id"`

	// PropertyID references the property, or nil when the location is not
	// a managed site.
	PropertyID *string `json:"property_id" db:"property_id" validate:"omitempty,uuid"`

	// ReportedBy references the user that filed the report.
	ReportedBy *string `json:"reported_by" db:"reported_by" validate:"omitempty,uuid"`

	// Type is a free-form category such as "trespass" or "vandalism".
	Type string `json:"type" db:"type" validate:"required,max=100"`

	Title       string `json:"title" db:"title" validate:"required,max=200"`
	Description string `json:"description" db:"description" validate:"required"`
	Location    string `json:"location" db:"location" validate:"max=500"`

	// Severity is one of low, medium, high or critical.
	Severity Severity `json:"severity" db:"severity" validate:"required,oneof=low medium high critical"`

	// Status is one of open, investigating, resolved or closed.
	Status IncidentStatus `json:"status" db:"status" validate:"required,oneof=open investigating resolved closed"`

	// OccurredAt is when the event happened.
	OccurredAt time.Time `json:"occurred_at" db:"occurred_at" validate:"required"`

	// ResolvedAt is set once the incident is resolved or closed.
	ResolvedAt *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type IncidentFilter struct {
	PropertyID string
	Status     IncidentStatus
	Severity   Severity
}
