package types

import "time"

// Property is a physical site belonging to a client.
type Property struct {
	ID string `json:"id" db:"id"`

	// ClientID references the owning client, or nil when unassigned.
	ClientID *string `json:"client_id" db:"client_id" validate:"omitempty,uuid"`

	Name    string `json:"name" db:"name" validate:"required,max=200"`
	Address string `json:"address" db:"address" validate:"required,max=500"`

	// SecurityLevel is one of low, medium, high or maximum.
	SecurityLevel string `json:"security_level" db:"security_level" validate:"required,oneof=low medium high maximum"`

	// CoverageType is one of patrol, static, remote or mixed.
	CoverageType string `json:"coverage_type" db:"coverage_type" validate:"required,oneof=patrol static remote mixed"`

	Zone  string `json:"zone" db:"zone" validate:"max=100"`
	Notes string `json:"notes" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type PropertyFilter struct {
	ClientID string
	Zone     string
}
