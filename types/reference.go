package types

import "time"

// CommunityResource is an outside service officers can refer people to,
// such as a shelter or a crisis line.
type CommunityResource struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name" validate:"required,max=200"`
	Category    string    `json:"category" db:"category" validate:"required,max=100"`
	Phone       string    `json:"phone" db:"phone" validate:"max=40"`
	Address     string    `json:"address" db:"address" validate:"max=500"`
	Website     string    `json:"website" db:"website" validate:"omitempty,url"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// LawReference is a statute or ordinance officers cite in reports.
type LawReference struct {
	ID           string    `json:"id" db:"id"`
	Code         string    `json:"code" db:"code" validate:"required,max=100"`
	Title        string    `json:"title" db:"title" validate:"required,max=200"`
	Jurisdiction string    `json:"jurisdiction" db:"jurisdiction" validate:"required,max=100"`
	Summary      string    `json:"summary" db:"summary"`
	URL          string    `json:"url" db:"url" validate:"omitempty,url"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ReferenceFilter narrows resource and law listings. Query matches names
// and titles case-insensitively.
type ReferenceFilter struct {
	Category string
	Query    string
}
