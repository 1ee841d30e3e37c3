package types

import "time"

type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
	ClientStatusPending  ClientStatus = "pending"
)

// Client represents a company or individual under contract.
// A client owns zero or more properties.
type Client struct {
	// ID is the unique identifier of the client.
	ID string `json:"id" db:"id"`

	// Name is the company or individual name.
	Name string `json:"name" db:"name" validate:"required,max=200"`

	// ContactName is the primary contact at the client.
	ContactName string `json:"contact_name" db:"contact_name" validate:"max=200"`

	Email   string `json:"email" db:"email" validate:"omitempty,email,max=254"`
	Phone   string `json:"phone" db:"phone" validate:"max=40"`
	Address string `json:"address" db:"address" validate:"max=500"`

	// ContractStart and ContractEnd bound the service contract. Either may
	// be unset while a contract is being negotiated.
	ContractStart *time.Time `json:"contract_start,omitempty" db:"contract_start"`
	ContractEnd   *time.Time `json:"contract_end,omitempty" db:"contract_end"`

	// Status is one of active, inactive or pending.
	Status ClientStatus `json:"status" db:"status" validate:"required,oneof=active inactive pending"`

	Notes string `json:"notes" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type ClientFilter struct {
	Status ClientStatus
}
