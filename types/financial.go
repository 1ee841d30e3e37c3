package types

import "time"

// FinancialRecord is an accounting entry tied to a client.
type FinancialRecord struct {
	// ID is the unique identifier of the record.
	ID string `json:"id" db:"id"`

	// ClientID references the billed client, or nil for internal expenses.
	ClientID *string `json:"client_id" db:"client_id" validate:"omitempty,uuid"`

	// Kind is one of invoice, payment or expense.
	Kind string `json:"kind" db:"kind" validate:"required,oneof=invoice payment expense"`

	// AmountCents is the amount in the minor unit of Currency.
	AmountCents int64 `json:"amount_cents" db:"amount_cents" validate:"gte=0"`

	// Currency is an ISO-4217 code.
	Currency string `json:"currency" db:"currency" validate:"required,iso4217"`

	// Status is one of pending, paid, overdue or void.
	Status string `json:"status" db:"status" validate:"required,oneof=pending paid overdue void"`

	Description string     `json:"description" db:"description" validate:"max=1000"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date"`
	PaidAt      *time.Time `json:"paid_at,omitempty" db:"paid_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type FinancialFilter struct {
	ClientID string
	Kind     string
	Status   string
}

// FinancialTotals aggregates amounts per kind for a listing.
type FinancialTotals struct {
	InvoicedCents int64 `json:"invoiced_cents"`
	PaidCents     int64 `json:"paid_cents"`
	ExpenseCents  int64 `json:"expense_cents"`
}
