package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/guardpost/apiserver/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorForeignKeyBecomesValidationError(t *testing.T) {
	err := mapError(&pq.Error{
		Code:       pqForeignKeyViolation,
		Table:      "incidents",
		Constraint: "incidents_property_id_fkey",
	})

	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{"property_id": "references a record that does not exist"}, verr.Fields)
}

func TestMapErrorWrappedForeignKey(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", &pq.Error{
		Code:       pqForeignKeyViolation,
		Table:      "appointments",
		Constraint: "appointments_officer_id_fkey",
	})

	var verr *types.ValidationError
	require.True(t, errors.As(mapError(wrapped), &verr))
	assert.Contains(t, verr.Fields, "officer_id")
}

func TestMapErrorUniqueViolationIsConflict(t *testing.T) {
	err := mapError(&pq.Error{Code: pqUniqueViolation, Constraint: "users_username_key_idx"})

	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "username")
}

func TestMapErrorCheckViolation(t *testing.T) {
	var verr *types.ValidationError

	err := mapError(&pq.Error{Code: pqCheckViolation, Table: "patrol_reports", Constraint: "patrol_reports_window_check"})
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "ended_at")

	err = mapError(&pq.Error{Code: pqCheckViolation, Table: "incidents", Constraint: "incidents_severity_check"})
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "severity")
}

func TestMapErrorPassesThroughOtherErrors(t *testing.T) {
	plain := errors.New("connection reset")
	assert.Same(t, plain, mapError(plain))

	other := &pq.Error{Code: "40001"}
	assert.Equal(t, error(other), mapError(other))
}

func TestConditionsNumbersPlaceholders(t *testing.T) {
	var conds conditions
	conds.addIf("", "skipped = ?")
	conds.addIf("p1", "property_id = ?")
	conds.add("(title ILIKE ? OR code ILIKE ?)", "%a%", "%a%")

	assert.Equal(t, " WHERE property_id = $1 AND (title ILIKE $2 OR code ILIKE $3)", conds.where())

	suffix, args := conds.page(40, 20)
	assert.Equal(t, " LIMIT $4 OFFSET $5", suffix)
	assert.Equal(t, []any{"p1", "%a%", "%a%", 20, 40}, args)
	assert.Len(t, conds.args, 3)
}

func TestConditionsEmpty(t *testing.T) {
	var conds conditions
	assert.Equal(t, "", conds.where())

	suffix, args := conds.page(0, 10)
	assert.Equal(t, " LIMIT $1 OFFSET $2", suffix)
	assert.Equal(t, []any{10, 0}, args)
}
