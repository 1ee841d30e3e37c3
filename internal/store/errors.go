package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/guardpost/apiserver/types"
	"github.com/lib/pq"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
	pqCheckViolation      = "23514"
	pqInvalidText         = "22P02"
)

// uniqueFields maps unique index names to the field they guard.
var uniqueFields = map[string]string{
	"users_username_key_idx":      "username",
	"users_email_lower_idx":       "email",
	"law_references_code_idx":     "code",
	"file_uploads_object_key_key": "object_key",
}

// checkFields maps named table checks to the field reported to callers.
var checkFields = map[string]string{
	"clients_contract_range_check": "contract_end",
	"patrol_reports_window_check":  "ended_at",
}

// mapError translates postgres constraint violations into domain errors.
// A foreign key violation means the write referenced a record that does not
// exist and becomes a field-level ValidationError.
func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch string(pqErr.Code) {
	case pqForeignKeyViolation:
		field := foreignKeyField(pqErr.Table, pqErr.Constraint)
		return types.NewValidationError(field, "references a record that does not exist")
	case pqUniqueViolation:
		field, ok := uniqueFields[pqErr.Constraint]
		if !ok {
			field = pqErr.Constraint
		}
		return fmt.Errorf("%w: %s already exists", ErrConflict, field)
	case pqCheckViolation:
		field, ok := checkFields[pqErr.Constraint]
		if !ok {
			field = checkField(pqErr.Table, pqErr.Constraint)
		}
		return types.NewValidationError(field, "has an invalid value")
	case pqInvalidText:
		return types.NewValidationError("id", "is malformed")
	}
	return err
}

// foreignKeyField derives the column from postgres' default constraint name
// "<table>_<column>_fkey".
func foreignKeyField(table, constraint string) string {
	field := strings.TrimSuffix(constraint, "_fkey")
	if table != "" {
		field = strings.TrimPrefix(field, table+"_")
	}
	if field == "" {
		return "reference"
	}
	return field
}

// checkField derives the column from postgres' default check name
// "<table>_<column>_check".
func checkField(table, constraint string) string {
	field := strings.TrimSuffix(constraint, "_check")
	if table != "" {
		field = strings.TrimPrefix(field, table+"_")
	}
	if field == "" {
		return "value"
	}
	return field
}
