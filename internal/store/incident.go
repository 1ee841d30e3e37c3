package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/guardpost/apiserver/types"
)

const incidentColumns = `id, property_id, reported_by, type, title, description, location, severity, status, occurred_at, resolved_at, created_at, updated_at`

// IncidentRepository handles persistence for incidents.
type IncidentRepository struct {
	db *sql.DB
}

func NewIncidentRepository(db *sql.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

func scanIncident(row scanner) (types.Incident, error) {
	var incident types.Incident
	err := row.Scan(
		&incident.ID,
		&incident.PropertyID,
		&incident.ReportedBy,
		&incident.Type,
		&incident.Title,
		&incident.Description,
		&incident.Location,
		&incident.Severity,
		&incident.Status,
		&incident.OccurredAt,
		&incident.ResolvedAt,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	return incident, err
}

func (r *IncidentRepository) Get(ctx context.Context, id string) (types.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`
	incident, err := scanIncident(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Incident{}, ErrNotFound
		}
		return types.Incident{}, err
	}
	return incident, nil
}

func (r *IncidentRepository) List(ctx context.Context, filter types.IncidentFilter, offset, limit int) ([]types.Incident, int, error) {
	var conds conditions
	conds.addIf(filter.PropertyID, "property_id = ?")
	conds.addIf(string(filter.Status), "status = ?")
	conds.addIf(string(filter.Severity), "severity = ?")

	total, err := conds.count(ctx, r.db, "incidents")
	if err != nil {
		return nil, 0, err
	}

	suffix, args := conds.page(offset, limit)
	query := `SELECT ` + incidentColumns + ` FROM incidents` + conds.where() + ` ORDER BY occurred_at DESC` + suffix
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	incidents := make([]types.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, 0, err
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return incidents, total, nil
}

// Create stores an incident. A property_id or reported_by that does not
// reference an existing row is rejected with a ValidationError.
func (r *IncidentRepository) Create(ctx context.Context, incident types.Incident) (types.Incident, error) {
	incident.ID = uuid.NewString()
	now := time.Now().UTC()
	incident.CreatedAt = now
	incident.UpdatedAt = now

	const query = `
		INSERT INTO incidents (id, property_id, reported_by, type, title, description, location, severity,
			status, occurred_at, resolved_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		incident.ID,
		incident.PropertyID,
		incident.ReportedBy,
		incident.Type,
		incident.Title,
		incident.Description,
		incident.Location,
		incident.Severity,
		incident.Status,
		incident.OccurredAt,
		incident.ResolvedAt,
		incident.CreatedAt,
		incident.UpdatedAt,
	); err != nil {
		return types.Incident{}, mapError(err)
	}
	return incident, nil
}

func (r *IncidentRepository) Update(ctx context.Context, incident types.Incident) (types.Incident, error) {
	incident.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE incidents
		SET property_id = $1,
			type = $2,
			title = $3,
			description = $4,
			location = $5,
			severity = $6,
			status = $7,
			occurred_at = $8,
			resolved_at = $9,
			updated_at = $10
		WHERE id = $11
		RETURNING reported_by, created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		incident.PropertyID,
		incident.Type,
		incident.Title,
		incident.Description,
		incident.Location,
		incident.Severity,
		incident.Status,
		incident.OccurredAt,
		incident.ResolvedAt,
		incident.UpdatedAt,
		incident.ID,
	).Scan(&incident.ReportedBy, &incident.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Incident{}, ErrNotFound
		}
		return types.Incident{}, mapError(err)
	}
	return incident, nil
}

func (r *IncidentRepository) Delete(ctx context.Context, id string) error {
	return execAffected(ctx, r.db, `DELETE FROM incidents WHERE id = $1`, id)
}
