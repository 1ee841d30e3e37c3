package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/guardpost/apiserver/types"
	"github.com/lib/pq"
)

const patrolColumns = `id, property_id, officer_id, started_at, ended_at, checkpoints, photo_refs, notes, status, created_at, updated_at`

// PatrolRepository handles persistence for patrol reports.
type PatrolRepository struct {
	db *sql.DB
}

func NewPatrolRepository(db *sql.DB) *PatrolRepository {
	return &PatrolRepository{db: db}
}

func scanPatrol(row scanner) (types.PatrolReport, error) {
	var report types.PatrolReport
	err := row.Scan(
		&report.ID,
		&report.PropertyID,
		&report.OfficerID,
		&report.StartedAt,
		&report.EndedAt,
		pq.Array(&report.Checkpoints),
		pq.Array(&report.PhotoRefs),
		&report.Notes,
		&report.Status,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	return report, err
}

func (r *PatrolRepository) Get(ctx context.Context, id string) (types.PatrolReport, error) {
	query := `SELECT ` + patrolColumns + ` FROM patrol_reports WHERE id = $1`
	report, err := scanPatrol(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.PatrolReport{}, ErrNotFound
		}
		return types.PatrolReport{}, err
	}
	return report, nil
}

func (r *PatrolRepository) List(ctx context.Context, filter types.PatrolFilter, offset, limit int) ([]types.PatrolReport, int, error) {
	var conds conditions
	conds.addIf(filter.PropertyID, "property_id = ?")
	conds.addIf(filter.OfficerID, "officer_id = ?")
	conds.addIf(string(filter.Status), "status = ?")

	total, err := conds.count(ctx, r.db, "patrol_reports")
	if err != nil {
		return nil, 0, err
	}

	suffix, args := conds.page(offset, limit)
	query := `SELECT ` + patrolColumns + ` FROM patrol_reports` + conds.where() + ` ORDER BY started_at DESC` + suffix
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reports := make([]types.PatrolReport, 0)
	for rows.Next() {
		report, err := scanPatrol(rows)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (r *PatrolRepository) Create(ctx context.Context, report types.PatrolReport) (types.PatrolReport, error) {
	report.ID = uuid.NewString()
	now := time.Now().UTC()
	report.CreatedAt = now
	report.UpdatedAt = now

	const query = `
		INSERT INTO patrol_reports (id, property_id, officer_id, started_at, ended_at, checkpoints,
			photo_refs, notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		report.ID,
		report.PropertyID,
		report.OfficerID,
		report.StartedAt,
		report.EndedAt,
		textArray(report.Checkpoints),
		textArray(report.PhotoRefs),
		report.Notes,
		report.Status,
		report.CreatedAt,
		report.UpdatedAt,
	); err != nil {
		return types.PatrolReport{}, mapError(err)
	}
	return report, nil
}

func (r *PatrolRepository) Update(ctx context.Context, report types.PatrolReport) (types.PatrolReport, error) {
	report.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE patrol_reports
		SET property_id = $1,
			officer_id = $2,
			started_at = $3,
			ended_at = $4,
			checkpoints = $5,
			photo_refs = $6,
			notes = $7,
			status = $8,
			updated_at = $9
		WHERE id = $10
		RETURNING created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		report.PropertyID,
		report.OfficerID,
		report.StartedAt,
		report.EndedAt,
		textArray(report.Checkpoints),
		textArray(report.PhotoRefs),
		report.Notes,
		report.Status,
		report.UpdatedAt,
		report.ID,
	).Scan(&report.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.PatrolReport{}, ErrNotFound
		}
		return types.PatrolReport{}, mapError(err)
	}
	return report, nil
}

func (r *PatrolRepository) Delete(ctx context.Context, id string) error {
	return execAffected(ctx, r.db, `DELETE FROM patrol_reports WHERE id = $1`, id)
}
