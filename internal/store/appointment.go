package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/guardpost/apiserver/types"
)

const appointmentColumns = `id, client_id, property_id, officer_id, title, scheduled_at, duration_minutes, status, notes, created_at, updated_at`

// AppointmentRepository handles persistence for appointments.
type AppointmentRepository struct {
	db *sql.DB
}

func NewAppointmentRepository(db *sql.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func scanAppointment(row scanner) (types.Appointment, error) {
	var appt types.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.ClientID,
		&appt.PropertyID,
		&appt.OfficerID,
		&appt.Title,
		&appt.ScheduledAt,
		&appt.DurationMinutes,
		&appt.Status,
		&appt.Notes,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	return appt, err
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (types.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Appointment{}, ErrNotFound
		}
		return types.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepository) List(ctx context.Context, filter types.AppointmentFilter, offset, limit int) ([]types.Appointment, int, error) {
	var conds conditions
	conds.addIf(filter.OfficerID, "officer_id = ?")
	conds.addIf(filter.PropertyID, "property_id = ?")
	if filter.From != nil {
		conds.add("scheduled_at >= ?", *filter.From)
	}
	if filter.To != nil {
		conds.add("scheduled_at < ?", *filter.To)
	}

	total, err := conds.count(ctx, r.db, "appointments")
	if err != nil {
		return nil, 0, err
	}

	suffix, args := conds.page(offset, limit)
	query := `SELECT ` + appointmentColumns + ` FROM appointments` + conds.where() + ` ORDER BY scheduled_at` + suffix
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	appts := make([]types.Appointment, 0)
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		appts = append(appts, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return appts, total, nil
}

func (r *AppointmentRepository) Create(ctx context.Context, appt types.Appointment) (types.Appointment, error) {
	appt.ID = uuid.NewString()
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	const query = `
		INSERT INTO appointments (id, client_id, property_id, officer_id, title, scheduled_at,
			duration_minutes, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		appt.ID,
		appt.ClientID,
		appt.PropertyID,
		appt.OfficerID,
		appt.Title,
		appt.ScheduledAt,
		appt.DurationMinutes,
		appt.Status,
		appt.Notes,
		appt.CreatedAt,
		appt.UpdatedAt,
	); err != nil {
		return types.Appointment{}, mapError(err)
	}
	return appt, nil
}

func (r *AppointmentRepository) Update(ctx context.Context, appt types.Appointment) (types.Appointment, error) {
	appt.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE appointments
		SET client_id = $1,
			property_id = $2,
			officer_id = $3,
			title = $4,
			scheduled_at = $5,
			duration_minutes = $6,
			status = $7,
			notes = $8,
			updated_at = $9
		WHERE id = $10
		RETURNING created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		appt.ClientID,
		appt.PropertyID,
		appt.OfficerID,
		appt.Title,
		appt.ScheduledAt,
		appt.DurationMinutes,
		appt.Status,
		appt.Notes,
		appt.UpdatedAt,
		appt.ID,
	).Scan(&appt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Appointment{}, ErrNotFound
		}
		return types.Appointment{}, mapError(err)
	}
	return appt, nil
}

func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	return execAffected(ctx, r.db, `DELETE FROM appointments WHERE id = $1`, id)
}
