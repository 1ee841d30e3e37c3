package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/guardpost/apiserver/types"
)

const propertyColumns = `id, client_id, name, address, security_level, coverage_type, zone, notes, created_at, updated_at`

// PropertyRepository handles persistence for properties.
type PropertyRepository struct {
	db *sql.DB
}

func NewPropertyRepository(db *sql.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

func scanProperty(row scanner) (types.Property, error) {
	var property types.Property
	err := row.Scan(
		&property.ID,
		&property.ClientID,
		&property.Name,
		&property.Address,
		&property.SecurityLevel,
		&property.CoverageType,
		&property.Zone,
		&property.Notes,
		&property.CreatedAt,
		&property.UpdatedAt,
	)
	return property, err
}

func (r *PropertyRepository) Get(ctx context.Context, id string) (types.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`
	property, err := scanProperty(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Property{}, ErrNotFound
		}
		return types.Property{}, err
	}
	return property, nil
}

func (r *PropertyRepository) List(ctx context.Context, filter types.PropertyFilter, offset, limit int) ([]types.Property, int, error) {
	var conds conditions
	conds.addIf(filter.ClientID, "client_id = ?")
	conds.addIf(filter.Zone, "zone = ?")

	total, err := conds.count(ctx, r.db, "properties")
	if err != nil {
		return nil, 0, err
	}

	suffix, args := conds.page(offset, limit)
	query := `SELECT ` + propertyColumns + ` FROM properties` + conds.where() + ` ORDER BY name` + suffix
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	properties := make([]types.Property, 0)
	for rows.Next() {
		property, err := scanProperty(rows)
		if err != nil {
			return nil, 0, err
		}
		properties = append(properties, property)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return properties, total, nil
}

func (r *PropertyRepository) Create(ctx context.Context, property types.Property) (types.Property, error) {
	property.ID = uuid.NewString()
	now := time.Now().UTC()
	property.CreatedAt = now
	property.UpdatedAt = now

	const query = `
		INSERT INTO properties (id, client_id, name, address, security_level, coverage_type, zone, notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		property.ID,
		property.ClientID,
		property.Name,
		property.Address,
		property.SecurityLevel,
		property.CoverageType,
		property.Zone,
		property.Notes,
		property.CreatedAt,
		property.UpdatedAt,
	); err != nil {
		return types.Property{}, mapError(err)
	}
	return property, nil
}

func (r *PropertyRepository) Update(ctx context.Context, property types.Property) (types.Property, error) {
	property.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE properties
		SET client_id = $1,
			name = $2,
			address = $3,
			security_level = $4,
			coverage_type = $5,
			zone = $6,
			notes = $7,
			updated_at = $8
		WHERE id = $9
		RETURNING created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		property.ClientID,
		property.Name,
		property.Address,
		property.SecurityLevel,
		property.CoverageType,
		property.Zone,
		property.Notes,
		property.UpdatedAt,
		property.ID,
	).Scan(&property.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Property{}, ErrNotFound
		}
		return types.Property{}, mapError(err)
	}
	return property, nil
}

func (r *PropertyRepository) Delete(ctx context.Context, id string) error {
	return execAffected(ctx, r.db, `DELETE FROM properties WHERE id = $1`, id)
}
