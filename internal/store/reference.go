package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/guardpost/apiserver/types"
)

const (
	resourceColumns = `id, name, category, phone, address, website, description, created_at, updated_at`
	lawColumns      = `id, code, title, jurisdiction, summary, url, created_at, updated_at`
)

// ResourceRepository handles persistence for community resources.
type ResourceRepository struct {
	db *sql.DB
}

func NewResourceRepository(db *sql.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

func scanResource(row scanner) (types.CommunityResource, error) {
	var res types.CommunityResource
	err := row.Scan(
		&res.ID,
		&res.Name,
		&res.Category,
		&res.Phone,
		&res.Address,
		&res.Website,
		&res.Description,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	return res, err
}

func (r *ResourceRepository) Get(ctx context.Context, id string) (types.CommunityResource, error) {
	query := `SELECT ` + resourceColumns + ` FROM community_resources WHERE id = $1`
	res, err := scanResource(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.CommunityResource{}, ErrNotFound
		}
		return types.CommunityResource{}, err
	}
	return res, nil
}

func (r *ResourceRepository) List(ctx context.Context, filter types.ReferenceFilter, offset, limit int) ([]types.CommunityResource, int, error) {
	var conds conditions
	conds.addIf(filter.Category, "category = ?")
	if filter.Query != "" {
		conds.add("name ILIKE ?", "%"+filter.Query+"%")
	}

	total, err := conds.count(ctx, r.db, "community_resources")
	if err != nil {
		return nil, 0, err
	}

	suffix, args := conds.page(offset, limit)
	query := `SELECT ` + resourceColumns + ` FROM community_resources` + conds.where() + ` ORDER BY category, name` + suffix
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	resources := make([]types.CommunityResource, 0)
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, 0, err
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return resources, total, nil
}

func (r *ResourceRepository) Create(ctx context.Context, res types.CommunityResource) (types.CommunityResource, error) {
	res.ID = uuid.NewString()
	now := time.Now().UTC()
	res.CreatedAt = now
	res.UpdatedAt = now

	const query = `
		INSERT INTO community_resources (id, name, category, phone, address, website, description,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(ctx, query,
		res.ID, res.Name, res.Category, res.Phone, res.Address, res.Website, res.Description,
		res.CreatedAt, res.UpdatedAt,
	); err != nil {
		return types.CommunityResource{}, mapError(err)
	}
	return res, nil
}

func (r *ResourceRepository) Update(ctx context.Context, res types.CommunityResource) (types.CommunityResource, error) {
	res.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE community_resources
		SET name = $1, category = $2, phone = $3, address = $4, website = $5, description = $6, updated_at = $7
		WHERE id = $8
		RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query,
		res.Name, res.Category, res.Phone, res.Address, res.Website, res.Description, res.UpdatedAt, res.ID,
	).Scan(&res.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.CommunityResource{}, ErrNotFound
		}
		return types.CommunityResource{}, mapError(err)
	}
	return res, nil
}

func (r *ResourceRepository) Delete(ctx context.Context, id string) error {
	return execAffected(ctx, r.db, `DELETE FROM community_resources WHERE id = $1`, id)
}

// LawRepository handles persistence for law references.
type LawRepository struct {
	db *sql.DB
}

func NewLawRepository(db *sql.DB) *LawRepository {
	return &LawRepository{db: db}
}

func scanLaw(row scanner) (types.LawReference, error) {
	var law types.LawReference
	err := row.Scan(
		&law.ID,
		&law.Code,
		&law.Title,
		&law.Jurisdiction,
		&law.Summary,
		&law.URL,
		&law.CreatedAt,
		&law.UpdatedAt,
	)
	return law, err
}

func (r *LawRepository) Get(ctx context.Context, id string) (types.LawReference, error) {
	query := `SELECT ` + lawColumns + ` FROM law_references WHERE id = $1`
	law, err := scanLaw(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.LawReference{}, ErrNotFound
		}
		return types.LawReference{}, err
	}
	return law, nil
}

// List filters by jurisdiction through ReferenceFilter.Category.
func (r *LawRepository) List(ctx context.Context, filter types.ReferenceFilter, offset, limit int) ([]types.LawReference, int, error) {
	var conds conditions
	conds.addIf(filter.Category, "jurisdiction = ?")
	if filter.Query != "" {
		conds.add("(title ILIKE ? OR code ILIKE ?)", "%"+filter.Query+"%", "%"+filter.Query+"%")
	}

	total, err := conds.count(ctx, r.db, "law_references")
	if err != nil {
		return nil, 0, err
	}

	suffix, args := conds.page(offset, limit)
	query := `SELECT ` + lawColumns + ` FROM law_references` + conds.where() + ` ORDER BY jurisdiction, code` + suffix
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	laws := make([]types.LawReference, 0)
	for rows.Next() {
		law, err := scanLaw(rows)
		if err != nil {
			return nil, 0, err
		}
		laws = append(laws, law)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return laws, total, nil
}

func (r *LawRepository) Create(ctx context.Context, law types.LawReference) (types.LawReference, error) {
	law.ID = uuid.NewString()
	now := time.Now().UTC()
	law.CreatedAt = now
	law.UpdatedAt = now

	const query = `
		INSERT INTO law_references (id, code, title, jurisdiction, summary, url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query,
		law.ID, law.Code, law.Title, law.Jurisdiction, law.Summary, law.URL, law.CreatedAt, law.UpdatedAt,
	); err != nil {
		return types.LawReference{}, mapError(err)
	}
	return law, nil
}

func (r *LawRepository) Update(ctx context.Context, law types.LawReference) (types.LawReference, error) {
	law.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE law_references
		SET code = $1, title = $2, jurisdiction = $3, summary = $4, url = $5, updated_at = $6
		WHERE id = $7
		RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query,
		law.Code, law.Title, law.Jurisdiction, law.Summary, law.URL, law.UpdatedAt, law.ID,
	).Scan(&law.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.LawReference{}, ErrNotFound
		}
		return types.LawReference{}, mapError(err)
	}
	return law, nil
}

func (r *LawRepository) Delete(ctx context.Context, id string) error {
	return execAffected(ctx, r.db, `DELETE FROM law_references WHERE id = $1`, id)
}
