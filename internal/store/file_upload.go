package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/guardpost/apiserver/types"
)

const fileColumns = `id, entity_type, entity_id, filename, content_type, size_bytes, object_key, uploaded_by, created_at`

// FileRepository stores metadata for uploaded objects.
type FileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

func scanFile(row scanner) (types.FileUpload, error) {
	var file types.FileUpload
	err := row.Scan(
		&file.ID,
		&file.EntityType,
		&file.EntityID,
		&file.Filename,
		&file.ContentType,
		&file.SizeBytes,
		&file.ObjectKey,
		&file.UploadedBy,
		&file.CreatedAt,
	)
	return file, err
}

func (r *FileRepository) Get(ctx context.Context, id string) (types.FileUpload, error) {
	query := `SELECT ` + fileColumns + ` FROM file_uploads WHERE id = $1`
	file, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.FileUpload{}, ErrNotFound
		}
		return types.FileUpload{}, err
	}
	return file, nil
}

func (r *FileRepository) List(ctx context.Context, filter types.FileFilter, offset, limit int) ([]types.FileUpload, int, error) {
	var conds conditions
	conds.addIf(filter.EntityType, "entity_type = ?")
	conds.addIf(filter.EntityID, "entity_id = ?")

	total, err := conds.count(ctx, r.db, "file_uploads")
	if err != nil {
		return nil, 0, err
	}

	suffix, args := conds.page(offset, limit)
	query := `SELECT ` + fileColumns + ` FROM file_uploads` + conds.where() + ` ORDER BY created_at DESC` + suffix
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	files := make([]types.FileUpload, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, 0, err
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

// Create stores metadata. The caller assigns ID and ObjectKey because the
// object is uploaded before the row is written.
func (r *FileRepository) Create(ctx context.Context, file types.FileUpload) (types.FileUpload, error) {
	file.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO file_uploads (id, entity_type, entity_id, filename, content_type, size_bytes,
			object_key, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		file.ID,
		file.EntityType,
		file.EntityID,
		file.Filename,
		file.ContentType,
		file.SizeBytes,
		file.ObjectKey,
		file.UploadedBy,
		file.CreatedAt,
	); err != nil {
		return types.FileUpload{}, mapError(err)
	}
	return file, nil
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	return execAffected(ctx, r.db, `DELETE FROM file_uploads WHERE id = $1`, id)
}
