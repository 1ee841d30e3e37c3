package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/guardpost/apiserver/types"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, phone, role, status, zone, shift, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row scanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.Role,
		&user.Status,
		&user.Zone,
		&user.Shift,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, mapError(err)
	}
	return user, nil
}

// GetByUsername looks a user up by the case-folded username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username_key = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, types.UsernameKey(username)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) List(ctx context.Context, filter types.UserFilter, offset, limit int) ([]types.User, int, error) {
	var conds conditions
	conds.addIf(string(filter.Role), "role = ?")
	conds.addIf(string(filter.Status), "status = ?")

	total, err := conds.count(ctx, r.db, "users")
	if err != nil {
		return nil, 0, err
	}

	suffix, args := conds.page(offset, limit)
	query := `SELECT ` + userColumns + ` FROM users` + conds.where() + ` ORDER BY last_name, first_name, username` + suffix
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (id, username, username_key, email, password_hash, first_name, last_name,
			phone, role, status, zone, shift, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Username,
		types.UsernameKey(user.Username),
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Role,
		user.Status,
		user.Zone,
		user.Shift,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

// Update persists profile, role and status changes. The password hash is
// changed only through UpdatePassword.
func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE users
		SET username = $1,
			username_key = $2,
			email = $3,
			first_name = $4,
			last_name = $5,
			phone = $6,
			role = $7,
			status = $8,
			zone = $9,
			shift = $10,
			updated_at = $11
		WHERE id = $12`
	err := execAffected(
		ctx,
		r.db,
		query,
		user.Username,
		types.UsernameKey(user.Username),
		user.Email,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Role,
		user.Status,
		user.Zone,
		user.Shift,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	return execAffected(ctx, r.db, query, passwordHash, time.Now().UTC(), id)
}

func (r *UserRepository) SetStatus(ctx context.Context, id string, status types.UserStatus) error {
	const query = `UPDATE users SET status = $1, updated_at = $2 WHERE id = $3`
	return execAffected(ctx, r.db, query, status, time.Now().UTC(), id)
}

// CountByRole returns how many active users hold role.
func (r *UserRepository) CountByRole(ctx context.Context, role types.Role) (int, error) {
	var total int
	const query = `SELECT COUNT(*) FROM users WHERE role = $1 AND status = 'active'`
	if err := r.db.QueryRowContext(ctx, query, role).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
