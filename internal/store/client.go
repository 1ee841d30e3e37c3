package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/guardpost/apiserver/types"
)

const clientColumns = `id, name, contact_name, email, phone, address, contract_start, contract_end, status, notes, created_at, updated_at`

// ClientRepository handles persistence for clients.
type ClientRepository struct {
	db *sql.DB
}

func NewClientRepository(db *sql.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func scanClient(row scanner) (types.Client, error) {
	var client types.Client
	err := row.Scan(
		&client.ID,
		&client.Name,
		&client.ContactName,
		&client.Email,
		&client.Phone,
		&client.Address,
		&client.ContractStart,
		&client.ContractEnd,
		&client.Status,
		&client.Notes,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	return client, err
}

func (r *ClientRepository) Get(ctx context.Context, id string) (types.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	client, err := scanClient(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Client{}, ErrNotFound
		}
		return types.Client{}, err
	}
	return client, nil
}

func (r *ClientRepository) List(ctx context.Context, filter types.ClientFilter, offset, limit int) ([]types.Client, int, error) {
	var conds conditions
	conds.addIf(string(filter.Status), "status = ?")

	total, err := conds.count(ctx, r.db, "clients")
	if err != nil {
		return nil, 0, err
	}

	suffix, args := conds.page(offset, limit)
	query := `SELECT ` + clientColumns + ` FROM clients` + conds.where() + ` ORDER BY name` + suffix
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	clients := make([]types.Client, 0)
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return clients, total, nil
}

func (r *ClientRepository) Create(ctx context.Context, client types.Client) (types.Client, error) {
	client.ID = uuid.NewString()
	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now

	const query = `
		INSERT INTO clients (id, name, contact_name, email, phone, address, contract_start, contract_end,
			status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		client.ID,
		client.Name,
		client.ContactName,
		client.Email,
		client.Phone,
		client.Address,
		client.ContractStart,
		client.ContractEnd,
		client.Status,
		client.Notes,
		client.CreatedAt,
		client.UpdatedAt,
	); err != nil {
		return types.Client{}, mapError(err)
	}
	return client, nil
}

func (r *ClientRepository) Update(ctx context.Context, client types.Client) (types.Client, error) {
	client.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE clients
		SET name = $1,
			contact_name = $2,
			email = $3,
			phone = $4,
			address = $5,
			contract_start = $6,
			contract_end = $7,
			status = $8,
			notes = $9,
			updated_at = $10
		WHERE id = $11
		RETURNING created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		client.Name,
		client.ContactName,
		client.Email,
		client.Phone,
		client.Address,
		client.ContractStart,
		client.ContractEnd,
		client.Status,
		client.Notes,
		client.UpdatedAt,
		client.ID,
	).Scan(&client.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Client{}, ErrNotFound
		}
		return types.Client{}, mapError(err)
	}
	return client, nil
}

func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	return execAffected(ctx, r.db, `DELETE FROM clients WHERE id = $1`, id)
}
