package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/guardpost/apiserver/types"
)

const financialColumns = `id, client_id, kind, amount_cents, currency, status, description, due_date, paid_at, created_at, updated_at`

// FinancialRepository handles persistence for financial records.
type FinancialRepository struct {
	db *sql.DB
}

func NewFinancialRepository(db *sql.DB) *FinancialRepository {
	return &FinancialRepository{db: db}
}

func scanFinancial(row scanner) (types.FinancialRecord, error) {
	var record types.FinancialRecord
	err := row.Scan(
		&record.ID,
		&record.ClientID,
		&record.Kind,
		&record.AmountCents,
		&record.Currency,
		&record.Status,
		&record.Description,
		&record.DueDate,
		&record.PaidAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	return record, err
}

func financialConditions(filter types.FinancialFilter) conditions {
	var conds conditions
	conds.addIf(filter.ClientID, "client_id = ?")
	conds.addIf(filter.Kind, "kind = ?")
	conds.addIf(filter.Status, "status = ?")
	return conds
}

func (r *FinancialRepository) Get(ctx context.Context, id string) (types.FinancialRecord, error) {
	query := `SELECT ` + financialColumns + ` FROM financial_records WHERE id = $1`
	record, err := scanFinancial(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.FinancialRecord{}, ErrNotFound
		}
		return types.FinancialRecord{}, err
	}
	return record, nil
}

func (r *FinancialRepository) List(ctx context.Context, filter types.FinancialFilter, offset, limit int) ([]types.FinancialRecord, int, error) {
	conds := financialConditions(filter)

	total, err := conds.count(ctx, r.db, "financial_records")
	if err != nil {
		return nil, 0, err
	}

	suffix, args := conds.page(offset, limit)
	query := `SELECT ` + financialColumns + ` FROM financial_records` + conds.where() + ` ORDER BY created_at DESC` + suffix
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records := make([]types.FinancialRecord, 0)
	for rows.Next() {
		record, err := scanFinancial(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Totals sums non-void amounts per kind for the records matching filter.
func (r *FinancialRepository) Totals(ctx context.Context, filter types.FinancialFilter) (types.FinancialTotals, error) {
	conds := financialConditions(filter)
	conds.add("status <> 'void'")

	query := `
		SELECT
			COALESCE(SUM(amount_cents) FILTER (WHERE kind = 'invoice'), 0),
			COALESCE(SUM(amount_cents) FILTER (WHERE kind = 'payment'), 0),
			COALESCE(SUM(amount_cents) FILTER (WHERE kind = 'expense'), 0)
		FROM financial_records` + conds.where()
	var totals types.FinancialTotals
	if err := r.db.QueryRowContext(ctx, query, conds.args...).Scan(
		&totals.InvoicedCents,
		&totals.PaidCents,
		&totals.ExpenseCents,
	); err != nil {
		return types.FinancialTotals{}, err
	}
	return totals, nil
}

func (r *FinancialRepository) Create(ctx context.Context, record types.FinancialRecord) (types.FinancialRecord, error) {
	record.ID = uuid.NewString()
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	const query = `
		INSERT INTO financial_records (id, client_id, kind, amount_cents, currency, status, description,
			due_date, paid_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.ClientID,
		record.Kind,
		record.AmountCents,
		record.Currency,
		record.Status,
		record.Description,
		record.DueDate,
		record.PaidAt,
		record.CreatedAt,
		record.UpdatedAt,
	); err != nil {
		return types.FinancialRecord{}, mapError(err)
	}
	return record, nil
}

func (r *FinancialRepository) Update(ctx context.Context, record types.FinancialRecord) (types.FinancialRecord, error) {
	record.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE financial_records
		SET client_id = $1,
			kind = $2,
			amount_cents = $3,
			currency = $4,
			status = $5,
			description = $6,
			due_date = $7,
			paid_at = $8,
			updated_at = $9
		WHERE id = $10
		RETURNING created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		record.ClientID,
		record.Kind,
		record.AmountCents,
		record.Currency,
		record.Status,
		record.Description,
		record.DueDate,
		record.PaidAt,
		record.UpdatedAt,
		record.ID,
	).Scan(&record.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.FinancialRecord{}, ErrNotFound
		}
		return types.FinancialRecord{}, mapError(err)
	}
	return record, nil
}

func (r *FinancialRepository) Delete(ctx context.Context, id string) error {
	return execAffected(ctx, r.db, `DELETE FROM financial_records WHERE id = $1`, id)
}
