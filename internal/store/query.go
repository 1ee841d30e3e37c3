package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// conditions accumulates WHERE clauses with positional arguments.
type conditions struct {
	clauses []string
	args    []any
}

// add appends clause, replacing each "?" with the next positional parameter.
func (c *conditions) add(clause string, args ...any) {
	for _, arg := range args {
		c.args = append(c.args, arg)
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(c.args)), 1)
	}
	c.clauses = append(c.clauses, clause)
}

// addIf appends clause when value is not empty.
func (c *conditions) addIf(value string, clause string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	c.add(clause, value)
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// page returns the LIMIT/OFFSET suffix and arguments after the filter args.
func (c *conditions) page(offset, limit int) (string, []any) {
	args := append([]any{}, c.args...)
	args = append(args, limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}

func (c *conditions) count(ctx context.Context, db *sql.DB, table string) (int, error) {
	var total int
	query := "SELECT COUNT(*) FROM " + table + c.where()
	if err := db.QueryRowContext(ctx, query, c.args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// execAffected runs a statement and reports ErrNotFound when no row matched.
func execAffected(ctx context.Context, db *sql.DB, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// textArray converts nil slices to empty arrays for NOT NULL text[] columns.
func textArray(values []string) any {
	if values == nil {
		values = []string{}
	}
	return pq.Array(values)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
