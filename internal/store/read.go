package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/catalog/internal/model"
)

// ScanOptions controls the order of a scan or query.
// A zero value scans in identifier order.
type ScanOptions struct {
	// OrderBy is a top-level JSON field of the record body.
	OrderBy string
	// Descending reverses the order, including the id tie-break.
	Descending bool
	// Limit caps the number of rows returned; 0 means unlimited.
	Limit int
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkField(field string) error {
	if !fieldPattern.MatchString(field) {
		return fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	return nil
}

// orderClause builds a deterministic ORDER BY: the requested field, then id.
func orderClause(opts ScanOptions) (string, error) {
	dir := "ASC"
	if opts.Descending {
		dir = "DESC"
	}
	var b strings.Builder
	b.WriteString(" ORDER BY ")
	if opts.OrderBy != "" && opts.OrderBy != "id" {
		if err := checkField(opts.OrderBy); err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "json_extract(body, '$.%s') %s, ", opts.OrderBy, dir)
	}
	fmt.Fprintf(&b, "id COLLATE BINARY %s", dir)
	if opts.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", opts.Limit)
	}
	return b.String(), nil
}

// Get returns the body of the record with the given id.
// Returns ErrNotFound if the record does not exist.
func (tx *Tx) Get(ctx context.Context, table model.Table, id string) (json.RawMessage, error) {
	if err := tx.use(table, false); err != nil {
		return nil, err
	}
	return getBody(ctx, tx.tx, table, id)
}

func getBody(ctx context.Context, tx *sql.Tx, table model.Table, id string) (json.RawMessage, error) {
	var body string
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT body FROM %s WHERE id = ?", table), id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, table, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", table, id, err)
	}
	return json.RawMessage(body), nil
}

// Scan returns every record of the table in the requested order.
// Returns an empty slice (not nil) for an empty table.
func (tx *Tx) Scan(ctx context.Context, table model.Table, opts ScanOptions) ([]json.RawMessage, error) {
	if err := tx.use(table, false); err != nil {
		return nil, err
	}
	order, err := orderClause(opts)
	if err != nil {
		return nil, err
	}
	return queryBodies(ctx, tx.tx, table, fmt.Sprintf("SELECT body FROM %s", table)+order)
}

// Query returns the records whose top-level field equals value, in the
// requested order.
func (tx *Tx) Query(ctx context.Context, table model.Table, field string, value any, opts ScanOptions) ([]json.RawMessage, error) {
	if err := tx.use(table, false); err != nil {
		return nil, err
	}
	if err := checkField(field); err != nil {
		return nil, err
	}
	order, err := orderClause(opts)
	if err != nil {
		return nil, err
	}
	where := fmt.Sprintf(" WHERE json_extract(body, '$.%s') = ?", field)
	if field == "id" {
		where = " WHERE id = ?"
	}
	return queryBodies(ctx, tx.tx, table, fmt.Sprintf("SELECT body FROM %s", table)+where+order, value)
}

// Count returns the number of records in the table.
func (tx *Tx) Count(ctx context.Context, table model.Table) (int, error) {
	if err := tx.use(table, false); err != nil {
		return 0, err
	}
	var n int
	if err := tx.tx.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func queryBodies(ctx context.Context, tx *sql.Tx, table model.Table, query string, args ...any) ([]json.RawMessage, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	bodies := []json.RawMessage{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		bodies = append(bodies, json.RawMessage(body))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return bodies, nil
}

// Get reads one record outside an explicit transaction.
func (s *Store) Get(ctx context.Context, table model.Table, id string) (json.RawMessage, error) {
	var body json.RawMessage
	err := s.Transaction(ctx, ReadOnly, []model.Table{table}, func(tx *Tx) error {
		var err error
		body, err = tx.Get(ctx, table, id)
		return err
	})
	return body, err
}

// Scan reads a whole table outside an explicit transaction.
func (s *Store) Scan(ctx context.Context, table model.Table, opts ScanOptions) ([]json.RawMessage, error) {
	var bodies []json.RawMessage
	err := s.Transaction(ctx, ReadOnly, []model.Table{table}, func(tx *Tx) error {
		var err error
		bodies, err = tx.Scan(ctx, table, opts)
		return err
	})
	return bodies, err
}

// Query runs an equality lookup outside an explicit transaction.
func (s *Store) Query(ctx context.Context, table model.Table, field string, value any, opts ScanOptions) ([]json.RawMessage, error) {
	var bodies []json.RawMessage
	err := s.Transaction(ctx, ReadOnly, []model.Table{table}, func(tx *Tx) error {
		var err error
		bodies, err = tx.Query(ctx, table, field, value, opts)
		return err
	})
	return bodies, err
}

// Count counts a table outside an explicit transaction.
func (s *Store) Count(ctx context.Context, table model.Table) (int, error) {
	var n int
	err := s.Transaction(ctx, ReadOnly, []model.Table{table}, func(tx *Tx) error {
		var err error
		n, err = tx.Count(ctx, table)
		return err
	})
	return n, err
}
