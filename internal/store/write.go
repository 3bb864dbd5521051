package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/catalog/internal/model"
)

// bulkDeleteChunk stays well below SQLite's bound parameter limit.
const bulkDeleteChunk = 500

// Add inserts a record. Returns ErrDuplicateKey if the id already exists.
//
// Uses ON CONFLICT(id) DO NOTHING and inspects the affected row count, so a
// duplicate never aborts the surrounding SQLite transaction.
func (tx *Tx) Add(ctx context.Context, table model.Table, id string, record any) error {
	if err := tx.use(table, true); err != nil {
		return err
	}
	body, err := marshalBody(record)
	if err != nil {
		return fmt.Errorf("add %s %s: %w", table, id, err)
	}
	res, err := tx.tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, body) VALUES (?, ?) ON CONFLICT(id) DO NOTHING", table),
		id, body,
	)
	if err != nil {
		return fmt.Errorf("add %s %s: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add %s %s: %w", table, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", ErrDuplicateKey, table, id)
	}
	return nil
}

// Put inserts or replaces a record.
func (tx *Tx) Put(ctx context.Context, table model.Table, id string, record any) error {
	if err := tx.use(table, true); err != nil {
		return err
	}
	body, err := marshalBody(record)
	if err != nil {
		return fmt.Errorf("put %s %s: %w", table, id, err)
	}
	_, err = tx.tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, body) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET body = excluded.body", table),
		id, body,
	)
	if err != nil {
		return fmt.Errorf("put %s %s: %w", table, id, err)
	}
	return nil
}

// Update shallow-merges patch over the stored record and returns the merged
// body. Returns ErrNotFound if the record does not exist.
func (tx *Tx) Update(ctx context.Context, table model.Table, id string, patch map[string]any) (json.RawMessage, error) {
	if err := tx.use(table, true); err != nil {
		return nil, err
	}
	current, err := getBody(ctx, tx.tx, table, id)
	if err != nil {
		return nil, err
	}
	merged, err := mergePatch(current, patch)
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", table, id, err)
	}
	if _, err := tx.tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET body = ? WHERE id = ?", table), merged, id,
	); err != nil {
		return nil, fmt.Errorf("update %s %s: %w", table, id, err)
	}
	return json.RawMessage(merged), nil
}

// Delete removes a record. Deleting an absent id is not an error; the
// returned bool reports whether a row was removed.
func (tx *Tx) Delete(ctx context.Context, table model.Table, id string) (bool, error) {
	if err := tx.use(table, true); err != nil {
		return false, err
	}
	res, err := tx.tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	if err != nil {
		return false, fmt.Errorf("delete %s %s: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s %s: %w", table, id, err)
	}
	return n > 0, nil
}

// BulkDelete removes every listed id and returns how many rows existed.
func (tx *Tx) BulkDelete(ctx context.Context, table model.Table, ids []string) (int, error) {
	if err := tx.use(table, true); err != nil {
		return 0, err
	}
	total := 0
	for start := 0; start < len(ids); start += bulkDeleteChunk {
		end := min(start+bulkDeleteChunk, len(ids))
		chunk := ids[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")

		res, err := tx.tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", table, placeholders), args...,
		)
		if err != nil {
			return total, fmt.Errorf("bulk delete %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("bulk delete %s: %w", table, err)
		}
		total += int(n)
	}
	return total, nil
}

// Clear removes every record of the table and returns the count removed.
func (tx *Tx) Clear(ctx context.Context, table model.Table) (int, error) {
	if err := tx.use(table, true); err != nil {
		return 0, err
	}
	res, err := tx.tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table))
	if err != nil {
		return 0, fmt.Errorf("clear %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear %s: %w", table, err)
	}
	return int(n), nil
}

// Add inserts one record in its own transaction.
func (s *Store) Add(ctx context.Context, table model.Table, id string, record any) error {
	return s.Transaction(ctx, ReadWrite, []model.Table{table}, func(tx *Tx) error {
		return tx.Add(ctx, table, id, record)
	})
}

// Put upserts one record in its own transaction.
func (s *Store) Put(ctx context.Context, table model.Table, id string, record any) error {
	return s.Transaction(ctx, ReadWrite, []model.Table{table}, func(tx *Tx) error {
		return tx.Put(ctx, table, id, record)
	})
}

// Update patches one record in its own transaction.
func (s *Store) Update(ctx context.Context, table model.Table, id string, patch map[string]any) (json.RawMessage, error) {
	var body json.RawMessage
	err := s.Transaction(ctx, ReadWrite, []model.Table{table}, func(tx *Tx) error {
		var err error
		body, err = tx.Update(ctx, table, id, patch)
		return err
	})
	return body, err
}

// Delete removes one record in its own transaction.
func (s *Store) Delete(ctx context.Context, table model.Table, id string) (bool, error) {
	var existed bool
	err := s.Transaction(ctx, ReadWrite, []model.Table{table}, func(tx *Tx) error {
		var err error
		existed, err = tx.Delete(ctx, table, id)
		return err
	})
	return existed, err
}

// BulkDelete removes many records in one transaction.
func (s *Store) BulkDelete(ctx context.Context, table model.Table, ids []string) (int, error) {
	var n int
	err := s.Transaction(ctx, ReadWrite, []model.Table{table}, func(tx *Tx) error {
		var err error
		n, err = tx.BulkDelete(ctx, table, ids)
		return err
	})
	return n, err
}

// Clear empties a table in its own transaction.
func (s *Store) Clear(ctx context.Context, table model.Table) (int, error) {
	var n int
	err := s.Transaction(ctx, ReadWrite, []model.Table{table}, func(tx *Tx) error {
		var err error
		n, err = tx.Clear(ctx, table)
		return err
	})
	return n, err
}
