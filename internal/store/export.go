package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/catalog/internal/model"
)

// Dump is a portable JSON export of every table.
type Dump struct {
	Version int                                `json:"version"`
	Tables  map[model.Table][]json.RawMessage `json:"tables"`
}

// Export serializes all tables in one read-only transaction.
// This is a portable export that doesn't depend on sqlite3 serialization APIs.
func (s *Store) Export(ctx context.Context) (*Dump, error) {
	dump := &Dump{
		Version: currentSchemaVersion,
		Tables:  make(map[model.Table][]json.RawMessage, len(model.Tables)),
	}
	err := s.Transaction(ctx, ReadOnly, nil, func(tx *Tx) error {
		for _, t := range model.Tables {
			bodies, err := tx.Scan(ctx, t, ScanOptions{})
			if err != nil {
				return fmt.Errorf("export %s: %w", t, err)
			}
			dump.Tables[t] = bodies
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dump, nil
}

// CheckDump rejects dumps written by a newer schema version or naming
// unknown tables.
func CheckDump(dump *Dump) error {
	if dump.Version > currentSchemaVersion {
		return fmt.Errorf("import: dump version %d is newer than supported version %d", dump.Version, currentSchemaVersion)
	}
	for t := range dump.Tables {
		if err := checkTable(t); err != nil {
			return fmt.Errorf("import: %w", err)
		}
	}
	return nil
}

// Import replaces the contents of every table with the dump, atomically.
// Tables absent from the dump end up empty. Record ids are read from each
// body's id field. Bodies are written as given; Registry.Import validates
// them first.
func (s *Store) Import(ctx context.Context, dump *Dump) error {
	if dump == nil {
		return nil
	}
	if err := CheckDump(dump); err != nil {
		return err
	}

	return s.Transaction(ctx, ReadWrite, nil, func(tx *Tx) error {
		for _, t := range model.Tables {
			if _, err := tx.Clear(ctx, t); err != nil {
				return fmt.Errorf("import: %w", err)
			}
		}
		for _, t := range model.Tables {
			for _, body := range dump.Tables[t] {
				id, err := bodyID(body)
				if err != nil {
					return fmt.Errorf("import %s: %w", t, err)
				}
				if err := tx.Add(ctx, t, id, body); err != nil {
					return fmt.Errorf("import: %w", err)
				}
			}
		}
		return nil
	})
}
