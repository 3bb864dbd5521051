package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/catalog/internal/model"
)

// Mode is the access mode of a transaction.
type Mode int

const (
	// ReadOnly transactions reject every write.
	ReadOnly Mode = iota
	// ReadWrite transactions may write any table in scope.
	ReadWrite
)

func (m Mode) String() string {
	if m == ReadWrite {
		return "rw"
	}
	return "r"
}

// Tx is a scoped transaction handle. It is only valid inside the body passed
// to Transaction and must not be retained or shared across goroutines.
type Tx struct {
	tx      *sql.Tx
	mode    Mode
	scope   map[model.Table]struct{}
	read    map[model.Table]struct{}
	written map[model.Table]struct{}
}

// Transaction runs fn with all-or-nothing visibility across the listed
// tables. An empty table list scopes the transaction to every table.
//
// If fn returns an error or panics, every write made through the Tx is
// rolled back and the error (or panic) propagates. After a successful
// commit the written tables are published to live subscriptions.
//
// fn must use only the Tx; calling Store methods from inside fn deadlocks
// on the single connection.
func (s *Store) Transaction(ctx context.Context, mode Mode, tables []model.Table, fn func(*Tx) error) error {
	scope := make(map[model.Table]struct{}, len(tables))
	for _, t := range tables {
		if err := checkTable(t); err != nil {
			return err
		}
		scope[t] = struct{}{}
	}
	if len(scope) == 0 {
		for _, t := range model.Tables {
			scope[t] = struct{}{}
		}
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback after a successful commit is a no-op; it also runs while a
	// panic unwinds.
	defer sqlTx.Rollback()

	tx := &Tx{
		tx:      sqlTx,
		mode:    mode,
		scope:   scope,
		read:    make(map[model.Table]struct{}),
		written: make(map[model.Table]struct{}),
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	if len(tx.written) > 0 {
		s.hub.publish(tx.written)
	}
	return nil
}

// Mode returns the access mode of the transaction.
func (tx *Tx) Mode() Mode {
	return tx.mode
}

// Touched returns the tables read or written so far.
func (tx *Tx) Touched() []model.Table {
	var out []model.Table
	for _, t := range model.Tables {
		_, r := tx.read[t]
		_, w := tx.written[t]
		if r || w {
			out = append(out, t)
		}
	}
	return out
}

// use checks the table against the declared scope and records the access.
func (tx *Tx) use(t model.Table, write bool) error {
	if err := checkTable(t); err != nil {
		return err
	}
	if _, ok := tx.scope[t]; !ok {
		return fmt.Errorf("%w: %s", ErrOutOfScope, t)
	}
	if write {
		if tx.mode != ReadWrite {
			return fmt.Errorf("%w: %s", ErrReadOnly, t)
		}
		tx.written[t] = struct{}{}
		return nil
	}
	tx.read[t] = struct{}{}
	return nil
}
