package store

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned by Add when the identifier already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrOutOfScope is returned when a transaction touches a table it did
	// not declare.
	ErrOutOfScope = errors.New("table not in transaction scope")

	// ErrReadOnly is returned when a read-only transaction attempts a write.
	ErrReadOnly = errors.New("write in read-only transaction")

	// ErrUnknownTable is returned for tables the schema does not define.
	ErrUnknownTable = errors.New("unknown table")

	// ErrInvalidField is returned for field names that are not simple
	// identifiers.
	ErrInvalidField = errors.New("invalid field name")
)
