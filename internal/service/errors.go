package service

import (
	"errors"
	"fmt"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/schema"
	"github.com/roach88/catalog/internal/store"
)

// Error represents a failure of a record service operation.
//
// Error codes:
//   - NOT_FOUND: record or required setting missing
//   - DUPLICATE_KEY: add of an existing identifier
//   - VALIDATION_FAILED: schema violation, see Violations
//   - UNSUPPORTED_OPERATION: operation not defined for the entity kind
//   - TRANSACTION_FAILED: the store aborted the write; nothing was applied
//   - CONFIGURATION: invalid service descriptor
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Table is the table the operation targeted.
	Table model.Table

	// ID identifies the affected record, when there is one.
	ID string

	// Violations lists failed constraints for VALIDATION_FAILED.
	Violations []schema.Violation

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes service errors.
type ErrorCode string

const (
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeDuplicateKey       ErrorCode = "DUPLICATE_KEY"
	ErrCodeValidation         ErrorCode = "VALIDATION_FAILED"
	ErrCodeUnsupported        ErrorCode = "UNSUPPORTED_OPERATION"
	ErrCodeTransactionFailure ErrorCode = "TRANSACTION_FAILED"
	ErrCodeConfiguration      ErrorCode = "CONFIGURATION"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil && e.Code == ErrCodeTransactionFailure {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsNotFound reports whether err is a NOT_FOUND service error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsDuplicateKey reports whether err is a DUPLICATE_KEY service error.
func IsDuplicateKey(err error) bool { return hasCode(err, ErrCodeDuplicateKey) }

// IsValidation reports whether err is a VALIDATION_FAILED service error.
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsUnsupported reports whether err is an UNSUPPORTED_OPERATION service error.
func IsUnsupported(err error) bool { return hasCode(err, ErrCodeUnsupported) }

// IsTransactionFailure reports whether err is a TRANSACTION_FAILED service error.
func IsTransactionFailure(err error) bool { return hasCode(err, ErrCodeTransactionFailure) }

// IsConfiguration reports whether err is a CONFIGURATION service error.
func IsConfiguration(err error) bool { return hasCode(err, ErrCodeConfiguration) }

// NewNotFoundError creates the error returned for a missing record.
func NewNotFoundError(label string, table model.Table, id string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s ID not found: %s", label, id),
		Table:   table,
		ID:      id,
	}
}

// NewUnsupportedError creates the error for an operation a kind does not
// define.
func NewUnsupportedError(op string, table model.Table) *Error {
	return &Error{
		Code:    ErrCodeUnsupported,
		Message: fmt.Sprintf("%s is not supported for %s", op, table),
		Table:   table,
	}
}

// classify converts errors escaping a store transaction into service
// errors. Errors that already are service errors pass through unchanged.
func classify(err error, table model.Table, id string) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		return &Error{
			Code:       ErrCodeValidation,
			Message:    ve.Error(),
			Table:      table,
			ID:         id,
			Violations: ve.Violations,
			Err:        err,
		}
	}
	if errors.Is(err, store.ErrDuplicateKey) {
		return &Error{
			Code:    ErrCodeDuplicateKey,
			Message: fmt.Sprintf("%s already contains %s", table, id),
			Table:   table,
			ID:      id,
			Err:     err,
		}
	}
	return &Error{
		Code:    ErrCodeTransactionFailure,
		Message: fmt.Sprintf("transaction on %s failed", table),
		Table:   table,
		ID:      id,
		Err:     err,
	}
}
