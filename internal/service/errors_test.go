package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/schema"
	"github.com/roach88/catalog/internal/store"
)

func TestError_Format(t *testing.T) {
	err := NewNotFoundError("Item", model.TableItems, "itm-1")
	assert.Equal(t, "NOT_FOUND: Item ID not found: itm-1", err.Error())

	err = &Error{Code: ErrCodeTransactionFailure, Message: "transaction on logs failed", Err: errors.New("disk full")}
	assert.Equal(t, "TRANSACTION_FAILED: transaction on logs failed: disk full", err.Error())
}

func TestError_HelpersSeeWrappedErrors(t *testing.T) {
	base := NewUnsupportedError("purge", model.TableImages)
	wrapped := fmt.Errorf("cli: %w", base)

	assert.True(t, IsUnsupported(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.False(t, IsUnsupported(errors.New("plain")))
	assert.False(t, IsUnsupported(nil))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{"validation", &schema.ValidationError{Entity: "Log", Violations: []schema.Violation{{Path: "level", Message: "bad"}}}, ErrCodeValidation},
		{"duplicate", fmt.Errorf("add: %w", store.ErrDuplicateKey), ErrCodeDuplicateKey},
		{"store failure", fmt.Errorf("query: %w", store.ErrOutOfScope), ErrCodeTransactionFailure},
		{"passthrough", NewNotFoundError("Log", model.TableLogs, "x"), ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err, model.TableLogs, "x")
			var se *Error
			assert.ErrorAs(t, got, &se)
			assert.Equal(t, tt.code, se.Code)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, classify(nil, model.TableLogs, ""))
}

func TestClassify_KeepsViolations(t *testing.T) {
	ve := &schema.ValidationError{Entity: "Item", Violations: []schema.Violation{{Path: "imageId", Message: "is required"}}}

	var se *Error
	assert.ErrorAs(t, classify(ve, model.TableItems, "itm-1"), &se)
	assert.Equal(t, ve.Violations, se.Violations)
	assert.Equal(t, "itm-1", se.ID)
}
