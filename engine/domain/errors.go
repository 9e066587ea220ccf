package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation failures.
var (
	ErrQuestionEmpty    = errors.New("question is empty")
	ErrQuestionTooShort = errors.New("question too short")
)

// ValidationError wraps a sentinel with context. It maps to a client error
// (4xx) at the HTTP boundary.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// ProviderError reports a failed call to the embedding or generation
// backend. It is surfaced as a server error and never retried at query time.
type ProviderError struct {
	Op  string // "embed" or "chat"
	Err error
}

func (e *ProviderError) Error() string { return fmt.Sprintf("provider: %s: %v", e.Op, e.Err) }
func (e *ProviderError) Unwrap() error { return e.Err }

// SchemaError reports a generation payload that failed strict validation
// against the answer schema. Treated as a provider-class failure: the
// answer is discarded, never partially salvaged.
type SchemaError struct {
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema: %s: %v", e.Reason, e.Err)
	}
	return "schema: " + e.Reason
}

func (e *SchemaError) Unwrap() error { return e.Err }

// QueryError reports a vector store read failure.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string { return fmt.Sprintf("store query: %s: %v", e.Op, e.Err) }
func (e *QueryError) Unwrap() error { return e.Err }

// WriteError reports a vector store write failure. During ingestion it is
// per-record and non-fatal to the batch.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("store write: %s: %v", e.Op, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }
