package query

import (
	"errors"
	"fmt"
)

// Validation failures. They are wrapped in a *ValidationError naming the
// offending field.
var (
	ErrMissingTable      = errors.New("table is required")
	ErrInvalidLimit      = errors.New("must be a non-negative integer")
	ErrInvalidJoin       = errors.New("invalid join")
	ErrInvalidAggregate  = errors.New("invalid aggregate")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrInvalidCTE        = errors.New("invalid common table expression")
	ErrArgCount          = errors.New("placeholder and argument counts differ")
)

// ErrEmptySpec is returned by SpecFromYAML for a document with no content.
var ErrEmptySpec = errors.New("spec document is empty")

// ValidationError reports a Spec that cannot be assembled. It is returned
// before any SQL is generated.
type ValidationError struct {
	Field  string
	Err    error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid query spec: %s: %v: %s", e.Field, e.Err, e.Detail)
	}
	return fmt.Sprintf("invalid query spec: %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Err: err, Detail: fmt.Sprintf(format, args...)}
}

// ShapeError reports loosely-typed input that matches none of the accepted
// shapes for a field.
type ShapeError struct {
	Field string
	Value any
	Want  string
	Cause error
}

func (e *ShapeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: unsupported shape %T: %v", e.Field, e.Value, e.Cause)
	}
	return fmt.Sprintf("%s: unsupported shape %T, want %s", e.Field, e.Value, e.Want)
}

func (e *ShapeError) Unwrap() error { return e.Cause }
