package parser

import (
	"errors"
	"fmt"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/predicate"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/token"
)

// ErrInvalidQuery is matched by every ParseError and LexError.
var ErrInvalidQuery = errors.New("invalid query")

// ParseError represents a parsing error with position information.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

func (e *ParseError) Unwrap() error { return ErrInvalidQuery }

// LexError represents a lexical analysis error.
type LexError struct {
	Pos     token.Position
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexer error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

func (e *LexError) Unwrap() error { return ErrInvalidQuery }

// TranslationLimitationError is re-exported so callers of this package can
// match it without importing pkg/predicate.
type TranslationLimitationError = predicate.TranslationLimitationError

// Common error messages
const (
	ErrUnexpectedToken    = "unexpected token %s, expected %s"
	ErrUnterminatedString = "unterminated string literal"
	ErrUnterminatedIdent  = "unterminated quoted identifier"
	ErrInvalidLimit       = "%s requires a non-negative integer, got %q"
)

func errorf(pos token.Position, format string, args ...any) *ParseError {
	return &ParseError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}
