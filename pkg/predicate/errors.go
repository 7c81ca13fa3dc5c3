package predicate

import (
	"errors"
	"fmt"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/token"
)

// noPos marks limitations found outside of parsing.
var noPos token.Position

// ErrUnsupported is matched by every TranslationLimitationError.
var ErrUnsupported = errors.New("unsupported construct")

// TranslationLimitationError reports a construct that is valid SQL but has
// no faithful translation. It is returned instead of a guessed rendering.
type TranslationLimitationError struct {
	Construct string
	Pos       token.Position
}

func (e *TranslationLimitationError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("translation limitation at line %d, column %d: %s is not supported", e.Pos.Line, e.Pos.Column, e.Construct)
	}
	return fmt.Sprintf("translation limitation: %s is not supported", e.Construct)
}

func (e *TranslationLimitationError) Unwrap() error {
	return ErrUnsupported
}

// Limitation is a shorthand constructor.
func Limitation(pos token.Position, format string, args ...any) *TranslationLimitationError {
	return &TranslationLimitationError{Construct: fmt.Sprintf(format, args...), Pos: pos}
}
