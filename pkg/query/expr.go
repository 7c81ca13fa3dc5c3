package query

import (
	"regexp"
	"strings"
)

// Expr is an expression in a column position: a select-list item, an
// aggregate argument, a GROUP BY or ORDER BY term. It is a sealed interface
// with three variants. Ident is always quoted, Raw is emitted verbatim and
// Star renders as *.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Ident is a possibly qualified identifier such as schema.table.column.
type Ident struct {
	Parts []string
}

// Raw is caller-authored SQL placed verbatim into the statement. It may
// contain ? placeholders bound from Spec.Args.
type Raw string

// Star is the * wildcard.
type Star struct{}

func (Ident) exprNode() {}
func (Raw) exprNode()   {}
func (Star) exprNode()  {}

// Col builds an identifier from its parts.
func Col(parts ...string) Ident {
	return Ident{Parts: parts}
}

func (i Ident) String() string {
	return strings.Join(i.Parts, ".")
}

var bareIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsBareIdentifier reports whether s is a plain unqualified SQL name.
func IsBareIdentifier(s string) bool {
	return bareIdent.MatchString(s)
}

// LooseExpr classifies a string: "*" is the wildcard, a bare identifier is
// an Ident, anything else is Raw.
func LooseExpr(s string) Expr {
	s = strings.TrimSpace(s)
	switch {
	case s == "*":
		return Star{}
	case IsBareIdentifier(s):
		return Col(s)
	default:
		return Raw(s)
	}
}

func isStar(e Expr) bool {
	_, ok := e.(Star)
	return ok
}
