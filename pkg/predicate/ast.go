// Package predicate holds the boolean filter tree shared by the SQL and
// OData paths, plus the generators that render it for each target.
//
// Predicate is a sealed interface: only the node types in this package
// implement it, so generators can switch over them exhaustively.
package predicate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Predicate is a boolean expression over columns and literals.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Column is a (possibly dotted) column reference.
type Column struct {
	Path []string
}

// Col builds a column reference from its dotted path parts.
func Col(path ...string) Column {
	return Column{Path: path}
}

func (c Column) String() string {
	return strings.Join(c.Path, ".")
}

// Operator is a binary comparison operator.
type Operator int

// Comparison operators.
const (
	Eq Operator = iota
	Ne
	Gt
	Ge
	Lt
	Le
)

var operatorNames = [...]struct{ odata, sql string }{
	Eq: {"eq", "="},
	Ne: {"ne", "<>"},
	Gt: {"gt", ">"},
	Ge: {"ge", ">="},
	Lt: {"lt", "<"},
	Le: {"le", "<="},
}

// OData returns the OData keyword for the operator.
func (o Operator) OData() string { return operatorNames[o].odata }

// SQL returns the SQL symbol for the operator.
func (o Operator) SQL() string { return operatorNames[o].sql }

func (o Operator) String() string { return o.OData() }

// IsOrdering reports whether the operator compares magnitude (gt, ge, lt, le).
func (o Operator) IsOrdering() bool {
	return o == Gt || o == Ge || o == Lt || o == Le
}

// LiteralKind classifies a literal value.
type LiteralKind int

// Literal kinds.
const (
	KindNumber LiteralKind = iota
	KindString
	KindNull
	KindBool
)

func (k LiteralKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

var numericPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// IsNumeric reports whether s is a plain decimal number such as 10, -3 or 9.99.
func IsNumeric(s string) bool {
	return numericPattern.MatchString(s)
}

// Literal is a typed constant. Text holds the unescaped value: the digits of
// a number, the content of a string, or "true"/"false"/"null".
type Literal struct {
	Kind LiteralKind
	Text string
}

// Number returns a numeric literal. The text must satisfy IsNumeric.
func Number(text string) Literal { return Literal{Kind: KindNumber, Text: text} }

// String returns a string literal holding s verbatim.
func String(s string) Literal { return Literal{Kind: KindString, Text: s} }

// Bool returns a boolean literal.
func Bool(b bool) Literal {
	if b {
		return Literal{Kind: KindBool, Text: "true"}
	}
	return Literal{Kind: KindBool, Text: "false"}
}

// Null returns the null literal.
func Null() Literal { return Literal{Kind: KindNull, Text: "null"} }

// Classify applies the bare-word literal rules: plain numbers stay numeric,
// null/true/false (any case) become keywords, everything else is a string.
func Classify(raw string) Literal {
	switch strings.ToLower(raw) {
	case "null":
		return Null()
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if IsNumeric(raw) {
		return Number(raw)
	}
	return String(raw)
}

// Comparison is `column <op> literal`.
type Comparison struct {
	Column Column
	Op     Operator
	Value  Literal
}

// NullCheck is `column IS [NOT] NULL`.
type NullCheck struct {
	Column Column
	IsNull bool
}

// InSet is `column [NOT] IN (values...)`. An empty set is always false,
// or always true when negated.
type InSet struct {
	Column  Column
	Values  []Literal
	Negated bool
}

// LikeKind is the shape of a supported LIKE pattern.
type LikeKind int

// Supported LIKE shapes.
const (
	LikeExact      LikeKind = iota // 'x'
	LikeContains                   // '%x%'
	LikeStartsWith                 // 'x%'
	LikeEndsWith                   // '%x'
)

// LikePattern is `column LIKE pattern` restricted to a leading and/or
// trailing % wildcard. Value is the pattern with those wildcards removed.
type LikePattern struct {
	Column Column
	Kind   LikeKind
	Value  string
}

// ErrUnsupportedPattern is returned for LIKE patterns with wildcards that
// cannot be expressed as contains/startswith/endswith.
var ErrUnsupportedPattern = errors.New("unsupported LIKE pattern")

// NewLikePattern classifies a SQL LIKE pattern.
func NewLikePattern(col Column, pattern string) (*LikePattern, error) {
	kind := LikeExact
	value := pattern

	switch {
	case len(pattern) >= 2 && strings.HasPrefix(pattern, "%") && strings.HasSuffix(pattern, "%"):
		kind, value = LikeContains, pattern[1:len(pattern)-1]
	case pattern == "%":
		kind, value = LikeContains, ""
	case strings.HasSuffix(pattern, "%"):
		kind, value = LikeStartsWith, pattern[:len(pattern)-1]
	case strings.HasPrefix(pattern, "%"):
		kind, value = LikeEndsWith, pattern[1:]
	}

	if strings.ContainsAny(value, "%_") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPattern, pattern)
	}
	return &LikePattern{Column: col, Kind: kind, Value: value}, nil
}

// Pattern returns the SQL LIKE pattern for the node.
func (p *LikePattern) Pattern() string {
	switch p.Kind {
	case LikeContains:
		return "%" + p.Value + "%"
	case LikeStartsWith:
		return p.Value + "%"
	case LikeEndsWith:
		return "%" + p.Value
	default:
		return p.Value
	}
}

// And is a conjunction.
type And struct {
	Left, Right Predicate
}

// Or is a disjunction.
type Or struct {
	Left, Right Predicate
}

// Group is an explicitly parenthesized predicate.
type Group struct {
	Inner Predicate
}

// Constant is a predicate with a fixed truth value, such as `1 eq 0`.
type Constant struct {
	Value bool
}

func (*Comparison) predicateNode()  {}
func (*NullCheck) predicateNode()   {}
func (*InSet) predicateNode()       {}
func (*LikePattern) predicateNode() {}
func (*And) predicateNode()         {}
func (*Or) predicateNode()          {}
func (*Group) predicateNode()       {}
func (*Constant) predicateNode()    {}

// AllOf folds predicates into a left-deep And chain. Nil entries are skipped.
func AllOf(preds ...Predicate) Predicate {
	var out Predicate
	for _, p := range preds {
		if p == nil {
			continue
		}
		if out == nil {
			out = p
			continue
		}
		out = &And{Left: out, Right: p}
	}
	return out
}

// AnyOf folds predicates into a left-deep Or chain. Nil entries are skipped.
func AnyOf(preds ...Predicate) Predicate {
	var out Predicate
	for _, p := range preds {
		if p == nil {
			continue
		}
		if out == nil {
			out = p
			continue
		}
		out = &Or{Left: out, Right: p}
	}
	return out
}
