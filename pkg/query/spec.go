// Package query assembles parameterized SELECT statements from a structured
// Spec.
//
// Identifiers (schema, table, aliases, CTE names and Ident expressions) are
// always quoted by the target dialect. Raw slots (Where, Having, join
// conditions and Raw expressions) are emitted verbatim; values belong in
// Spec.Args, bound to the ? placeholders those slots contain.
package query

import (
	"fmt"
	"strings"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/predicate"
)

// Spec describes one SELECT statement.
type Spec struct {
	Schema string
	Table  string
	Alias  string

	// Columns is the select list. Empty means *.
	Columns  []Expr
	Distinct bool

	Joins []Join

	// Where is a raw condition. Filter is a typed condition rendered with
	// bound parameters. When both are set they are ANDed.
	Where  string
	Filter predicate.Predicate

	GroupBy    []Expr
	Having     string
	Aggregates []Aggregate
	OrderBy    []Expr

	Limit  *int
	Offset *int

	// CTEs are emitted in order as WITH name AS (query), ...
	CTEs []CTE

	// Args bind the ? placeholders of raw slots in statement order:
	// CTEs, columns, aggregates, joins, where, having, order by.
	Args []any
}

// JoinKind is the join type keyword.
type JoinKind string

// Supported join kinds.
const (
	InnerJoin JoinKind = "INNER"
	LeftJoin  JoinKind = "LEFT"
	RightJoin JoinKind = "RIGHT"
	FullJoin  JoinKind = "FULL"
)

// ParseJoinKind normalizes a join type name. Empty means INNER.
func ParseJoinKind(s string) (JoinKind, bool) {
	switch k := JoinKind(strings.ToUpper(strings.TrimSpace(s))); k {
	case "":
		return InnerJoin, true
	case InnerJoin, LeftJoin, RightJoin, FullJoin:
		return k, true
	default:
		return k, false
	}
}

// Join is one JOIN clause. On is a raw condition and is required.
type Join struct {
	Kind   JoinKind
	Schema string
	Table  string
	Alias  string
	On     string
}

// Aggregate is FUNC(expr) [AS alias].
type Aggregate struct {
	Func  string
	Expr  Expr
	Alias string
}

// Agg is a shorthand constructor.
func Agg(fn string, expr Expr, alias string) Aggregate {
	return Aggregate{Func: fn, Expr: expr, Alias: alias}
}

// CTE is a named subquery placed in the WITH clause.
type CTE struct {
	Name  string
	Query string
}

// IntPtr returns a pointer to n, for Limit and Offset.
func IntPtr(n int) *int {
	return &n
}

// Validate checks the invariants that do not depend on a dialect.
func (s *Spec) Validate() error {
	if strings.TrimSpace(s.Table) == "" {
		return &ValidationError{Field: "table", Err: ErrMissingTable}
	}
	if s.Limit != nil && *s.Limit < 0 {
		return invalid("limit", ErrInvalidLimit, "got %d", *s.Limit)
	}
	if s.Offset != nil && *s.Offset < 0 {
		return invalid("offset", ErrInvalidLimit, "got %d", *s.Offset)
	}

	for i, j := range s.Joins {
		field := fmt.Sprintf("joins[%d]", i)
		if _, ok := ParseJoinKind(string(j.Kind)); !ok {
			return invalid(field, ErrInvalidJoin, "unknown join type %q", j.Kind)
		}
		if strings.TrimSpace(j.Table) == "" {
			return invalid(field, ErrInvalidJoin, "table is required")
		}
		if strings.TrimSpace(j.On) == "" {
			return invalid(field, ErrInvalidJoin, "on condition is required")
		}
	}

	for i, a := range s.Aggregates {
		field := fmt.Sprintf("aggregates[%d]", i)
		if !IsBareIdentifier(a.Func) {
			return invalid(field, ErrInvalidAggregate, "function name %q", a.Func)
		}
		if a.Expr == nil {
			return invalid(field, ErrInvalidAggregate, "expression is required")
		}
	}

	for i, c := range s.CTEs {
		field := fmt.Sprintf("ctes[%d]", i)
		if strings.TrimSpace(c.Name) == "" {
			return invalid(field, ErrInvalidCTE, "name is required")
		}
		if strings.TrimSpace(c.Query) == "" {
			return invalid(field, ErrInvalidCTE, "query for %q is empty", c.Name)
		}
	}

	for i, e := range s.Columns {
		if e == nil {
			return invalid(fmt.Sprintf("columns[%d]", i), ErrInvalidIdentifier, "nil expression")
		}
	}
	for i, e := range s.GroupBy {
		if e == nil {
			return invalid(fmt.Sprintf("group_by[%d]", i), ErrInvalidIdentifier, "nil expression")
		}
	}
	for i, e := range s.OrderBy {
		if e == nil {
			return invalid(fmt.Sprintf("order_by[%d]", i), ErrInvalidIdentifier, "nil expression")
		}
	}
	return nil
}
