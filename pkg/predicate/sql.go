package predicate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/dialect"
)

// Arg returns the Go value bound for the literal in a parameterized query.
func (l Literal) Arg() any {
	switch l.Kind {
	case KindNumber:
		if i, err := strconv.ParseInt(l.Text, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(l.Text, 64); err == nil {
			return f
		}
		return l.Text
	case KindBool:
		return l.Text == "true"
	case KindNull:
		return nil
	default:
		return l.Text
	}
}

// ToSQL renders p as a SQL boolean expression. Column names are quoted with
// the dialect's rules and every literal becomes a ? placeholder; the returned
// args bind them in order. A ? inside a quoted column name is written as ??,
// the literal-question-mark escape the query builder expects.
func ToSQL(d *dialect.Dialect, p Predicate) (string, []any, error) {
	if d == nil {
		return "", nil, dialect.ErrDialectRequired
	}
	c := &sqlCompiler{dialect: d}
	if err := c.compile(p); err != nil {
		return "", nil, err
	}
	return c.buf.String(), c.args, nil
}

type sqlCompiler struct {
	dialect *dialect.Dialect
	buf     strings.Builder
	args    []any
}

func (c *sqlCompiler) compile(p Predicate) error {
	switch n := p.(type) {
	case *Comparison:
		col, err := c.column(n.Column)
		if err != nil {
			return err
		}
		if n.Value.Kind == KindNull {
			switch n.Op {
			case Eq:
				c.buf.WriteString(col + " IS NULL")
			case Ne:
				c.buf.WriteString(col + " IS NOT NULL")
			default:
				return fmt.Errorf("cannot compare %s with NULL using %s", n.Column, n.Op.SQL())
			}
			return nil
		}
		c.buf.WriteString(col + " " + n.Op.SQL() + " ?")
		c.args = append(c.args, n.Value.Arg())

	case *NullCheck:
		col, err := c.column(n.Column)
		if err != nil {
			return err
		}
		if n.IsNull {
			c.buf.WriteString(col + " IS NULL")
		} else {
			c.buf.WriteString(col + " IS NOT NULL")
		}

	case *InSet:
		if split := splitNulls(n); split != nil {
			return c.compile(split)
		}
		if len(n.Values) == 0 {
			if n.Negated {
				c.buf.WriteString("1 = 1")
			} else {
				c.buf.WriteString("1 = 0")
			}
			return nil
		}
		col, err := c.column(n.Column)
		if err != nil {
			return err
		}
		c.buf.WriteString(col)
		if n.Negated {
			c.buf.WriteString(" NOT")
		}
		c.buf.WriteString(" IN (")
		for i, v := range n.Values {
			if i > 0 {
				c.buf.WriteString(", ")
			}
			c.buf.WriteString("?")
			c.args = append(c.args, v.Arg())
		}
		c.buf.WriteString(")")

	case *LikePattern:
		col, err := c.column(n.Column)
		if err != nil {
			return err
		}
		c.buf.WriteString(col + " LIKE ?")
		c.args = append(c.args, n.Pattern())

	case *And:
		if err := c.operand(n.Left); err != nil {
			return err
		}
		c.buf.WriteString(" AND ")
		return c.operand(n.Right)

	case *Or:
		if err := c.compile(n.Left); err != nil {
			return err
		}
		c.buf.WriteString(" OR ")
		return c.compile(n.Right)

	case *Group:
		c.buf.WriteString("(")
		if err := c.compile(n.Inner); err != nil {
			return err
		}
		c.buf.WriteString(")")

	case *Constant:
		if n.Value {
			c.buf.WriteString("1 = 1")
		} else {
			c.buf.WriteString("1 = 0")
		}

	case nil:
		return fmt.Errorf("cannot compile nil predicate")

	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
	return nil
}

func (c *sqlCompiler) operand(p Predicate) error {
	if _, ok := p.(*Or); ok {
		return c.compile(&Group{Inner: p})
	}
	return c.compile(p)
}

func (c *sqlCompiler) column(col Column) (string, error) {
	q, err := c.dialect.QuoteQualified(col.Path...)
	if err != nil {
		return "", fmt.Errorf("column %q: %w", col.String(), err)
	}
	return dialect.EscapePlaceholders(q), nil
}

// splitNulls rewrites an IN list holding NULL into IS [NOT] NULL terms, so
// x IN ('a', NULL) also matches null rows as its $filter form does. It
// returns nil when the list has no NULL.
func splitNulls(n *InSet) Predicate {
	var values []Literal
	hasNull := false
	for _, v := range n.Values {
		if v.Kind == KindNull {
			hasNull = true
			continue
		}
		values = append(values, v)
	}
	if !hasNull {
		return nil
	}

	nullCheck := &NullCheck{Column: n.Column, IsNull: !n.Negated}
	if len(values) == 0 {
		return nullCheck
	}
	rest := &InSet{Column: n.Column, Values: values, Negated: n.Negated}
	if n.Negated {
		return &Group{Inner: AllOf(rest, nullCheck)}
	}
	return &Group{Inner: AnyOf(rest, nullCheck)}
}
