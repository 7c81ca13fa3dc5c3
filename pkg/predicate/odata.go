package predicate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/dialect"
)

var odataName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ToOData renders p as an OData $filter expression with single spaces
// between tokens. Rendering is stable: parsing the output and rendering it
// again yields the same string.
func ToOData(p Predicate) (string, error) {
	var b strings.Builder
	if err := writeOData(&b, p); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeOData(b *strings.Builder, p Predicate) error {
	switch n := p.(type) {
	case *Comparison:
		col, err := odataColumn(n.Column)
		if err != nil {
			return err
		}
		b.WriteString(col + " " + n.Op.OData() + " " + odataValue(n.Value, n.Op))

	case *NullCheck:
		col, err := odataColumn(n.Column)
		if err != nil {
			return err
		}
		if n.IsNull {
			b.WriteString(col + " eq null")
		} else {
			b.WriteString(col + " ne null")
		}

	case *InSet:
		if len(n.Values) == 0 {
			if n.Negated {
				b.WriteString("(1 eq 1)")
			} else {
				b.WriteString("(1 eq 0)")
			}
			return nil
		}
		col, err := odataColumn(n.Column)
		if err != nil {
			return err
		}
		op, sep := Eq, " or "
		if n.Negated {
			op, sep = Ne, " and "
		}
		parts := make([]string, len(n.Values))
		for i, v := range n.Values {
			parts[i] = col + " " + op.OData() + " " + odataValue(v, op)
		}
		b.WriteString("(" + strings.Join(parts, sep) + ")")

	case *LikePattern:
		col, err := odataColumn(n.Column)
		if err != nil {
			return err
		}
		value := dialect.QuoteString(n.Value)
		switch n.Kind {
		case LikeContains:
			b.WriteString("contains(" + col + "," + value + ")")
		case LikeStartsWith:
			b.WriteString("startswith(" + col + "," + value + ")")
		case LikeEndsWith:
			b.WriteString("endswith(" + col + "," + value + ")")
		default:
			b.WriteString(col + " eq " + value)
		}

	case *And:
		if err := writeODataOperand(b, n.Left); err != nil {
			return err
		}
		b.WriteString(" and ")
		return writeODataOperand(b, n.Right)

	case *Or:
		if err := writeOData(b, n.Left); err != nil {
			return err
		}
		b.WriteString(" or ")
		return writeOData(b, n.Right)

	case *Group:
		b.WriteString("(")
		if err := writeOData(b, n.Inner); err != nil {
			return err
		}
		b.WriteString(")")

	case *Constant:
		if n.Value {
			b.WriteString("1 eq 1")
		} else {
			b.WriteString("1 eq 0")
		}

	case nil:
		return fmt.Errorf("cannot render nil predicate")

	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
	return nil
}

// writeODataOperand parenthesizes an Or nested directly under an And.
func writeODataOperand(b *strings.Builder, p Predicate) error {
	if _, ok := p.(*Or); ok {
		return writeOData(b, &Group{Inner: p})
	}
	return writeOData(b, p)
}

func odataColumn(c Column) (string, error) {
	if len(c.Path) == 0 {
		return "", fmt.Errorf("column reference is empty")
	}
	for _, part := range c.Path {
		if !odataName.MatchString(part) {
			return "", Limitation(noPos, "column name %q in an OData filter", part)
		}
	}
	return c.String(), nil
}

// odataValue renders a literal. A quoted numeric string compared with an
// ordering operator is emitted as a bare number.
func odataValue(l Literal, op Operator) string {
	switch l.Kind {
	case KindNumber, KindBool:
		return l.Text
	case KindNull:
		return "null"
	default:
		if op.IsOrdering() && IsNumeric(l.Text) {
			return l.Text
		}
		return dialect.QuoteString(l.Text)
	}
}
