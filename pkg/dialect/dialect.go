// Package dialect provides SQL dialect configuration and safe rendering of
// identifiers, literals and placeholders.
//
// Every identifier that reaches a generated statement goes through
// QuoteIdentifier, which always delimits the name and doubles any embedded
// delimiter, so the output is exactly one identifier token. Concrete dialects
// are registered from pkg/dialects/*/ packages.
package dialect

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/core"
)

// Quoting errors.
var (
	ErrEmptyIdentifier   = errors.New("identifier is empty")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrUnsupportedValue  = errors.New("unsupported literal value")
)

// Dialect represents a SQL dialect configuration.
type Dialect struct {
	Name        string
	Identifiers core.IdentifierConfig

	// Database-specific settings
	DefaultSchema string                // Default schema name ("main" for DuckDB, "public" for Postgres)
	Placeholder   core.PlaceholderStyle // How to format query parameters

	aggregates map[string]struct{}
}

// NormalizeName normalizes an identifier according to dialect rules.
func (d *Dialect) NormalizeName(name string) string {
	switch d.Identifiers.Normalization {
	case core.NormUppercase:
		return strings.ToUpper(name)
	case core.NormLowercase, core.NormCaseInsensitive:
		return strings.ToLower(name)
	default: // NormCaseSensitive
		return name
	}
}

// IsAggregate returns true if the function is a known aggregate function.
func (d *Dialect) IsAggregate(name string) bool {
	_, ok := d.aggregates[d.NormalizeName(name)]
	return ok
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
// Returns "?" for PlaceholderQuestion style, "$1", "$2" etc. for PlaceholderDollar style.
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case core.PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default: // PlaceholderQuestion
		return "?"
	}
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
// Embedded end-quote characters are escaped (e.g., " -> "", ] -> ]]).
func (d *Dialect) QuoteIdentifier(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyIdentifier
	}
	if strings.IndexByte(name, 0) >= 0 {
		return "", fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidIdentifier, name)
	}
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd, nil
}

// QuoteQualified quotes each non-empty part and joins them with ".".
// Empty parts are skipped so an optional schema can be passed as "".
func (d *Dialect) QuoteQualified(parts ...string) (string, error) {
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		q, err := d.QuoteIdentifier(p)
		if err != nil {
			return "", err
		}
		quoted = append(quoted, q)
	}
	if len(quoted) == 0 {
		return "", ErrEmptyIdentifier
	}
	return strings.Join(quoted, "."), nil
}

// UnquoteIdentifier reverses QuoteIdentifier. The input must be delimited and
// every end-quote character inside it must be part of an escape sequence.
func (d *Dialect) UnquoteIdentifier(quoted string) (string, error) {
	open, end, esc := d.Identifiers.Quote, d.Identifiers.QuoteEnd, d.Identifiers.Escape
	if len(quoted) < len(open)+len(end) || !strings.HasPrefix(quoted, open) || !strings.HasSuffix(quoted, end) {
		return "", fmt.Errorf("%w: %q is not delimited by %s%s", ErrInvalidIdentifier, quoted, open, end)
	}

	inner := quoted[len(open) : len(quoted)-len(end)]
	if inner == "" {
		return "", ErrEmptyIdentifier
	}

	var b strings.Builder
	for i := 0; i < len(inner); {
		switch {
		case strings.HasPrefix(inner[i:], esc):
			b.WriteString(end)
			i += len(esc)
		case strings.HasPrefix(inner[i:], end):
			return "", fmt.Errorf("%w: %q has an unescaped %s at offset %d", ErrInvalidIdentifier, quoted, end, i+len(open))
		default:
			b.WriteByte(inner[i])
			i++
		}
	}
	return b.String(), nil
}

// QuoteLiteral renders a Go value as a SQL literal.
//
// Strings are single-quoted with embedded quotes doubled; numbers are
// rendered bare; nil is NULL and booleans are TRUE/FALSE.
func (d *Dialect) QuoteLiteral(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case string:
		return QuoteString(x), nil
	case int:
		return strconv.FormatInt(int64(x), 10), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	case decimal.Decimal:
		return x.String(), nil
	case json.Number:
		n, err := decimal.NewFromString(x.String())
		if err != nil {
			return "", fmt.Errorf("%w: %q is not a number", ErrUnsupportedValue, x.String())
		}
		return n.String(), nil
	case time.Time:
		return QuoteString(x.Format(time.RFC3339Nano)), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// EscapePlaceholders doubles every ? in s. Generated SQL treats a lone ? as
// a bind placeholder and ?? as a literal question mark, so quoted names pass
// through the placeholder pass unchanged.
func EscapePlaceholders(s string) string {
	return strings.ReplaceAll(s, "?", "??")
}

// QuoteString single-quotes s, doubling any embedded single quote.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func formatFloat(f float64, bits int) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedValue, f)
	}
	return strconv.FormatFloat(f, 'f', -1, bits), nil
}

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
}

// NewDialect creates a new dialect builder with the given name.
// The defaults are ANSI double-quoted identifiers and ? placeholders.
func NewDialect(name string) *Builder {
	return &Builder{
		dialect: &Dialect{
			Name: name,
			Identifiers: core.IdentifierConfig{
				Quote:         `"`,
				QuoteEnd:      `"`,
				Escape:        `""`,
				Normalization: core.NormLowercase,
			},
			aggregates: make(map[string]struct{}),
		},
	}
}

// New creates a dialect builder from a DialectConfig.
func New(cfg *core.DialectConfig) *Builder {
	b := &Builder{
		dialect: &Dialect{
			Name:          cfg.Name,
			Identifiers:   cfg.Identifiers,
			DefaultSchema: cfg.DefaultSchema,
			Placeholder:   cfg.Placeholder,
			aggregates:    make(map[string]struct{}),
		},
	}
	return b.Aggregates(cfg.Aggregates...)
}

// Identifiers configures identifier quoting and normalization.
func (b *Builder) Identifiers(quote, quoteEnd, escape string, norm core.NormalizationStrategy) *Builder {
	b.dialect.Identifiers = core.IdentifierConfig{
		Quote:         quote,
		QuoteEnd:      quoteEnd,
		Escape:        escape,
		Normalization: norm,
	}
	return b
}

// Aggregates adds aggregate functions to the dialect.
func (b *Builder) Aggregates(funcs ...string) *Builder {
	for _, f := range funcs {
		b.dialect.aggregates[b.dialect.NormalizeName(f)] = struct{}{}
	}
	return b
}

// DefaultSchema sets the default schema name.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.dialect.DefaultSchema = schema
	return b
}

// PlaceholderStyle sets how query parameters are formatted.
func (b *Builder) PlaceholderStyle(style core.PlaceholderStyle) *Builder {
	b.dialect.Placeholder = style
	return b
}

// Build returns the constructed dialect.
func (b *Builder) Build() *Dialect {
	return b.dialect
}
