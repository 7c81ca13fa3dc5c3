package query

import (
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/core"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/dialect"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/predicate"
)

// Statement is an assembled query and the values bound to its placeholders.
type Statement struct {
	SQL  string
	Args []any
}

// Builder renders Specs for one dialect. It holds no per-call state and is
// safe for concurrent use.
type Builder struct {
	dialect *dialect.Dialect
	sb      sq.StatementBuilderType
	logger  *slog.Logger
}

// questionFormat leaves ? placeholders in place and unescapes ?? to a
// literal question mark, matching what sq.Dollar does for $n dialects.
type questionFormat struct{}

func (questionFormat) ReplacePlaceholders(sql string) (string, error) {
	return strings.ReplaceAll(sql, "??", "?"), nil
}

// NewBuilder creates a builder for d. Placeholders follow the dialect:
// $1, $2, ... for dollar-style dialects, ? otherwise. In both styles ?? is a
// literal question mark.
func NewBuilder(d *dialect.Dialect, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var sb sq.StatementBuilderType
	switch d.Placeholder {
	case core.PlaceholderDollar:
		sb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	default:
		sb = sq.StatementBuilder.PlaceholderFormat(questionFormat{})
	}

	return &Builder{dialect: d, sb: sb, logger: logger}
}

// Dialect returns the builder's dialect.
func (b *Builder) Dialect() *dialect.Dialect {
	return b.dialect
}

// Build validates spec and assembles it in fixed clause order:
// WITH, SELECT, FROM, JOIN, WHERE, GROUP BY, HAVING, ORDER BY, LIMIT, OFFSET.
func (b *Builder) Build(spec *Spec) (*Statement, error) {
	if spec == nil {
		return nil, &ValidationError{Field: "table", Err: ErrMissingTable}
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	a := &argQueue{args: spec.Args}
	q := b.sb.Select()

	if len(spec.CTEs) > 0 {
		parts := make([]string, len(spec.CTEs))
		var cteArgs []any
		for i, c := range spec.CTEs {
			field := fmt.Sprintf("ctes[%d]", i)
			name, err := b.quote(field, c.Name)
			if err != nil {
				return nil, err
			}
			args, err := a.take(field, c.Query)
			if err != nil {
				return nil, err
			}
			parts[i] = name + " AS (" + strings.TrimSpace(c.Query) + ")"
			cteArgs = append(cteArgs, args...)
		}
		q = q.Prefix("WITH "+strings.Join(parts, ", "), cteArgs...)
	}

	if spec.Distinct {
		q = q.Options("DISTINCT")
	}

	q, err := b.selectList(q, spec, a)
	if err != nil {
		return nil, err
	}

	from, err := b.quote("table", spec.Schema, spec.Table)
	if err != nil {
		return nil, err
	}
	if spec.Alias != "" {
		alias, err := b.quote("alias", spec.Alias)
		if err != nil {
			return nil, err
		}
		from += " AS " + alias
	}
	q = q.From(from)

	for i, j := range spec.Joins {
		field := fmt.Sprintf("joins[%d]", i)
		clause, err := b.join(field, j)
		if err != nil {
			return nil, err
		}
		args, err := a.take(field, j.On)
		if err != nil {
			return nil, err
		}
		q = q.JoinClause(clause, args...)
	}

	q, err = b.where(q, spec, a)
	if err != nil {
		return nil, err
	}

	if len(spec.GroupBy) > 0 {
		terms := make([]string, len(spec.GroupBy))
		for i, e := range spec.GroupBy {
			field := fmt.Sprintf("group_by[%d]", i)
			sql, err := b.expr(field, e)
			if err != nil {
				return nil, err
			}
			if _, raw := e.(Raw); raw && countPlaceholders(sql) > 0 {
				return nil, invalid(field, ErrArgCount, "placeholders are not supported in GROUP BY")
			}
			terms[i] = sql
		}
		q = q.GroupBy(terms...)
	}

	if having := strings.TrimSpace(spec.Having); having != "" {
		args, err := a.take("having", having)
		if err != nil {
			return nil, err
		}
		q = q.Having(having, args...)
	}

	for i, e := range spec.OrderBy {
		field := fmt.Sprintf("order_by[%d]", i)
		sql, err := b.expr(field, e)
		if err != nil {
			return nil, err
		}
		args, err := a.takeExpr(field, e, sql)
		if err != nil {
			return nil, err
		}
		q = q.OrderByClause(sql, args...)
	}

	if spec.Limit != nil {
		lit, err := b.literal("limit", *spec.Limit)
		if err != nil {
			return nil, err
		}
		q = q.Suffix("LIMIT " + lit)
	}
	if spec.Offset != nil {
		lit, err := b.literal("offset", *spec.Offset)
		if err != nil {
			return nil, err
		}
		q = q.Suffix("OFFSET " + lit)
	}

	if err := a.done(); err != nil {
		return nil, err
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("assemble statement: %w", err)
	}

	b.logger.Debug("built statement",
		slog.String("dialect", b.dialect.Name),
		slog.String("table", spec.Table),
		slog.Int("args", len(args)))

	return &Statement{SQL: sql, Args: args}, nil
}

// selectList adds columns then aggregates. A wildcard select list is
// dropped when aggregates are present.
func (b *Builder) selectList(q sq.SelectBuilder, spec *Spec, a *argQueue) (sq.SelectBuilder, error) {
	cols := spec.Columns
	wildcard := len(cols) == 0 || (len(cols) == 1 && isStar(cols[0]))

	switch {
	case wildcard && len(spec.Aggregates) > 0:
	case len(cols) == 0:
		q = q.Column("*")
	default:
		for i, e := range cols {
			field := fmt.Sprintf("columns[%d]", i)
			sql, err := b.expr(field, e)
			if err != nil {
				return q, err
			}
			args, err := a.takeExpr(field, e, sql)
			if err != nil {
				return q, err
			}
			q = q.Column(sql, args...)
		}
	}

	for i, agg := range spec.Aggregates {
		field := fmt.Sprintf("aggregates[%d]", i)
		sql, err := b.aggregate(field, agg)
		if err != nil {
			return q, err
		}
		var raw string
		if r, ok := agg.Expr.(Raw); ok {
			raw = string(r)
		}
		args, err := a.takeExpr(field, agg.Expr, raw)
		if err != nil {
			return q, err
		}
		q = q.Column(sql, args...)
	}
	return q, nil
}

func (b *Builder) aggregate(field string, agg Aggregate) (string, error) {
	fn := cases.Upper(language.Und).String(agg.Func)
	if !b.dialect.IsAggregate(fn) {
		b.logger.Debug("function is not a known aggregate",
			slog.String("func", fn),
			slog.String("dialect", b.dialect.Name))
	}

	inner, err := b.expr(field, agg.Expr)
	if err != nil {
		return "", err
	}

	sql := fn + "(" + inner + ")"
	if agg.Alias != "" {
		alias, err := b.quote(field, agg.Alias)
		if err != nil {
			return "", err
		}
		sql += " AS " + alias
	}
	return sql, nil
}

func (b *Builder) join(field string, j Join) (string, error) {
	kind, _ := ParseJoinKind(string(j.Kind))
	table, err := b.quote(field, j.Schema, j.Table)
	if err != nil {
		return "", err
	}
	clause := string(kind) + " JOIN " + table
	if j.Alias != "" {
		alias, err := b.quote(field, j.Alias)
		if err != nil {
			return "", err
		}
		clause += " AS " + alias
	}
	return clause + " ON " + strings.TrimSpace(j.On), nil
}

// where combines the raw condition and the typed filter. Each side is
// parenthesized when both are present.
func (b *Builder) where(q sq.SelectBuilder, spec *Spec, a *argQueue) (sq.SelectBuilder, error) {
	raw := strings.TrimSpace(spec.Where)
	var rawArgs []any
	if raw != "" {
		var err error
		if rawArgs, err = a.take("where", raw); err != nil {
			return q, err
		}
	}

	if spec.Filter == nil {
		if raw != "" {
			q = q.Where(raw, rawArgs...)
		}
		return q, nil
	}

	filter, filterArgs, err := predicate.ToSQL(b.dialect, spec.Filter)
	if err != nil {
		return q, invalid("filter", ErrInvalidIdentifier, "%v", err)
	}
	if raw == "" {
		return q.Where(filter, filterArgs...), nil
	}
	return q.Where("("+raw+")", rawArgs...).Where("("+filter+")", filterArgs...), nil
}

func (b *Builder) expr(field string, e Expr) (string, error) {
	switch v := e.(type) {
	case Star:
		return "*", nil
	case Ident:
		return b.quote(field, v.Parts...)
	case Raw:
		return strings.TrimSpace(string(v)), nil
	default:
		return "", invalid(field, ErrInvalidIdentifier, "unsupported expression %T", e)
	}
}

// quote renders an identifier and escapes any ? in it as ??, so the
// placeholder pass leaves the name intact.
func (b *Builder) quote(field string, parts ...string) (string, error) {
	s, err := b.dialect.QuoteQualified(parts...)
	if err != nil {
		return "", invalid(field, ErrInvalidIdentifier, "%v", err)
	}
	return dialect.EscapePlaceholders(s), nil
}

func (b *Builder) literal(field string, n int) (string, error) {
	s, err := b.dialect.QuoteLiteral(n)
	if err != nil {
		return "", invalid(field, ErrInvalidLimit, "%v", err)
	}
	return s, nil
}

// argQueue hands out Spec.Args to raw slots in statement order.
type argQueue struct {
	args []any
	next int
}

func (q *argQueue) take(field, sql string) ([]any, error) {
	n := countPlaceholders(sql)
	if n == 0 {
		return nil, nil
	}
	if q.next+n > len(q.args) {
		return nil, invalid(field, ErrArgCount, "%d placeholders but only %d arguments remain", n, len(q.args)-q.next)
	}
	out := q.args[q.next : q.next+n]
	q.next += n
	return out, nil
}

// takeExpr binds arguments for raw expressions only. Quoted identifiers
// never carry placeholders.
func (q *argQueue) takeExpr(field string, e Expr, sql string) ([]any, error) {
	if _, ok := e.(Raw); !ok {
		return nil, nil
	}
	return q.take(field, sql)
}

func (q *argQueue) done() error {
	if extra := len(q.args) - q.next; extra > 0 {
		return invalid("args", ErrArgCount, "%d arguments left unbound", extra)
	}
	return nil
}

// countPlaceholders counts ? markers. A doubled ?? is a literal question
// mark and is not counted.
func countPlaceholders(sql string) int {
	n := 0
	for i := 0; i < len(sql); i++ {
		if sql[i] != '?' {
			continue
		}
		if i+1 < len(sql) && sql[i+1] == '?' {
			i++
			continue
		}
		n++
	}
	return n
}
