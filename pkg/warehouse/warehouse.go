// Package warehouse runs query specs against a connected adapter.
//
// It is the glue between pkg/query, which renders a Spec for one dialect,
// and pkg/adapter, which executes the statement and materializes rows.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/adapter"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/core"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/dialect"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/query"
)

// maxValueAlias names the single column MaxValue selects.
const maxValueAlias = "max_value"

// ErrFieldRequired is returned by MaxValue for an empty field name.
var ErrFieldRequired = errors.New("field is required")

// Warehouse builds statements with its adapter's dialect and executes them.
type Warehouse struct {
	adapter adapter.Adapter
	builder *query.Builder
	logger  *slog.Logger
}

// New wraps a connected adapter. If logger is nil, a discard logger is used.
func New(a adapter.Adapter, logger *slog.Logger) *Warehouse {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Warehouse{
		adapter: a,
		builder: query.NewBuilder(a.Dialect(), logger),
		logger:  logger,
	}
}

// Open creates the adapter registered for cfg.Type, connects it and wraps
// it.
func Open(ctx context.Context, cfg core.AdapterConfig, logger *slog.Logger) (*Warehouse, error) {
	a, err := adapter.NewAdapter(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, cfg); err != nil {
		return nil, err
	}
	return New(a, logger), nil
}

// Close closes the underlying adapter.
func (w *Warehouse) Close() error {
	return w.adapter.Close()
}

// Adapter returns the underlying adapter.
func (w *Warehouse) Adapter() adapter.Adapter {
	return w.adapter
}

// Dialect returns the dialect statements are built for.
func (w *Warehouse) Dialect() *dialect.Dialect {
	return w.builder.Dialect()
}

// Build renders spec without executing it.
func (w *Warehouse) Build(spec *query.Spec) (*query.Statement, error) {
	return w.builder.Build(spec)
}

// Select builds spec and returns every row it produces.
func (w *Warehouse) Select(ctx context.Context, spec *query.Spec) (*core.Result, error) {
	stmt, err := w.builder.Build(spec)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := w.adapter.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	w.logger.Debug("select completed",
		slog.String("table", spec.Table),
		slog.Int("rows", res.Len()),
		slog.Duration("elapsed", time.Since(start)))
	return res, nil
}

// MaxValue returns MAX(field) over schema.table, or nil when the table is
// empty. Integral numbers come back as int64 and other numbers as float64;
// remaining values (timestamps, text) are returned as the driver produced
// them. Text is only read as a number when the driver reports a numeric
// column type.
func (w *Warehouse) MaxValue(ctx context.Context, schema, table, field string) (any, error) {
	if field == "" {
		return nil, ErrFieldRequired
	}

	res, err := w.Select(ctx, &query.Spec{
		Schema:     schema,
		Table:      table,
		Aggregates: []query.Aggregate{query.Agg("max", query.Col(field), maxValueAlias)},
	})
	if err != nil {
		return nil, fmt.Errorf("max value of %s: %w", field, err)
	}
	if res.Len() == 0 || len(res.Rows[0]) == 0 {
		return nil, nil
	}
	return normalizeNumber(res.Rows[0][0], res.ColumnType(0)), nil
}

// TableColumns lists the column names of schema.table in ordinal order.
func (w *Warehouse) TableColumns(ctx context.Context, schema, table string) ([]string, error) {
	md, err := w.adapter.GetTableMetadata(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	return md.ColumnNames(), nil
}

// normalizeNumber folds driver numeric types into int64 or float64. Text
// converts only when dbType is numeric, which is how NUMERIC columns arrive
// from some drivers.
func normalizeNumber(v any, dbType string) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n)
		}
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	case decimal.Decimal:
		return fromDecimal(n)
	case string:
		if !isNumericType(dbType) {
			return n
		}
		if d, err := decimal.NewFromString(n); err == nil {
			return fromDecimal(d)
		}
		return n
	default:
		return v
	}
}

func fromDecimal(d decimal.Decimal) any {
	if d.IsInteger() && d.GreaterThanOrEqual(decimal.NewFromInt(math.MinInt64)) &&
		d.LessThanOrEqual(decimal.NewFromInt(math.MaxInt64)) {
		return d.IntPart()
	}
	f, _ := d.Float64()
	return f
}

var numericTypes = map[string]bool{
	"NUMERIC": true, "DECIMAL": true, "MONEY": true,
	"INT": true, "INT2": true, "INT4": true, "INT8": true, "INTEGER": true,
	"SMALLINT": true, "BIGINT": true, "HUGEINT": true, "TINYINT": true,
	"REAL": true, "FLOAT": true, "FLOAT4": true, "FLOAT8": true, "DOUBLE": true,
}

// isNumericType reports whether a database type name is numeric. Type
// modifiers such as DECIMAL(18,3) are ignored.
func isNumericType(dbType string) bool {
	if i := strings.IndexByte(dbType, '('); i >= 0 {
		dbType = dbType[:i]
	}
	return numericTypes[strings.TrimSpace(dbType)]
}
