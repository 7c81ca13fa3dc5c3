package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/core"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/dialect"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/query"
)

// ErrNotConnected is returned by every operation before Connect succeeds.
var ErrNotConnected = errors.New("database connection not established")

// TableNotFoundError is returned when a table has no visible columns.
type TableNotFoundError struct {
	Schema string
	Table  string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table %s.%s not found", e.Schema, e.Table)
}

// BaseSQLAdapter provides common sqlx functionality for adapters.
type BaseSQLAdapter struct {
	DB     *sqlx.DB
	Cfg    Config
	Logger *slog.Logger
}

func (b *BaseSQLAdapter) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// Open connects with the named database/sql driver and verifies the
// connection with a ping.
func (b *BaseSQLAdapter) Open(ctx context.Context, driver, dsn string, cfg Config) error {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	b.DB = db
	b.Cfg = cfg
	return nil
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		return b.DB.Close()
	}
	return nil
}

// Exec executes a statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	if _, err := b.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a statement and materializes the rows. Driver []byte
// values are returned as strings.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string, args ...any) (*core.Result, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}

	start := time.Now()
	rows, err := b.DB.QueryxContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	res := &core.Result{Columns: cols, Types: columnTypes(rows)}
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range vals {
			if raw, ok := v.([]byte); ok {
				vals[i] = string(raw)
			}
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	b.logger().Debug("query executed",
		slog.Int("rows", res.Len()),
		slog.Int("args", len(args)),
		slog.Duration("elapsed", time.Since(start)))
	return res, nil
}

// columnTypes returns the driver's column type names, or nil when the
// driver reports none.
func columnTypes(rows *sqlx.Rows) []string {
	cts, err := rows.ColumnTypes()
	if err != nil {
		return nil
	}
	names := make([]string, len(cts))
	known := false
	for i, ct := range cts {
		names[i] = strings.ToUpper(ct.DatabaseTypeName())
		known = known || names[i] != ""
	}
	if !known {
		return nil
	}
	return names
}

// IsConnected checks if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// GetTableMetadataCommon reads information_schema.columns for adapters
// whose database provides it. The lookup is built with d, so the schema and
// table names travel as bound parameters.
func (b *BaseSQLAdapter) GetTableMetadataCommon(ctx context.Context, d *dialect.Dialect, schema, table string) (*core.TableMetadata, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	if schema == "" {
		schema = d.DefaultSchema
	}

	stmt, err := query.NewBuilder(d, b.Logger).Build(&query.Spec{
		Schema: "information_schema",
		Table:  "columns",
		Columns: []query.Expr{
			query.Col("column_name"),
			query.Col("data_type"),
			query.Col("is_nullable"),
			query.Col("ordinal_position"),
		},
		Where:   "table_schema = ? AND table_name = ?",
		OrderBy: []query.Expr{query.Col("ordinal_position")},
		Args:    []any{schema, table},
	})
	if err != nil {
		return nil, err
	}

	return b.scanColumns(ctx, schema, table, stmt.SQL, stmt.Args...)
}

// scanColumns runs a metadata query returning (name, type, nullable,
// position) rows. nullable may be "YES"/"NO" or a NOT NULL flag.
func (b *BaseSQLAdapter) scanColumns(ctx context.Context, schema, table, sqlStr string, args ...any) (*core.TableMetadata, error) {
	rows, err := b.DB.QueryxContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(columns) == 0 {
		return nil, &TableNotFoundError{Schema: schema, Table: table}
	}

	return &core.TableMetadata{
		Schema:  schema,
		Name:    table,
		Columns: columns,
	}, nil
}

// ScanColumns exposes scanColumns to adapters whose catalog is not
// information_schema. The query must select the name, type, a "YES"/"NO"
// nullability flag and the 1-based position.
func (b *BaseSQLAdapter) ScanColumns(ctx context.Context, schema, table, sqlStr string, args ...any) (*core.TableMetadata, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	return b.scanColumns(ctx, schema, table, sqlStr, args...)
}
