// Package sqlite provides the SQLite warehouse adapter, backed by the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/adapter"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/dialect"
	litedialect "github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/dialects/sqlite"
)

const columnsSQL = `SELECT name, type, CASE WHEN "notnull" = 1 THEN 'NO' ELSE 'YES' END, cid + 1 ` +
	`FROM pragma_table_info(?, ?) ORDER BY cid`

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the SQLite dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return litedialect.SQLite
}

// Connect opens a SQLite database file, or a private in-memory database
// for an empty path or ":memory:".
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	a.Logger.Debug("opening sqlite", slog.String("path", path))

	if err := a.Open(ctx, "sqlite", buildDSN(path, cfg.Options), cfg); err != nil {
		return err
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		a.DB.SetMaxOpenConns(1)
	}
	return nil
}

// buildDSN turns options into _pragma parameters, e.g. busy_timeout=5000
// becomes _pragma=busy_timeout(5000).
func buildDSN(path string, options map[string]string) string {
	if len(options) == 0 {
		return path
	}

	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	q := url.Values{}
	for _, k := range keys {
		q.Add("_pragma", fmt.Sprintf("%s(%s)", k, options[k]))
	}
	return "file:" + path + "?" + q.Encode()
}

// GetTableMetadata reads the column list with pragma_table_info, since
// SQLite has no information_schema.
func (a *Adapter) GetTableMetadata(ctx context.Context, schema, table string) (*adapter.Metadata, error) {
	if schema == "" {
		schema = a.Dialect().DefaultSchema
	}
	return a.ScanColumns(ctx, schema, table, columnsSQL, table, schema)
}

var _ adapter.Adapter = (*Adapter)(nil)
