// Package duckdb provides the DuckDB warehouse adapter.
package duckdb

import (
	"context"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // registers the "duckdb" database/sql driver

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/adapter"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/dialect"
	duckdialect "github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/dialects/duckdb"
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the DuckDB dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return duckdialect.DuckDB
}

// Connect opens a DuckDB database. An empty path or ":memory:" opens an
// in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	a.Logger.Debug("opening duckdb", slog.String("path", path), slog.Int("settings", len(params.Settings)))

	if err := a.Open(ctx, "duckdb", buildDSN(path, params.Settings), cfg); err != nil {
		return err
	}

	for _, ext := range params.Extensions {
		if err := a.loadExtension(ctx, ext); err != nil {
			_ = a.Close()
			a.DB = nil
			return err
		}
	}
	return nil
}

// loadExtension installs and loads one extension. The name has already
// been checked against extensionName.
func (a *Adapter) loadExtension(ctx context.Context, ext string) error {
	for _, stmt := range []string{"INSTALL " + ext, "LOAD " + ext} {
		if err := a.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to load duckdb extension %s: %w", ext, err)
		}
	}
	a.Logger.Debug("loaded duckdb extension", slog.String("extension", ext))
	return nil
}

// GetTableMetadata reads the column list from information_schema.
func (a *Adapter) GetTableMetadata(ctx context.Context, schema, table string) (*adapter.Metadata, error) {
	return a.GetTableMetadataCommon(ctx, a.Dialect(), schema, table)
}

var _ adapter.Adapter = (*Adapter)(nil)
