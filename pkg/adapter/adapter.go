// Package adapter provides the executor contract that runs built statements
// against a SQL warehouse.
//
// Concrete adapters live in pkg/adapters/ subdirectories and register
// themselves from init(). Results are fully materialized into core.Result so
// SQL and OData reads can be rendered the same way.
package adapter

import (
	"context"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/core"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/dialect"
)

type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata
)

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a statement that doesn't return rows.
	Exec(ctx context.Context, sql string, args ...any) error

	// Query executes a statement and materializes every row.
	Query(ctx context.Context, sql string, args ...any) (*core.Result, error)

	// GetTableMetadata lists the columns of schema.table in ordinal order.
	// An empty schema means the dialect's default schema.
	GetTableMetadata(ctx context.Context, schema, table string) (*Metadata, error)

	// Dialect returns the dialect statements for this adapter must be built with.
	Dialect() *dialect.Dialect
}
