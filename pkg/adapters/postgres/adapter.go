// Package postgres provides the PostgreSQL warehouse adapter.
package postgres

import (
	"context"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/adapter"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/dialect"
	pgdialect "github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/dialects/postgres"
)

const (
	defaultHost    = "localhost"
	defaultPort    = 5432
	defaultSSLMode = "disable"
	appName        = "dwquery"
)

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the PostgreSQL dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return pgdialect.Postgres
}

// Connect establishes a connection to PostgreSQL through pgx.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	a.Logger.Debug("connecting to postgres",
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.String("database", cfg.Database))

	return a.Open(ctx, "pgx", buildPostgresDSN(cfg), cfg)
}

// GetTableMetadata reads the column list from information_schema.
func (a *Adapter) GetTableMetadata(ctx context.Context, schema, table string) (*adapter.Metadata, error) {
	return a.GetTableMetadataCommon(ctx, a.Dialect(), schema, table)
}

// buildPostgresDSN constructs a postgres:// URL. Credentials are escaped by
// net/url. Options become query parameters, which pgx passes on as
// connection settings; a configured schema becomes the search_path.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = defaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	q := url.Values{}
	q.Set("sslmode", defaultSSLMode)
	q.Set("application_name", appName)
	if cfg.Schema != "" {
		q.Set("search_path", cfg.Schema)
	}
	for k, v := range cfg.Options {
		q.Set(k, v)
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		RawQuery: q.Encode(),
	}
	if cfg.Database != "" {
		u.Path = "/" + cfg.Database
	}
	switch {
	case cfg.Username != "" && cfg.Password != "":
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	case cfg.Username != "":
		u.User = url.User(cfg.Username)
	}
	return u.String()
}

var _ adapter.Adapter = (*Adapter)(nil)
