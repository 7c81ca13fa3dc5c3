// Package config holds configuration defaults and validation shared by the
// CLI and library callers that build targets themselves.
package config

import (
	"strings"
	"time"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/core"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/dialect"
)

// Default configuration values.
const (
	DefaultTargetType          = "duckdb"
	DefaultPostgresPort        = 5432
	DefaultODataTimeout        = 30 * time.Second
	DefaultODataMaxConcurrency = 4
)

// DefaultSchemaForType returns the default schema for a database type.
// It looks up the dialect in the registry; if not found, returns "main" as fallback.
func DefaultSchemaForType(dbType string) string {
	if d, ok := dialect.Get(strings.ToLower(dbType)); ok && d.DefaultSchema != "" {
		return d.DefaultSchema
	}
	return "main"
}

// ApplyTargetDefaults fills the schema and, for postgres, the port.
func ApplyTargetDefaults(t *core.TargetConfig) {
	if t == nil {
		return
	}
	t.Type = strings.ToLower(t.Type)

	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}
	if t.Type == "postgres" && t.Port == 0 {
		t.Port = DefaultPostgresPort
	}
}

// ApplyODataDefaults fills a zero timeout and concurrency limit.
func ApplyODataDefaults(o *core.ODataConfig) {
	if o == nil {
		return
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultODataTimeout
	}
	if o.MaxConcurrency == 0 {
		o.MaxConcurrency = DefaultODataMaxConcurrency
	}
}
