package core

import "time"

// TargetConfig holds database target configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // postgres, duckdb, sqlite

	// File-based databases (DuckDB, SQLite)
	Database string `koanf:"database"` // file path or database name

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Common
	Schema string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`

	// Adapter-specific structured settings (e.g. DuckDB extensions)
	Params map[string]any `koanf:"params"`
}

// ODataConfig holds the remote OData service configuration.
type ODataConfig struct {
	BaseURL        string        `koanf:"base_url"`
	Timeout        time.Duration `koanf:"timeout"`
	MaxConcurrency int           `koanf:"max_concurrency"`
}

// LegacyPostgresConfig is the flat `postgres:` section of older config files.
type LegacyPostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
}

// IsZero reports whether no legacy field was set.
func (c *LegacyPostgresConfig) IsZero() bool {
	return c == nil || (c.Host == "" && c.Port == 0 && c.User == "" && c.Password == "" && c.Database == "")
}

// Target converts the legacy section into a postgres target.
func (c *LegacyPostgresConfig) Target() *TargetConfig {
	return &TargetConfig{
		Type:     "postgres",
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: c.Database,
	}
}

// AdapterConfig converts the target into the adapter connection config.
func (t *TargetConfig) AdapterConfig() AdapterConfig {
	return AdapterConfig{
		Type:     t.Type,
		Path:     t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
}
