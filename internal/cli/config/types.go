// Package config provides configuration management for the dwquery CLI.
//
// The shared target and OData types live in pkg/core and are re-exported
// here via type aliases; defaults and validation shared with library
// callers live in internal/config.
package config

import (
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/core"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = core.TargetConfig

// ODataConfig is an alias for the shared OData service configuration.
type ODataConfig = core.ODataConfig

// Config holds all CLI configuration options.
type Config struct {
	DatabasePath string                     `koanf:"database"` // Deprecated: use Target.Database
	Environment  string                     `koanf:"environment"`
	Verbose      bool                       `koanf:"verbose"`
	OutputFormat string                     `koanf:"output"`
	LogLevel     string                     `koanf:"log_level"`
	Target       *TargetConfig              `koanf:"target"`
	OData        *ODataConfig               `koanf:"odata"`
	Postgres     *core.LegacyPostgresConfig `koanf:"postgres"` // Deprecated: use Target
	Environments map[string]EnvConfig       `koanf:"environments"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	Target *TargetConfig `koanf:"target"`
	OData  *ODataConfig  `koanf:"odata"`
}

// Default configuration values.
const (
	DefaultEnv      = "dev"
	DefaultOutput   = "table"
	DefaultLogLevel = "info"
)

// OutputFormats lists the accepted values of the output setting.
var OutputFormats = []string{"table", "json", "csv", "markdown"}
