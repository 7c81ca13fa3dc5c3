// Package postgres provides the PostgreSQL SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package postgres

import "github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/core"

// Config is the PostgreSQL dialect configuration.
var Config = &core.DialectConfig{
	Name:          "postgres",
	DefaultSchema: "public",
	Placeholder:   core.PlaceholderDollar,
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormLowercase, // Postgres normalizes unquoted to lowercase
	},
	Aggregates: []string{
		"SUM", "COUNT", "AVG", "MIN", "MAX",
		"STDDEV", "STDDEV_POP", "STDDEV_SAMP",
		"VARIANCE", "VAR_POP", "VAR_SAMP",
		"ARRAY_AGG", "STRING_AGG",
		"JSONB_AGG", "JSON_AGG",
		"BOOL_AND", "BOOL_OR", "EVERY",
		"PERCENTILE_CONT", "PERCENTILE_DISC", "MODE",
	},
}
