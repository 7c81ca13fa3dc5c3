// Package duckdb provides the DuckDB SQL dialect definition.
package duckdb

import "github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/core"

// Config is the DuckDB dialect configuration.
var Config = &core.DialectConfig{
	Name:          "duckdb",
	DefaultSchema: "main",
	Placeholder:   core.PlaceholderQuestion,
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormCaseInsensitive,
	},
	Aggregates: []string{
		"SUM", "COUNT", "AVG", "MIN", "MAX",
		"ANY_VALUE", "ARG_MAX", "ARG_MIN", "FIRST", "LAST",
		"LIST", "STRING_AGG", "MEDIAN", "MODE", "QUANTILE_CONT",
		"STDDEV_POP", "STDDEV_SAMP", "VAR_POP", "VAR_SAMP",
		"BOOL_AND", "BOOL_OR", "APPROX_COUNT_DISTINCT",
	},
}
