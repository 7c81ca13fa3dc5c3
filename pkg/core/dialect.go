package core

// DialectConfig holds the static configuration for a SQL dialect.
// This is pure data; the quoting behavior lives in pkg/dialect.Dialect.
type DialectConfig struct {
	// Name is the dialect identifier (e.g., "duckdb", "postgres")
	Name string

	// Identifiers defines quoting and normalization rules
	Identifiers IdentifierConfig

	// DefaultSchema is the default schema name ("main" for DuckDB, "public" for Postgres)
	DefaultSchema string

	// Placeholder defines how query parameters are formatted
	Placeholder PlaceholderStyle

	// Aggregates lists the aggregate functions the dialect knows about.
	Aggregates []string
}

// NormalizationStrategy defines how unquoted identifiers are normalized.
type NormalizationStrategy int

const (
	// NormLowercase normalizes unquoted identifiers to lowercase (default SQL behavior).
	NormLowercase NormalizationStrategy = iota
	// NormUppercase normalizes unquoted identifiers to uppercase (Snowflake, Oracle).
	NormUppercase
	// NormCaseSensitive preserves identifier case exactly.
	NormCaseSensitive
	// NormCaseInsensitive normalizes to lowercase for comparison (DuckDB, SQLite).
	NormCaseInsensitive
)

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (DuckDB, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. for parameters (PostgreSQL).
	PlaceholderDollar
)

// String returns the string representation of PlaceholderStyle.
func (s PlaceholderStyle) String() string {
	switch s {
	case PlaceholderDollar:
		return "dollar"
	default:
		return "question"
	}
}

// IdentifierConfig defines how identifiers are quoted and normalized.
type IdentifierConfig struct {
	Quote         string                // Quote character: ", `, [
	QuoteEnd      string                // End quote character (usually same as Quote, ] for [)
	Escape        string                // Escape sequence for QuoteEnd inside a name: "", ``, ]]
	Normalization NormalizationStrategy // How to normalize unquoted identifiers
}
