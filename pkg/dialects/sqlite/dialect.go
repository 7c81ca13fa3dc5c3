// Package sqlite provides the SQLite SQL dialect definition.
package sqlite

import (
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/core"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/dialect"
)

func init() {
	dialect.Register(SQLite)
}

// SQLite is the SQLite dialect. Unquoted identifiers compare case-insensitively.
var SQLite = dialect.NewDialect("sqlite").
	Identifiers(`"`, `"`, `""`, core.NormCaseInsensitive).
	DefaultSchema("main").
	PlaceholderStyle(core.PlaceholderQuestion).
	Aggregates("SUM", "COUNT", "AVG", "MIN", "MAX", "TOTAL", "GROUP_CONCAT").
	Build()
