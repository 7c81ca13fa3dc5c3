package duckdb

import "github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/dialect"

func init() {
	dialect.Register(DuckDB)
}

// DuckDB is the DuckDB dialect.
var DuckDB = dialect.New(Config).Build()
