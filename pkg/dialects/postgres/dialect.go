package postgres

import (
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/dialect"
)

func init() {
	dialect.Register(Postgres)
}

// Postgres is the PostgreSQL dialect.
var Postgres = dialect.New(Config).Build()
