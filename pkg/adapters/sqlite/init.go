package sqlite

import (
	"log/slog"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/adapter"
)

func init() {
	adapter.Register("sqlite", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
