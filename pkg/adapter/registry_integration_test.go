package adapter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/adapter"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/core"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/adapters/duckdb"
	_ "github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/adapters/postgres"
	_ "github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/adapters/sqlite"
)

func TestIsRegistered(t *testing.T) {
	tests := []struct {
		name        string
		adapterName string
		expected    bool
	}{
		{"duckdb registered", "duckdb", true},
		{"postgres registered", "postgres", true},
		{"sqlite registered", "sqlite", true},
		{"unknown not registered", "unknown_db", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.IsRegistered(tt.adapterName), "IsRegistered(%q)", tt.adapterName)
		})
	}
}

func TestNewAdapter_Success(t *testing.T) {
	for _, typ := range []string{"duckdb", "postgres", "sqlite"} {
		t.Run(typ, func(t *testing.T) {
			adp, err := adapter.NewAdapter(core.AdapterConfig{Type: typ}, nil)
			require.NoError(t, err)
			require.NotNil(t, adp)
			assert.Equal(t, typ, adp.Dialect().Name)
		})
	}
}

func TestNewAdapter_UnknownType(t *testing.T) {
	_, err := adapter.NewAdapter(core.AdapterConfig{Type: "unknown_adapter"}, nil)

	var unknownErr *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "unknown_adapter", unknownErr.Type)
	assert.Subset(t, unknownErr.Available, []string{"duckdb", "postgres", "sqlite"})
}
