package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/internal/cli/config"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/core"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/parser"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/warehouse"

	_ "github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/adapters/duckdb"
	_ "github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/adapters/postgres"
	_ "github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/adapters/sqlite"
)

const customersSpec = `schema: dw
table: customers
columns: [id, name]
where: region = ?
args: [EU]
order_by: [id]
limit: 2
`

// useConfig loads content as the current configuration for one test.
func useConfig(t *testing.T, content string) *config.Config {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	path := filepath.Join(t.TempDir(), "dwquery.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	cfg, err := config.LoadConfig(path, nil)
	require.NoError(t, err)
	return cfg
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// execute runs cmd with args and stdin, returning stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewBuildCommand(), "build [spec.yaml]", []string{"input", "dialect", "format"}},
		{NewTranslateCommand(), "translate [SQL]", []string{"input", "url", "sql", "format"}},
		{NewSelectCommand(), "select [spec.yaml]", []string{"input"}},
		{NewMaxCommand(), "max <schema> <table> <field>", nil},
		{NewODataCommand(), "odata [SQL...]", []string{"input"}},
		{NewREPLCommand(), "repl", nil},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Long, "Long should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestBuildCommand(t *testing.T) {
	specPath := writeFile(t, "customers.yaml", customersSpec)

	t.Run("text for default target", func(t *testing.T) {
		useConfig(t, "target:\n  type: postgres\n")
		out, _, err := execute(t, NewBuildCommand(), "", specPath)
		require.NoError(t, err)
		assert.Equal(t,
			"SELECT \"id\", \"name\" FROM \"dw\".\"customers\" WHERE region = $1 ORDER BY \"id\" LIMIT 2\n-- args: [EU]\n",
			out)
	})

	t.Run("dialect flag and json", func(t *testing.T) {
		config.ResetConfig()
		out, _, err := execute(t, NewBuildCommand(), "", "--input", specPath, "--dialect", "sqlite", "--format", "json")
		require.NoError(t, err)

		var got statementOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, `SELECT "id", "name" FROM "dw"."customers" WHERE region = ? ORDER BY "id" LIMIT 2`, got.SQL)
		assert.Equal(t, []any{"EU"}, got.Args)
	})

	t.Run("piped stdin", func(t *testing.T) {
		config.ResetConfig()
		out, _, err := execute(t, NewBuildCommand(), "table: events\n", "--dialect", "duckdb")
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM \"events\"\n", out)
	})

	t.Run("ctes and keyed aggregates keep document order", func(t *testing.T) {
		config.ResetConfig()
		doc := "table: agg\n" +
			"ctes:\n" +
			"  base: SELECT 1 AS x\n" +
			"  agg: SELECT x FROM base\n" +
			"aggregates:\n" +
			"  total: [sum, x]\n" +
			"  cnt: [count, \"*\"]\n"
		out, _, err := execute(t, NewBuildCommand(), doc, "--dialect", "postgres")
		require.NoError(t, err)
		assert.Equal(t,
			"WITH \"base\" AS (SELECT 1 AS x), \"agg\" AS (SELECT x FROM base) "+
				"SELECT SUM(\"x\") AS \"total\", COUNT(*) AS \"cnt\" FROM \"agg\"\n",
			out)
	})

	errorCases := []struct {
		name      string
		stdin     string
		args      []string
		errSubstr string
	}{
		{"no input", "", nil, "no input given"},
		{"unknown key", "table: t\nwhere_clause: x\n", nil, "where_clause"},
		{"unknown dialect", "table: t\n", []string{"--dialect", "oracle"}, "oracle"},
		{"bad format", "table: t\n", []string{"--format", "xml"}, "unsupported format"},
		{"invalid yaml", "table: [", nil, "failed to parse spec"},
		{"empty document", "null\n", nil, "spec document is empty"},
		{"missing table", "columns: [a]\n", nil, "table"},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			config.ResetConfig()
			_, _, err := execute(t, NewBuildCommand(), tt.stdin, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestTranslateCommand(t *testing.T) {
	const sql = "SELECT id, name FROM dw.Customers WHERE id > 10 AND region = 'EU' ORDER BY name DESC LIMIT 5 OFFSET 10"

	t.Run("text", func(t *testing.T) {
		config.ResetConfig()
		out, _, err := execute(t, NewTranslateCommand(), "", sql)
		require.NoError(t, err)
		assert.Equal(t, strings.Join([]string{
			"entity:   Customers (schema dw dropped)",
			"$select:  id, name",
			"$filter:  id gt 10 and region eq 'EU'",
			"$orderby: name desc",
			"$top:     5",
			"$skip:    10",
			"",
		}, "\n"), out)
	})

	t.Run("url and sql as json", func(t *testing.T) {
		useConfig(t, "target:\n  type: postgres\nodata:\n  base_url: https://svc.example.com/odata/\n")
		out, _, err := execute(t, NewTranslateCommand(), "", "--url", "--sql", "--format", "json",
			"SELECT * FROM Orders WHERE status IN ('open', 'held')")
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, "Orders", got["entity"])
		assert.Equal(t, "(status eq 'open' or status eq 'held')", got["$filter"])
		assert.Equal(t, `"status" IN (?, ?)`, got["where_sql"])
		assert.Equal(t, []any{"open", "held"}, got["where_args"])
		assert.True(t, strings.HasPrefix(got["url"].(string), "https://svc.example.com/odata/Orders?"), got["url"])
	})

	t.Run("url without service", func(t *testing.T) {
		config.ResetConfig()
		_, _, err := execute(t, NewTranslateCommand(), "", "--url", "SELECT * FROM Orders")
		assert.ErrorIs(t, err, ErrNoODataURL)
	})

	t.Run("stdin", func(t *testing.T) {
		config.ResetConfig()
		out, _, err := execute(t, NewTranslateCommand(), "SELECT * FROM Orders\n")
		require.NoError(t, err)
		assert.Equal(t, "entity:   Orders\n", out)
	})

	t.Run("limitation", func(t *testing.T) {
		config.ResetConfig()
		_, _, err := execute(t, NewTranslateCommand(), "", "SELECT DISTINCT a FROM t")
		var lim *parser.TranslationLimitationError
		assert.ErrorAs(t, err, &lim)
	})
}

// seedSQLite creates a sqlite warehouse file with a small customers table.
func seedSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dw.sqlite")

	ctx := context.Background()
	wh, err := warehouse.Open(ctx, core.AdapterConfig{Type: "sqlite", Path: path}, nil)
	require.NoError(t, err)
	defer func() { _ = wh.Close() }()

	for _, stmt := range []string{
		`CREATE TABLE customers (id INTEGER NOT NULL, name TEXT, region TEXT)`,
		`INSERT INTO customers VALUES (1, 'Ann', 'EU'), (2, 'Bo', 'US'), (3, 'Cy', 'EU')`,
	} {
		require.NoError(t, wh.Adapter().Exec(ctx, stmt))
	}
	return path
}

func TestSelectCommand(t *testing.T) {
	db := seedSQLite(t)
	useConfig(t, "output: csv\ntarget:\n  type: sqlite\n  database: "+db+"\n")

	spec := writeFile(t, "eu.yaml", "table: customers\ncolumns: [id, name]\nwhere: region = ?\nargs: [EU]\norder_by: [id]\n")
	out, _, err := execute(t, NewSelectCommand(), "", spec)
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,Ann\n3,Cy\n", out)
}

func TestMaxCommand(t *testing.T) {
	db := seedSQLite(t)

	t.Run("table output prints the value", func(t *testing.T) {
		useConfig(t, "target:\n  type: sqlite\n  database: "+db+"\n")
		out, _, err := execute(t, NewMaxCommand(), "", "", "customers", "id")
		require.NoError(t, err)
		assert.Equal(t, "3\n", out)
	})

	t.Run("json output", func(t *testing.T) {
		useConfig(t, "output: json\ntarget:\n  type: sqlite\n  database: "+db+"\n")
		out, _, err := execute(t, NewMaxCommand(), "", "main", "customers", "name")
		require.NoError(t, err)
		assert.JSONEq(t, `[{"name": "Cy"}]`, out)
	})

	t.Run("missing table", func(t *testing.T) {
		useConfig(t, "target:\n  type: sqlite\n  database: "+db+"\n")
		_, _, err := execute(t, NewMaxCommand(), "", "", "nope", "id")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max value of id")
	})

	t.Run("wrong arg count", func(t *testing.T) {
		_, _, err := execute(t, NewMaxCommand(), "", "customers", "id")
		assert.Error(t, err)
	})
}

func TestODataCommand_RequiresService(t *testing.T) {
	config.ResetConfig()
	_, _, err := execute(t, NewODataCommand(), "", "SELECT * FROM Orders")
	assert.ErrorIs(t, err, ErrNoODataURL)
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"SELECT * FROM a", []string{"SELECT * FROM a"}},
		{"SELECT * FROM a;\nSELECT * FROM b;\n", []string{"SELECT * FROM a", "SELECT * FROM b"}},
		{"SELECT * FROM a WHERE x = 'a;b';", []string{"SELECT * FROM a WHERE x = 'a;b'"}},
		{" ; ;", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, splitStatements(tt.input))
		})
	}
}

func TestREPLSession(t *testing.T) {
	newSession := func(t *testing.T) (*replSession, *bytes.Buffer, *bytes.Buffer) {
		t.Helper()
		var out, errOut bytes.Buffer
		return newREPLSession(&CommandContext{Cfg: getConfig(), Out: &out, Err: &errOut}), &out, &errOut
	}

	t.Run("multi-line statement", func(t *testing.T) {
		config.ResetConfig()
		s, out, _ := newSession(t)

		assert.False(t, s.handleLine("SELECT name"))
		assert.Equal(t, replContPrompt, s.prompt())
		assert.False(t, s.handleLine("FROM People WHERE age >= 18;"))
		assert.Equal(t, replPrompt, s.prompt())

		assert.Contains(t, out.String(), "$filter:  age ge 18")
	})

	t.Run("errors keep the session alive", func(t *testing.T) {
		config.ResetConfig()
		s, _, errOut := newSession(t)

		assert.False(t, s.handleLine("SELECT * FROM t WHERE a BETWEEN 1 AND 2;"))
		assert.Contains(t, errOut.String(), "Error:")
	})

	t.Run("toggles", func(t *testing.T) {
		config.ResetConfig()
		s, out, errOut := newSession(t)

		s.handleLine(".url")
		assert.False(t, s.opts.URL)
		assert.Contains(t, errOut.String(), "odata.base_url is not configured")

		s.handleLine(".sql")
		s.handleLine(".json")
		s.handleLine("SELECT * FROM t WHERE a = 1;")
		assert.Contains(t, out.String(), `"where_sql": "\"a\" = ?"`)

		s.handleLine(".nope")
		assert.Contains(t, errOut.String(), "Unknown command: .nope")
	})

	t.Run("url with service", func(t *testing.T) {
		useConfig(t, "odata:\n  base_url: https://svc.example.com/odata\n")
		s, out, _ := newSession(t)

		s.handleLine(".url")
		s.handleLine("SELECT * FROM Orders LIMIT 1;")
		assert.Contains(t, out.String(), "url:      https://svc.example.com/odata/Orders?%24format=json&%24top=1")
	})

	t.Run("help and quit", func(t *testing.T) {
		config.ResetConfig()
		s, out, _ := newSession(t)

		assert.False(t, s.handleLine(".help"))
		assert.Contains(t, out.String(), ".quit / .exit")
		assert.True(t, s.handleLine(".quit"))
		assert.True(t, s.handleLine(".EXIT"))
	})
}

func TestNewVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantOut []string
	}{
		{name: "default version", version: "0.1.0", wantOut: []string{"dwquery v0.1.0", "OData"}},
		{name: "dev version", version: "dev", wantOut: []string{"dwquery vdev"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, NewVersionCommand(tt.version), "")
			require.NoError(t, err)
			for _, want := range tt.wantOut {
				assert.Contains(t, out, want)
			}
		})
	}
}
