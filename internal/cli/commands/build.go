package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/query"
)

// BuildOptions holds options for the build command.
type BuildOptions struct {
	Input   string
	Dialect string
	Format  string
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build [spec.yaml]",
		Short: "Build a parameterized SELECT from a query spec",
		Long: `Build a SELECT statement from a YAML or JSON query spec without running it.

The spec names the table, columns, joins, filters, grouping, aggregates,
ordering, paging and CTEs. Identifiers are quoted for the dialect and values
stay bound parameters; the statement and its arguments are printed.`,
		Example: `  # Build for the configured target
  dwquery build orders.yaml

  # Build for another dialect
  dwquery build orders.yaml --dialect duckdb

  # Pipe a spec and print JSON
  cat orders.yaml | dwquery build --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read the spec from file")
	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "Dialect to build for (default: target type)")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runBuild(cmd *cobra.Command, args []string, opts *BuildOptions) error {
	cmdCtx := NewCommandContext(cmd)

	spec, err := loadSpec(cmd, args, opts.Input)
	if err != nil {
		return err
	}
	d, err := cmdCtx.Dialect(opts.Dialect)
	if err != nil {
		return err
	}

	stmt, err := query.NewBuilder(d, cmdCtx.Logger).Build(spec)
	if err != nil {
		return err
	}
	return writeStatement(cmdCtx.Out, stmt, opts.Format)
}

type statementOutput struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

func writeStatement(w io.Writer, stmt *query.Statement, format string) error {
	switch format {
	case "json":
		args := stmt.Args
		if args == nil {
			args = []any{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(statementOutput{SQL: stmt.SQL, Args: args})
	case "text", "":
		_, _ = fmt.Fprintln(w, stmt.SQL)
		if len(stmt.Args) > 0 {
			_, _ = fmt.Fprintf(w, "-- args: %v\n", stmt.Args)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q (use text or json)", format)
	}
}
