package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/internal/cli/render"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/core"
)

// NewMaxCommand creates the max command.
func NewMaxCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "max <schema> <table> <field>",
		Short: "Print the maximum value of a column",
		Long: `Print MAX(field) of schema.table on the configured target.

This is the high-water mark used for incremental loads. An empty table
prints NULL. Pass "" as schema for the target's default schema.`,
		Example: `  dwquery max dw orders loaded_at
  dwquery max "" events id -o json`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMax(cmd, args[0], args[1], args[2])
		},
	}
}

func runMax(cmd *cobra.Command, schema, table, field string) error {
	cmdCtx := NewCommandContext(cmd)
	ctx := cmdContext(cmd)

	wh, err := cmdCtx.OpenWarehouse(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = wh.Close() }()

	v, err := wh.MaxValue(ctx, schema, table, field)
	if err != nil {
		return err
	}

	if cmdCtx.Cfg.OutputFormat == "table" {
		_, _ = fmt.Fprintln(cmdCtx.Out, render.FormatValue(v))
		return nil
	}
	return cmdCtx.Render(&core.Result{Columns: []string{field}, Rows: [][]any{{v}}})
}
