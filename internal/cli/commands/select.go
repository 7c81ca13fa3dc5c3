package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// SelectOptions holds options for the select command.
type SelectOptions struct {
	Input string
}

// NewSelectCommand creates the select command.
func NewSelectCommand() *cobra.Command {
	opts := &SelectOptions{}

	cmd := &cobra.Command{
		Use:   "select [spec.yaml]",
		Short: "Build a query spec and run it against the target",
		Long: `Build a SELECT statement from a YAML or JSON query spec and execute it
against the configured target. Rows are printed in the --output format.`,
		Example: `  # Run a spec against the default target
  dwquery select orders.yaml

  # Run against the prod environment as CSV
  dwquery select orders.yaml -t prod -o csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read the spec from file")

	return cmd
}

func runSelect(cmd *cobra.Command, args []string, opts *SelectOptions) error {
	cmdCtx := NewCommandContext(cmd)
	ctx := cmdContext(cmd)

	spec, err := loadSpec(cmd, args, opts.Input)
	if err != nil {
		return err
	}

	wh, err := cmdCtx.OpenWarehouse(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = wh.Close() }()

	res, err := wh.Select(ctx, spec)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return cmdCtx.Render(res)
}
