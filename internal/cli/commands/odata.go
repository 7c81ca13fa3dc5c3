package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ODataOptions holds options for the odata command.
type ODataOptions struct {
	Input string
}

// NewODataCommand creates the odata command.
func NewODataCommand() *cobra.Command {
	opts := &ODataOptions{}

	cmd := &cobra.Command{
		Use:   "odata [SQL...]",
		Short: "Translate restricted SELECTs and fetch them from the OData service",
		Long: `Translate each restricted SELECT into an OData request and fetch the rows
from odata.base_url. Several queries are fetched concurrently, bounded by
odata.max_concurrency, and printed in argument order.

Nested objects are flattened into dotted columns; missing keys are NULL.`,
		Example: `  dwquery odata "SELECT CustomerID, CompanyName FROM Customers WHERE Country = 'Germany'"

  # Several entity sets at once
  dwquery odata "SELECT * FROM Orders LIMIT 10" "SELECT * FROM Shippers" --odata-url https://services.odata.org/V4/Northwind/Northwind.svc/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOData(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read one query per ';'-terminated statement from file")

	return cmd
}

func runOData(cmd *cobra.Command, args []string, opts *ODataOptions) error {
	cmdCtx := NewCommandContext(cmd)

	queries := args
	if len(queries) == 0 {
		content, err := readInput(cmd, nil, opts.Input)
		if err != nil {
			return err
		}
		queries = splitStatements(content)
	}

	client, err := cmdCtx.ODataClient()
	if err != nil {
		return err
	}
	defer client.Close()

	results, err := client.QueryAll(cmdContext(cmd), queries)
	if err != nil {
		return err
	}

	for i, res := range results {
		if len(results) > 1 {
			_, _ = fmt.Fprintf(cmdCtx.Out, "-- %s\n", strings.TrimSpace(queries[i]))
		}
		if err := cmdCtx.Render(res); err != nil {
			return err
		}
	}
	return nil
}

// splitStatements splits input at semicolons outside quotes.
func splitStatements(input string) []string {
	var out []string
	var cur strings.Builder
	var quote rune
	for _, r := range input {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ';':
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}
