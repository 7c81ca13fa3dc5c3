package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/odata"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/parser"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/predicate"
)

// TranslateOptions holds options for the translate command.
type TranslateOptions struct {
	Input  string
	URL    bool
	SQL    bool
	Format string
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand() *cobra.Command {
	opts := &TranslateOptions{}

	cmd := &cobra.Command{
		Use:   "translate [SQL]",
		Short: "Translate a restricted SELECT into OData query options",
		Long: `Translate SELECT <fields> FROM <table> [WHERE] [ORDER BY] [LIMIT] [OFFSET]
into the OData $select, $filter, $orderby, $top and $skip options.

Constructs that have no OData equivalent are reported as translation
limitations instead of being passed through.`,
		Example: `  # Print the query options
  dwquery translate "SELECT id, name FROM Customers WHERE id > 10 ORDER BY name DESC LIMIT 5"

  # Print the full request URL for the configured service
  dwquery translate --url "SELECT * FROM Orders WHERE status = 'open'"

  # Also render the WHERE clause as parameterized SQL
  dwquery translate --sql "SELECT * FROM orders WHERE region IN ('EU', 'US')"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	cmd.Flags().BoolVar(&opts.URL, "url", false, "Print the full request URL")
	cmd.Flags().BoolVar(&opts.SQL, "sql", false, "Also print the WHERE clause as parameterized SQL for the target dialect")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "text", "Output format: text, json")

	return cmd
}

// translation is the printable outcome of one translate call.
type translation struct {
	Entity   string `json:"entity"`
	Schema   string `json:"schema,omitempty"`
	Select   string `json:"$select,omitempty"`
	Filter   string `json:"$filter,omitempty"`
	OrderBy  string `json:"$orderby,omitempty"`
	Top      *int   `json:"$top,omitempty"`
	Skip     *int   `json:"$skip,omitempty"`
	URL      string `json:"url,omitempty"`
	WhereSQL string `json:"where_sql,omitempty"`
	WhereArg []any  `json:"where_args,omitempty"`
}

func runTranslate(cmd *cobra.Command, args []string, opts *TranslateOptions) error {
	cmdCtx := NewCommandContext(cmd)

	sql, err := readInput(cmd, args, opts.Input)
	if err != nil {
		return err
	}

	out, err := translateSQL(cmdCtx, sql, opts)
	if err != nil {
		return err
	}
	return writeTranslation(cmdCtx.Out, out, opts.Format)
}

func translateSQL(cmdCtx *CommandContext, sql string, opts *TranslateOptions) (*translation, error) {
	req, err := odata.Translate(sql)
	if err != nil {
		return nil, err
	}

	out := &translation{
		Entity:  req.Table,
		Schema:  req.Schema,
		Select:  req.Params.Select,
		Filter:  req.Params.Filter,
		OrderBy: req.Params.OrderBy,
		Top:     req.Params.Top,
		Skip:    req.Params.Skip,
	}

	if opts.URL {
		if cmdCtx.Cfg.OData == nil || cmdCtx.Cfg.OData.BaseURL == "" {
			return nil, ErrNoODataURL
		}
		out.URL = req.URL(cmdCtx.Cfg.OData.BaseURL)
	}

	if opts.SQL {
		out.WhereSQL, out.WhereArg, err = whereSQL(cmdCtx, sql)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// whereSQL renders the WHERE clause of sql for the target dialect.
func whereSQL(cmdCtx *CommandContext, sql string) (string, []any, error) {
	f, err := parser.Extract(sql)
	if err != nil {
		return "", nil, err
	}
	p, err := parser.ParsePredicate(f.Where)
	if err != nil || p == nil {
		return "", nil, err
	}
	d, err := cmdCtx.Dialect("")
	if err != nil {
		return "", nil, err
	}
	return predicate.ToSQL(d, p)
}

func writeTranslation(w io.Writer, t *translation, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	case "text", "":
	default:
		return fmt.Errorf("unsupported format %q (use text or json)", format)
	}

	entity := t.Entity
	if t.Schema != "" {
		entity += " (schema " + t.Schema + " dropped)"
	}
	_, _ = fmt.Fprintf(w, "entity:   %s\n", entity)
	for _, opt := range []struct{ name, value string }{
		{"$select", t.Select},
		{"$filter", t.Filter},
		{"$orderby", t.OrderBy},
	} {
		if opt.value != "" {
			_, _ = fmt.Fprintf(w, "%-9s %s\n", opt.name+":", opt.value)
		}
	}
	if t.Top != nil {
		_, _ = fmt.Fprintf(w, "$top:     %d\n", *t.Top)
	}
	if t.Skip != nil {
		_, _ = fmt.Fprintf(w, "$skip:    %d\n", *t.Skip)
	}
	if t.URL != "" {
		_, _ = fmt.Fprintf(w, "url:      %s\n", t.URL)
	}
	if t.WhereSQL != "" {
		_, _ = fmt.Fprintf(w, "where:    %s\n", t.WhereSQL)
		if len(t.WhereArg) > 0 {
			_, _ = fmt.Fprintf(w, "args:     %v\n", t.WhereArg)
		}
	}
	return nil
}
