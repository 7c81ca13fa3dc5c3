// Package render writes materialized results in the CLI output formats.
package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/core"
)

// Result writes res to w as table, json, csv or markdown. An unknown format
// falls back to table.
func Result(w io.Writer, res *core.Result, format string) error {
	if res == nil {
		res = &core.Result{}
	}
	switch format {
	case "json":
		return renderJSON(w, res)
	case "csv":
		renderCSV(w, res)
	case "md", "markdown":
		renderMarkdown(w, res)
	default:
		renderTable(w, res)
	}
	return nil
}

func newWriter(w io.Writer, res *core.Result) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	header := make(table.Row, len(res.Columns))
	for i, col := range res.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, r := range res.Rows {
		row := make(table.Row, len(res.Columns))
		for i := range res.Columns {
			if i < len(r) {
				row[i] = FormatValue(r[i])
			}
		}
		t.AppendRow(row)
	}
	return t
}

func renderTable(w io.Writer, res *core.Result) {
	if res.Len() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := newWriter(w, res)
	t.SetStyle(table.StyleLight)
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", res.Len())
}

func renderJSON(w io.Writer, res *core.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Records())
}

func renderCSV(w io.Writer, res *core.Result) {
	newWriter(w, res).RenderCSV()
}

func renderMarkdown(w io.Writer, res *core.Result) {
	if res.Len() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}
	newWriter(w, res).RenderMarkdown()
}

// FormatValue renders a cell for the text formats.
func FormatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
