package core

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string // flat driver connection options
	Params   map[string]any    // structured adapter-specific settings
}

// Column represents a column in a database table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// TableMetadata holds metadata about a database table.
type TableMetadata struct {
	Schema  string
	Name    string
	Columns []Column
}

// ColumnNames returns the column names in ordinal order.
func (m *TableMetadata) ColumnNames() []string {
	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.Name
	}
	return names
}

// Result is a fully materialized tabular result, shared by the SQL
// executors and the OData client.
type Result struct {
	Columns []string
	Rows    [][]any

	// Types holds the upper-cased database type name of each column. It is
	// nil when the source reports no types.
	Types []string
}

// ColumnType returns the database type name of column i, or "".
func (r *Result) ColumnType(i int) string {
	if r == nil || i < 0 || i >= len(r.Types) {
		return ""
	}
	return r.Types[i]
}

// Len returns the number of rows.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Records returns the rows as column-keyed maps.
func (r *Result) Records() []map[string]any {
	out := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		rec := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}
