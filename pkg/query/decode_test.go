package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/dialects/postgres"
)

func TestSpecFrom_YAML(t *testing.T) {
	doc := `
table: orders
joins:
  - table: customers
    on: orders.customer_id = customers.id
aggregates:
  total: [sum, orders.amount]
group_by: [orders.customer_id]
`
	var raw map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(doc), &raw))

	spec, err := SpecFrom(raw)
	require.NoError(t, err)

	stmt, err := NewBuilder(postgres.Postgres, nil).Build(spec)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT SUM(orders.amount) AS "total" FROM "orders" INNER JOIN "customers" ON orders.customer_id = customers.id GROUP BY orders.customer_id`,
		stmt.SQL)
}

func TestSpecFrom_AllFields(t *testing.T) {
	doc := `
schema: dw
table: orders
alias: o
distinct: true
columns: [region, "o.created_at::date AS day", [dw, orders, id]]
joins:
  - {type: left, table: customers, alias: c, on: "c.id = o.customer_id"}
where: o.amount > ?
having: SUM(o.amount) > ?
order_by: [region, "day DESC"]
limit: 50
offset: 100
ctes:
  - {name: recent, query: "SELECT 1"}
args: [10, 500]
`
	var raw map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(doc), &raw))

	spec, err := SpecFrom(raw)
	require.NoError(t, err)

	assert.Equal(t, &Spec{
		Schema:   "dw",
		Table:    "orders",
		Alias:    "o",
		Distinct: true,
		Columns:  []Expr{Col("region"), Raw("o.created_at::date AS day"), Col("dw", "orders", "id")},
		Joins:    []Join{{Kind: LeftJoin, Table: "customers", Alias: "c", On: "c.id = o.customer_id"}},
		Where:    "o.amount > ?",
		Having:   "SUM(o.amount) > ?",
		OrderBy:  []Expr{Raw("region"), Raw("day DESC")},
		Limit:    IntPtr(50),
		Offset:   IntPtr(100),
		CTEs:     []CTE{{Name: "recent", Query: "SELECT 1"}},
		Args:     []any{10, 500},
	}, spec)
}

func TestSpecFrom_Limit(t *testing.T) {
	tests := []struct {
		name  string
		limit any
		want  *int
		err   bool
	}{
		{"absent", nil, nil, false},
		{"int", 10, IntPtr(10), false},
		{"json float", float64(25), IntPtr(25), false},
		{"json number", json.Number("7"), IntPtr(7), false},
		{"zero", 0, IntPtr(0), false},
		{"negative", -1, nil, true},
		{"fraction", 1.5, nil, true},
		{"string", "10", nil, true},
		{"word", "ten", nil, true},
		{"bool", true, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := map[string]any{"table": "t"}
			if tt.limit != nil {
				raw["limit"] = tt.limit
			}
			spec, err := SpecFrom(raw)
			if tt.err {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidLimit)
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "limit", ve.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, spec.Limit)
		})
	}
}

func TestSpecFrom_UnknownKey(t *testing.T) {
	_, err := SpecFrom(map[string]any{"table": "t", "limt": 5})

	var se *ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "spec", se.Field)
	assert.Contains(t, err.Error(), "limt")
}

func TestColumnsFrom(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []Expr
	}{
		{"nil", nil, nil},
		{"star string", "*", []Expr{Star{}}},
		{"raw string", "id, name", []Expr{Raw("id, name")}},
		{"bare name string stays raw", "id", []Expr{Raw("id")}},
		{"typed strings", []string{"id", "a.b", "*"}, []Expr{Col("id"), Raw("a.b"), Star{}}},
		{"mixed list", []any{"id", []any{"s", "t", "c"}, "count(*)"}, []Expr{Col("id"), Col("s", "t", "c"), Raw("count(*)")}},
		{"typed expressions", []any{Col("x"), Raw("y + 1")}, []Expr{Col("x"), Raw("y + 1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ColumnsFrom(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColumnsFrom_ShapeErrors(t *testing.T) {
	for _, in := range []any{42, map[string]any{"a": 1}, []any{3}, []any{[]any{"s", 1}}} {
		_, err := ColumnsFrom(in)
		var se *ShapeError
		assert.ErrorAs(t, err, &se, "input %#v", in)
	}
}

func TestAggregatesFrom(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []Aggregate
	}{
		{
			name: "keyed tuples in document order",
			in: Mapping{
				{Key: "total", Value: []any{"sum", "o.amount"}},
				{Key: "n", Value: []any{"count", "*"}},
			},
			want: []Aggregate{
				Agg("sum", Raw("o.amount"), "total"),
				Agg("count", Star{}, "n"),
			},
		},
		{
			name: "keyed raw string takes the key as alias",
			in:   map[string]any{"max_value": "max(created_at)"},
			want: []Aggregate{Agg("max", Raw("created_at"), "max_value")},
		},
		{
			name: "record",
			in:   []any{map[string]any{"func": "count", "expr": "*", "as": "n"}},
			want: []Aggregate{Agg("count", Star{}, "n")},
		},
		{
			name: "tuples with and without alias",
			in:   []any{[]any{"avg", "total", "avg_total"}, []any{"min", []any{"o", "total"}}},
			want: []Aggregate{Agg("avg", Col("total"), "avg_total"), Agg("min", Col("o", "total"), "")},
		},
		{
			name: "raw strings",
			in:   []any{"sum(o.amount) AS total", "COUNT(*)", `max(x) as "Biggest X"`},
			want: []Aggregate{
				Agg("sum", Raw("o.amount"), "total"),
				Agg("COUNT", Star{}, ""),
				Agg("max", Raw("x"), "Biggest X"),
			},
		},
		{
			name: "unquoted raw alias folds to lower case",
			in:   "SUM(amount) AS Total",
			want: []Aggregate{
				Agg("SUM", Raw("amount"), "total"),
			},
		},
		{
			name: "nested call stays raw",
			in:   "coalesce(sum(a), 0) AS s",
			want: []Aggregate{Agg("coalesce", Raw("sum(a), 0"), "s")},
		},
		{
			name: "typed aggregates pass through",
			in:   []any{Agg("sum", Col("a"), "")},
			want: []Aggregate{Agg("sum", Col("a"), "")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AggregatesFrom(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAggregatesFrom_ShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"number", 3},
		{"keyed number", map[string]any{"x": 1}},
		{"unordered map with several keys", map[string]any{"a": []any{"sum", "x"}, "b": []any{"max", "y"}}},
		{"keyed triple", map[string]any{"x": []any{"sum", "a", "b"}}},
		{"short tuple", []any{[]any{"sum"}}},
		{"long tuple", []any{[]any{"sum", "a", "b", "c"}}},
		{"non-string func", []any{[]any{1, "a"}}},
		{"non-string alias", []any{[]any{"sum", "a", 2}}},
		{"record missing expr", []any{map[string]any{"func": "sum"}}},
		{"record unknown key", []any{map[string]any{"func": "sum", "expr": "a", "alias": "x"}}},
		{"not an aggregate call", []any{"total"}},
		{"unclosed call", []any{"sum(a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AggregatesFrom(tt.in)
			var se *ShapeError
			assert.ErrorAs(t, err, &se)
		})
	}
}

func TestJoinsFrom(t *testing.T) {
	got, err := JoinsFrom([]any{
		map[string]any{"table": "a", "on": "x = y"},
		map[string]any{"type": "full", "schema": "s", "table": "b", "alias": "bb", "on": "p = q"},
	})
	require.NoError(t, err)
	assert.Equal(t, []Join{
		{Kind: InnerJoin, Table: "a", On: "x = y"},
		{Kind: FullJoin, Schema: "s", Table: "b", Alias: "bb", On: "p = q"},
	}, got)

	_, err = JoinsFrom([]any{map[string]any{"type": "natural", "table": "a", "on": "1 = 1"}})
	assert.ErrorIs(t, err, ErrInvalidJoin)

	var se *ShapeError
	_, err = JoinsFrom("a JOIN b")
	assert.ErrorAs(t, err, &se)
	_, err = JoinsFrom([]any{"a"})
	assert.ErrorAs(t, err, &se)
	_, err = JoinsFrom([]any{map[string]any{"table": "a", "on": "x", "using": "id"}})
	assert.ErrorAs(t, err, &se)
}

func TestCTEsFrom(t *testing.T) {
	got, err := CTEsFrom(Mapping{{Key: "base", Value: "SELECT 1 AS x"}, {Key: "agg", Value: "SELECT x FROM base"}})
	require.NoError(t, err)
	assert.Equal(t, []CTE{{Name: "base", Query: "SELECT 1 AS x"}, {Name: "agg", Query: "SELECT x FROM base"}}, got)

	got, err = CTEsFrom(map[string]any{"only": "SELECT 1"})
	require.NoError(t, err)
	assert.Equal(t, []CTE{{Name: "only", Query: "SELECT 1"}}, got)

	got, err = CTEsFrom([]any{[]any{"z", "SELECT 1"}, map[string]any{"name": "y", "query": "SELECT 2"}})
	require.NoError(t, err)
	assert.Equal(t, []CTE{{Name: "z", Query: "SELECT 1"}, {Name: "y", Query: "SELECT 2"}}, got)

	var se *ShapeError
	for _, in := range []any{
		"WITH x",
		map[string]any{"a": 1},
		map[string]any{"b": "SELECT 2", "a": "SELECT 1"},
		Mapping{{Key: "a", Value: 1}},
		[]any{[]any{"a"}},
		[]any{3},
	} {
		_, err := CTEsFrom(in)
		assert.ErrorAs(t, err, &se, "input %#v", in)
	}
}

func TestSpecFromYAML_KeepsDocumentOrder(t *testing.T) {
	doc := `
table: agg
ctes:
  base: SELECT 1 AS x
  agg: SELECT x FROM base
aggregates:
  total: [sum, x]
  cnt: "count(*)"
  avg_x: [avg, x]
`
	spec, err := SpecFromYAML([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, []CTE{
		{Name: "base", Query: "SELECT 1 AS x"},
		{Name: "agg", Query: "SELECT x FROM base"},
	}, spec.CTEs)
	assert.Equal(t, []Aggregate{
		Agg("sum", Col("x"), "total"),
		Agg("count", Star{}, "cnt"),
		Agg("avg", Col("x"), "avg_x"),
	}, spec.Aggregates)
}

func TestSpecFromYAML_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		err  error
	}{
		{"empty", "", ErrEmptySpec},
		{"null", "null\n", ErrEmptySpec},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SpecFromYAML([]byte(tt.doc))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	var se *ShapeError
	_, err := SpecFromYAML([]byte("[a, b]\n"))
	assert.ErrorAs(t, err, &se)

	_, err = SpecFromYAML([]byte("table: ["))
	assert.Error(t, err)

	_, err = SpecFromYAML([]byte("table: t\nctes:\n  a: 1\n"))
	assert.ErrorAs(t, err, &se)
}
