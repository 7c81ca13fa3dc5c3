package query_test

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/dialects/sqlite"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/parser"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/predicate"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/query"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT, city TEXT);
		CREATE TABLE orders (id INTEGER PRIMARY KEY, customer_id INTEGER, amount REAL, status TEXT);
		INSERT INTO customers VALUES (1, 'Ann', 'Berlin'), (2, 'O''Brien', 'Dublin'), (3, 'Cy', NULL);
		INSERT INTO orders VALUES
			(1, 1, 10.0, 'open'), (2, 1, 5.5, 'closed'), (3, 2, 20.0, 'open'), (4, 3, 1.0, NULL);
	`)
	require.NoError(t, err)
	return db
}

func queryRows(t *testing.T, db *sql.DB, stmt *query.Statement) [][]any {
	t.Helper()

	rows, err := db.Query(stmt.SQL, stmt.Args...)
	require.NoError(t, err, stmt.SQL)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		require.NoError(t, rows.Scan(ptrs...))
		out = append(out, vals)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestBuild_ExecutesOnSQLite(t *testing.T) {
	db := openDB(t)
	b := query.NewBuilder(sqlite.SQLite, nil)

	stmt, err := b.Build(&query.Spec{
		Table:      "orders",
		Alias:      "o",
		Columns:    []query.Expr{query.Col("c", "name")},
		Joins:      []query.Join{{Table: "customers", Alias: "c", On: "c.id = o.customer_id"}},
		Where:      "o.amount > ?",
		Aggregates: []query.Aggregate{query.Agg("sum", query.Col("o", "amount"), "total")},
		GroupBy:    []query.Expr{query.Col("c", "name")},
		OrderBy:    []query.Expr{query.Raw("total DESC")},
		Limit:      query.IntPtr(2),
		Args:       []any{2},
	})
	require.NoError(t, err)

	assert.Equal(t, [][]any{
		{"O'Brien", 20.0},
		{"Ann", 15.5},
	}, queryRows(t, db, stmt))
}

func TestBuild_FilterFromTranslatedPredicate(t *testing.T) {
	db := openDB(t)
	b := query.NewBuilder(sqlite.SQLite, nil)

	filter, err := parser.ParsePredicate("name = 'O''Brien' OR city IS NULL")
	require.NoError(t, err)

	stmt, err := b.Build(&query.Spec{
		Table:   "customers",
		Columns: []query.Expr{query.Col("id")},
		Filter:  filter,
		OrderBy: []query.Expr{query.Col("id")},
	})
	require.NoError(t, err)

	assert.Equal(t, [][]any{{int64(2)}, {int64(3)}}, queryRows(t, db, stmt))
}

func TestBuild_HostileIdentifiersStayIdentifiers(t *testing.T) {
	db := openDB(t)
	b := query.NewBuilder(sqlite.SQLite, nil)

	hostile := []query.Spec{
		{Table: `orders"; DROP TABLE customers; --`},
		{Table: "orders", Columns: []query.Expr{query.Col(`id" FROM customers; DROP TABLE customers; --`)}},
		{Table: "orders", Alias: `o"; DROP TABLE customers; --`},
		{Table: "orders", Aggregates: []query.Aggregate{query.Agg("count", query.Star{}, `n"; DROP TABLE customers; --`)}},
		{Table: "orders", CTEs: []query.CTE{{Name: `x" AS (SELECT 1); DROP TABLE customers; --`, Query: "SELECT 1"}}},
	}

	for _, spec := range hostile {
		stmt, err := b.Build(&spec)
		require.NoError(t, err)

		tokens, err := parser.Tokenize(stmt.SQL)
		require.NoError(t, err, stmt.SQL)
		for _, tok := range tokens {
			assert.NotEqual(t, ";", tok.Literal, "statement %q was split", stmt.SQL)
		}

		rows, err := db.Query(stmt.SQL, stmt.Args...)
		if err == nil {
			for rows.Next() {
			}
			_ = rows.Close()
		}
	}

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM customers").Scan(&n))
	assert.Equal(t, 3, n)
}

func TestBuild_QuestionMarkIdentifiersExecute(t *testing.T) {
	db := openDB(t)
	_, err := db.Exec(`CREATE TABLE "who?" ("what?" TEXT, id INTEGER); INSERT INTO "who?" VALUES ('a', 1), ('b', 2)`)
	require.NoError(t, err)

	stmt, err := query.NewBuilder(sqlite.SQLite, nil).Build(&query.Spec{
		Table:   "who?",
		Columns: []query.Expr{query.Col("what?"), query.Raw("'x??y'")},
		Where:   "id = ?",
		Args:    []any{2},
	})
	require.NoError(t, err)

	assert.Equal(t, [][]any{{"b", "x?y"}}, queryRows(t, db, stmt))
}

func TestBuild_InListWithNullMatchesFilterSemantics(t *testing.T) {
	db := openDB(t)
	b := query.NewBuilder(sqlite.SQLite, nil)

	tests := []struct {
		where     string
		wantOData string
		wantIDs   [][]any
	}{
		{"city IN ('Berlin', NULL)", "(city eq 'Berlin' or city eq null)", [][]any{{int64(1)}, {int64(3)}}},
		{"city NOT IN ('Berlin', NULL)", "(city ne 'Berlin' and city ne null)", [][]any{{int64(2)}}},
	}

	for _, tt := range tests {
		t.Run(tt.where, func(t *testing.T) {
			filter, err := parser.ParsePredicate(tt.where)
			require.NoError(t, err)

			odata, err := predicate.ToOData(filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOData, odata)

			stmt, err := b.Build(&query.Spec{
				Table:   "customers",
				Columns: []query.Expr{query.Col("id")},
				Filter:  filter,
				OrderBy: []query.Expr{query.Col("id")},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, queryRows(t, db, stmt))
		})
	}
}
