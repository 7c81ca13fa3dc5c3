package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/predicate"
)

func TestParsePredicate_Tree(t *testing.T) {
	got, err := ParsePredicate("a = 1 AND (b = 'x' OR c IS NULL)")
	require.NoError(t, err)

	want := &predicate.And{
		Left: &predicate.Comparison{Column: predicate.Col("a"), Op: predicate.Eq, Value: predicate.Number("1")},
		Right: &predicate.Group{Inner: &predicate.Or{
			Left:  &predicate.Comparison{Column: predicate.Col("b"), Op: predicate.Eq, Value: predicate.String("x")},
			Right: &predicate.NullCheck{Column: predicate.Col("c"), IsNull: true},
		}},
	}
	assert.Equal(t, want, got)
}

func TestParsePredicate_Blank(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		got, err := ParsePredicate(in)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
}

func TestParsePredicate_ToOData(t *testing.T) {
	tests := []struct {
		name  string
		where string
		want  string
	}{
		{"numeric comparison", "CustomerID > 100", "CustomerID gt 100"},
		{"null and decimal", "status IS NOT NULL AND price >= 9.99", "status ne null and price ge 9.99"},
		{"is null", "deleted_at IS NULL", "deleted_at eq null"},
		{"equals null", "deleted_at = NULL", "deleted_at eq null"},
		{"not equals null", "deleted_at != null", "deleted_at ne null"},
		{"string literal", "city = 'Berlin'", "city eq 'Berlin'"},
		{"escaped quote", "name = 'O''Brien'", "name eq 'O''Brien'"},
		{"bare word is a string", "status = open", "status eq 'open'"},
		{"bare number stays numeric", "qty <= 5", "qty le 5"},
		{"negative number", "balance < -10.5", "balance lt -10.5"},
		{"not equal forms", "a <> 1 OR b != 2", "a ne 1 or b ne 2"},
		{"booleans", "active = TRUE AND archived = false", "active eq true and archived eq false"},
		{"quoted numeric string with ordering operator", "price > '10'", "price gt 10"},
		{"quoted numeric string with equality", "code = '10'", "code eq '10'"},
		{"case-insensitive keywords", "a = 1 and b = 2 or c = 3", "a eq 1 and b eq 2 or c eq 3"},
		{"or under and keeps grouping", "(a = 1 OR b = 2) AND c = 3", "(a eq 1 or b eq 2) and c eq 3"},
		{"dotted column", "orders.total > 5", "orders.total gt 5"},
		{"quoted simple column", `"Region" = 'EU'`, "Region eq 'EU'"},
		{"in list", "region IN ('EU', 'US')", "(region eq 'EU' or region eq 'US')"},
		{"not in list", "id NOT IN (1, 2)", "(id ne 1 and id ne 2)"},
		{"empty in", "id IN ()", "(1 eq 0)"},
		{"empty not in", "id NOT IN ()", "(1 eq 1)"},
		{"like contains", "name LIKE '%ann%'", "contains(name,'ann')"},
		{"like starts with", "name LIKE 'Jo%'", "startswith(name,'Jo')"},
		{"like ends with", "email LIKE '%@example.com'", "endswith(email,'@example.com')"},
		{"like exact", "name LIKE 'Ann'", "name eq 'Ann'"},
		{"constant true", "1 = 1", "1 eq 1"},
		{"constant false", "1 = 0 OR a = 1", "1 eq 0 or a eq 1"},
		{"decimal constant", "2.50 >= 2.5", "1 eq 1"},
		{"odata operators", "price ge 10 and name eq 'x'", "price ge 10 and name eq 'x'"},
		{"odata function", "contains(name,'ann')", "contains(name,'ann')"},
		{"trailing semicolon", "a = 1;", "a eq 1"},
		{"comments", "a = 1 -- first\nAND /* second */ b = 2", "a eq 1 and b eq 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePredicate(tt.where)
			require.NoError(t, err)

			got, err := predicate.ToOData(p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePredicate_ODataRoundTrip(t *testing.T) {
	inputs := []string{
		"status IS NOT NULL AND price >= 9.99",
		"region IN ('EU', 'US') AND NOT_A_KEYWORD = 1",
		"name LIKE '%ann%' OR name LIKE 'Jo%'",
		"(a = 1 OR b = 2) AND c <> 'x'",
		"id NOT IN ()",
		"price > '10'",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			p, err := ParsePredicate(in)
			require.NoError(t, err)
			first, err := predicate.ToOData(p)
			require.NoError(t, err)

			again, err := ParsePredicate(first)
			require.NoError(t, err, "rendered filter %q should parse", first)
			second, err := predicate.ToOData(again)
			require.NoError(t, err)

			assert.Equal(t, first, second)
		})
	}
}

func TestParsePredicate_Limitations(t *testing.T) {
	tests := []struct {
		name      string
		where     string
		construct string
	}{
		{"between", "price BETWEEN 1 AND 5", "BETWEEN"},
		{"not between", "price NOT BETWEEN 1 AND 5", "NOT BETWEEN"},
		{"not like", "name NOT LIKE 'a%'", "NOT LIKE"},
		{"ilike", "name ILIKE 'a%'", "ILIKE"},
		{"not", "NOT a = 1", "NOT operator"},
		{"exists", "EXISTS (SELECT 1 FROM t)", "EXISTS"},
		{"subquery in", "id IN (SELECT id FROM t)", "subquery"},
		{"subquery group", "(SELECT 1) = 1", "subquery"},
		{"subquery value", "id = (SELECT max(id) FROM t)", "subquery"},
		{"arithmetic on column", "price * 2 > 10", "arithmetic"},
		{"arithmetic on value", "price > 10 + 1", "arithmetic"},
		{"concatenation", "a || b = 'x'", "arithmetic"},
		{"function on column", "lower(name) = 'x'", "function call lower()"},
		{"function as value", "created = now()", "function call now()"},
		{"column comparison", "a = t.b", "comparison between columns"},
		{"quoted column comparison", `a = "b"`, "comparison between columns"},
		{"interior wildcard", "name LIKE 'a%b'", "LIKE pattern"},
		{"single char wildcard", "code LIKE 'A_1'", "LIKE pattern"},
		{"like escape", `name LIKE 'a!%%' ESCAPE '!'`, "ESCAPE"},
		{"wildcard in function argument", "contains(name,'a%')", "LIKE wildcards"},
		{"ordering against null", "a > NULL", "comparison with null"},
		{"literal versus string", "'a' = 'a'", "comparison without a column"},
		{"non-simple column name", `"order id" = 1`, "column name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePredicate(tt.where)
			if err == nil {
				_, err = predicate.ToOData(p)
			}
			require.Error(t, err)

			var le *TranslationLimitationError
			require.True(t, errors.As(err, &le), "want *TranslationLimitationError, got %T: %v", err, err)
			assert.ErrorIs(t, err, predicate.ErrUnsupported)
			assert.Contains(t, le.Construct, tt.construct)
		})
	}
}

func TestParsePredicate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		where   string
		errPart string
	}{
		{"missing operator", "a 1", "comparison operator"},
		{"missing value", "a =", "a value"},
		{"dangling and", "a = 1 AND", "a condition"},
		{"unclosed group", "(a = 1", "')'"},
		{"stray paren", "a = 1)", "end of condition"},
		{"is without null", "a IS 1", "NULL"},
		{"in without list", "a IN 1", "'(' after IN"},
		{"unterminated in", "a IN (1, 2", "',' or ')'"},
		{"like without string", "a LIKE 5", "string pattern"},
		{"function missing comma", "contains(name 'x')", "','"},
		{"not followed by junk", "a NOT 1", "IN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePredicate(tt.where)
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T: %v", err, err)
			assert.ErrorIs(t, err, ErrInvalidQuery)
			assert.Contains(t, pe.Message, tt.errPart)
		})
	}
}

func TestParsePredicate_LimitationPosition(t *testing.T) {
	_, err := ParsePredicate("a = 1 AND\n  b BETWEEN 1 AND 2")

	var le *TranslationLimitationError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 2, le.Pos.Line)
	assert.Equal(t, 5, le.Pos.Column)
	assert.Contains(t, le.Error(), "line 2, column 5")
}
