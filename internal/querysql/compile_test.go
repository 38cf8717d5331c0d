package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvapi/internal/grammar"
	"csvapi/internal/query"
)

func TestCompile_SelectAll(t *testing.T) {
	sql, params, err := Compile(&query.StructuredQuery{Table: "people"})
	require.NoError(t, err)

	assert.Equal(t, `SELECT * FROM "people"`, sql)
	assert.Empty(t, params)
}

func TestCompile_PredicatesAreParameterized(t *testing.T) {
	q := &query.StructuredQuery{
		Table: "people",
		Predicates: []query.Predicate{
			{Column: "name", Operator: grammar.OpContains, Operand: "an"},
			{Column: "age", Operator: grammar.OpGreaterThan, Operand: int64(30)},
		},
	}

	sql, params, err := Compile(q)
	require.NoError(t, err)

	assert.Equal(t, `SELECT * FROM "people" WHERE instr("name", ?) > 0 AND "age" > ?`, sql)
	assert.Equal(t, []any{"an", int64(30)}, params)

	// Operand values never appear in the query text.
	assert.NotContains(t, sql, "an'")
	assert.NotContains(t, sql, "30")
}

func TestCompile_OperatorFragments(t *testing.T) {
	testCases := []struct {
		op   grammar.OperatorKind
		want string
	}{
		{grammar.OpEquals, `"c" = ?`},
		{grammar.OpGreaterThan, `"c" > ?`},
		{grammar.OpGreaterThanOrEqual, `"c" >= ?`},
		{grammar.OpLessThan, `"c" < ?`},
		{grammar.OpLessThanOrEqual, `"c" <= ?`},
		{grammar.OpContains, `instr("c", ?) > 0`},
		{grammar.OpLike, `"c" LIKE ?`},
		{grammar.OpMatchesRegex, `"c" REGEXP ?`},
		{grammar.OpIsBefore, `DATE("c") < DATE(?)`},
		{grammar.OpIsAfter, `DATE("c") > DATE(?)`},
	}

	for _, tc := range testCases {
		t.Run(string(tc.op), func(t *testing.T) {
			sql, params, err := Compile(&query.StructuredQuery{
				Table:      "t",
				Predicates: []query.Predicate{{Column: "c", Operator: tc.op, Operand: "v"}},
			})
			require.NoError(t, err)
			assert.Equal(t, `SELECT * FROM "t" WHERE `+tc.want, sql)
			assert.Equal(t, []any{"v"}, params)
		})
	}
}

func TestCompile_DistinctAndProjection(t *testing.T) {
	q := &query.StructuredQuery{
		Table:           "people",
		Distinct:        true,
		SelectedColumns: []string{"name", "joined"},
	}

	sql, _, err := Compile(q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT DISTINCT "name", "joined" FROM "people"`, sql)
}

func TestCompile_InjectionAttemptStaysBound(t *testing.T) {
	// A hostile operand rides along as a bound parameter; the query text
	// is unaffected.
	q := &query.StructuredQuery{
		Table: "people",
		Predicates: []query.Predicate{
			{Column: "name", Operator: grammar.OpEquals, Operand: "x'; DROP TABLE people; --"},
		},
	}

	sql, params, err := Compile(q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "people" WHERE "name" = ?`, sql)
	assert.Equal(t, []any{"x'; DROP TABLE people; --"}, params)
	assert.NotContains(t, sql, "DROP")
}

func TestCompile_NilQuery(t *testing.T) {
	_, _, err := Compile(nil)
	assert.Error(t, err)
}

func TestCompile_UnsupportedOperator(t *testing.T) {
	_, _, err := Compile(&query.StructuredQuery{
		Table:      "t",
		Predicates: []query.Predicate{{Column: "c", Operator: grammar.OpDistinct}},
	})
	assert.Error(t, err)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"name"`, quoteIdent("name"))
	assert.Equal(t, `"we""ird"`, quoteIdent(`we"ird`))
}
