// Package querysql compiles structured queries to parameterized SQL for
// SQLite.
//
// All user-supplied values travel as bound parameters; query text is
// assembled only from validated identifiers and fixed operator fragments.
package querysql

import (
	"fmt"
	"strings"

	"csvapi/internal/grammar"
	"csvapi/internal/query"
)

// Compile converts a StructuredQuery to parameterized SQL.
// Returns (sql, params, error).
//
// Values are never interpolated: every operand becomes a ? placeholder.
// Rows come back in the store's natural order (insertion order), so no
// ORDER BY is emitted.
func Compile(q *query.StructuredQuery) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	selectClause := compileProjection(q.SelectedColumns)

	var whereClause string
	var params []any
	if len(q.Predicates) > 0 {
		fragments := make([]string, 0, len(q.Predicates))
		for _, pred := range q.Predicates {
			sql, err := compilePredicate(pred)
			if err != nil {
				return "", nil, err
			}
			fragments = append(fragments, sql)
			params = append(params, pred.Operand)
		}
		whereClause = " WHERE " + strings.Join(fragments, " AND ")
	}

	distinct := ""
	if q.Distinct {
		distinct = "DISTINCT "
	}

	sql := fmt.Sprintf("SELECT %s%s FROM %s%s",
		distinct,
		selectClause,
		quoteIdent(q.Table),
		whereClause)

	return sql, params, nil
}

// compileProjection converts the selected column list to a SELECT list.
// Empty selection projects all columns in their declared order.
func compileProjection(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
	}
	return strings.Join(quoted, ", ")
}

// compilePredicate emits the WHERE fragment for one predicate. Exactly one
// ? placeholder per predicate; the operand is appended by the caller.
func compilePredicate(p query.Predicate) (string, error) {
	col := quoteIdent(p.Column)

	switch p.Operator {
	case grammar.OpEquals:
		return col + " = ?", nil
	case grammar.OpGreaterThan:
		return col + " > ?", nil
	case grammar.OpGreaterThanOrEqual:
		return col + " >= ?", nil
	case grammar.OpLessThan:
		return col + " < ?", nil
	case grammar.OpLessThanOrEqual:
		return col + " <= ?", nil
	case grammar.OpContains:
		// Case-sensitive substring search via instr, not pattern matching.
		return "instr(" + col + ", ?) > 0", nil
	case grammar.OpLike:
		return col + " LIKE ?", nil
	case grammar.OpMatchesRegex:
		// Dispatches to the regexp() function registered on every store
		// connection.
		return col + " REGEXP ?", nil
	case grammar.OpIsBefore:
		return "DATE(" + col + ") < DATE(?)", nil
	case grammar.OpIsAfter:
		return "DATE(" + col + ") > DATE(?)", nil
	default:
		return "", fmt.Errorf("unsupported predicate operator: %s", p.Operator)
	}
}

// quoteIdent double-quotes an identifier, escaping embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
