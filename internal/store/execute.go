package store

import (
	"context"
	"regexp"

	"csvapi/internal/grammar"
	"csvapi/internal/query"
	"csvapi/internal/querysql"
	"csvapi/internal/tabular"
)

// Result is an ordered sequence of row-mappings plus the projected column
// order (JSON objects and Go maps both lose ordering, so it travels
// alongside).
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// Execute runs a compiled query against the active snapshot and returns
// the full matching set in the store's natural row order.
//
// Regex operands are compiled here, immediately before execution: a
// pattern that doesn't compile is an INVALID_PATTERN query error naming
// the parameter, never a crash.
func (m *Manager) Execute(ctx context.Context, q *query.StructuredQuery) (*Result, error) {
	snap, err := m.acquire()
	if err != nil {
		return nil, err
	}
	defer snap.release()

	for _, pred := range q.Predicates {
		if pred.Operator != grammar.OpMatchesRegex {
			continue
		}
		pattern, _ := pred.Operand.(string)
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, query.NewInvalidPatternError(pred.Param, pattern, err)
		}
	}

	sqlText, args, err := querysql.Compile(q)
	if err != nil {
		return nil, query.NewExecutionError(err)
	}

	return snap.query(ctx, sqlText, args...)
}

// QueryRaw executes an ad hoc SQL query against the active snapshot.
// Administrative escape hatch for programmatic callers outside the
// generated grammar; values must still arrive as bound args, never
// interpolated into sqlText.
func (m *Manager) QueryRaw(ctx context.Context, sqlText string, args ...any) (*Result, error) {
	snap, err := m.acquire()
	if err != nil {
		return nil, err
	}
	defer snap.release()
	return snap.query(ctx, sqlText, args...)
}

// query runs parameterized SQL on the snapshot's database and scans the
// rows into ordered maps.
func (s *Snapshot) query(ctx context.Context, sqlText string, args ...any) (*Result, error) {
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, query.NewExecutionError(err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, query.NewExecutionError(err)
	}

	types := make([]tabular.SemanticType, len(names))
	for i, name := range names {
		for _, col := range s.columns {
			if col.Name == name {
				types[i] = col.Type
				break
			}
		}
	}

	result := &Result{Columns: names, Rows: []map[string]any{}}
	values := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, query.NewExecutionError(err)
		}
		row := make(map[string]any, len(names))
		for i, name := range names {
			row[name] = normalizeScalar(values[i], types[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, query.NewExecutionError(err)
	}

	return result, nil
}

// normalizeScalar converts driver values back to the column's semantic
// kind: []byte to string, stored 0/1 back to bool for boolean columns.
func normalizeScalar(v any, t tabular.SemanticType) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if t == tabular.TypeBoolean {
		if n, ok := v.(int64); ok {
			return n != 0
		}
	}
	return v
}
