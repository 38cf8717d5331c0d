package query

import (
	"sort"
	"strconv"
	"strings"

	"csvapi/internal/grammar"
	"csvapi/internal/tabular"
)

// Compile translates supplied parameters into a StructuredQuery using the
// table's grammar.
//
// Failure is all-or-nothing: any unknown name fails the whole request with
// an UNKNOWN_PARAMETER error regardless of other valid parameters, and any
// value that doesn't coerce to its spec's operand type fails with
// TYPE_MISMATCH. Nothing is silently ignored or forwarded.
//
// Predicates appear in the source order of params. Selected columns are
// reordered to declared column order.
func Compile(g *grammar.Grammar, params []Param) (*StructuredQuery, error) {
	q := &StructuredQuery{Table: g.Table()}
	selected := make(map[string]bool)

	for _, p := range params {
		if p.Value == nil {
			continue
		}

		spec, ok := g.Lookup(p.Name)
		if !ok {
			return nil, NewUnknownParameterError(p.Name)
		}

		switch spec.Operator {
		case grammar.OpDistinct:
			on, err := coerceBool(p.Name, p.Value)
			if err != nil {
				return nil, err
			}
			if on {
				q.Distinct = true
			}

		case grammar.OpSelectFlag:
			on, err := coerceBool(p.Name, p.Value)
			if err != nil {
				return nil, err
			}
			if on && !selected[spec.Column] {
				selected[spec.Column] = true
				q.SelectedColumns = append(q.SelectedColumns, spec.Column)
			}

		case grammar.OpIsBefore, grammar.OpIsAfter:
			operand, err := coerceDate(p.Name, p.Value)
			if err != nil {
				return nil, err
			}
			q.Predicates = append(q.Predicates, Predicate{
				Column:   spec.Column,
				Operator: spec.Operator,
				Param:    p.Name,
				Operand:  operand,
			})

		default:
			operand, err := coerce(p.Name, p.Value, spec.Operand)
			if err != nil {
				return nil, err
			}
			q.Predicates = append(q.Predicates, Predicate{
				Column:   spec.Column,
				Operator: spec.Operator,
				Param:    p.Name,
				Operand:  operand,
			})
		}
	}

	// Projection order is the grammar's declared column order, not
	// request order.
	sort.SliceStable(q.SelectedColumns, func(i, j int) bool {
		return g.ColumnIndex(q.SelectedColumns[i]) < g.ColumnIndex(q.SelectedColumns[j])
	})

	return q, nil
}

// CompileMap is the programmatic entry point for callers holding an
// unordered map. Keys are sorted so the compiled predicate order is
// deterministic.
func CompileMap(g *grammar.Grammar, params map[string]any) (*StructuredQuery, error) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	ordered := make([]Param, 0, len(names))
	for _, name := range names {
		ordered = append(ordered, Param{Name: name, Value: params[name]})
	}
	return Compile(g, ordered)
}

// coerce converts a supplied value to the spec's operand type. Values
// arrive as raw strings from the transport or as typed scalars from
// programmatic callers.
func coerce(param string, value any, t tabular.SemanticType) (any, error) {
	switch t {
	case tabular.TypeInteger:
		return coerceInt(param, value)
	case tabular.TypeFloat:
		return coerceFloat(param, value)
	case tabular.TypeBoolean:
		b, err := coerceBool(param, value)
		if err != nil {
			return nil, err
		}
		return b, nil
	case tabular.TypeString, tabular.TypeDate:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return nil, NewTypeMismatchError(param, value, "string")
	}
	return nil, NewTypeMismatchError(param, value, string(t))
}

func coerceInt(param string, value any) (any, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		// JSON numbers decode as float64; accept integral ones.
		if v == float64(int64(v)) {
			return int64(v), nil
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n, nil
		}
	}
	return nil, NewTypeMismatchError(param, value, "integer")
}

func coerceFloat(param string, value any) (any, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, nil
		}
	}
	return nil, NewTypeMismatchError(param, value, "float")
}

func coerceBool(param string, value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b, nil
		}
	}
	return false, NewTypeMismatchError(param, value, "boolean")
}

// coerceDate validates a date operand against the strict YYYY-MM-DD
// pattern. A non-matching operand is an INVALID_PATTERN error, not a
// type mismatch: the value is a string, just not a usable date.
func coerceDate(param string, value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, NewTypeMismatchError(param, value, "date string")
	}
	if !tabular.IsDateString(s) {
		return nil, NewInvalidPatternError(param, s, nil)
	}
	return s, nil
}
