// Package query compiles flat request parameters into structured,
// injection-safe queries.
//
// The compiler never builds query text from user values: every operand in
// a StructuredQuery is a typed scalar that the execution layer binds as a
// SQL parameter. Anything outside the table's grammar is rejected.
package query

import "csvapi/internal/grammar"

// Param is one supplied (name, value) pair. Order of supplied parameters
// is preserved into the compiled predicate list for diagnostics.
//
// Value may be a string (the transport's raw form) or an already-typed
// scalar (programmatic callers); the compiler coerces either. A nil Value
// means "not specified" and is skipped.
type Param struct {
	Name  string
	Value any
}

// Predicate is a single bound condition. All predicates in a query
// combine with logical AND; there is no OR, NOT, or grouping.
type Predicate struct {
	Column   string
	Operator grammar.OperatorKind

	// Param is the supplied parameter name the predicate came from.
	// Diagnostic only: execution-time errors name the offending parameter.
	Param string

	// Operand is the typed scalar the executor binds as a SQL parameter.
	// It is never interpolated into query text.
	Operand any
}

// StructuredQuery is the immutable compiled form of one request.
type StructuredQuery struct {
	// Table names the queried table.
	Table string

	// SelectedColumns lists the projected columns in declared column
	// order. Empty means all columns.
	SelectedColumns []string

	// Distinct deduplicates rows on the full projected value set.
	Distinct bool

	// Predicates are the bound filter conditions, in the source order of
	// the supplied parameters.
	Predicates []Predicate
}
