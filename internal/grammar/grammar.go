// Package grammar derives, once per table, the set of query parameters a
// table's endpoint accepts from its column names and inferred types.
//
// The Grammar is built at construction time and is immutable afterwards:
// it is safe for concurrent readers without synchronization, and it is
// deliberately NOT regenerated when the underlying data is reloaded (the
// parameter surface is fixed for the lifetime of the API).
package grammar

import (
	"fmt"

	"csvapi/internal/tabular"
)

// OperatorKind enumerates the filter/selection operations a parameter
// can express. Each operator is legal only for specific column types;
// Generate encodes the legality rules.
type OperatorKind string

const (
	OpEquals             OperatorKind = "equals"
	OpSelectFlag         OperatorKind = "selected"
	OpGreaterThan        OperatorKind = "greaterThan"
	OpGreaterThanOrEqual OperatorKind = "greaterThanEqual"
	OpLessThan           OperatorKind = "lessThan"
	OpLessThanOrEqual    OperatorKind = "lessThanEqual"
	OpContains           OperatorKind = "contains"
	OpLike               OperatorKind = "like"
	OpMatchesRegex       OperatorKind = "regex"
	OpIsBefore           OperatorKind = "isBefore"
	OpIsAfter            OperatorKind = "isAfter"
	OpDistinct           OperatorKind = "distinct"
)

// DistinctParam is the table-wide parameter enabling DISTINCT projection.
const DistinctParam = "use_distinct"

// ParameterSpec describes one accepted query parameter: its name, the
// column it targets (empty for table-wide parameters), the operation it
// expresses, and the type its value must coerce to.
type ParameterSpec struct {
	Name     string
	Column   string
	Operator OperatorKind
	Operand  tabular.SemanticType
}

// Grammar is the complete parameter surface of one table.
type Grammar struct {
	table   string
	columns []tabular.Column
	colIdx  map[string]int
	byName  map[string]ParameterSpec
	ordered []ParameterSpec
}

// Generate builds the Grammar for a table. Parameter names are derived by
// suffix concatenation from column names; a collision between a generated
// name and a raw column name (or another generated name) is a fatal
// configuration error, never resolved by precedence.
func Generate(table string, columns []tabular.Column) (*Grammar, error) {
	g := &Grammar{
		table:   table,
		columns: columns,
		colIdx:  make(map[string]int, len(columns)),
		byName:  make(map[string]ParameterSpec),
	}
	for i, col := range columns {
		g.colIdx[col.Name] = i
	}

	if err := g.add(ParameterSpec{
		Name:     DistinctParam,
		Operator: OpDistinct,
		Operand:  tabular.TypeBoolean,
	}); err != nil {
		return nil, err
	}

	for _, col := range columns {
		if err := g.addColumn(col); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// addColumn emits every spec the column's type permits.
func (g *Grammar) addColumn(col tabular.Column) error {
	specs := []ParameterSpec{
		{Name: col.Name, Column: col.Name, Operator: OpEquals, Operand: col.Type},
		{Name: col.Name + "_selected", Column: col.Name, Operator: OpSelectFlag, Operand: tabular.TypeBoolean},
	}

	if col.Type.IsNumeric() {
		for _, op := range []OperatorKind{OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual} {
			specs = append(specs, ParameterSpec{
				Name:     col.Name + "_" + string(op),
				Column:   col.Name,
				Operator: op,
				Operand:  col.Type,
			})
		}
	}

	if col.Type.IsTextual() {
		for _, op := range []OperatorKind{OpContains, OpLike, OpMatchesRegex} {
			specs = append(specs, ParameterSpec{
				Name:     col.Name + "_" + string(op),
				Column:   col.Name,
				Operator: op,
				Operand:  tabular.TypeString,
			})
		}
	}

	if col.Type == tabular.TypeDate {
		for _, op := range []OperatorKind{OpIsBefore, OpIsAfter} {
			specs = append(specs, ParameterSpec{
				Name:     col.Name + "_" + string(op),
				Column:   col.Name,
				Operator: op,
				Operand:  tabular.TypeDate,
			})
		}
	}

	for _, spec := range specs {
		if err := g.add(spec); err != nil {
			return err
		}
	}
	return nil
}

func (g *Grammar) add(spec ParameterSpec) error {
	if prev, ok := g.byName[spec.Name]; ok {
		return fmt.Errorf("parameter name %q for column %q collides with parameter for column %q",
			spec.Name, spec.Column, prev.Column)
	}
	// A generated suffixed name shadowing a real column would make that
	// column's equals parameter unreachable.
	if spec.Operator != OpEquals {
		if _, isColumn := g.colIdx[spec.Name]; isColumn {
			return fmt.Errorf("parameter name %q for column %q collides with column %q",
				spec.Name, spec.Column, spec.Name)
		}
	}
	g.byName[spec.Name] = spec
	g.ordered = append(g.ordered, spec)
	return nil
}

// Table returns the table name the grammar was generated for.
func (g *Grammar) Table() string { return g.table }

// Columns returns the column set, in declared order, the grammar was
// generated from.
func (g *Grammar) Columns() []tabular.Column { return g.columns }

// Lookup resolves a parameter name to its spec.
func (g *Grammar) Lookup(name string) (ParameterSpec, bool) {
	spec, ok := g.byName[name]
	return spec, ok
}

// Specs returns every parameter spec in deterministic generation order:
// use_distinct first, then per-column specs in declared column order.
func (g *Grammar) Specs() []ParameterSpec { return g.ordered }

// ColumnIndex returns the declared position of a column, or -1 if the
// grammar has no such column. Used to keep projection in declared order
// regardless of request order.
func (g *Grammar) ColumnIndex(name string) int {
	if i, ok := g.colIdx[name]; ok {
		return i
	}
	return -1
}
