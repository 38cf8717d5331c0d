package tabular

// SemanticType is the inferred logical type of a column.
//
// Exactly one type is assigned per column and it is fixed for the lifetime
// of a store snapshot. DateLike is a refinement of String: date-only
// operators are additionally enabled, all string operators remain valid.
type SemanticType string

const (
	// TypeString holds arbitrary text.
	TypeString SemanticType = "string"

	// TypeInteger holds whole numbers (stored as int64).
	TypeInteger SemanticType = "integer"

	// TypeFloat holds real numbers (stored as float64).
	TypeFloat SemanticType = "float"

	// TypeBoolean holds true/false values.
	TypeBoolean SemanticType = "boolean"

	// TypeDate holds ISO date strings (YYYY-MM-DD).
	// Columns of this type accept every string operator plus the
	// before/after date comparisons.
	TypeDate SemanticType = "date"
)

// IsNumeric reports whether the type supports ordering comparisons
// (greaterThan, lessThan and friends).
func (t SemanticType) IsNumeric() bool {
	return t == TypeInteger || t == TypeFloat
}

// IsTextual reports whether the type supports substring, LIKE and
// regex matching.
func (t SemanticType) IsTextual() bool {
	return t == TypeString || t == TypeDate
}

// Column describes one column of an ingested table.
type Column struct {
	Name string       `json:"name"`
	Type SemanticType `json:"type"`
}
