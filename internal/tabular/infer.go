package tabular

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// datePattern is the strict date test applied to string columns: four
// digits, hyphen, two digits, hyphen, two digits, anchored full-match.
var datePattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)

// identPattern constrains table and column names to safe SQL identifiers.
// Identifiers cannot be bound as query parameters, so anything outside
// this set is rejected at load time rather than quoted through.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsDateString reports whether s matches the strict YYYY-MM-DD pattern.
func IsDateString(s string) bool {
	return datePattern.MatchString(s)
}

// NormalizeName canonicalizes a raw header cell into a column name:
// NFC normalization (so visually identical headers produce identical
// parameter names) plus surrounding-whitespace trim.
func NormalizeName(raw string) string {
	return strings.TrimSpace(norm.NFC.String(raw))
}

// ValidIdent reports whether name is usable as a table or column
// identifier.
func ValidIdent(name string) bool {
	return identPattern.MatchString(name)
}

// InferColumns classifies every column of a raw table.
//
// headers are the raw header cells in declared order; rows are raw record
// cells, one slice per row, aligned with headers. An empty cell is a null.
//
// Classification per column: try Integer, then Float, then Boolean over
// all non-null values; otherwise String. A String column whose first
// non-null value matches the strict date pattern is refined to Date.
// A column with zero non-null values cannot be tested for date-likeness
// and defaults to String.
//
// Fails if a header is empty, not a valid identifier after normalization,
// or duplicated. Load aborts on error: no partial column set is returned.
func InferColumns(headers []string, rows [][]string) ([]Column, error) {
	if len(headers) == 0 {
		return nil, fmt.Errorf("table has no columns")
	}

	seen := make(map[string]bool, len(headers))
	columns := make([]Column, 0, len(headers))

	for i, raw := range headers {
		name := NormalizeName(raw)
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
		if !ValidIdent(name) {
			return nil, fmt.Errorf("column name %q is not a valid identifier", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		seen[name] = true

		columns = append(columns, Column{
			Name: name,
			Type: inferType(i, rows),
		})
	}

	return columns, nil
}

// inferType classifies column col from the non-null cells of rows.
func inferType(col int, rows [][]string) SemanticType {
	values := make([]string, 0, len(rows))
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		if cell := row[col]; cell != "" {
			values = append(values, cell)
		}
	}

	if len(values) == 0 {
		return TypeString
	}

	switch {
	case allParse(values, func(s string) bool {
		_, err := strconv.ParseInt(s, 10, 64)
		return err == nil
	}):
		return TypeInteger
	case allParse(values, func(s string) bool {
		_, err := strconv.ParseFloat(s, 64)
		return err == nil
	}):
		return TypeFloat
	case allParse(values, isBoolLiteral):
		return TypeBoolean
	}

	if IsDateString(values[0]) {
		return TypeDate
	}
	return TypeString
}

func allParse(values []string, ok func(string) bool) bool {
	for _, v := range values {
		if !ok(v) {
			return false
		}
	}
	return true
}

// isBoolLiteral accepts the spellings the ingesting engine produces for
// boolean cells. Bare 0/1 are already claimed by Integer above.
func isBoolLiteral(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false":
		return true
	}
	return false
}
