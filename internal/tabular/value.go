package tabular

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseValue converts a raw cell into the Go value for a column of type t.
// An empty cell is a null and returns nil. The returned values are the
// scalar kinds the store binds directly: int64, float64, bool, string.
func ParseValue(cell string, t SemanticType) (any, error) {
	if cell == "" {
		return nil, nil
	}

	switch t {
	case TypeInteger:
		n, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q as integer: %w", cell, err)
		}
		return n, nil
	case TypeFloat:
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q as float: %w", cell, err)
		}
		return f, nil
	case TypeBoolean:
		switch strings.ToLower(cell) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("parse %q as boolean", cell)
	case TypeString, TypeDate:
		return cell, nil
	}
	return nil, fmt.Errorf("unknown semantic type %q", t)
}
