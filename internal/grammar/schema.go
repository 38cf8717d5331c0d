package grammar

// RouteParam is one entry of the declarative route schema handed to the
// transport layer: parameter name, value type, and optionality. The
// transport exposes/documents these instead of mutating any framework
// internals at runtime.
type RouteParam struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Column   string `json:"column,omitempty"`
	Operator string `json:"operator"`
	Optional bool   `json:"optional"`
}

// RouteSchema exports the grammar as an ordered parameter list. Every
// parameter is optional: an omitted parameter simply contributes nothing
// to the compiled query.
func (g *Grammar) RouteSchema() []RouteParam {
	params := make([]RouteParam, 0, len(g.ordered))
	for _, spec := range g.ordered {
		params = append(params, RouteParam{
			Name:     spec.Name,
			Type:     string(spec.Operand),
			Column:   spec.Column,
			Operator: string(spec.Operator),
			Optional: true,
		})
	}
	return params
}
