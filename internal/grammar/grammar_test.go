package grammar

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvapi/internal/tabular"
)

func peopleColumns() []tabular.Column {
	return []tabular.Column{
		{Name: "name", Type: tabular.TypeString},
		{Name: "age", Type: tabular.TypeInteger},
		{Name: "joined", Type: tabular.TypeDate},
	}
}

func paramNames(g *Grammar, column string) []string {
	var names []string
	for _, spec := range g.Specs() {
		if spec.Column == column {
			names = append(names, spec.Name)
		}
	}
	return names
}

func TestGenerate_NumericColumnParameters(t *testing.T) {
	g, err := Generate("t", []tabular.Column{{Name: "age", Type: tabular.TypeInteger}})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"age",
		"age_selected",
		"age_greaterThan",
		"age_greaterThanEqual",
		"age_lessThan",
		"age_lessThanEqual",
	}, paramNames(g, "age"))
}

func TestGenerate_StringColumnParameters(t *testing.T) {
	g, err := Generate("t", []tabular.Column{{Name: "name", Type: tabular.TypeString}})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"name",
		"name_selected",
		"name_contains",
		"name_like",
		"name_regex",
	}, paramNames(g, "name"))
}

func TestGenerate_DateColumnParameters(t *testing.T) {
	g, err := Generate("t", []tabular.Column{{Name: "joined", Type: tabular.TypeDate}})
	require.NoError(t, err)

	// All string operators remain valid, date comparisons come on top.
	assert.Equal(t, []string{
		"joined",
		"joined_selected",
		"joined_contains",
		"joined_like",
		"joined_regex",
		"joined_isBefore",
		"joined_isAfter",
	}, paramNames(g, "joined"))
}

func TestGenerate_BooleanColumnParameters(t *testing.T) {
	g, err := Generate("t", []tabular.Column{{Name: "active", Type: tabular.TypeBoolean}})
	require.NoError(t, err)

	assert.Equal(t, []string{"active", "active_selected"}, paramNames(g, "active"))
}

func TestGenerate_DistinctIsTableWide(t *testing.T) {
	g, err := Generate("t", peopleColumns())
	require.NoError(t, err)

	spec, ok := g.Lookup(DistinctParam)
	require.True(t, ok)
	assert.Equal(t, OpDistinct, spec.Operator)
	assert.Empty(t, spec.Column)
	assert.Equal(t, tabular.TypeBoolean, spec.Operand)
}

func TestGenerate_SuffixCollisionIsFatal(t *testing.T) {
	// A raw column literally named age_selected collides with the
	// generated selection flag for column age.
	_, err := Generate("t", []tabular.Column{
		{Name: "age", Type: tabular.TypeInteger},
		{Name: "age_selected", Type: tabular.TypeString},
	})
	assert.Error(t, err)

	// Same collision with the column order reversed.
	_, err = Generate("t", []tabular.Column{
		{Name: "age_selected", Type: tabular.TypeString},
		{Name: "age", Type: tabular.TypeInteger},
	})
	assert.Error(t, err)
}

func TestGenerate_LookupAndColumnIndex(t *testing.T) {
	g, err := Generate("people", peopleColumns())
	require.NoError(t, err)

	spec, ok := g.Lookup("age_greaterThan")
	require.True(t, ok)
	assert.Equal(t, "age", spec.Column)
	assert.Equal(t, OpGreaterThan, spec.Operator)
	assert.Equal(t, tabular.TypeInteger, spec.Operand)

	_, ok = g.Lookup("nope")
	assert.False(t, ok)

	assert.Equal(t, 0, g.ColumnIndex("name"))
	assert.Equal(t, 2, g.ColumnIndex("joined"))
	assert.Equal(t, -1, g.ColumnIndex("nope"))
}

func TestRouteSchema_Golden(t *testing.T) {
	g, err := Generate("people", peopleColumns())
	require.NoError(t, err)

	data, err := json.MarshalIndent(g.RouteSchema(), "", "  ")
	require.NoError(t, err)

	gold := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	gold.Assert(t, "people_schema", data)
}
