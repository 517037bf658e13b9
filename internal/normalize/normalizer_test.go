package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := NewDefault()
	require.NoError(t, err)
	return n
}

func TestNormalize(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "lowercase and trim", raw: "  Tomato ", want: "tomato"},
		{name: "oes plural", raw: "Tomatoes", want: "tomato"},
		{name: "ies plural", raw: "blueberries", want: "blueberry"},
		{name: "ches plural", raw: "peaches", want: "peach"},
		{name: "simple plural", raw: "carrots", want: "carrot"},
		{name: "invariant word", raw: "Hummus", want: "hummus"},
		{name: "ss ending kept", raw: "swiss", want: "swiss"},
		{name: "parenthetical removed", raw: "butter (unsalted)", want: "butter"},
		{name: "punctuation removed", raw: "salt, kosher!", want: "salt kosher"},
		{name: "whitespace collapsed", raw: "olive \t  oil", want: "olive oil"},
		{name: "descriptor dropped", raw: "Fresh chopped basil", want: "basil"},
		{name: "alias applied", raw: "Scallions", want: "green onion"},
		{name: "alias after cleanup", raw: "Spring Onions (sliced)", want: "green onion"},
		{name: "accent folded", raw: "Crème fraîche", want: "creme fraiche"},
		{name: "empty input", raw: "", want: ""},
		{name: "nothing meaningful", raw: " (optional) !! ", want: ""},
		{name: "only descriptor", raw: "fresh", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.raw))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := newTestNormalizer(t)

	inputs := []string{
		"Tomatoes", "scallion", "Garbanzo Beans", "Crème Fraîche", "bay leaves",
		"All-Purpose Flour", "molasses", "2 eggs", "anchovies", "boxes", "Brussels sprouts",
		"(x)", "   ", "Confectioners' sugar", "extra-virgin olive oil", "glasses",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), "input %q", in)
	}
}

func TestNormalizeAllDeduplicatesInOrder(t *testing.T) {
	n := newTestNormalizer(t)

	got := n.NormalizeAll([]string{"Onion", "garlic", "onions", "", "scallion", "spring onion"})
	assert.Equal(t, []string{"onion", "garlic", "green onion"}, got)
}

func TestNewResolvesAliasChains(t *testing.T) {
	n, err := New(&AliasTable{
		Version: "test",
		Aliases: map[string]string{
			"a": "b",
			"b": "c",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "c", n.Normalize("a"))
	assert.Equal(t, "c", n.Normalize("b"))
	assert.Equal(t, "test", n.Version())
}

func TestNewRejectsAliasCycle(t *testing.T) {
	_, err := New(&AliasTable{
		Version: "test",
		Aliases: map[string]string{
			"apple": "pear",
			"pear":  "apple",
		},
	})
	assert.Error(t, err)
}

func TestNewRejectsConflictingAliases(t *testing.T) {
	_, err := New(&AliasTable{
		Version: "test",
		Aliases: map[string]string{
			"Peppers": "bell pepper",
			"pepper":  "black pepper",
		},
	})
	assert.Error(t, err)
}

func TestParseAliasTableRequiresVersion(t *testing.T) {
	_, err := ParseAliasTable([]byte("aliases:\n  a: b\n"))
	assert.Error(t, err)

	table, err := ParseAliasTable([]byte("version: v1\n"))
	require.NoError(t, err)
	assert.NotNil(t, table.Aliases)
}
