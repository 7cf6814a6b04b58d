package fragments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExternalFragments_UpdatedDefinition(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.RegisterDocument("fragments.ts", "1", texts("fragment A on Query { __typename }"))
	r.RegisterDocument("main.ts", "1", texts("fragment X on Query { ...A }"))

	got := r.ExternalFragments("fragment X on Query { ...A }", "main.ts", 0)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Name)
	require.Len(t, got[0].SelectionSet, 1)
	assert.Contains(t, Print(got[0]), "__typename")

	r.RegisterDocument("fragments.ts", "2", texts("fragment A on Query { id }"))
	got = r.ExternalFragments("fragment X on Query { ...A }", "main.ts", 0)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Name)
	assert.Contains(t, Print(got[0]), "id")
	assert.NotContains(t, Print(got[0]), "__typename")
}

func TestExternalFragments_Transitive(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.RegisterDocument("a.ts", "1", texts(
		"fragment A on Query { ...B }",
		"fragment B on Query { ...C id }",
		"fragment C on Query { ...A }",
	))

	got := r.ExternalFragments("query Q { ...A }", "main.ts", 0)
	assert.Equal(t, []string{"A", "B", "C"}, names(got))
}

func TestExternalFragments_InternalNamesExcluded(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.RegisterDocument("a.ts", "1", texts("fragment A on Query { ...B }", "fragment B on Query { id }"))

	// B is defined locally so the registry's B is never pulled in.
	got := r.ExternalFragments("query Q { ...A } fragment B on Query { name }", "main.ts", 0)
	assert.Equal(t, []string{"A"}, names(got))
}

func TestExternalFragments_SelfSpread(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.RegisterDocument("a.ts", "1", texts("fragment A on Query { ...A }"))

	got := r.ExternalFragments("query Q { ...A }", "main.ts", 0)
	assert.Equal(t, []string{"A"}, names(got))
}

func TestExternalFragments_UnknownSpreadDefinedLater(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	text := "query Q { ...Missing }"
	assert.Empty(t, r.ExternalFragments(text, "main.ts", 0))

	r.RegisterDocument("late.ts", "1", texts("fragment Missing on Query { id }"))
	assert.Equal(t, []string{"Missing"}, names(r.ExternalFragments(text, "main.ts", 0)))
}

func TestExternalFragments_DuplicatedUsesFirst(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.RegisterDocument("b.ts", "1", texts("fragment A on Query { name }"))
	r.RegisterDocument("a.ts", "1", texts("fragment A on Query { id }"))

	got := r.ExternalFragments("query Q { ...A }", "main.ts", 0)
	require.Len(t, got, 1)
	assert.Contains(t, Print(got[0]), "id")
}

func TestExternalFragments_Cache(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.RegisterDocument("a.ts", "1", texts("fragment A on Query { id }", "fragment B on Query { id }"))

	first := r.ExternalFragments("query Q { ...A }", "main.ts", 5)
	require.Len(t, first, 1)

	// Unrelated change keeps the cached answer.
	r.RegisterDocument("a.ts", "2", texts("fragment A on Query { id }", "fragment B on Query { name }"))
	second := r.ExternalFragments("query Q { ...A }", "main.ts", 5)
	require.Len(t, second, 1)
	assert.Same(t, first[0], second[0])

	// Different spreads at the same key recompute.
	third := r.ExternalFragments("query Q { ...B }", "main.ts", 5)
	assert.Equal(t, []string{"B"}, names(third))
}

func TestExternalFragments_ReparsedDefinition(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.RegisterDocument("a.ts", "1", texts("fragment A on Query { id }"))

	first := r.ExternalFragments("query Q { ...A }", "main.ts", 0)
	require.Len(t, first, 1)

	// The body prints the same, so the version stays, but the entry and its
	// node were replaced.
	r.RegisterDocument("a.ts", "2", texts("\n\n  fragment A on Query { id }"))
	second := r.ExternalFragments("query Q { ...A }", "main.ts", 0)
	require.Len(t, second, 1)
	assert.NotSame(t, first[0], second[0])
	assert.Same(t, r.Entries("a.ts")[0].Node, second[0])
	assert.Equal(t, 3, second[0].Position.Line)
}

func TestExternalFragments_Unparseable(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.RegisterDocument("a.ts", "1", texts("fragment A on Query { id }"))
	assert.Nil(t, r.ExternalFragments("query Q { ...A", "main.ts", 0))
}
