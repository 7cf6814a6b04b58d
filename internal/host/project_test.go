package host

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/gqlembed/internal/source"
)

func newProject(t *testing.T, files map[string]string, opts ...Option) *Project {
	t.Helper()
	p := NewProject(opts...)
	t.Cleanup(p.Close)
	for name, text := range files {
		_, err := p.SetFile(context.Background(), name, text)
		require.NoError(t, err)
	}
	return p
}

func TestSetFile_Versions(t *testing.T) {
	t.Parallel()
	p := newProject(t, nil)
	ctx := context.Background()

	assert.Equal(t, "", p.Version("a.ts"))

	changed, err := p.SetFile(ctx, "a.ts", "const a = 1")
	require.NoError(t, err)
	assert.True(t, changed)
	v1 := p.Version("a.ts")
	assert.NotEmpty(t, v1)

	changed, err = p.SetFile(ctx, "./a.ts", "const a = 1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, v1, p.Version("a.ts"))

	changed, err = p.SetFile(ctx, "a.ts", "const a = 2")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotEqual(t, v1, p.Version("a.ts"))

	text, ok := p.FileText("a.ts")
	require.True(t, ok)
	assert.Equal(t, "const a = 2", text)

	assert.True(t, p.RemoveFile("a.ts"))
	assert.False(t, p.RemoveFile("a.ts"))
	assert.Equal(t, "", p.Version("a.ts"))
	_, ok = p.FileText("a.ts")
	assert.False(t, ok)
}

func TestSetFile_Unsupported(t *testing.T) {
	t.Parallel()
	p := newProject(t, nil)
	_, err := p.SetFile(context.Background(), "schema.graphql", "type Query { a: Int }")
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.True(t, Supported("x.tsx"))
	assert.True(t, Supported("x.MJS"))
	assert.False(t, Supported("x.go"))
}

func TestDiscover(t *testing.T) {
	t.Parallel()
	src := strings.Join([]string{
		"const a = gql`query A { a }`;",
		"const b = graphql(`query B { b }`);",
		"const c = /* GraphQL */ `query C { c }`;",
		"const d = other`query D { d }`;",
		"const e = Apollo.gql`query E { e }`;",
		"const f = gql(\"query F { f }\");",
	}, "\n")
	p := newProject(t, map[string]string{"main.ts": src})

	lits := p.Literals("main.ts")
	require.Len(t, lits, 5)
	var texts []string
	for i, lit := range lits {
		assert.Equal(t, i, lit.ID)
		assert.Equal(t, "main.ts", lit.File)
		inner := lit.Literal()
		require.NotNil(t, inner)
		require.True(t, inner.IsLiteral())
		texts = append(texts, inner.Parts[0].Text)
	}
	assert.Equal(t, []string{"query A { a }", "query B { b }", "query C { c }", "query E { e }", "query F { f }"}, texts)

	assert.Equal(t, source.TaggedTemplate, lits[0].Kind)
	assert.Equal(t, "gql", lits[0].Name)
	assert.Equal(t, source.TemplateLiteral, lits[2].Kind)
	assert.Equal(t, source.StringLiteral, lits[4].Literal().Kind)

	first := lits[0].Literal().Parts[0]
	assert.Equal(t, "query A { a }", src[first.Span.Start:first.Span.End])
}

func TestDiscover_CustomTags(t *testing.T) {
	t.Parallel()
	p := newProject(t, map[string]string{"main.js": "const a = gql`{ a }`; const b = q`{ b }`;"}, WithTags("q"))
	lits := p.Literals("main.js")
	require.Len(t, lits, 1)
	assert.Equal(t, "{ b }", lits[0].Literal().Parts[0].Text)
}

func TestDiscover_Holes(t *testing.T) {
	t.Parallel()
	src := "const q = gql`query { ...A }\n${A}\n${ frags.B }`;"
	p := newProject(t, map[string]string{"main.ts": src})

	lits := p.Literals("main.ts")
	require.Len(t, lits, 1)
	tpl := lits[0].Literal()
	require.Equal(t, source.TemplateLiteral, tpl.Kind)
	require.Len(t, tpl.Parts, 3)
	require.Len(t, tpl.Holes, 2)
	assert.Equal(t, "query { ...A }\n", tpl.Parts[0].Text)
	assert.Equal(t, "\n", tpl.Parts[1].Text)
	assert.Equal(t, "", tpl.Parts[2].Text)

	assert.Equal(t, source.Identifier, tpl.Holes[0].Kind)
	assert.Equal(t, "A", tpl.Holes[0].Name)
	assert.Equal(t, strings.Index(src, "${A}")+2, tpl.Holes[0].Span.Start)

	assert.Equal(t, source.PropertyAccess, tpl.Holes[1].Kind)
	assert.Equal(t, "B", tpl.Holes[1].Name)
	assert.Equal(t, "B", src[tpl.Holes[1].NameSpan.Start:tpl.Holes[1].NameSpan.End])
}

func TestLiteral(t *testing.T) {
	t.Parallel()
	src := "const a = gql`{ a }`;\nconst b = gql`{ b }`;"
	p := newProject(t, map[string]string{"main.ts": src})

	lit, err := p.Literal(source.NodeKey{File: "main.ts", ID: 1})
	require.NoError(t, err)
	assert.Equal(t, "{ b }", lit.Literal().Parts[0].Text)

	_, err = p.Literal(source.NodeKey{File: "main.ts", ID: 2})
	assert.ErrorIs(t, err, source.ErrUnknownNode)
	_, err = p.Literal(source.NodeKey{File: "nope.ts", ID: 0})
	assert.ErrorIs(t, err, source.ErrUnknownFile)

	at, ok := p.LiteralAt("main.ts", strings.Index(src, "{ b }")+2)
	require.True(t, ok)
	assert.Equal(t, 1, at.ID)

	_, ok = p.LiteralAt("main.ts", 2)
	assert.False(t, ok)
}
