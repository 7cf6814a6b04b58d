package host

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/gqlembed/internal/source"
)

// discover collects a file's document literals in document order: calls
// and tagged templates through a configured tag, and templates or strings
// marked with a /* GraphQL */ comment.
func (p *Project) discover(f *file) []*source.Expr {
	var out []*source.Expr
	add := func(e *source.Expr) {
		e.ID = len(out)
		if e.Inner != nil {
			e.Inner.ID = e.ID
		}
		out = append(out, e)
	}

	stack := []*sitter.Node{f.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n.Type() {
		case "call_expression":
			if p.isTagged(f, n) {
				add(f.expr(n))
			}
		case "template_string", "string":
			if markedGraphQL(f, n) {
				add(f.expr(n))
			}
		}

		// Push children in reverse so they pop in document order.
		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, n.NamedChild(i))
		}
	}
	return out
}

func (p *Project) isTagged(f *file, call *sitter.Node) bool {
	callee := call.ChildByFieldName("function")
	if callee == nil || templateArgument(call) == nil {
		return false
	}
	return p.tags[calleeName(f, callee)]
}

// markedGraphQL reports whether the comment right before n reads GraphQL.
func markedGraphQL(f *file, n *sitter.Node) bool {
	prev := n.PrevSibling()
	if prev == nil || prev.Type() != "comment" {
		return false
	}
	text := f.content(prev)
	if !strings.HasPrefix(text, "/*") || !strings.HasSuffix(text, "*/") {
		return false
	}
	text = strings.TrimSpace(text[2 : len(text)-2])
	return strings.EqualFold(text, "graphql")
}
