package host

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/gqlembed/internal/source"
)

// wrappers are expression nodes that only change the static type or
// grouping of the expression they wrap.
var wrappers = map[string]bool{
	"parenthesized_expression": true,
	"as_expression":            true,
	"satisfies_expression":     true,
	"non_null_expression":      true,
	"type_assertion":           true,
}

// unwrap strips wrappers down to the underlying expression.
func unwrap(n *sitter.Node) *sitter.Node {
	for n != nil && wrappers[n.Type()] {
		var inner *sitter.Node
		if n.Type() == "type_assertion" {
			// <T>expr: the expression follows the type arguments.
			inner = n.NamedChild(int(n.NamedChildCount()) - 1)
		} else {
			inner = n.NamedChild(0)
		}
		if inner == nil {
			return n
		}
		n = inner
	}
	return n
}

func span(n *sitter.Node) source.Span {
	return source.Span{Start: int(n.StartByte()), End: int(n.EndByte())}
}

func (f *file) base(n *sitter.Node, kind source.Kind) *source.Expr {
	return &source.Expr{
		File: f.path,
		Kind: kind,
		Span: span(n),
		Text: f.content(n),
		ID:   -1,
	}
}

// expr converts an expression node into the resolver's node model.
func (f *file) expr(n *sitter.Node) *source.Expr {
	n = unwrap(n)
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "string":
		e := f.base(n, source.StringLiteral)
		e.Parts = []source.Part{f.part(int(n.StartByte())+1, closingEnd(n, f.src))}
		return e

	case "template_string":
		return f.template(n)

	case "call_expression":
		if inner := templateArgument(n); inner != nil {
			e := f.base(n, source.TaggedTemplate)
			if callee := n.ChildByFieldName("function"); callee != nil {
				e.Name = calleeName(f, callee)
			}
			e.Inner = f.expr(inner)
			return e
		}

	case "identifier":
		e := f.base(n, source.Identifier)
		e.Name = e.Text
		e.NameSpan = e.Span
		return e

	case "shorthand_property_identifier":
		e := f.base(n, source.ShorthandProperty)
		e.Name = e.Text
		e.NameSpan = e.Span
		return e

	case "member_expression":
		prop := n.ChildByFieldName("property")
		if prop == nil || prop.Type() != "property_identifier" {
			break
		}
		e := f.base(n, source.PropertyAccess)
		e.Name = f.content(prop)
		e.NameSpan = span(prop)
		return e
	}
	return f.base(n, source.Other)
}

// template converts a template_string. Parts are the raw text between the
// backticks and substitutions; holes are the expressions inside ${...}.
func (f *file) template(n *sitter.Node) *source.Expr {
	e := f.base(n, source.TemplateLiteral)
	cur := int(n.StartByte()) + 1
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "template_substitution" {
			continue
		}
		e.Parts = append(e.Parts, f.part(cur, int(c.StartByte())))

		var hole *source.Expr
		if inner := c.NamedChild(0); inner != nil {
			hole = f.expr(inner)
		} else {
			hole = f.base(c, source.Other)
		}
		e.Holes = append(e.Holes, hole)
		cur = int(c.EndByte())
	}
	end := closingEnd(n, f.src)
	if end < cur {
		end = cur
	}
	e.Parts = append(e.Parts, f.part(cur, end))
	return e
}

func (f *file) part(start, end int) source.Part {
	return source.Part{
		Span: source.Span{Start: start, End: end},
		Text: string(f.src[start:end]),
	}
}

// closingEnd returns the offset of a literal's closing delimiter, or the
// node end when the literal is unterminated.
func closingEnd(n *sitter.Node, src []byte) int {
	start, end := int(n.StartByte()), int(n.EndByte())
	if end-start >= 2 && src[end-1] == src[start] {
		return end - 1
	}
	return end
}

// templateArgument returns the template or string a call passes as its
// document: the template of a tagged template, or the first argument of a
// plain call.
func templateArgument(call *sitter.Node) *sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	if args.Type() == "template_string" {
		return args
	}
	if args.Type() == "arguments" && args.NamedChildCount() > 0 {
		first := unwrap(args.NamedChild(0))
		if first != nil && (first.Type() == "template_string" || first.Type() == "string") {
			return first
		}
	}
	return nil
}

// calleeName returns the name a call is made through: the identifier, or
// the last member of a member expression.
func calleeName(f *file, callee *sitter.Node) string {
	callee = unwrap(callee)
	switch callee.Type() {
	case "identifier":
		return f.content(callee)
	case "member_expression":
		if prop := callee.ChildByFieldName("property"); prop != nil {
			return f.content(prop)
		}
	}
	return ""
}
