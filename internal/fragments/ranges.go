package fragments

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/lexer"

	"github.com/jward/gqlembed/internal/source"
)

// Range locates one fragment definition in a document text, from the
// "fragment" keyword through its closing brace.
type Range struct {
	Name string
	Span source.Span
}

// Ranges lexes text and returns the byte range of every fragment
// definition in document order. Lexing stops at the first invalid token;
// ranges found before it are returned.
func Ranges(text string) []Range {
	lex := lexer.New(&ast.Source{Input: text})

	var (
		out     []Range
		depth   int // braces outside parentheses
		parens  int
		current *Range
		expect  bool // saw "fragment" at top level, name is next
	)
	for {
		tok, err := lex.ReadToken()
		if err != nil || tok.Kind == lexer.EOF {
			return out
		}
		start := byteOffset(text, tok.Pos.Start)
		end := byteOffset(text, tok.Pos.End)

		switch tok.Kind {
		case lexer.Comment:
			continue
		case lexer.ParenL:
			parens++
		case lexer.ParenR:
			parens--
		case lexer.BraceL:
			if parens == 0 {
				depth++
			}
		case lexer.BraceR:
			if parens == 0 {
				depth--
				if depth == 0 && current != nil {
					current.Span.End = end
					out = append(out, *current)
					current = nil
				}
			}
		case lexer.Name:
			switch {
			case expect:
				current.Name = tok.Value
				expect = false
			case depth == 0 && parens == 0 && current == nil && tok.Value == "fragment":
				current = &Range{Span: source.Span{Start: start}}
				expect = true
			}
		}
	}
}
