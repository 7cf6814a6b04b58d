package template

import (
	"fmt"
	"strings"

	"github.com/jward/gqlembed/internal/source"
)

// fakeHost is an in-memory source.Host. Definitions are keyed by the
// position of the name being looked up.
type fakeHost struct {
	literals map[source.NodeKey]*source.Expr
	defs     map[source.Position]*source.Expr
	versions map[string]string
	lookups  int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		literals: make(map[source.NodeKey]*source.Expr),
		defs:     make(map[source.Position]*source.Expr),
		versions: make(map[string]string),
	}
}

func (h *fakeHost) Literal(key source.NodeKey) (*source.Expr, error) {
	e, ok := h.literals[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, source.ErrUnknownNode)
	}
	return e, nil
}

func (h *fakeHost) LiteralAt(file string, offset int) (*source.Expr, bool) {
	for _, e := range h.literals {
		if e.File == file && e.Span.Covers(offset) {
			return e, true
		}
	}
	return nil, false
}

func (h *fakeHost) FileText(file string) (string, bool) {
	_, ok := h.versions[file]
	return "", ok
}

func (h *fakeHost) Definition(file string, offset int) (*source.Expr, error) {
	h.lookups++
	return h.defs[source.Position{File: file, Offset: offset}], nil
}

func (h *fakeHost) Version(file string) string {
	return h.versions[file]
}

// addLiteral registers a document literal and bumps nothing.
func (h *fakeHost) addLiteral(e *source.Expr) {
	h.literals[e.Key()] = e
	if _, ok := h.versions[e.File]; !ok {
		h.versions[e.File] = "1"
	}
}

// define makes the name at hole resolve to def.
func (h *fakeHost) define(hole *source.Expr, def *source.Expr) {
	h.defs[source.Position{File: hole.File, Offset: hole.NameSpan.Start}] = def
	if _, ok := h.versions[def.File]; !ok {
		h.versions[def.File] = "1"
	}
}

// template builds a TemplateLiteral from content (the text between the
// backticks) whose first content byte sits at start. Each ${name} becomes an
// Identifier hole.
func template(file string, id, start int, content string) *source.Expr {
	e := &source.Expr{
		File: file,
		Kind: source.TemplateLiteral,
		ID:   id,
		Text: "`" + content + "`",
	}
	partStart := start
	rest := content
	for {
		i := strings.Index(rest, "${")
		if i < 0 {
			e.Parts = append(e.Parts, source.Part{
				Span: source.Span{Start: partStart, End: partStart + len(rest)},
				Text: rest,
			})
			break
		}
		e.Parts = append(e.Parts, source.Part{
			Span: source.Span{Start: partStart, End: partStart + i},
			Text: rest[:i],
		})
		j := i + strings.Index(rest[i:], "}")
		name := rest[i+2 : j]
		holeStart := partStart + i + 2
		span := source.Span{Start: holeStart, End: holeStart + len(name)}
		e.Holes = append(e.Holes, &source.Expr{
			File:     file,
			Kind:     source.Identifier,
			ID:       -1,
			Span:     span,
			Text:     name,
			Name:     name,
			NameSpan: span,
		})
		partStart += j + 1
		rest = rest[j+1:]
	}
	e.Span = source.Span{Start: start - 1, End: partStart + len(rest) + 1}
	return e
}

// declaration builds `const name = <inner>` located at start in file.
func declaration(file string, start int, name string, inner *source.Expr) *source.Expr {
	return &source.Expr{
		File:     file,
		Kind:     source.Declaration,
		ID:       -1,
		Span:     source.Span{Start: start, End: inner.Span.End},
		Text:     name + " = " + inner.Text,
		Name:     name,
		NameSpan: source.Span{Start: start, End: start + len(name)},
		Inner:    inner,
	}
}

// identifier builds a bare name at start in file.
func identifier(file string, start int, name string) *source.Expr {
	span := source.Span{Start: start, End: start + len(name)}
	return &source.Expr{File: file, Kind: source.Identifier, ID: -1, Span: span, Text: name, Name: name, NameSpan: span}
}
