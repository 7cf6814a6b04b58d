package fragments

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/jward/gqlembed/internal/source"
)

// Parse parses document text. Malformed text yields a nil document and the
// parser's error.
func Parse(name, text string) (*ast.QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: name, Input: text})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Print renders a fragment definition in normalised form. Two definitions
// that differ only in layout print the same.
func Print(def *ast.FragmentDefinition) string {
	var b strings.Builder
	formatter.NewFormatter(&b).FormatQueryDocument(&ast.QueryDocument{
		Fragments: ast.FragmentDefinitionList{def},
	})
	return b.String()
}

// Spreads returns the fragment names spread anywhere in doc, in document
// order without repeats.
func Spreads(doc *ast.QueryDocument) []string {
	var w spreadWalker
	for _, op := range doc.Operations {
		w.walk(op.SelectionSet)
	}
	for _, frag := range doc.Fragments {
		w.walk(frag.SelectionSet)
	}
	return w.names
}

// SpreadsOf returns the fragment names spread inside one fragment.
func SpreadsOf(def *ast.FragmentDefinition) []string {
	var w spreadWalker
	w.walk(def.SelectionSet)
	return w.names
}

type spreadWalker struct {
	names []string
	seen  map[string]bool
}

func (w *spreadWalker) walk(set ast.SelectionSet) {
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			w.walk(s.SelectionSet)
		case *ast.InlineFragment:
			w.walk(s.SelectionSet)
		case *ast.FragmentSpread:
			if w.seen == nil {
				w.seen = make(map[string]bool)
			}
			if !w.seen[s.Name] {
				w.seen[s.Name] = true
				w.names = append(w.names, s.Name)
			}
		}
	}
}

// FragmentNames returns the names of the fragments defined in doc.
func FragmentNames(doc *ast.QueryDocument) []string {
	names := make([]string, 0, len(doc.Fragments))
	for _, frag := range doc.Fragments {
		names = append(names, frag.Name)
	}
	return names
}

// byteOffset converts a rune offset reported by the parser into a byte
// offset into text.
func byteOffset(text string, runes int) int {
	if runes <= 0 {
		return 0
	}
	n := 0
	for i := range text {
		if n == runes {
			return i
		}
		n++
	}
	return len(text)
}

// parseEntries turns one text into entries for file. Fragments that start
// inside substituted text belong to another literal and are skipped.
func parseEntries(file string, t Text) []*Entry {
	doc, err := Parse(file, t.Text)
	if err != nil {
		return nil
	}

	entries := make([]*Entry, 0, len(doc.Fragments))
	for _, def := range doc.Fragments {
		at := 0
		if def.Position != nil {
			at = byteOffset(t.Text, def.Position.Start)
		}
		if t.foreign(at) {
			continue
		}
		nameAt := at
		if from := at + len("fragment"); from <= len(t.Text) {
			if i := strings.Index(t.Text[from:], def.Name); i >= 0 {
				nameAt = from + i
			}
		}
		entries = append(entries, &Entry{
			File:       file,
			Name:       def.Name,
			Offset:     t.Offset,
			TextOffset: at,
			NameSpan:   source.Span{Start: nameAt, End: nameAt + len(def.Name)},
			Text:       t.Text,
			Body:       Print(def),
			Node:       def,
		})
	}
	return entries
}

// Site is one fragment spread with the byte offset of its name in the
// document text.
type Site struct {
	Name   string
	Offset int
}

// SpreadSites returns every fragment spread in doc, repeats included, in
// document order. text must be the text doc was parsed from.
func SpreadSites(text string, doc *ast.QueryDocument) []Site {
	var sites []Site
	var walk func(ast.SelectionSet)
	walk = func(set ast.SelectionSet) {
		for _, sel := range set {
			switch s := sel.(type) {
			case *ast.Field:
				walk(s.SelectionSet)
			case *ast.InlineFragment:
				walk(s.SelectionSet)
			case *ast.FragmentSpread:
				at := 0
				if s.Position != nil {
					at = byteOffset(text, s.Position.Start)
				}
				sites = append(sites, Site{Name: s.Name, Offset: at})
			}
		}
	}
	for _, op := range doc.Operations {
		walk(op.SelectionSet)
	}
	for _, frag := range doc.Fragments {
		walk(frag.SelectionSet)
	}
	return sites
}
