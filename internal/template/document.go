package template

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jward/gqlembed/internal/position"
	"github.com/jward/gqlembed/internal/source"
)

// ErrInvalidRange is returned by Update for a range outside the document.
var ErrInvalidRange = errors.New("template: invalid range")

// Document is a resolved literal: its combined text, the mapping back to
// source positions, and the files the result depends on. Documents are
// never mutated; Update returns a new one.
type Document struct {
	Key          source.NodeKey
	Text         string
	Mapping      position.Mapping
	Dependencies []string

	// Span covers the literal's content in its own file.
	Span source.Span

	// Foreign lists the combined-text ranges substituted for holes.
	Foreign []source.Span
}

// ToCombined maps a source position into the combined text.
func (d *Document) ToCombined(p source.Position) (int, error) {
	return d.Mapping.ToCombined(p)
}

// ToSource maps a combined-text offset back to a source location.
func (d *Document) ToSource(offset int) (source.Location, error) {
	return d.Mapping.ToSource(offset)
}

// DependsOn reports whether file is in the document's dependency set.
func (d *Document) DependsOn(file string) bool {
	i := sort.SearchStrings(d.Dependencies, file)
	return i < len(d.Dependencies) && d.Dependencies[i] == file
}

// ResolveError describes one hole whose expression could not be reduced to
// text.
type ResolveError struct {
	File   string
	Span   source.Span
	Expr   string
	Reason string
}

func (e ResolveError) Error() string {
	return fmt.Sprintf("%s%s: cannot resolve %q: %s", e.File, e.Span, e.Expr, e.Reason)
}

// build assembles the document for lit, reducing every hole. All failing
// holes are reported, not just the first.
func (ev *evaluation) build(lit *source.Expr) (*Document, []ResolveError) {
	ev.deps[lit.File] = struct{}{}

	var (
		b       strings.Builder
		subs    = make([]position.Substitution, 0, len(lit.Holes))
		foreign []source.Span
		errs    []ResolveError
	)
	for i, part := range lit.Parts {
		b.WriteString(part.Text)
		if i >= len(lit.Holes) {
			continue
		}
		hole := lit.Holes[i]
		v, err := ev.reduce(hole, 0)
		if err != nil {
			errs = append(errs, ResolveError{
				File:   lit.File,
				Span:   hole.Span,
				Expr:   hole.Text,
				Reason: err.Error(),
			})
			continue
		}
		if v != "" {
			foreign = append(foreign, source.Span{Start: b.Len(), End: b.Len() + len(v)})
		}
		b.WriteString(v)
		subs = append(subs, position.Substitution{At: hole.Span.Start, Length: len(v)})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	var mapping position.Mapping
	if len(lit.Holes) == 0 && len(lit.Parts) == 1 {
		mapping = position.ForLiteral(lit.File, lit.Parts[0].Span.Start, lit.Parts[0].Text)
	} else {
		m, err := position.ForTemplate(lit.File, lit.Parts, subs)
		if err != nil {
			return nil, []ResolveError{{File: lit.File, Span: lit.Span, Expr: lit.Text, Reason: err.Error()}}
		}
		mapping = m
	}

	return &Document{
		Key:          lit.Key(),
		Text:         b.String(),
		Mapping:      mapping,
		Dependencies: ev.dependencies(),
		Span:         source.Span{Start: lit.Start(), End: lit.End()},
		Foreign:      foreign,
	}, nil
}

// Update splices replacement into doc's combined text over [start, end)
// without resolving again. Positions before the range are unchanged,
// positions inside it collapse to start, and later positions shift by the
// length delta.
func Update(doc *Document, start, end int, replacement string) (*Document, error) {
	if start < 0 || end < start || end > len(doc.Text) {
		return nil, fmt.Errorf("%w: [%d,%d) in %d bytes", ErrInvalidRange, start, end, len(doc.Text))
	}
	return &Document{
		Key:          doc.Key,
		Text:         doc.Text[:start] + replacement + doc.Text[end:],
		Mapping:      position.Splice(doc.Mapping, start, end, len(replacement)),
		Dependencies: doc.Dependencies,
		Span:         doc.Span,
		Foreign:      spliceSpans(doc.Foreign, start, end, len(replacement)),
	}, nil
}

// IsForeign reports whether a combined-text offset lies in substituted text.
func (d *Document) IsForeign(offset int) bool {
	for _, s := range d.Foreign {
		if s.Contains(offset) {
			return true
		}
	}
	return false
}

// spliceSpans moves spans through a splice the same way the mapping does,
// dropping spans that collapse to nothing.
func spliceSpans(spans []source.Span, start, end, replacementLen int) []source.Span {
	delta := replacementLen - (end - start)
	move := func(off int) int {
		switch {
		case off < start:
			return off
		case off < end:
			return start
		default:
			return off + delta
		}
	}
	var out []source.Span
	for _, s := range spans {
		moved := source.Span{Start: move(s.Start), End: move(s.End)}
		if s.End <= end && s.End > start {
			moved.End = start
		}
		if moved.Len() > 0 {
			out = append(out, moved)
		}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
