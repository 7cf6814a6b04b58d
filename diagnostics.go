package gqlembed

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/jward/gqlembed/internal/fragments"
	"github.com/jward/gqlembed/internal/host"
	"github.com/jward/gqlembed/internal/source"
)

// Diagnostics reports the problems in path's documents: holes that cannot
// be resolved, syntax errors, repeated fragment names and spreads of
// fragments defined nowhere. Results are ordered by position.
func (e *Engine) Diagnostics(path string) ([]Diagnostic, error) {
	path = host.Clean(path)
	if _, ok := e.project.FileText(path); !ok {
		return nil, fmt.Errorf("gqlembed: diagnostics %s: %w", path, source.ErrUnknownFile)
	}

	defs := e.registry.UniqueDefinitions(nil)
	dupes := make(map[int][]*Fragment)
	for _, entry := range e.registry.Duplicates() {
		if entry.File == path {
			dupes[entry.Offset] = append(dupes[entry.Offset], entry)
		}
	}

	var out []Diagnostic
	for _, lit := range e.project.Literals(path) {
		doc, errs, err := e.Resolve(lit.Key())
		if err != nil {
			return nil, fmt.Errorf("gqlembed: diagnostics %s: %w", path, err)
		}
		if len(errs) > 0 {
			for _, re := range errs {
				out = append(out, unresolved(re, len(errs) == 1))
			}
			continue
		}
		out = append(out, e.documentDiagnostics(doc, defs, dupes[doc.Span.Start])...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Span.Start < out[j].Span.Start
	})
	return out, nil
}

// unresolved reports one hole that did not resolve. A hole that is the only
// unresolved part of its document, or whose reference chain ran past the
// depth limit, is reported as too complex.
func unresolved(re ResolveError, only bool) Diagnostic {
	msg := "interpolation cannot be resolved statically"
	if only || strings.HasPrefix(re.Reason, "reference chain deeper") {
		msg = "interpolation is too complex to resolve statically"
	}
	return Diagnostic{
		File:     re.File,
		Span:     re.Span,
		Severity: SeverityWarning,
		Code:     CodeUnresolved,
		Message:  fmt.Sprintf("%s: %s", msg, re.Reason),
	}
}

func (e *Engine) documentDiagnostics(doc *Document, defs fragments.Definitions, dupes []*Fragment) []Diagnostic {
	file := doc.Key.File
	parsed, err := fragments.Parse(file, doc.Text)
	if err != nil {
		d := Diagnostic{
			File:     file,
			Span:     doc.Span,
			Severity: SeverityError,
			Code:     CodeSyntax,
			Message:  err.Error(),
		}
		var gerr *gqlerror.Error
		if errors.As(err, &gerr) {
			d.Message = gerr.Message
			if len(gerr.Locations) > 0 {
				loc := gerr.Locations[0]
				if span, ok := e.sourceSpan(doc, lineColumn(doc.Text, loc.Line, loc.Column), 1); ok {
					d.Span = span
				}
			}
		}
		return []Diagnostic{d}
	}

	var out []Diagnostic
	for _, entry := range dupes {
		first, _ := defs.Lookup(entry.Name)
		msg := fmt.Sprintf("fragment %q is defined more than once", entry.Name)
		if first != nil {
			msg = fmt.Sprintf("fragment %q is already defined in %s", entry.Name, first.File)
		}
		span, ok := e.sourceSpan(doc, entry.NameSpan.Start, entry.NameSpan.Len())
		if !ok {
			span = doc.Span
		}
		out = append(out, Diagnostic{
			File:     file,
			Span:     span,
			Severity: SeverityError,
			Code:     CodeDuplicate,
			Message:  msg,
		})
	}

	internal := make(map[string]bool, len(parsed.Fragments))
	for _, name := range fragments.FragmentNames(parsed) {
		internal[name] = true
	}
	for _, site := range fragments.SpreadSites(doc.Text, parsed) {
		if internal[site.Name] {
			continue
		}
		if _, ok := defs.Lookup(site.Name); ok {
			continue
		}
		span, ok := e.sourceSpan(doc, site.Offset, len(site.Name))
		if !ok {
			span = doc.Span
		}
		out = append(out, Diagnostic{
			File:     file,
			Span:     span,
			Severity: SeverityWarning,
			Code:     CodeUnknown,
			Message:  fmt.Sprintf("unknown fragment %q", site.Name),
		})
	}
	return out
}

// sourceSpan maps a combined-text range back to the literal's file. Text
// that came from another literal maps to the interpolation it came through.
func (e *Engine) sourceSpan(doc *Document, offset, length int) (Span, bool) {
	loc, err := doc.ToSource(offset)
	if err != nil || loc.File != doc.Key.File {
		return Span{}, false
	}
	if loc.Foreign {
		return Span{Start: loc.Offset, End: loc.Offset}, true
	}
	return Span{Start: loc.Offset, End: loc.Offset + length}, true
}

// lineColumn converts a 1-based line and rune column into a byte offset.
func lineColumn(text string, line, column int) int {
	off := 0
	for l := 1; l < line; l++ {
		i := strings.IndexByte(text[off:], '\n')
		if i < 0 {
			return len(text)
		}
		off += i + 1
	}
	for c := 1; c < column && off < len(text); c++ {
		if text[off] == '\n' {
			break
		}
		_, size := utf8.DecodeRuneInString(text[off:])
		off += size
	}
	return off
}
