package gqlembed

import (
	"github.com/jward/gqlembed/internal/fragments"
)

// dedupe removes later fragment definitions that repeat an earlier one
// with the same name and the same normalised body, as happens when two
// interpolations pull in the same fragment. Definitions that share a name
// but differ are left for diagnostics to report.
func (e *Engine) dedupe(doc *Document) (*Document, error) {
	seen := make(map[string]string)
	var drop []fragments.Range
	for _, r := range fragments.Ranges(doc.Text) {
		body := normalised(doc.Text[r.Span.Start:r.Span.End])
		if body == "" {
			continue
		}
		prev, ok := seen[r.Name]
		if !ok {
			seen[r.Name] = body
			continue
		}
		if prev == body {
			drop = append(drop, r)
		}
	}
	if len(drop) == 0 {
		return doc, nil
	}

	// Splice from the back so earlier ranges keep their offsets.
	out := doc
	for i := len(drop) - 1; i >= 0; i-- {
		r := drop[i]
		end := r.Span.End
		for end < len(out.Text) && isBlank(out.Text[end]) {
			end++
		}
		next, err := e.resolver.Update(out, r.Span.Start, end, "")
		if err != nil {
			return nil, err
		}
		out = next
	}
	e.log.Debugf("dedupe %s: removed %d definition(s)", doc.Key, len(drop))
	return out, nil
}

// normalised prints a single fragment definition, or returns "" when text
// does not parse as one.
func normalised(text string) string {
	doc, err := fragments.Parse("", text)
	if err != nil || len(doc.Fragments) != 1 {
		return ""
	}
	return fragments.Print(doc.Fragments[0])
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ','
}
