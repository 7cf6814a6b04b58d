package position

import (
	"fmt"

	"github.com/jward/gqlembed/internal/source"
)

// Substitution is the text spliced in for one hole: its length in the
// combined text and the offset of the hole expression it replaces.
type Substitution struct {
	At     int
	Length int
}

// ForLiteral maps a literal without holes whose content starts at start:
// an affine shift clipped to len(text).
func ForLiteral(file string, start int, text string) Mapping {
	return Build(file, []Segment{{Source: start, Length: len(text)}})
}

// ForTemplate maps a template literal with len(parts)-1 holes. Segment
// lengths come from the part texts, not their spans, so a literal whose
// span runs past its text (an unterminated template) is clipped.
func ForTemplate(file string, parts []source.Part, subs []Substitution) (Mapping, error) {
	if len(parts) != len(subs)+1 {
		return Mapping{}, fmt.Errorf("position: %d parts for %d substitutions", len(parts), len(subs))
	}
	segments := make([]Segment, 0, len(parts)+len(subs))
	for i, part := range parts {
		segments = append(segments, Segment{Source: part.Span.Start, Length: len(part.Text)})
		if i < len(subs) {
			segments = append(segments, Segment{Foreign: true, Anchor: subs[i].At, Length: subs[i].Length})
		}
	}
	return Build(file, segments), nil
}
