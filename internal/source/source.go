// Package source defines positions, spans and the host-language node model
// that the template resolver works on, together with the capabilities a
// host adapter must provide.
package source

import "fmt"

// Position is a byte offset into one file's current text.
type Position struct {
	File   string
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d", p.File, p.Offset)
}

// Location is a Position recovered from a combined-text offset. Foreign is
// set when the combined offset lies inside text substituted for a hole, in
// which case Position is the hole expression's start.
type Location struct {
	Position
	Foreign bool
}

// Span is a half-open byte range [Start, End).
type Span struct {
	Start int // inclusive
	End   int // exclusive
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether off is within [Start, End).
func (s Span) Contains(off int) bool {
	return s.Start <= off && off < s.End
}

// Covers reports whether off is within [Start, End], so that a caret placed
// right after the last byte still counts.
func (s Span) Covers(off int) bool {
	return s.Start <= off && off <= s.End
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// NodeKey is a stable handle for a document literal: the owning file and
// the literal's index in that file's discovery order.
type NodeKey struct {
	File string
	ID   int
}

func (k NodeKey) String() string {
	return fmt.Sprintf("%s#%d", k.File, k.ID)
}
