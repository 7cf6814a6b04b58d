// Package position translates offsets between source files and the combined
// text reconstructed from a literal and its substituted holes.
//
// A Mapping is a chain of links, one per segment of the combined text,
// evaluated head to tail. Each link answers for its own span and otherwise
// hands the request to the next link; the last link always fails with
// ErrOutOfRange.
package position

import (
	"errors"
	"fmt"

	"github.com/jward/gqlembed/internal/source"
)

// ErrOutOfRange is returned for offsets outside the mapped range.
var ErrOutOfRange = errors.New("position: out of range")

// ToCombinedFunc maps a source position to a combined-text offset.
type ToCombinedFunc func(source.Position) (int, error)

// ToSourceFunc maps a combined-text offset back to a source location.
type ToSourceFunc func(int) (source.Location, error)

// Mapping is a pair of partial inverse functions between source positions
// and combined-text offsets. The zero Mapping maps nothing.
type Mapping struct {
	toCombined ToCombinedFunc
	toSource   ToSourceFunc
}

// New wraps a function pair as a Mapping.
func New(toCombined ToCombinedFunc, toSource ToSourceFunc) Mapping {
	return Mapping{toCombined: toCombined, toSource: toSource}
}

// ToCombined maps p into the combined text.
func (m Mapping) ToCombined(p source.Position) (int, error) {
	if m.toCombined == nil {
		return 0, ErrOutOfRange
	}
	return m.toCombined(p)
}

// ToSource maps a combined-text offset back to where it came from.
func (m Mapping) ToSource(offset int) (source.Location, error) {
	if m.toSource == nil {
		return source.Location{}, ErrOutOfRange
	}
	return m.toSource(offset)
}

// Segment is one piece of the combined text. A literal segment copies
// Length bytes starting at Source in the file; a foreign segment is
// substituted text reported at Anchor.
type Segment struct {
	Source  int
	Length  int
	Foreign bool
	Anchor  int
}

// link is one element of the decision chain.
type link struct {
	toCombined func(p source.Position, next ToCombinedFunc) (int, error)
	toSource   func(offset int, next ToSourceFunc) (source.Location, error)
}

func invalidCombined(p source.Position) (int, error) {
	return 0, fmt.Errorf("%w: %s", ErrOutOfRange, p)
}

func invalidSource(offset int) (source.Location, error) {
	return source.Location{}, fmt.Errorf("%w: combined offset %d", ErrOutOfRange, offset)
}

func chain(links []link) Mapping {
	toCombined := ToCombinedFunc(invalidCombined)
	toSource := ToSourceFunc(invalidSource)
	for i := len(links) - 1; i >= 0; i-- {
		l, nextC, nextS := links[i], toCombined, toSource
		toCombined = func(p source.Position) (int, error) { return l.toCombined(p, nextC) }
		toSource = func(offset int) (source.Location, error) { return l.toSource(offset, nextS) }
	}
	return Mapping{toCombined: toCombined, toSource: toSource}
}

// Build assembles the mapping for segments laid end to end in the combined
// text of a literal in file. The final literal segment is closed on the
// right so the offset just past the text still maps.
func Build(file string, segments []Segment) Mapping {
	lastLiteral := -1
	for i, s := range segments {
		if !s.Foreign {
			lastLiteral = i
		}
	}

	links := make([]link, 0, len(segments))
	at := 0
	for i, s := range segments {
		if s.Foreign {
			links = append(links, foreignLink(file, at, s))
		} else {
			links = append(links, literalLink(file, at, s, i == lastLiteral))
		}
		at += s.Length
	}
	return chain(links)
}

func literalLink(file string, at int, s Segment, closed bool) link {
	inCombined := func(offset int) bool {
		if closed {
			return at <= offset && offset <= at+s.Length
		}
		return at <= offset && offset < at+s.Length
	}
	return link{
		toCombined: func(p source.Position, next ToCombinedFunc) (int, error) {
			if p.File != file || p.Offset < s.Source || p.Offset > s.Source+s.Length {
				return next(p)
			}
			return at + p.Offset - s.Source, nil
		},
		toSource: func(offset int, next ToSourceFunc) (source.Location, error) {
			if !inCombined(offset) {
				return next(offset)
			}
			return source.Location{
				Position: source.Position{File: file, Offset: s.Source + offset - at},
			}, nil
		},
	}
}

func foreignLink(file string, at int, s Segment) link {
	return link{
		toCombined: func(p source.Position, next ToCombinedFunc) (int, error) {
			return next(p)
		},
		toSource: func(offset int, next ToSourceFunc) (source.Location, error) {
			if offset < at || offset >= at+s.Length {
				return next(offset)
			}
			return source.Location{
				Position: source.Position{File: file, Offset: s.Anchor},
				Foreign:  true,
			}, nil
		},
	}
}
