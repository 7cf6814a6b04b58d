package position

import "github.com/jward/gqlembed/internal/source"

// Splice adjusts m for replacing combined range [start, end) with
// replacementLen bytes. Offsets before start pass through, offsets inside
// the removed range collapse to start, and offsets after it shift by the
// length delta. The original mapping is left untouched.
func Splice(m Mapping, start, end, replacementLen int) Mapping {
	delta := replacementLen - (end - start)
	return Mapping{
		toCombined: func(p source.Position) (int, error) {
			offset, err := m.ToCombined(p)
			if err != nil {
				return 0, err
			}
			switch {
			case offset < start:
				return offset, nil
			case offset < end:
				return start, nil
			default:
				return offset + delta, nil
			}
		},
		toSource: func(offset int) (source.Location, error) {
			switch {
			case offset < start:
				return m.ToSource(offset)
			case offset < start+replacementLen:
				return m.ToSource(start)
			default:
				return m.ToSource(offset - delta)
			}
		},
	}
}
