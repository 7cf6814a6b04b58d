package source

import "errors"

var (
	// ErrUnknownFile is returned by capabilities asked about a file they do
	// not hold.
	ErrUnknownFile = errors.New("unknown file")
	// ErrUnknownNode is returned when a NodeKey no longer names a literal.
	ErrUnknownNode = errors.New("unknown node")
)

// Nodes locates document literals and file texts.
type Nodes interface {
	// Literal returns the document literal for key.
	Literal(key NodeKey) (*Expr, error)
	// LiteralAt returns the document literal enclosing offset.
	LiteralAt(file string, offset int) (*Expr, bool)
	// FileText returns a file's full current text.
	FileText(file string) (string, bool)
}

// Definitions performs a single definition hop. Given a file and an offset
// inside a name, it returns the node that defines the name (possibly in
// another file), or nil with no error when there is none. Chains are
// followed by the caller.
type Definitions interface {
	Definition(file string, offset int) (*Expr, error)
}

// Versions returns an opaque token that changes iff the file's text
// changes. Unknown files return "".
type Versions interface {
	Version(file string) string
}

// Host bundles the capabilities provided by one host adapter.
type Host interface {
	Nodes
	Definitions
	Versions
}
