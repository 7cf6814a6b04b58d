package gqlembed

import (
	"github.com/jward/gqlembed/internal/config"
	"github.com/jward/gqlembed/internal/fragments"
	"github.com/jward/gqlembed/internal/source"
	"github.com/jward/gqlembed/internal/store"
	"github.com/jward/gqlembed/internal/template"
)

// Public aliases for the internal types that appear in the Engine and
// QueryBuilder APIs.

type Config = config.Config
type NodeKey = source.NodeKey
type Position = source.Position
type Location = source.Location
type Span = source.Span
type Document = template.Document
type ResolveError = template.ResolveError
type Fragment = fragments.Entry
type Change = fragments.Change
type Store = store.Store
type FragmentLocation = store.FragmentLocation

// DocumentRef names one document literal of a file.
type DocumentRef struct {
	Key NodeKey
	// Span covers the literal's content.
	Span Span
	// Tag is the tag or call name, empty for comment-marked literals.
	Tag string
}

// Severity ranks a diagnostic.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	}
	return "unknown"
}

// MarshalText renders the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Diagnostic codes.
const (
	CodeUnresolved = "unresolved-interpolation"
	CodeDuplicate  = "duplicate-fragment"
	CodeSyntax     = "syntax"
	CodeUnknown    = "unknown-fragment"
)

// Diagnostic is a problem found in one file's documents.
type Diagnostic struct {
	File     string   `json:"file"`
	Span     Span     `json:"span"`
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}
