package source

// Kind classifies an expression handed to the resolver.
type Kind uint8

const (
	// Other is any expression the resolver cannot reduce.
	Other Kind = iota
	// StringLiteral is a quoted string; Parts holds its single content segment.
	StringLiteral
	// TemplateLiteral is a literal with holes.
	TemplateLiteral
	// TaggedTemplate is a tag or call wrapping a template; Inner is the template.
	TaggedTemplate
	// Identifier is a bare name; NameSpan locates it for definition lookup.
	Identifier
	// PropertyAccess is obj.name; NameSpan locates the member name.
	PropertyAccess
	// ShorthandProperty is `{ name }` inside an object literal.
	ShorthandProperty
	// Declaration binds a name to Inner (variable declarator, object pair,
	// default export).
	Declaration
)

var kindNames = [...]string{
	Other:             "other",
	StringLiteral:     "string",
	TemplateLiteral:   "template",
	TaggedTemplate:    "tagged-template",
	Identifier:        "identifier",
	PropertyAccess:    "property-access",
	ShorthandProperty: "shorthand-property",
	Declaration:       "declaration",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Part is one literal segment of a string or template literal: the raw text
// between delimiters and where it sits in the file.
type Part struct {
	Span Span
	Text string
}

// Expr is a host-neutral expression node. Which fields are meaningful
// depends on Kind.
//
// For TemplateLiteral, len(Parts) == len(Holes)+1 and the combined text is
// Parts[0] + value(Holes[0]) + Parts[1] + ... . A StringLiteral has exactly
// one part and no holes.
type Expr struct {
	File string
	Kind Kind
	Span Span
	Text string // raw source text of the node

	// ID is the literal's index in its file's discovery arena, or -1 for
	// expressions that are not top-level document literals.
	ID int

	Name     string
	NameSpan Span

	Parts []Part
	Holes []*Expr

	Inner *Expr

	// Via lists other files the host read to reach this node, such as
	// modules re-exporting it. They count as dependencies of the result.
	Via []string
}

// Key returns the literal's handle.
func (e *Expr) Key() NodeKey {
	return NodeKey{File: e.File, ID: e.ID}
}

// IsLiteral reports whether e is a string or template literal.
func (e *Expr) IsLiteral() bool {
	return e.Kind == StringLiteral || e.Kind == TemplateLiteral
}

// Literal unwraps a tagged template to the literal it wraps.
func (e *Expr) Literal() *Expr {
	for e != nil && e.Kind == TaggedTemplate {
		e = e.Inner
	}
	return e
}

// Start returns the offset of the literal's first content byte.
func (e *Expr) Start() int {
	if len(e.Parts) > 0 {
		return e.Parts[0].Span.Start
	}
	return e.Span.Start
}

// End returns the offset just past the literal's last content byte.
func (e *Expr) End() int {
	if len(e.Parts) > 0 {
		return e.Parts[len(e.Parts)-1].Span.End
	}
	return e.Span.End
}
