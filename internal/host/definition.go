package host

import (
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/gqlembed/internal/source"
)

// maxHops bounds the import, re-export and member chains followed inside a
// single Definition call.
const maxHops = 32

// binding is what a name resolved to.
type binding struct {
	f    *file
	decl *sitter.Node
	name string
	// nameNode locates the binding's name; nil for default exports.
	nameNode *sitter.Node
	// value is the initializer; nil for parameters, functions and classes.
	value *sitter.Node
	// ns is set when the name is a namespace import or re-export.
	ns *file
	// shorthand is set for `{ name }` object members, whose value is the
	// binding of name in the enclosing scope.
	shorthand bool
}

// lookup follows names for one Definition call and records every module it
// reads on the way.
type lookup struct {
	p    *Project
	via  map[string]bool
	hops int
	seen map[exportKey]bool
}

type exportKey struct {
	file string
	name string
}

// Definition implements source.Definitions. It returns the declaration
// that binds the name at offset, following imports and re-exports to the
// module that declares it. Member names resolve to the object literal
// property they select.
func (p *Project) Definition(name string, offset int) (*source.Expr, error) {
	f, ok := p.files[Clean(name)]
	if !ok {
		return nil, fmt.Errorf("host: definition %s:%d: %w", name, offset, source.ErrUnknownFile)
	}
	n := nodeAt(f.root, offset)
	if n == nil {
		return nil, nil
	}

	l := &lookup{p: p, via: make(map[string]bool), seen: make(map[exportKey]bool)}
	var b *binding
	switch n.Type() {
	case "identifier", "shorthand_property_identifier":
		b = l.name(f, n, f.content(n))
	case "property_identifier":
		parent := n.Parent()
		if parent != nil && parent.Type() == "member_expression" {
			b = l.member(f, parent)
		}
	}
	if b == nil {
		return nil, nil
	}
	e := b.expr()
	e.Via = l.files(e.File)
	return e, nil
}

// nodeAt returns the innermost named node containing offset.
func nodeAt(n *sitter.Node, offset int) *sitter.Node {
	if offset < 0 {
		return nil
	}
	off := uint32(offset)
	if off < n.StartByte() || off >= n.EndByte() {
		return nil
	}
	for {
		var next *sitter.Node
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.StartByte() <= off && off < c.EndByte() {
				next = c
				break
			}
		}
		if next == nil {
			return n
		}
		n = next
	}
}

func (l *lookup) files(except string) []string {
	var out []string
	for f := range l.via {
		if f != except {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

func (l *lookup) hop() bool {
	l.hops++
	return l.hops <= maxHops
}

func (b *binding) expr() *source.Expr {
	if b.shorthand {
		e := b.f.base(b.nameNode, source.ShorthandProperty)
		e.Name = b.name
		e.NameSpan = e.Span
		return e
	}
	e := b.f.base(b.decl, source.Declaration)
	e.Name = b.name
	if b.nameNode != nil {
		e.NameSpan = span(b.nameNode)
	} else {
		e.NameSpan = source.Span{Start: e.Span.Start, End: e.Span.Start}
	}
	switch {
	case b.value != nil:
		e.Inner = b.f.expr(b.value)
	case b.ns != nil:
		e.Inner = b.f.base(b.decl, source.Other)
	}
	return e
}

// scopes are the nodes whose direct statements declare names.
var scopes = map[string]bool{
	"program":         true,
	"statement_block": true,
	"switch_body":     true,
}

var functions = map[string]bool{
	"function_declaration":           true,
	"function_expression":            true,
	"function":                       true,
	"arrow_function":                 true,
	"method_definition":              true,
	"generator_function_declaration": true,
	"generator_function":             true,
}

// name resolves an identifier by walking its enclosing scopes outward.
func (l *lookup) name(f *file, from *sitter.Node, name string) *binding {
	if !l.hop() {
		return nil
	}
	for a := from.Parent(); a != nil; a = a.Parent() {
		if functions[a.Type()] {
			if b := parameter(f, a, name); b != nil {
				return b
			}
			continue
		}
		if !scopes[a.Type()] {
			continue
		}
		for i := 0; i < int(a.NamedChildCount()); i++ {
			if b := l.declared(f, a.NamedChild(i), name); b != nil {
				return b
			}
		}
	}
	return nil
}

// declared returns the binding stmt introduces for name, if any.
func (l *lookup) declared(f *file, stmt *sitter.Node, name string) *binding {
	switch stmt.Type() {
	case "lexical_declaration", "variable_declaration":
		for i := 0; i < int(stmt.NamedChildCount()); i++ {
			d := stmt.NamedChild(i)
			if d.Type() != "variable_declarator" {
				continue
			}
			id := d.ChildByFieldName("name")
			if id != nil && id.Type() == "identifier" && f.content(id) == name {
				return &binding{f: f, decl: d, name: name, nameNode: id, value: d.ChildByFieldName("value")}
			}
		}

	case "function_declaration", "generator_function_declaration", "class_declaration", "abstract_class_declaration", "enum_declaration":
		if id := stmt.ChildByFieldName("name"); id != nil && f.content(id) == name {
			return &binding{f: f, decl: stmt, name: name, nameNode: id}
		}

	case "export_statement":
		if decl := stmt.ChildByFieldName("declaration"); decl != nil {
			return l.declared(f, decl, name)
		}

	case "import_statement":
		return l.imported(f, stmt, name)
	}
	return nil
}

func parameter(f *file, fn *sitter.Node, name string) *binding {
	if p := fn.ChildByFieldName("parameter"); p != nil {
		if p.Type() == "identifier" && f.content(p) == name {
			return &binding{f: f, decl: p, name: name, nameNode: p}
		}
		return nil
	}
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		id := p
		if pat := p.ChildByFieldName("pattern"); pat != nil {
			id = pat
		}
		if id.Type() == "identifier" && f.content(id) == name {
			return &binding{f: f, decl: p, name: name, nameNode: id}
		}
	}
	return nil
}

// imported resolves name against one import statement.
func (l *lookup) imported(f *file, stmt *sitter.Node, name string) *binding {
	var clause *sitter.Node
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		if c := stmt.NamedChild(i); c.Type() == "import_clause" {
			clause = c
		}
	}
	if clause == nil {
		return nil
	}

	for i := 0; i < int(clause.NamedChildCount()); i++ {
		c := clause.NamedChild(i)
		switch c.Type() {
		case "identifier":
			if f.content(c) == name {
				return l.fromModule(f, stmt, "default")
			}
		case "namespace_import":
			id := c.NamedChild(0)
			if id != nil && f.content(id) == name {
				m := l.module(f, stmt)
				if m == nil {
					return nil
				}
				return &binding{f: f, decl: c, name: name, nameNode: id, ns: m}
			}
		case "named_imports":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				spec := c.NamedChild(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				imported := spec.ChildByFieldName("name")
				local := imported
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					local = alias
				}
				if local != nil && f.content(local) == name {
					return l.fromModule(f, stmt, specifierName(f, imported))
				}
			}
		}
	}
	return nil
}

func specifierName(f *file, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	if n.Type() == "string" {
		s := f.content(n)
		if len(s) >= 2 {
			return s[1 : len(s)-1]
		}
	}
	return f.content(n)
}

func (l *lookup) fromModule(f *file, stmt *sitter.Node, exported string) *binding {
	m := l.module(f, stmt)
	if m == nil {
		return nil
	}
	return l.export(m, exported)
}

// module resolves the source of an import or re-export statement.
func (l *lookup) module(f *file, stmt *sitter.Node) *file {
	src := stmt.ChildByFieldName("source")
	if src == nil {
		return nil
	}
	m, ok := l.p.resolveModule(f.path, specifierName(f, src))
	if !ok {
		return nil
	}
	l.via[m.path] = true
	return m
}

// export finds the binding module m exports as name.
func (l *lookup) export(m *file, name string) *binding {
	key := exportKey{file: m.path, name: name}
	if l.seen[key] || !l.hop() {
		return nil
	}
	l.seen[key] = true

	var stars []*sitter.Node
	for i := 0; i < int(m.root.NamedChildCount()); i++ {
		stmt := m.root.NamedChild(i)
		if stmt.Type() != "export_statement" {
			continue
		}
		if b := l.exportedBy(m, stmt, name, &stars); b != nil {
			return b
		}
	}
	for _, stmt := range stars {
		if sub := l.module(m, stmt); sub != nil {
			if b := l.export(sub, name); b != nil {
				return b
			}
		}
	}
	return nil
}

func (l *lookup) exportedBy(m *file, stmt *sitter.Node, name string, stars *[]*sitter.Node) *binding {
	isDefault := false
	for i := 0; i < int(stmt.ChildCount()); i++ {
		if stmt.Child(i).Type() == "default" {
			isDefault = true
		}
	}

	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		if isDefault {
			if name != "default" {
				return nil
			}
			return &binding{f: m, decl: decl, name: "default", nameNode: decl.ChildByFieldName("name")}
		}
		return l.declared(m, decl, name)
	}
	if value := stmt.ChildByFieldName("value"); value != nil && isDefault {
		if name != "default" {
			return nil
		}
		return &binding{f: m, decl: stmt, name: "default", value: value}
	}

	hasSource := stmt.ChildByFieldName("source") != nil
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		c := stmt.NamedChild(i)
		switch c.Type() {
		case "export_clause":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				spec := c.NamedChild(j)
				if spec.Type() != "export_specifier" {
					continue
				}
				local := spec.ChildByFieldName("name")
				exported := local
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					exported = alias
				}
				if exported == nil || specifierName(m, exported) != name {
					continue
				}
				if hasSource {
					return l.fromModule(m, stmt, specifierName(m, local))
				}
				return l.name(m, local, specifierName(m, local))
			}
			return nil
		case "namespace_export":
			id := c.NamedChild(0)
			if id != nil && specifierName(m, id) == name {
				sub := l.module(m, stmt)
				if sub == nil {
					return nil
				}
				return &binding{f: m, decl: c, name: name, nameNode: id, ns: sub}
			}
			return nil
		}
	}
	if hasSource {
		*stars = append(*stars, stmt)
	}
	return nil
}

// member resolves obj.prop to the object literal property it selects.
func (l *lookup) member(f *file, n *sitter.Node) *binding {
	prop := n.ChildByFieldName("property")
	obj := n.ChildByFieldName("object")
	if prop == nil || obj == nil || !l.hop() {
		return nil
	}
	name := f.content(prop)

	vf, value, ns := l.value(f, obj)
	switch {
	case ns != nil:
		return l.export(ns, name)
	case value != nil && value.Type() == "object":
		return property(vf, value, name)
	}
	return nil
}

// value resolves an expression to the node holding its value, or to a
// module for namespace imports.
func (l *lookup) value(f *file, n *sitter.Node) (*file, *sitter.Node, *file) {
	n = unwrap(n)
	if n == nil || !l.hop() {
		return nil, nil, nil
	}
	var b *binding
	switch n.Type() {
	case "identifier", "shorthand_property_identifier":
		b = l.name(f, n, f.content(n))
	case "member_expression":
		b = l.member(f, n)
	default:
		return f, n, nil
	}
	if b == nil {
		return nil, nil, nil
	}
	switch {
	case b.ns != nil:
		return nil, nil, b.ns
	case b.shorthand:
		return l.value(b.f, b.nameNode)
	case b.value != nil:
		return l.value(b.f, b.value)
	}
	return nil, nil, nil
}

func property(f *file, obj *sitter.Node, name string) *binding {
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		c := obj.NamedChild(i)
		switch c.Type() {
		case "pair":
			key := c.ChildByFieldName("key")
			if key == nil {
				continue
			}
			if specifierName(f, key) == name {
				return &binding{f: f, decl: c, name: name, nameNode: key, value: c.ChildByFieldName("value")}
			}
		case "shorthand_property_identifier":
			if f.content(c) == name {
				return &binding{f: f, decl: c, name: name, nameNode: c, shorthand: true}
			}
		}
	}
	return nil
}
