// Package host adapts TypeScript and JavaScript source files, parsed with
// tree-sitter, to the capabilities the template resolver consumes: document
// literal lookup, single-hop definition lookup and file version tokens.
//
// A Project holds file texts in memory. It never reads the filesystem;
// callers push texts with SetFile.
package host

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/tliron/commonlog"

	"github.com/jward/gqlembed/internal/source"
)

// ErrUnsupported is returned for files whose extension has no grammar.
var ErrUnsupported = errors.New("host: unsupported file type")

// DefaultTags are the tag and call names that mark a document literal.
var DefaultTags = []string{"gql", "graphql"}

type file struct {
	path    string
	src     []byte
	version string
	tree    *sitter.Tree
	root    *sitter.Node

	// literals is the discovery arena; a literal's ID is its index.
	literals []*source.Expr
}

func (f *file) content(n *sitter.Node) string {
	return n.Content(f.src)
}

// Project is an in-memory set of parsed files. It is not safe for
// concurrent use.
type Project struct {
	files   map[string]*file
	tags    map[string]bool
	counter int
	log     commonlog.Logger
}

// Option configures a Project.
type Option func(*Project)

// WithTags replaces the names recognised as document tags.
func WithTags(tags ...string) Option {
	return func(p *Project) {
		p.tags = make(map[string]bool, len(tags))
		for _, t := range tags {
			p.tags[t] = true
		}
	}
}

// WithLogger sets the project's logger.
func WithLogger(log commonlog.Logger) Option {
	return func(p *Project) {
		p.log = log
	}
}

// NewProject creates an empty project.
func NewProject(opts ...Option) *Project {
	p := &Project{
		files: make(map[string]*file),
		log:   commonlog.GetLogger("gqlembed.host"),
	}
	WithTags(DefaultTags...)(p)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Clean normalises a file path the way the project keys files.
func Clean(p string) string {
	return path.Clean(filepath.ToSlash(p))
}

// SetFile stores and parses text as the current content of path. It
// reports false when the text equals what the project already holds, in
// which case the version token is unchanged.
func (p *Project) SetFile(ctx context.Context, name, text string) (bool, error) {
	name = Clean(name)
	lang, ok := grammarFor(name)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	if prev, ok := p.files[name]; ok && string(prev.src) == text {
		return false, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	src := []byte(text)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return false, fmt.Errorf("host: parse %s: %w", name, err)
	}

	if prev, ok := p.files[name]; ok {
		prev.tree.Close()
	}
	p.counter++
	sum := sha256.Sum256(src)
	f := &file{
		path:    name,
		src:     src,
		version: fmt.Sprintf("%d:%s", p.counter, hex.EncodeToString(sum[:6])),
		tree:    tree,
		root:    tree.RootNode(),
	}
	f.literals = p.discover(f)
	p.files[name] = f
	p.log.Debugf("set %s: version %s, %d literal(s)", name, f.version, len(f.literals))
	return true, nil
}

// RemoveFile drops path from the project and reports whether it was held.
func (p *Project) RemoveFile(name string) bool {
	name = Clean(name)
	f, ok := p.files[name]
	if !ok {
		return false
	}
	f.tree.Close()
	delete(p.files, name)
	return true
}

// Close releases every parse tree.
func (p *Project) Close() {
	for name, f := range p.files {
		f.tree.Close()
		delete(p.files, name)
	}
}

// Files returns the held file paths, sorted.
func (p *Project) Files() []string {
	out := make([]string, 0, len(p.files))
	for name := range p.files {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Version implements source.Versions.
func (p *Project) Version(name string) string {
	if f, ok := p.files[Clean(name)]; ok {
		return f.version
	}
	return ""
}

// FileText implements source.Nodes.
func (p *Project) FileText(name string) (string, bool) {
	f, ok := p.files[Clean(name)]
	if !ok {
		return "", false
	}
	return string(f.src), true
}

// Literals returns the document literals of a file in discovery order.
func (p *Project) Literals(name string) []*source.Expr {
	if f, ok := p.files[Clean(name)]; ok {
		return f.literals
	}
	return nil
}

// Literal implements source.Nodes.
func (p *Project) Literal(key source.NodeKey) (*source.Expr, error) {
	f, ok := p.files[Clean(key.File)]
	if !ok {
		return nil, fmt.Errorf("host: literal %s: %w", key, source.ErrUnknownFile)
	}
	if key.ID < 0 || key.ID >= len(f.literals) {
		return nil, fmt.Errorf("host: literal %s: %w", key, source.ErrUnknownNode)
	}
	return f.literals[key.ID], nil
}

// LiteralAt implements source.Nodes. When literals nest, the innermost one
// enclosing offset wins.
func (p *Project) LiteralAt(name string, offset int) (*source.Expr, bool) {
	f, ok := p.files[Clean(name)]
	if !ok {
		return nil, false
	}
	var best *source.Expr
	for _, lit := range f.literals {
		if !lit.Span.Covers(offset) {
			continue
		}
		if best == nil || lit.Span.Len() < best.Span.Len() {
			best = lit
		}
	}
	return best, best != nil
}
