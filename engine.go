package gqlembed

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tliron/commonlog"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/jward/gqlembed/internal/config"
	"github.com/jward/gqlembed/internal/fragments"
	"github.com/jward/gqlembed/internal/host"
	"github.com/jward/gqlembed/internal/source"
	"github.com/jward/gqlembed/internal/store"
	"github.com/jward/gqlembed/internal/template"
)

// fileState records what the registry last received for a file.
type fileState struct {
	// deps holds every file the registered texts were built from,
	// including the file itself.
	deps map[string]struct{}
	// unresolved is set when some literal of the file did not resolve.
	// Such files are also refreshed after updates to any module their
	// relative imports reach, held or not.
	unresolved bool
}

// deduped remembers the dedupe result for one resolved document, so that
// repeated calls return the same document while the source is unchanged.
type deduped struct {
	src *template.Document
	out *template.Document
}

// Engine ties a source project, the template resolver and the fragment
// registry together, and optionally persists what it indexed to SQLite.
// It is not safe for concurrent use.
type Engine struct {
	cfg      config.Config
	dbPath   string
	workers  int
	progress func(done, total int, path string)
	log      commonlog.Logger

	project  *host.Project
	resolver *template.Resolver
	registry *fragments.Registry
	store    *store.Store

	files   map[string]*fileState
	deduped map[source.NodeKey]deduped
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the engine configuration. Options that change single
// settings apply on top of it when they come after it.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		if cfg != nil {
			e.cfg = *cfg
		}
	}
}

// WithTags sets the tag and call names that mark a document literal.
func WithTags(tags ...string) Option {
	return func(e *Engine) {
		e.cfg.Tags = append([]string(nil), tags...)
	}
}

// WithDedupe enables removal of repeated identical fragment definitions
// from resolved documents.
func WithDedupe(on bool) Option {
	return func(e *Engine) {
		e.cfg.Dedupe = on
	}
}

// WithMaxDepth bounds how deep hole evaluation may recurse.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		e.cfg.Resolve.MaxDepth = n
	}
}

// WithCacheSizes sizes the resolver's document cache and the registry's
// external fragment cache.
func WithCacheSizes(templates, external int) Option {
	return func(e *Engine) {
		e.cfg.Cache.Templates = templates
		e.cfg.Cache.External = external
	}
}

// WithDatabase persists indexed files to a SQLite database at path.
func WithDatabase(path string) Option {
	return func(e *Engine) {
		e.dbPath = path
	}
}

// WithWorkers caps the number of goroutines IndexFiles reads files with.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithProgress registers a callback invoked after each file IndexFiles
// applies.
func WithProgress(fn func(done, total int, path string)) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// WithLogger sets the engine's logger. Internal components log under
// their own names.
func WithLogger(log commonlog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// New creates an Engine. With WithDatabase the database is opened and
// migrated.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:     *config.Default(),
		log:     commonlog.GetLogger("gqlembed.engine"),
		files:   make(map[string]*fileState),
		deduped: make(map[source.NodeKey]deduped),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gqlembed: %w", err)
	}

	if e.dbPath != "" {
		s, err := store.NewStore(e.dbPath)
		if err != nil {
			return nil, fmt.Errorf("gqlembed: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("gqlembed: %w", err)
		}
		e.store = s
	}

	e.project = host.NewProject(host.WithTags(e.cfg.Tags...))
	e.resolver = template.NewResolver(e.project,
		template.WithCacheSize(e.cfg.Cache.Templates),
		template.WithMaxDepth(e.cfg.Resolve.MaxDepth),
	)
	e.registry = fragments.NewRegistry(fragments.WithCacheSize(e.cfg.Cache.External))
	return e, nil
}

// Close releases parsed trees and the database, if any.
func (e *Engine) Close() error {
	e.project.Close()
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Registry returns the fragment registry.
func (e *Engine) Registry() *fragments.Registry {
	return e.registry
}

// Resolver returns the template resolver.
func (e *Engine) Resolver() *template.Resolver {
	return e.resolver
}

// Project returns the source project the resolver reads from.
func (e *Engine) Project() *host.Project {
	return e.project
}

// Store returns the SQLite store, or nil without WithDatabase.
func (e *Engine) Store() *Store {
	return e.store
}

// Config returns the configuration the engine runs with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Files returns the paths of all files held, sorted.
func (e *Engine) Files() []string {
	return e.project.Files()
}

// UpdateFile sets the text of path, then re-registers the fragments of
// path and of every file whose documents were built from it. The returned
// change covers all files re-registered.
func (e *Engine) UpdateFile(ctx context.Context, path, text string) (Change, error) {
	path = host.Clean(path)
	changed, err := e.project.SetFile(ctx, path, text)
	if err != nil {
		return Change{}, fmt.Errorf("gqlembed: update %s: %w", path, err)
	}
	if !changed {
		return Change{}, nil
	}
	e.forget(path)

	change := e.refresh(path)
	for _, other := range e.dependents(path) {
		change = merge(change, e.refresh(other))
	}
	return change, nil
}

// RemoveFile drops path and re-registers the files that depended on it.
func (e *Engine) RemoveFile(path string) (Change, error) {
	path = host.Clean(path)
	if !e.project.RemoveFile(path) {
		return Change{}, nil
	}
	e.forget(path)
	delete(e.files, path)

	change := e.registry.RemoveDocument(path)
	for _, other := range e.dependents(path) {
		change = merge(change, e.refresh(other))
	}

	if e.store != nil {
		f, err := e.store.FileByPath(path)
		if err != nil {
			return change, fmt.Errorf("gqlembed: remove %s: %w", path, err)
		}
		if f != nil {
			if err := e.store.DeleteFileData(f.ID); err != nil {
				return change, fmt.Errorf("gqlembed: remove %s: %w", path, err)
			}
		}
	}
	return change, nil
}

// forget drops cached results for literals of path.
func (e *Engine) forget(path string) {
	e.resolver.Invalidate(path)
	for key := range e.deduped {
		if key.File == path {
			delete(e.deduped, key)
		}
	}
}

// dependents returns the files, other than path, to refresh after path
// changed, sorted.
func (e *Engine) dependents(path string) []string {
	var out []string
	for file, st := range e.files {
		if file == path {
			continue
		}
		if _, ok := st.deps[path]; ok || (st.unresolved && e.project.Reaches(file, path)) {
			out = append(out, file)
		}
	}
	sort.Strings(out)
	return out
}

// refresh resolves every literal of path and registers the resulting texts.
func (e *Engine) refresh(path string) Change {
	st := &fileState{deps: map[string]struct{}{path: {}}}
	var texts []fragments.Text
	for _, lit := range e.project.Literals(path) {
		doc, errs, err := e.Resolve(lit.Key())
		if err != nil {
			e.log.Warningf("refresh %s: %s", path, err)
			st.unresolved = true
			continue
		}
		if len(errs) > 0 {
			st.unresolved = true
			continue
		}
		texts = append(texts, fragments.Text{Text: doc.Text, Offset: doc.Span.Start, Foreign: doc.Foreign})
		for _, dep := range doc.Dependencies {
			st.deps[dep] = struct{}{}
		}
	}
	e.files[path] = st
	return e.registry.RegisterDocument(path, e.versionOf(st.deps), texts)
}

// versionOf builds a token that changes whenever any of files changes.
func (e *Engine) versionOf(files map[string]struct{}) string {
	names := make([]string, 0, len(files))
	for f := range files {
		names = append(names, f)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, f := range names {
		b.WriteString(f)
		b.WriteByte('@')
		b.WriteString(e.project.Version(f))
		b.WriteByte(';')
	}
	return b.String()
}

func merge(a, b Change) Change {
	union := func(x, y []string) []string {
		set := make(map[string]struct{}, len(x)+len(y))
		for _, s := range x {
			set[s] = struct{}{}
		}
		for _, s := range y {
			set[s] = struct{}{}
		}
		if len(set) == 0 {
			return nil
		}
		out := make([]string, 0, len(set))
		for s := range set {
			out = append(out, s)
		}
		sort.Strings(out)
		return out
	}
	return Change{
		Appeared:    union(a.Appeared, b.Appeared),
		Disappeared: union(a.Disappeared, b.Disappeared),
		Updated:     union(a.Updated, b.Updated),
	}
}

// Documents lists the document literals of path in discovery order.
func (e *Engine) Documents(path string) []DocumentRef {
	lits := e.project.Literals(host.Clean(path))
	refs := make([]DocumentRef, 0, len(lits))
	for _, lit := range lits {
		ref := DocumentRef{Key: lit.Key()}
		if lit.Kind == source.TaggedTemplate {
			ref.Tag = lit.Name
		}
		if inner := lit.Literal(); inner != nil {
			ref.Span = Span{Start: inner.Start(), End: inner.End()}
		}
		refs = append(refs, ref)
	}
	return refs
}

// Resolve returns the combined document for key. Unresolvable holes are
// reported in the second result and leave the document nil.
func (e *Engine) Resolve(key NodeKey) (*Document, []ResolveError, error) {
	key.File = host.Clean(key.File)
	doc, errs, err := e.resolver.Resolve(key)
	if err != nil || doc == nil || !e.cfg.Dedupe {
		return doc, errs, err
	}
	if prev, ok := e.deduped[key]; ok && prev.src == doc {
		return prev.out, nil, nil
	}
	out, err := e.dedupe(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("gqlembed: resolve %s: %w", key, err)
	}
	e.deduped[key] = deduped{src: doc, out: out}
	return out, nil, nil
}

// ResolveAt resolves the document literal enclosing offset in path. It
// returns nil results when no literal encloses offset.
func (e *Engine) ResolveAt(path string, offset int) (*Document, []ResolveError, error) {
	lit, ok := e.project.LiteralAt(host.Clean(path), offset)
	if !ok {
		return nil, nil, nil
	}
	return e.Resolve(lit.Key())
}

// ExternalFragments returns the fragment definitions from other documents
// that the document for key needs, transitively. It returns nil when the
// document does not resolve or does not parse.
func (e *Engine) ExternalFragments(key NodeKey) ([]*ast.FragmentDefinition, error) {
	doc, errs, err := e.Resolve(key)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, nil
	}
	return e.registry.ExternalFragments(doc.Text, doc.Key.File, doc.Span.Start), nil
}

// Fragments returns every registered fragment definition in file order.
func (e *Engine) Fragments() []*Fragment {
	var out []*Fragment
	for _, file := range e.registry.Files() {
		out = append(out, e.registry.Entries(file)...)
	}
	return out
}
