// Package template reconstructs the combined text of document literals
// whose holes can be evaluated statically, and caches the results against
// the versions of every file they depend on.
package template

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/jward/gqlembed/internal/lru"
	"github.com/jward/gqlembed/internal/source"
)

// DefaultCacheSize is the number of resolved documents kept by default.
const DefaultCacheSize = 512

type cacheEntry struct {
	doc      *Document
	versions map[string]string
}

// Resolver resolves document literals through a host. It is not safe for
// concurrent use.
type Resolver struct {
	host      source.Host
	cache     *lru.Cache[source.NodeKey, *cacheEntry]
	cacheSize int
	maxDepth  int
	log       commonlog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCacheSize sets how many resolved documents are kept.
func WithCacheSize(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.cacheSize = n
		}
	}
}

// WithMaxDepth bounds the reduction chain of a single hole.
func WithMaxDepth(n int) Option {
	return func(r *Resolver) {
		r.maxDepth = n
	}
}

// WithLogger sets the logger used for cache tracing.
func WithLogger(log commonlog.Logger) Option {
	return func(r *Resolver) {
		r.log = log
	}
}

// NewResolver creates a Resolver backed by host.
func NewResolver(host source.Host, opts ...Option) *Resolver {
	r := &Resolver{
		host:      host,
		cacheSize: DefaultCacheSize,
		maxDepth:  DefaultMaxDepth,
		log:       commonlog.GetLogger("gqlembed.template"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cache = lru.MustNew[source.NodeKey, *cacheEntry](r.cacheSize)
	return r
}

// Resolve returns the document for the literal named by key. Holes that
// cannot be reduced are returned as ResolveErrors instead of a document.
// The error result is reserved for host failures such as an unknown file.
//
// A cached document is returned as-is while every file it depends on keeps
// the version it had when the document was built.
func (r *Resolver) Resolve(key source.NodeKey) (*Document, []ResolveError, error) {
	if entry, ok := r.cache.Get(key); ok {
		if r.fresh(entry) {
			r.log.Debugf("resolve %s: cache hit", key)
			return entry.doc, nil, nil
		}
		r.log.Debugf("resolve %s: cache stale", key)
		r.cache.Delete(key)
	}

	lit, err := r.host.Literal(key)
	if err != nil {
		return nil, nil, fmt.Errorf("template: resolve %s: %w", key, err)
	}
	return r.resolveLiteral(key, lit)
}

// ResolveAt resolves the document literal enclosing a source position.
func (r *Resolver) ResolveAt(p source.Position) (*Document, []ResolveError, error) {
	lit, ok := r.host.LiteralAt(p.File, p.Offset)
	if !ok {
		return nil, nil, nil
	}
	return r.Resolve(lit.Key())
}

func (r *Resolver) resolveLiteral(key source.NodeKey, lit *source.Expr) (*Document, []ResolveError, error) {
	lit = lit.Literal()
	if lit == nil || !lit.IsLiteral() {
		return nil, nil, fmt.Errorf("template: resolve %s: %w", key, source.ErrUnknownNode)
	}

	ev := newEvaluation(r.host, r.maxDepth)
	doc, errs := ev.build(lit)
	if len(errs) > 0 {
		r.log.Debugf("resolve %s: %d unresolved hole(s)", key, len(errs))
		return nil, errs, nil
	}
	doc.Key = key

	versions := make(map[string]string, len(doc.Dependencies))
	for _, file := range doc.Dependencies {
		versions[file] = r.host.Version(file)
	}
	r.cache.Set(key, &cacheEntry{doc: doc, versions: versions})
	r.log.Debugf("resolve %s: cached with %d dependencies", key, len(doc.Dependencies))
	return doc, nil, nil
}

func (r *Resolver) fresh(entry *cacheEntry) bool {
	for file, version := range entry.versions {
		if r.host.Version(file) != version {
			return false
		}
	}
	return true
}

// Update splices replacement into doc over [start, end) of its combined
// text. It does not consult the host or the cache.
func (r *Resolver) Update(doc *Document, start, end int, replacement string) (*Document, error) {
	return Update(doc, start, end, replacement)
}

// Invalidate drops cached documents for literals in file and returns how
// many were dropped. Validity never depends on calling it; it only frees
// entries that can no longer be hit.
func (r *Resolver) Invalidate(file string) int {
	return r.cache.DeleteFunc(func(k source.NodeKey) bool { return k.File == file })
}

// Cached reports whether a document for key is cached, fresh or not.
func (r *Resolver) Cached(key source.NodeKey) bool {
	return r.cache.Has(key)
}
