package gqlembed

import (
	"errors"
	"fmt"

	"github.com/jward/gqlembed/internal/store"
)

// ErrNoStore is returned by Query on an engine created without
// WithDatabase.
var ErrNoStore = errors.New("gqlembed: no database configured")

// QueryBuilder answers questions from the persisted index, without the
// files being loaded into an engine.
type QueryBuilder struct {
	store *store.Store
}

// StoredDocument is one persisted document literal with its file path.
type StoredDocument struct {
	store.Document
	Path string
}

// Query returns a QueryBuilder over the engine's database.
func (e *Engine) Query() (*QueryBuilder, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	return &QueryBuilder{store: e.store}, nil
}

// NewQueryBuilder wraps an open store.
func NewQueryBuilder(s *Store) *QueryBuilder {
	return &QueryBuilder{store: s}
}

// Fragments returns every persisted fragment ordered by name, then path.
func (q *QueryBuilder) Fragments() ([]*FragmentLocation, error) {
	frags, err := q.store.Fragments()
	if err != nil {
		return nil, fmt.Errorf("fragments: %w", err)
	}
	return frags, nil
}

// FragmentsByName returns every persisted definition of name.
func (q *QueryBuilder) FragmentsByName(name string) ([]*FragmentLocation, error) {
	frags, err := q.store.FragmentsByName(name)
	if err != nil {
		return nil, fmt.Errorf("fragments by name %q: %w", name, err)
	}
	return frags, nil
}

// Duplicates returns the definitions of every name defined more than once,
// grouped by name.
func (q *QueryBuilder) Duplicates() (map[string][]*FragmentLocation, error) {
	names, err := q.store.DuplicateFragmentNames()
	if err != nil {
		return nil, fmt.Errorf("duplicates: %w", err)
	}
	out := make(map[string][]*FragmentLocation, len(names))
	for _, name := range names {
		frags, err := q.store.FragmentsByName(name)
		if err != nil {
			return nil, fmt.Errorf("duplicates: %w", err)
		}
		out[name] = frags
	}
	return out, nil
}

// DocumentsIn returns the persisted documents of path in discovery order,
// or nil when path was never indexed.
func (q *QueryBuilder) DocumentsIn(path string) ([]*StoredDocument, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("documents in %s: %w", path, err)
	}
	if f == nil {
		return nil, nil
	}
	docs, err := q.store.DocumentsByFile(f.ID)
	if err != nil {
		return nil, fmt.Errorf("documents in %s: %w", path, err)
	}
	out := make([]*StoredDocument, len(docs))
	for i, d := range docs {
		out[i] = &StoredDocument{Document: *d, Path: path}
	}
	return out, nil
}

// AffectedBy returns the files holding documents that spread any fragment
// defined in path, path itself excluded. These are the files whose
// external fragments change when path changes.
func (q *QueryBuilder) AffectedBy(path string) ([]string, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("affected by %s: %w", path, err)
	}
	if f == nil {
		return nil, nil
	}
	names, err := q.store.FragmentNamesInFiles([]int64{f.ID})
	if err != nil {
		return nil, fmt.Errorf("affected by %s: %w", path, err)
	}
	files, err := q.store.FilesSpreading(names)
	if err != nil {
		return nil, fmt.Errorf("affected by %s: %w", path, err)
	}
	out := files[:0]
	for _, p := range files {
		if p != path {
			out = append(out, p)
		}
	}
	return out, nil
}
