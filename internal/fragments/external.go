package fragments

import (
	"slices"
	"sort"

	"github.com/vektah/gqlparser/v2/ast"
)

// ExternalFragments returns the fragments defined outside text that text
// depends on, transitively. Fragments defined inside text are never
// external, even when text also spreads them. Spreads of unknown names are
// left out; the validator reports those. Malformed text yields nil.
//
// Results are cached per (file, offset). A cached result is reused while
// text defines the same fragments, spreads the same names, and none of the
// names it visited changed in the registry since it was computed. A name
// whose definition was re-parsed without changing counts as changed, so
// returned nodes are always the ones the registry currently holds.
func (r *Registry) ExternalFragments(text, file string, offset int) []*ast.FragmentDefinition {
	doc, err := Parse(file, text)
	if err != nil {
		return nil
	}

	internal := FragmentNames(doc)
	sort.Strings(internal)
	spreads := Spreads(doc)

	key := externalKey{file: file, offset: offset}
	if cached, ok := r.external.Get(key); ok {
		if slices.Equal(cached.internal, internal) &&
			slices.Equal(cached.spreads, spreads) &&
			!r.touched(cached.version, cached.layout, cached.referenced) {
			r.log.Debugf("external fragments %s@%d: cache hit", file, offset)
			return cached.result
		}
	}

	result, referenced := r.closure(internal, spreads)
	r.external.Set(key, &externalEntry{
		internal:   internal,
		spreads:    spreads,
		referenced: referenced,
		version:    r.version,
		layout:     r.layout,
		result:     result,
	})
	r.log.Debugf("external fragments %s@%d: %d resolved, %d referenced", file, offset, len(result), len(referenced))
	return result
}

// closure walks spreads breadth first through definitions outside
// internal. Every visited name is recorded, known or not, so that a
// fragment defined later invalidates the cached result.
func (r *Registry) closure(internal, spreads []string) ([]*ast.FragmentDefinition, map[string]struct{}) {
	isInternal := toSet(internal)
	defs := r.UniqueDefinitions(internal)

	var result []*ast.FragmentDefinition
	referenced := make(map[string]struct{})
	queue := append([]string(nil), spreads...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, ok := isInternal[name]; ok {
			continue
		}
		if _, ok := referenced[name]; ok {
			continue
		}
		referenced[name] = struct{}{}

		entry, ok := defs.Lookup(name)
		if !ok {
			continue
		}
		result = append(result, entry.Node)
		queue = append(queue, SpreadsOf(entry.Node)...)
	}
	return result, referenced
}

func (r *Registry) touched(version, layout int, names map[string]struct{}) bool {
	for n := range r.staleSince(version, layout) {
		if _, ok := names[n]; ok {
			return true
		}
	}
	return false
}
