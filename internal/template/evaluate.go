package template

import (
	"fmt"
	"strings"

	"github.com/jward/gqlembed/internal/source"
)

// DefaultMaxDepth bounds how many reductions a single hole may chain through.
const DefaultMaxDepth = 64

// unresolvable is the internal failure of a reduction. It never crosses the
// package boundary as a Go error; Resolve turns it into a ResolveError.
type unresolvable struct {
	reason string
}

func (u *unresolvable) Error() string { return u.reason }

func failf(format string, args ...any) error {
	return &unresolvable{reason: fmt.Sprintf(format, args...)}
}

type exprKey struct {
	file       string
	start, end int
	kind       source.Kind
}

func keyOf(e *source.Expr) exprKey {
	return exprKey{file: e.File, start: e.Span.Start, end: e.Span.End, kind: e.Kind}
}

type memoized struct {
	text string
	err  error
}

// evaluation reduces hole expressions to strings for one Resolve call. It
// memoizes per expression, refuses to re-enter an expression it is still
// reducing, and records every file it visits.
type evaluation struct {
	defs     source.Definitions
	maxDepth int
	memo     map[exprKey]memoized
	active   map[exprKey]bool
	deps     map[string]struct{}
}

func newEvaluation(defs source.Definitions, maxDepth int) *evaluation {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &evaluation{
		defs:     defs,
		maxDepth: maxDepth,
		memo:     make(map[exprKey]memoized),
		active:   make(map[exprKey]bool),
		deps:     make(map[string]struct{}),
	}
}

func (ev *evaluation) reduce(e *source.Expr, depth int) (string, error) {
	if e == nil {
		return "", failf("missing expression")
	}
	if depth > ev.maxDepth {
		return "", failf("reference chain deeper than %d", ev.maxDepth)
	}

	key := keyOf(e)
	if m, ok := ev.memo[key]; ok {
		return m.text, m.err
	}
	if ev.active[key] {
		return "", failf("cyclic reference through %q", e.Text)
	}
	ev.active[key] = true
	ev.deps[e.File] = struct{}{}
	for _, f := range e.Via {
		ev.deps[f] = struct{}{}
	}

	text, err := ev.step(e, depth)

	delete(ev.active, key)
	ev.memo[key] = memoized{text: text, err: err}
	return text, err
}

func (ev *evaluation) step(e *source.Expr, depth int) (string, error) {
	switch e.Kind {
	case source.StringLiteral:
		if len(e.Parts) == 0 {
			return "", nil
		}
		return e.Parts[0].Text, nil

	case source.TemplateLiteral:
		var b strings.Builder
		for i, part := range e.Parts {
			b.WriteString(part.Text)
			if i >= len(e.Holes) {
				continue
			}
			v, err := ev.reduce(e.Holes[i], depth+1)
			if err != nil {
				return "", err
			}
			b.WriteString(v)
		}
		return b.String(), nil

	case source.TaggedTemplate, source.Declaration:
		if e.Inner == nil {
			return "", failf("%q has no value", e.Name)
		}
		return ev.reduce(e.Inner, depth+1)

	case source.Identifier, source.ShorthandProperty, source.PropertyAccess:
		def, err := ev.defs.Definition(e.File, e.NameSpan.Start)
		if err != nil {
			return "", failf("looking up %q: %v", e.Name, err)
		}
		if def == nil {
			return "", failf("no definition found for %q", e.Name)
		}
		return ev.reduce(def, depth+1)
	}
	return "", failf("%s expression %q is not statically evaluable", e.Kind, e.Text)
}

func (ev *evaluation) dependencies() []string {
	return sortedKeys(ev.deps)
}
