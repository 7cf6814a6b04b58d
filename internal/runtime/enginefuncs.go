package runtime

import (
	"context"

	"github.com/risor-io/risor/object"

	"github.com/jward/gqlembed"
	"github.com/jward/gqlembed/internal/fragments"
)

// Engine host functions. Results are built from Risor maps and lists so
// scripts never hold Go pointers into the engine.

// files() → [path]
func makeFilesFn(e *gqlembed.Engine) *object.Builtin {
	return object.NewBuiltin("files", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("files", 0, len(args))
		}
		return stringList(e.Files())
	})
}

// documents(path) → [{index, tag, start, end}]
func makeDocumentsFn(e *gqlembed.Engine) *object.Builtin {
	return object.NewBuiltin("documents", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("documents", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("documents: path: %v", err)
		}

		refs := e.Documents(path)
		out := make([]object.Object, len(refs))
		for i, ref := range refs {
			out[i] = object.NewMap(map[string]object.Object{
				"index": object.NewInt(int64(ref.Key.ID)),
				"tag":   object.NewString(ref.Tag),
				"start": object.NewInt(int64(ref.Span.Start)),
				"end":   object.NewInt(int64(ref.Span.End)),
			})
		}
		return object.NewList(out)
	})
}

// resolve(path, index) → {resolved, text, dependencies, errors}
//
// errors lists {expr, reason, start, end} for each hole that did not
// resolve; text and dependencies are set only when resolved is true.
func makeResolveFn(e *gqlembed.Engine) *object.Builtin {
	return object.NewBuiltin("resolve", func(ctx context.Context, args ...object.Object) object.Object {
		key, errObj := nodeKey("resolve", args)
		if errObj != nil {
			return errObj
		}

		doc, unresolved, err := e.Resolve(key)
		if err != nil {
			return object.Errorf("resolve: %v", err)
		}

		errs := make([]object.Object, len(unresolved))
		for i, re := range unresolved {
			errs[i] = object.NewMap(map[string]object.Object{
				"expr":   object.NewString(re.Expr),
				"reason": object.NewString(re.Reason),
				"start":  object.NewInt(int64(re.Span.Start)),
				"end":    object.NewInt(int64(re.Span.End)),
			})
		}
		result := map[string]object.Object{
			"resolved":     object.NewBool(doc != nil),
			"text":         object.NewString(""),
			"dependencies": object.NewList(nil),
			"errors":       object.NewList(errs),
		}
		if doc != nil {
			result["text"] = object.NewString(doc.Text)
			result["dependencies"] = stringList(doc.Dependencies)
		}
		return object.NewMap(result)
	})
}

// fragments() → [{name, file, offset, body}]
func makeFragmentsFn(e *gqlembed.Engine) *object.Builtin {
	return object.NewBuiltin("fragments", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("fragments", 0, len(args))
		}
		frags := e.Fragments()
		out := make([]object.Object, len(frags))
		for i, f := range frags {
			out[i] = object.NewMap(map[string]object.Object{
				"name":   object.NewString(f.Name),
				"file":   object.NewString(f.File),
				"offset": object.NewInt(int64(f.Offset)),
				"body":   object.NewString(f.Body),
			})
		}
		return object.NewList(out)
	})
}

// external_fragments(path, index) → [{name, body}]
func makeExternalFragmentsFn(e *gqlembed.Engine) *object.Builtin {
	return object.NewBuiltin("external_fragments", func(ctx context.Context, args ...object.Object) object.Object {
		key, errObj := nodeKey("external_fragments", args)
		if errObj != nil {
			return errObj
		}
		defs, err := e.ExternalFragments(key)
		if err != nil {
			return object.Errorf("external_fragments: %v", err)
		}
		out := make([]object.Object, len(defs))
		for i, def := range defs {
			out[i] = object.NewMap(map[string]object.Object{
				"name": object.NewString(def.Name),
				"body": object.NewString(fragments.Print(def)),
			})
		}
		return object.NewList(out)
	})
}

// diagnostics(path) → [{file, start, end, severity, code, message}]
func makeDiagnosticsFn(e *gqlembed.Engine) *object.Builtin {
	return object.NewBuiltin("diagnostics", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("diagnostics", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("diagnostics: path: %v", err)
		}
		diags, err := e.Diagnostics(path)
		if err != nil {
			return object.Errorf("diagnostics: %v", err)
		}
		out := make([]object.Object, len(diags))
		for i, d := range diags {
			out[i] = object.NewMap(map[string]object.Object{
				"file":     object.NewString(d.File),
				"start":    object.NewInt(int64(d.Span.Start)),
				"end":      object.NewInt(int64(d.Span.End)),
				"severity": object.NewString(d.Severity.String()),
				"code":     object.NewString(d.Code),
				"message":  object.NewString(d.Message),
			})
		}
		return object.NewList(out)
	})
}

// nodeKey reads the (path, index) arguments shared by resolve and
// external_fragments.
func nodeKey(name string, args []object.Object) (gqlembed.NodeKey, object.Object) {
	if len(args) != 2 {
		return gqlembed.NodeKey{}, object.NewArgsError(name, 2, len(args))
	}
	path, err := toString(args[0])
	if err != nil {
		return gqlembed.NodeKey{}, object.Errorf("%s: path: %v", name, err)
	}
	index, err := toInt64(args[1])
	if err != nil {
		return gqlembed.NodeKey{}, object.Errorf("%s: index: %v", name, err)
	}
	return gqlembed.NodeKey{File: path, ID: int(index)}, nil
}

func stringList(ss []string) *object.List {
	out := make([]object.Object, len(ss))
	for i, s := range ss {
		out[i] = object.NewString(s)
	}
	return object.NewList(out)
}
