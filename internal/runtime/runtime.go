// Package runtime runs Risor report scripts against an Engine. Scripts see
// the engine's files, documents, fragments and diagnostics as globals, and
// the batch index through db_query when the engine has a database.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	"github.com/tliron/commonlog"

	"github.com/jward/gqlembed"
)

// Runtime embeds a Risor VM and exposes an Engine to report scripts.
type Runtime struct {
	engine     *gqlembed.Engine
	scriptsDir string
	fsys       fs.FS
	log        commonlog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithRuntimeLogger sets the logger behind the scripts' log global.
func WithRuntimeLogger(log commonlog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.log = log
	}
}

// NewRuntime creates a Runtime over e, loading relative script paths and
// imports from scriptsDir. e may be nil, in which case only log is bound.
func NewRuntime(e *gqlembed.Engine, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		engine:     e,
		scriptsDir: scriptsDir,
		log:        commonlog.GetLogger("gqlembed.script"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads and executes a Risor script with all standard globals
// plus any extra globals provided by the caller.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals. Useful for testing without script files.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) error {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter returns a Risor importer configured for the Runtime's
// script source, or nil when neither an fs.FS nor a scripts directory is
// configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code. With an
// fs.FS configured the path is read from it; otherwise relative paths are
// taken from scriptsDir.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) && r.scriptsDir != "" {
		fullPath = filepath.Join(r.scriptsDir, path)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"log": mustProxy(&logObject{log: r.log}),
	}

	if e := r.engine; e != nil {
		globals["files"] = makeFilesFn(e)
		globals["documents"] = makeDocumentsFn(e)
		globals["resolve"] = makeResolveFn(e)
		globals["fragments"] = makeFragmentsFn(e)
		globals["external_fragments"] = makeExternalFragmentsFn(e)
		globals["diagnostics"] = makeDiagnosticsFn(e)

		if s := e.Store(); s != nil {
			globals["db_query"] = makeDBQueryFn(s)
		}
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	log commonlog.Logger
}

func (l *logObject) Info(msg string) {
	l.log.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.log.Warning(msg)
}

func (l *logObject) Error(msg string) {
	l.log.Error(msg)
}
