package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/gqlembed"
)

const fragmentsSource = "export const USER = gql`fragment UserFields on User { id name }`;\n"

const querySource = "import { USER } from './fragments';\n" +
	"export const GET_USER = gql`query GetUser { me { ...UserFields } } ${USER}`;\n" +
	"export const BROKEN = gql`query { ${load()} }`;\n"

// newTestEngine builds an engine holding fragments.ts and query.ts.
func newTestEngine(t *testing.T, opts ...gqlembed.Option) *gqlembed.Engine {
	t.Helper()
	e, err := gqlembed.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	ctx := context.Background()
	_, err = e.UpdateFile(ctx, "fragments.ts", fragmentsSource)
	require.NoError(t, err)
	_, err = e.UpdateFile(ctx, "query.ts", querySource)
	require.NoError(t, err)
	return e
}

// --- Engine host function tests ---

func TestRunSource_Files(t *testing.T) {
	rt := NewRuntime(newTestEngine(t), "")

	script := `
paths := files()
assert(len(paths) == 2, 'expected 2 files, got {len(paths)}')
assert(paths[0] == "fragments.ts", 'unexpected first file {paths[0]}')
assert(paths[1] == "query.ts", 'unexpected second file {paths[1]}')
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestRunSource_DocumentsAndResolve(t *testing.T) {
	rt := NewRuntime(newTestEngine(t), "")

	script := `
docs := documents("query.ts")
assert(len(docs) == 2, 'expected 2 documents, got {len(docs)}')
assert(docs[0]["tag"] == "gql", "unexpected tag")
assert(docs[0]["start"] < docs[0]["end"], "empty span")

r := resolve("query.ts", docs[0]["index"])
assert(r["resolved"], "expected GetUser to resolve")
assert(len(r["errors"]) == 0, "expected no errors")
assert(len(r["dependencies"]) == 2, "expected 2 dependencies")

broken := resolve("query.ts", docs[1]["index"])
assert(!broken["resolved"], "expected BROKEN to stay unresolved")
assert(len(broken["errors"]) == 1, "expected 1 error")
assert(broken["errors"][0]["expr"] == "load()", "unexpected expr")
assert(broken["text"] == "", "unresolved text should be empty")
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestRunSource_Fragments(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.UpdateFile(context.Background(), "feed.ts",
		"export const FEED = gql`query Feed { me { ...UserFields } }`;\n")
	require.NoError(t, err)
	rt := NewRuntime(e, "")

	script := `
frags := fragments()
assert(len(frags) == 1, 'expected 1 fragment, got {len(frags)}')
assert(frags[0]["name"] == "UserFields", "unexpected name")
assert(frags[0]["file"] == "fragments.ts", "unexpected file")

// GET_USER interpolates the fragment, so its text already defines it.
inlined := external_fragments("query.ts", documents("query.ts")[0]["index"])
assert(len(inlined) == 0, 'expected no external fragments, got {len(inlined)}')

ext := external_fragments("feed.ts", documents("feed.ts")[0]["index"])
assert(len(ext) == 1, 'expected 1 external fragment, got {len(ext)}')
assert(ext[0]["name"] == "UserFields", "unexpected name")
assert(len(ext[0]["body"]) > 0, "empty body")
`
	err = rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestRunSource_Diagnostics(t *testing.T) {
	rt := NewRuntime(newTestEngine(t), "")

	script := `
diags := diagnostics("query.ts")
assert(len(diags) == 1, 'expected 1 diagnostic, got {len(diags)}')
assert(diags[0]["code"] == "unresolved-interpolation", "unexpected code")
assert(diags[0]["severity"] == "warning", "unexpected severity")
assert(len(diagnostics("fragments.ts")) == 0, "expected fragments.ts to be clean")
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestRunSource_HostFunctionErrors(t *testing.T) {
	rt := NewRuntime(newTestEngine(t), "")
	ctx := context.Background()

	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"arity", `documents()`, "documents"},
		{"path type", `documents(1)`, "expected string"},
		{"index type", `resolve("query.ts", "x")`, "expected int"},
		{"unknown file", `diagnostics("missing.ts")`, "missing.ts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rt.RunSource(ctx, tt.script, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunSource_DBQuery(t *testing.T) {
	dir := t.TempDir()
	e, err := gqlembed.New(gqlembed.WithDatabase(filepath.Join(dir, "index.db")))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	path := filepath.Join(dir, "fragments.ts")
	require.NoError(t, os.WriteFile(path, []byte(fragmentsSource), 0o644))
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))

	rt := NewRuntime(e, "")
	script := `
rows := db_query("SELECT name, type_condition FROM fragments WHERE name = ?", "UserFields")
assert(len(rows) == 1, 'expected 1 row, got {len(rows)}')
assert(rows[0]["type_condition"] == "User", "unexpected type")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))

	err = rt.RunSource(context.Background(), `db_query("DELETE FROM fragments")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only SELECT")
}

func TestRunSource_NoEngineBindsLogOnly(t *testing.T) {
	rt := NewRuntime(nil, "")
	globals := rt.buildGlobals(map[string]any{"extra": 1})
	assert.Contains(t, globals, "log")
	assert.Contains(t, globals, "extra")
	assert.NotContains(t, globals, "files")
	assert.NotContains(t, globals, "db_query")
}

func TestRunSource_NoDatabaseHidesDBQuery(t *testing.T) {
	rt := NewRuntime(newTestEngine(t), "")
	globals := rt.buildGlobals(nil)
	assert.Contains(t, globals, "resolve")
	assert.NotContains(t, globals, "db_query")
}

// --- Script loading tests ---

func TestRunScript_LoadsFile(t *testing.T) {
	dir := t.TempDir()

	scriptPath := filepath.Join(dir, "test.risor")
	if err := os.WriteFile(scriptPath, []byte(`result := 1 + 1`), 0644); err != nil {
		t.Fatalf("writing script: %v", err)
	}

	rt := NewRuntime(nil, dir)
	ctx := context.Background()

	err := rt.RunScript(ctx, "test.risor", nil)
	if err != nil {
		t.Fatalf("RunScript: %v", err)
	}
}

func TestRunScript_MissingFile(t *testing.T) {
	rt := NewRuntime(nil, t.TempDir())
	ctx := context.Background()

	err := rt.RunScript(ctx, "nonexistent.risor", nil)
	if err == nil {
		t.Fatal("expected error for missing script, got nil")
	}
}

func TestLoadScript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.risor")
	content := `x := 42`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing: %v", err)
	}

	rt := NewRuntime(nil, dir)
	got, err := rt.LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if got != content {
		t.Errorf("LoadScript = %q, want %q", got, content)
	}
}

// --- fs.FS-based script loading tests ---

func TestLoadScript_FromFSFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	mapFS := fstest.MapFS{
		"reports/dupes.risor": &fstest.MapFile{Data: []byte(content)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("reports/dupes.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS_NotFound(t *testing.T) {
	t.Parallel()

	mapFS := fstest.MapFS{}
	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	_, err := rt.LoadScript("nonexistent.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestLoadScript_FromFSFS_StripsLeadingSeparator(t *testing.T) {
	t.Parallel()

	content := `y := 99`
	mapFS := fstest.MapFS{
		"reports/dupes.risor": &fstest.MapFile{Data: []byte(content)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	// Absolute-style path should be resolved within the FS.
	got, err := rt.LoadScript("/reports/dupes.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FallsBackToDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `z := 7`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(content), 0644))

	// No WithRuntimeFS -- should fall back to disk.
	rt := NewRuntime(nil, dir)

	got, err := rt.LoadScript("test.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestRunScript_FromFSFS(t *testing.T) {
	mapFS := fstest.MapFS{
		"test.risor": &fstest.MapFile{Data: []byte(`result := 1 + 1`)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))
	err := rt.RunScript(context.Background(), "test.risor", nil)
	require.NoError(t, err)
}

// --- Importer wiring tests ---

func TestImport_FSImporter(t *testing.T) {
	// Risor's FSImporter resolves "lib_helpers" by trying name + ".risor",
	// so the file must be at the flat path "lib_helpers.risor" in the FS.
	mapFS := fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func greet(name) {
	return "hello " + name
}
`)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	script := `
import lib_helpers

msg := lib_helpers.greet("world")
assert(msg == "hello world", 'expected "hello world", got ' + msg)
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestImport_LocalImporter(t *testing.T) {
	dir := t.TempDir()

	// Write a module file to disk.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0644))

	rt := NewRuntime(nil, dir)

	script := `
import math_utils

result := math_utils.double(21)
assert(result == 42, 'expected 42, got {result}')
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestImport_GlobalsAvailableInImportedModules(t *testing.T) {
	// Verify that imported modules can reference host-provided globals.
	// The log global is always available (provided by buildGlobals).
	mapFS := fstest.MapFS{
		"helper.risor": &fstest.MapFile{Data: []byte(`
// This module references the "log" global provided by the host.
// If global names aren't passed to the importer, this will fail to compile.
func do_log(msg) {
	log.Info(msg)
}
`)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	script := `
import helper
helper.do_log("test message")
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestRunSource_NoImport_NoRegression(t *testing.T) {
	// Scripts without import statements should work regardless of importer config.
	rt := NewRuntime(nil, "")

	script := `
x := 1 + 2
assert(x == 3, 'expected 3')
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestNewRuntime_Defaults(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(nil, "/some/dir")
	require.NotNil(t, rt)
	assert.Nil(t, rt.fsys)
	assert.Equal(t, "/some/dir", rt.scriptsDir)
}
