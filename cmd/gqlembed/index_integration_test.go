package main_test

import (
	"database/sql"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles the gqlembed binary and returns the path.
// The binary is placed in t.TempDir() so it's cleaned up automatically.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "gqlembed"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "gqlembed")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot walks up from the test file's directory to find go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "could not find project root")
		dir = parent
	}
}

// createFixture creates a repo with a .git dir, a fragment file and a
// query file importing it.
func createFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	write := func(name, text string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644))
	}
	write("fragments.ts", "export const USER = gql`fragment UserFields on User { id name }`;\n")
	write("query.ts", "import { USER } from './fragments';\n"+
		"export const Q = gql`query Q { me { ...UserFields } } ${USER}`;\n")
	return dir
}

func run(t *testing.T, bin, dir string, args ...string) ([]byte, error) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	return cmd.Output()
}

func openDB(t *testing.T, dbPath string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestIndex_CreatesDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createFixture(t)

	out, err := run(t, bin, fixture, "index", "-q", fixture)
	require.NoError(t, err, "index failed: %s", string(out))

	dbPath := filepath.Join(fixture, ".gqlembed", "index.db")
	_, err = os.Stat(dbPath)
	require.NoError(t, err, ".gqlembed/index.db should exist")

	db := openDB(t, dbPath)
	assert.Equal(t, 2, count(t, db, "files"))
	assert.Equal(t, 2, count(t, db, "documents"))
	assert.Equal(t, 1, count(t, db, "fragments"))
	assert.Equal(t, 1, count(t, db, "spreads"))
}

func TestQuery_AfterIndex(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createFixture(t)

	out, err := run(t, bin, fixture, "index", "-q", fixture)
	require.NoError(t, err, "index failed: %s", string(out))

	out, err = run(t, bin, fixture, "--format", "json", "query", "fragments", "--name", "UserFields")
	require.NoError(t, err, "query failed: %s", string(out))
	var frags struct {
		Command string `json:"command"`
		Results []struct {
			Name          string `json:"name"`
			TypeCondition string `json:"type_condition"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(out, &frags))
	assert.Equal(t, "fragments", frags.Command)
	require.Len(t, frags.Results, 1)
	assert.Equal(t, "User", frags.Results[0].TypeCondition)

	out, err = run(t, bin, fixture, "--format", "json", "query", "affected", "fragments.ts")
	require.NoError(t, err, "query failed: %s", string(out))
	var affected struct {
		Results []string `json:"results"`
	}
	require.NoError(t, json.Unmarshal(out, &affected))
	assert.Equal(t, []string{filepath.Join(fixture, "query.ts")}, affected.Results)
}

func TestQuery_WithoutDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createFixture(t)

	out, err := run(t, bin, fixture, "--format", "json", "query", "fragments")
	require.Error(t, err)
	var result struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(out, &result))
	assert.Contains(t, result.Error, "database not found")
}

func TestCheck_ExitCode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createFixture(t)

	out, err := run(t, bin, fixture, "--format", "json", "check", fixture)
	require.NoError(t, err, "clean fixture should pass: %s", string(out))

	require.NoError(t, os.WriteFile(filepath.Join(fixture, "broken.ts"),
		[]byte("export const B = gql`query { me { `;\n"), 0o644))
	out, err = run(t, bin, fixture, "--format", "json", "check", fixture)
	require.Error(t, err)

	var result struct {
		Results []struct {
			File string `json:"file"`
			Code string `json:"code"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(out, &result))
	require.Len(t, result.Results, 1)
	assert.Equal(t, "broken.ts", result.Results[0].File)
	assert.Equal(t, "syntax", result.Results[0].Code)
}

func TestRun_Script(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createFixture(t)

	script := filepath.Join(t.TempDir(), "report.risor")
	require.NoError(t, os.WriteFile(script, []byte(`
frags := fragments()
assert(len(frags) == 1, "expected one fragment")
print(frags[0]["name"])
`), 0o644))

	out, err := run(t, bin, fixture, "run", script, fixture)
	require.NoError(t, err, "run failed: %s", string(out))
	assert.Contains(t, string(out), "UserFields")
}
