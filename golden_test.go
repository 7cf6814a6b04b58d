package gqlembed

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

// Golden test format.
type goldenFile struct {
	Fragments   []string         `json:"fragments"`
	Documents   []goldenDocument `json:"documents,omitempty"`
	Diagnostics []goldenDiag     `json:"diagnostics,omitempty"`
}

type goldenDocument struct {
	File         string   `json:"file"`
	Index        int      `json:"index"`
	External     []string `json:"external"`
	Dependencies []string `json:"dependencies,omitempty"`
}

type goldenDiag struct {
	File string `json:"file"`
	Code string `json:"code"`
	Text string `json:"text,omitempty"`
}

// TestGolden walks testdata/{language}/ directories and runs every level
// that has a golden.json next to a src/ directory.
func TestGolden(t *testing.T) {
	langDirs, err := os.ReadDir("testdata")
	if err != nil {
		t.Skip("no testdata directory found")
	}

	for _, langDir := range langDirs {
		if !langDir.IsDir() {
			continue
		}
		langRoot := filepath.Join("testdata", langDir.Name())
		levels, err := os.ReadDir(langRoot)
		if err != nil {
			continue
		}
		for _, level := range levels {
			if !level.IsDir() {
				continue
			}
			testDir := filepath.Join(langRoot, level.Name())
			goldenPath := filepath.Join(testDir, "golden.json")
			srcDir := filepath.Join(testDir, "src")
			if _, err := os.Stat(goldenPath); err != nil {
				continue
			}
			t.Run(langDir.Name()+"/"+level.Name(), func(t *testing.T) {
				runGoldenTest(t, srcDir, goldenPath)
			})
		}
	}
}

func runGoldenTest(t *testing.T, srcDir, goldenPath string) {
	t.Helper()

	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	var golden goldenFile
	require.NoError(t, json.Unmarshal(data, &golden))

	e, err := New(WithDatabase(filepath.Join(t.TempDir(), "golden.db")))
	require.NoError(t, err)
	defer e.Close()
	require.NoError(t, e.IndexDirectory(context.Background(), srcDir))

	rel := func(p string) string {
		r, err := filepath.Rel(srcDir, filepath.FromSlash(p))
		require.NoError(t, err)
		return filepath.ToSlash(r)
	}
	sorted := cmpopts.SortSlices(func(a, b string) bool { return a < b })

	t.Run("fragments", func(t *testing.T) {
		var names []string
		for _, f := range e.Fragments() {
			names = append(names, f.Name)
		}
		if diff := cmp.Diff(golden.Fragments, names, sorted, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("fragments mismatch (-want +got):\n%s", diff)
		}
	})

	for _, want := range golden.Documents {
		t.Run("documents/"+want.File, func(t *testing.T) {
			refs := e.Documents(filepath.Join(srcDir, want.File))
			require.Greater(t, len(refs), want.Index)
			key := refs[want.Index].Key

			doc, unresolved, err := e.Resolve(key)
			require.NoError(t, err)
			require.Empty(t, unresolved)
			require.NotNil(t, doc)

			ext, err := e.ExternalFragments(key)
			require.NoError(t, err)
			var names []string
			for _, def := range ext {
				names = append(names, def.Name)
			}
			if diff := cmp.Diff(want.External, names, sorted, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("external fragments of #%d mismatch (-want +got):\n%s", want.Index, diff)
			}

			if want.Dependencies != nil {
				var deps []string
				for _, d := range doc.Dependencies {
					deps = append(deps, rel(d))
				}
				if diff := cmp.Diff(want.Dependencies, deps); diff != "" {
					t.Errorf("dependencies of #%d mismatch (-want +got):\n%s", want.Index, diff)
				}
			}
		})
	}

	if golden.Diagnostics != nil {
		t.Run("diagnostics", func(t *testing.T) {
			files := e.Files()
			sort.Strings(files)
			var got []goldenDiag
			for _, file := range files {
				text, ok := e.Project().FileText(file)
				require.True(t, ok)
				diags, err := e.Diagnostics(file)
				require.NoError(t, err)
				for _, d := range diags {
					g := goldenDiag{File: rel(file), Code: d.Code}
					if d.Code != CodeSyntax {
						g.Text = text[d.Span.Start:d.Span.End]
					}
					got = append(got, g)
				}
			}
			if diff := cmp.Diff(golden.Diagnostics, got); diff != "" {
				t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
			}
		})
	}

	// Everything indexed is also persisted.
	q, err := e.Query()
	require.NoError(t, err)
	stored, err := q.Fragments()
	require.NoError(t, err)
	var storedNames []string
	for _, f := range stored {
		storedNames = append(storedNames, f.Name)
	}
	if diff := cmp.Diff(golden.Fragments, storedNames, sorted, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("stored fragments mismatch (-want +got):\n%s", diff)
	}
}
