package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/gqlembed/internal/runtime"
)

var runCmd = &cobra.Command{
	Use:   "run <script.risor> [path]",
	Short: "Run a Risor report script over the indexed project",
	Long: `Indexes [path], then runs the script with these globals:

  files()                       held file paths
  documents(path)               [{index, tag, start, end}]
  resolve(path, index)          {resolved, text, dependencies, errors}
  fragments()                   [{name, file, offset, body}]
  external_fragments(path, i)   [{name, body}]
  diagnostics(path)             [{file, start, end, severity, code, message}]
  db_query(sql, args...)        rows, when a database exists
  root                          the indexed directory

Imports resolve relative to the script's directory.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	script, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving script path %q: %w", args[0], err)
	}
	targetDir, err := resolveTargetDir(args[1:])
	if err != nil {
		return err
	}

	engine, err := openEngine(targetDir, existingDBPath(findRepoRoot(targetDir)))
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	if err := engine.IndexDirectory(ctx, targetDir); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	rt := runtime.NewRuntime(engine, filepath.Dir(script))
	return rt.RunScript(ctx, filepath.Base(script), map[string]any{"root": targetDir})
}
