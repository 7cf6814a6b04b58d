package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/gqlembed"
)

var flagWarningsAsErrors bool

var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Report diagnostics for embedded GraphQL documents",
	Long:  "Reports syntax errors, duplicate fragment definitions, unknown fragment spreads and interpolations that cannot be resolved. Exits non-zero when any error is found.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&flagWarningsAsErrors, "strict", false, "treat warnings as errors")
}

func runCheck(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("check", err)
	}
	engine, err := openEngine(targetDir, "")
	if err != nil {
		return outputError("check", err)
	}
	defer engine.Close()

	if err := engine.IndexDirectory(context.Background(), targetDir); err != nil {
		return outputError("check", fmt.Errorf("indexing: %w", err))
	}

	diags, failed, err := collectDiagnostics(engine, targetDir)
	if err != nil {
		return outputError("check", err)
	}
	if err := outputResult(CLIResult{Command: "check", Results: diags}); err != nil {
		return err
	}
	if failed {
		errorHandled = true
		return errFindings
	}
	return nil
}

// collectDiagnostics gathers the diagnostics of every file held by engine,
// with paths relative to root. failed reports whether any counts as an
// error under --strict.
func collectDiagnostics(engine *gqlembed.Engine, root string) ([]CLIDiagnostic, bool, error) {
	out := []CLIDiagnostic{}
	failed := false
	for _, file := range engine.Files() {
		diags, err := engine.Diagnostics(file)
		if err != nil {
			return nil, false, err
		}
		text, _ := engine.Project().FileText(file)
		for _, d := range diags {
			line, col := lineCol(text, d.Span.Start)
			out = append(out, CLIDiagnostic{
				File:     relPath(root, file),
				Line:     line,
				Col:      col,
				Start:    d.Span.Start,
				End:      d.Span.End,
				Severity: d.Severity.String(),
				Code:     d.Code,
				Message:  d.Message,
			})
			if d.Severity == gqlembed.SeverityError || flagWarningsAsErrors {
				failed = true
			}
		}
	}
	return out, failed, nil
}

// relPath returns path relative to root when it lies under it.
func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}
