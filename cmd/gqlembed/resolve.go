package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/gqlembed"
)

var flagRoot string

var resolveCmd = &cobra.Command{
	Use:   "resolve <file> [index]",
	Short: "Print the resolved text of a file's GraphQL documents",
	Long:  "Indexes the project holding <file> so imports can be followed, then prints each document of <file> with its interpolations substituted. With [index] only that document is printed.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&flagRoot, "root", "", "project root to index (default: repo root of <file>)")
}

func runResolve(cmd *cobra.Command, args []string) error {
	file, err := filepath.Abs(args[0])
	if err != nil {
		return outputError("resolve", fmt.Errorf("resolving file path %q: %w", args[0], err))
	}
	index := -1
	if len(args) == 2 {
		if index, err = strconv.Atoi(args[1]); err != nil || index < 0 {
			return outputError("resolve", fmt.Errorf("invalid index %q: must be a non-negative integer", args[1]))
		}
	}

	root := flagRoot
	if root == "" {
		root = findRepoRoot(filepath.Dir(file))
	}
	root, err = resolveTargetDir([]string{root})
	if err != nil {
		return outputError("resolve", err)
	}

	engine, err := openEngine(root, "")
	if err != nil {
		return outputError("resolve", err)
	}
	defer engine.Close()

	ctx := context.Background()
	if err := engine.IndexDirectory(ctx, root); err != nil {
		return outputError("resolve", fmt.Errorf("indexing: %w", err))
	}
	// The file may sit outside the include patterns.
	if err := engine.IndexFiles(ctx, []string{file}); err != nil {
		return outputError("resolve", err)
	}

	docs, err := resolveDocuments(engine, root, file, index)
	if err != nil {
		return outputError("resolve", err)
	}
	return outputResult(CLIResult{Command: "resolve", Results: docs})
}

// resolveDocuments resolves the documents of file, or only the one at
// index when index is not negative.
func resolveDocuments(engine *gqlembed.Engine, root, file string, index int) ([]CLIDocument, error) {
	refs := engine.Documents(file)
	if index >= len(refs) {
		return nil, fmt.Errorf("%s has %d document(s), no index %d", file, len(refs), index)
	}
	text, _ := engine.Project().FileText(file)

	out := []CLIDocument{}
	for i, ref := range refs {
		if index >= 0 && i != index {
			continue
		}
		line, _ := lineCol(text, ref.Span.Start)
		cd := CLIDocument{File: relPath(root, file), Index: i, Tag: ref.Tag, Line: line}

		doc, unresolved, err := engine.Resolve(ref.Key)
		if err != nil {
			return nil, err
		}
		for _, re := range unresolved {
			l, c := lineCol(text, re.Span.Start)
			cd.Errors = append(cd.Errors, CLIResolveErr{Expr: re.Expr, Reason: re.Reason, Line: l, Col: c})
		}
		if doc != nil {
			cd.Resolved = true
			cd.Text = doc.Text
			for _, dep := range doc.Dependencies {
				cd.Dependencies = append(cd.Dependencies, relPath(root, dep))
			}
			ext, err := engine.ExternalFragments(ref.Key)
			if err != nil {
				return nil, err
			}
			for _, def := range ext {
				cd.External = append(cd.External, def.Name)
			}
		}
		out = append(out, cd)
	}
	return out, nil
}
