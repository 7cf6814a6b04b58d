package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/gqlembed"
)

var flagDuplicates bool

var fragmentsCmd = &cobra.Command{
	Use:   "fragments [path]",
	Short: "List fragment definitions",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFragments,
}

func init() {
	fragmentsCmd.Flags().BoolVar(&flagDuplicates, "duplicates", false, "only names defined more than once, grouped by name")
}

func runFragments(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("fragments", err)
	}
	engine, err := openEngine(targetDir, "")
	if err != nil {
		return outputError("fragments", err)
	}
	defer engine.Close()

	if err := engine.IndexDirectory(context.Background(), targetDir); err != nil {
		return outputError("fragments", fmt.Errorf("indexing: %w", err))
	}

	frags := liveFragments(engine, targetDir)
	if !flagDuplicates {
		return outputResult(CLIResult{Command: "fragments", Results: frags})
	}

	byName := make(map[string][]CLIFragment)
	for _, f := range frags {
		byName[f.Name] = append(byName[f.Name], f)
	}
	for name, defs := range byName {
		if len(defs) < 2 {
			delete(byName, name)
		}
	}
	return outputResult(CLIResult{Command: "fragments", Results: byName})
}

// liveFragments lists the engine's fragments with paths relative to root.
// Line is the line of the literal holding the definition.
func liveFragments(engine *gqlembed.Engine, root string) []CLIFragment {
	out := []CLIFragment{}
	for _, f := range engine.Fragments() {
		text, _ := engine.Project().FileText(f.File)
		line, _ := lineCol(text, f.Offset)
		cf := CLIFragment{
			Name: f.Name,
			File: relPath(root, f.File),
			Line: line,
			Body: f.Body,
		}
		if f.Node != nil {
			cf.TypeCondition = f.Node.TypeCondition
		}
		out = append(out, cf)
	}
	return out
}
