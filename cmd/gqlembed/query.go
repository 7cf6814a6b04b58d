package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/gqlembed"
	"github.com/jward/gqlembed/internal/store"
)

var flagName string

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the fragment index",
	Long:  "Run queries against the database written by 'gqlembed index'. File arguments are resolved to absolute paths.",
}

var queryFragmentsCmd = &cobra.Command{
	Use:   "fragments",
	Short: "List stored fragment definitions",
	Args:  cobra.NoArgs,
	RunE:  runQueryFragments,
}

var queryDuplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "List fragment names defined more than once",
	Args:  cobra.NoArgs,
	RunE:  runQueryDuplicates,
}

var queryDocumentsCmd = &cobra.Command{
	Use:   "documents <file>",
	Short: "List the stored documents of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryDocuments,
}

var queryAffectedCmd = &cobra.Command{
	Use:   "affected <file>",
	Short: "List files spreading a fragment defined in <file>",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryAffected,
}

func init() {
	queryFragmentsCmd.Flags().StringVar(&flagName, "name", "", "only definitions of this fragment name")

	queryCmd.AddCommand(queryFragmentsCmd)
	queryCmd.AddCommand(queryDuplicatesCmd)
	queryCmd.AddCommand(queryDocumentsCmd)
	queryCmd.AddCommand(queryAffectedCmd)
}

// --- Helpers ---

// openStore opens the Store from the --db flag path (or default).
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'gqlembed index' first)", dbPath)
	}
	return store.NewStore(dbPath)
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

func toCLIFragments(locs []*gqlembed.FragmentLocation) []CLIFragment {
	out := make([]CLIFragment, len(locs))
	for i, l := range locs {
		out[i] = CLIFragment{
			Name:          l.Name,
			TypeCondition: l.TypeCondition,
			File:          l.Path,
			Body:          l.Body,
		}
	}
	return out
}

// --- Commands ---

func runQueryFragments(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("fragments", err)
	}
	defer s.Close()

	qb := gqlembed.NewQueryBuilder(s)
	var locs []*gqlembed.FragmentLocation
	if flagName != "" {
		locs, err = qb.FragmentsByName(flagName)
	} else {
		locs, err = qb.Fragments()
	}
	if err != nil {
		return outputError("fragments", err)
	}
	return outputResult(CLIResult{Command: "fragments", Results: toCLIFragments(locs)})
}

func runQueryDuplicates(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("duplicates", err)
	}
	defer s.Close()

	dups, err := gqlembed.NewQueryBuilder(s).Duplicates()
	if err != nil {
		return outputError("duplicates", err)
	}
	out := make(map[string][]CLIFragment, len(dups))
	for name, locs := range dups {
		out[name] = toCLIFragments(locs)
	}
	return outputResult(CLIResult{Command: "duplicates", Results: out})
}

func runQueryDocuments(cmd *cobra.Command, args []string) error {
	file, err := resolveFilePath(args[0])
	if err != nil {
		return outputError("documents", err)
	}
	s, err := openStore()
	if err != nil {
		return outputError("documents", err)
	}
	defer s.Close()

	docs, err := gqlembed.NewQueryBuilder(s).DocumentsIn(file)
	if err != nil {
		return outputError("documents", err)
	}
	if docs == nil {
		return outputError("documents", fmt.Errorf("file not indexed: %s", args[0]))
	}
	out := make([]CLIStoredDocument, len(docs))
	for i, d := range docs {
		out[i] = CLIStoredDocument{
			File:     d.Path,
			Ordinal:  d.Ordinal,
			Start:    d.StartOffset,
			End:      d.EndOffset,
			Resolved: d.Resolved,
			Text:     d.Text,
			Error:    d.Error,
		}
	}
	return outputResult(CLIResult{Command: "documents", Results: out})
}

func runQueryAffected(cmd *cobra.Command, args []string) error {
	file, err := resolveFilePath(args[0])
	if err != nil {
		return outputError("affected", err)
	}
	s, err := openStore()
	if err != nil {
		return outputError("affected", err)
	}
	defer s.Close()

	files, err := gqlembed.NewQueryBuilder(s).AffectedBy(file)
	if err != nil {
		return outputError("affected", err)
	}
	if files == nil {
		files = []string{}
	}
	return outputResult(CLIResult{Command: "affected", Results: files})
}
