package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/jward/gqlembed"
	"github.com/jward/gqlembed/internal/config"
)

var (
	flagDB      string
	flagFormat  string
	flagConfig  string
	flagVerbose int
	flagNoColor bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "gqlembed",
	Short:         "Resolve GraphQL documents embedded in TypeScript and JavaScript",
	Long:          "gqlembed finds tagged GraphQL template literals, resolves their interpolations across imports, and tracks fragment definitions in a SQLite index.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagNoColor {
			color.NoColor = true
		}
		return validateFormat(flagFormat)
	},
	// No Run, so help is printed by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .gqlembed/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: "+config.FileName+" in the target directory)")
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "increase log verbosity (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored text output")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fragmentsCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(runCmd)
}

// loadConfig reads the --config file, or the config file in targetDir, and
// configures logging from it. The -v count raises the configured level.
func loadConfig(targetDir string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flagConfig != "" {
		if _, statErr := os.Stat(flagConfig); statErr != nil {
			return nil, fmt.Errorf("config not found: %s", flagConfig)
		}
		cfg, err = config.Load(flagConfig)
	} else {
		cfg, err = config.LoadFromDir(targetDir)
	}
	if err != nil {
		return nil, err
	}

	var logPath *string
	if cfg.Log.File != "" {
		logPath = &cfg.Log.File
	}
	commonlog.Configure(max(cfg.Log.Level, flagVerbose), logPath)
	return cfg, nil
}

// openEngine loads the config for targetDir and creates an engine over
// it. dbPath may be empty for an in-memory session.
func openEngine(targetDir, dbPath string, opts ...gqlembed.Option) (*gqlembed.Engine, error) {
	cfg, err := loadConfig(targetDir)
	if err != nil {
		return nil, err
	}
	all := []gqlembed.Option{gqlembed.WithConfig(cfg)}
	if dbPath != "" {
		all = append(all, gqlembed.WithDatabase(dbPath))
	}
	e, err := gqlembed.New(append(all, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return e, nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, ".gqlembed", "index.db")
}

// existingDBPath returns the database path for repoRoot when the file
// exists, or "" otherwise.
func existingDBPath(repoRoot string) string {
	p := resolveDBPath(repoRoot)
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

// errFindings is returned by check when error diagnostics were reported.
// The diagnostics themselves are the output, so main prints nothing more.
var errFindings = errors.New("errors found")
