package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jward/gqlembed"
)

var (
	flagForce   bool
	flagWorkers int
	flagQuiet   bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index GraphQL documents into the database",
	Long:  "Discovers tagged template literals, resolves them, and writes documents, fragment definitions and spreads to the SQLite database. Files whose content is unchanged since the last run are skipped.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
	indexCmd.Flags().IntVar(&flagWorkers, "workers", 0, "file reader goroutines (default: number of CPUs)")
	indexCmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "hide the progress bar")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot)

	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dbDir, err)
	}
	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	opts := []gqlembed.Option{gqlembed.WithWorkers(flagWorkers)}
	if !flagQuiet {
		opts = append(opts, gqlembed.WithProgress(newProgress()))
	}
	engine, err := openEngine(targetDir, dbPath, opts...)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.IndexDirectory(context.Background(), targetDir); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %s in %s (%d files, %d fragments)\n",
		targetDir,
		time.Since(start).Round(time.Millisecond),
		len(engine.Files()),
		len(engine.Fragments()),
	)
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	return nil
}

// newProgress returns a progress callback drawing a bar on stderr. The bar
// is created on the first call, once the total is known.
func newProgress() func(done, total int, path string) {
	var bar *progressbar.ProgressBar
	return func(done, total int, path string) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}
		_ = bar.Set(done)
	}
}
