package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/masahif/corpuscrawl/internal/storage"
)

// reportCmd rewrites the report files from the statistics saved by the last crawl
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Regenerate report files from a crawl database",
	Long: `Reads the statistics saved at the end of the last crawl from the
database and writes the text reports and summary.md again, for example
with a different --top-tokens or --output-dir.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	closer, err := setupLogging(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	// Opening would create an empty database
	if _, err := os.Stat(cfg.DatabasePath); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("no database found at %s", cfg.DatabasePath)
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", cfg.DatabasePath, err)
	}
	defer func() { _ = store.Close() }()

	snap, err := store.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("failed to load statistics: %w", err)
	}

	if cfg.Report.TopTokens < len(snap.TopTokens) {
		snap.TopTokens = snap.TopTokens[:cfg.Report.TopTokens]
	}

	if err := writeReports(cfg.Report.OutputDir, snap); err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), cfg.Report.OutputDir, snap)
	return nil
}
