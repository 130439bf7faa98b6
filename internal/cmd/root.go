// Package cmd provides the command-line interface for CorpusCrawl.
// It handles command parsing, configuration loading, logging setup, crawler
// execution and report output.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/masahif/corpuscrawl/internal/config"
	"github.com/masahif/corpuscrawl/internal/crawler"
	"github.com/masahif/corpuscrawl/internal/logging"
	"github.com/masahif/corpuscrawl/internal/report"
	"github.com/masahif/corpuscrawl/internal/stats"
	"github.com/masahif/corpuscrawl/internal/storage"
)

const defaultUserAgent = "CorpusCrawl/1.0"

var (
	cfgFile   string
	version   string
	buildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "corpuscrawl [URLs...]",
	Short: "A polite crawler that builds text statistics for a set of domains",
	Long: `CorpusCrawl crawls a bounded set of academic domains and builds
corpus statistics: unique pages, the longest page, the most common words
and page counts per subdomain.

Near-duplicate pages are skipped using 64-bit simhash fingerprints.
Without URL arguments the configured seed URLs are used.`,
	Args:          cobra.ArbitraryArgs,
	RunE:          runCrawler,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := config.DefaultConfig()

	// Shared by all commands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./corpuscrawl.yml)")
	rootCmd.PersistentFlags().StringP("database", "d", defaults.DatabasePath, "Path to SQLite database file")
	rootCmd.PersistentFlags().StringP("output-dir", "o", defaults.Report.OutputDir, "Directory for report files")
	rootCmd.PersistentFlags().Int("top-tokens", defaults.Report.TopTokens, "Number of most common words reported")
	rootCmd.PersistentFlags().String("log-level", defaults.Log.Level, "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", defaults.Log.Format, "Log format: text or json")
	rootCmd.PersistentFlags().String("log-file", defaults.Log.File, "Also write logs to this size-rotated file")

	// Configuration management flags
	rootCmd.Flags().Bool("show-config", false, "Display current configuration in YAML format and exit")

	// Crawling flags
	rootCmd.Flags().IntP("concurrency", "c", defaults.Concurrency, "Number of concurrent workers")
	rootCmd.Flags().DurationP("delay", "r", defaults.RequestDelay, "Delay between requests to the same host")
	rootCmd.Flags().DurationP("timeout", "t", defaults.RequestTimeout, "HTTP request timeout")
	rootCmd.Flags().StringP("user-agent", "u", defaultUserAgent, "HTTP User-Agent header")
	rootCmd.Flags().StringSliceP("header", "H", []string{}, "Custom HTTP headers in 'Name: Value' format (use multiple times for multiple headers)")
	rootCmd.Flags().IntP("limit", "l", defaults.Limit, "Stop after N pages (0=unlimited)")

	// Filter flags
	rootCmd.Flags().StringSlice("allowed-domain", defaults.Filter.AllowedDomains, "Host suffixes eligible for crawling")
	rootCmd.Flags().String("root-domain", defaults.Filter.RootDomain, "Domain whose subdomains are counted")
	rootCmd.Flags().String("date-mode", defaults.Filter.DateMode, "Date exclusion: before, any or off")
	rootCmd.Flags().String("date-cutoff", defaults.Filter.DateCutoff, "Cutoff month (YYYY-MM) for --date-mode=before")

	// Content flags
	rootCmd.Flags().Int("min-text-length", defaults.Content.MinTextLength, "Minimum normalized text length of a valid page")
	rootCmd.Flags().Int("min-token-length", defaults.Content.MinTokenLength, "Minimum length of a counted word")
	rootCmd.Flags().Int("similarity-threshold", defaults.Content.SimilarityThreshold, "Maximum fingerprint distance of a near-duplicate")

	bindFlags := []struct {
		viperKey   string
		flagName   string
		persistent bool
	}{
		{"database_path", "database", true},
		{"report.output_dir", "output-dir", true},
		{"report.top_tokens", "top-tokens", true},
		{"log.level", "log-level", true},
		{"log.format", "log-format", true},
		{"log.file", "log-file", true},
		{"concurrency", "concurrency", false},
		{"request_delay", "delay", false},
		{"request_timeout", "timeout", false},
		{"user_agent", "user-agent", false},
		{"headers", "header", false},
		{"limit", "limit", false},
		{"filter.allowed_domains", "allowed-domain", false},
		{"filter.root_domain", "root-domain", false},
		{"filter.date_mode", "date-mode", false},
		{"filter.date_cutoff", "date-cutoff", false},
		{"content.min_text_length", "min-text-length", false},
		{"content.min_token_length", "min-token-length", false},
		{"content.similarity_threshold", "similarity-threshold", false},
	}

	for _, bind := range bindFlags {
		flags := rootCmd.Flags()
		if bind.persistent {
			flags = rootCmd.PersistentFlags()
		}
		if err := viper.BindPFlag(bind.viperKey, flags.Lookup(bind.flagName)); err != nil {
			// Log the error but continue - non-critical for operation
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}

	rootCmd.AddCommand(reportCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in current directory
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("corpuscrawl")
	}

	viper.SetEnvPrefix("CC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func generateUserAgent() string {
	if version != "" && version != "dev" {
		return fmt.Sprintf("CorpusCrawl/%s", version)
	}
	return "CorpusCrawl/dev"
}

// loadConfig merges defaults, config file, environment and flags.
// URL arguments replace the configured seeds.
func loadConfig(args []string) (*config.CrawlConfig, error) {
	cfg := config.DefaultConfig()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(args) > 0 {
		cfg.SeedURLs = args
	}
	return cfg, nil
}

// setupLogging installs the configured logger as the slog default
func setupLogging(cfg config.LogConfig) (io.Closer, error) {
	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(cfg.Level)
	logCfg.Format = strings.ToLower(cfg.Format)
	logCfg.FilePath = cfg.File
	if cfg.MaxSize > 0 {
		logCfg.MaxSize = cfg.MaxSize
	}
	if cfg.MaxBackups > 0 {
		logCfg.MaxBackups = cfg.MaxBackups
	}

	closer, err := logging.SetDefault(*logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return closer, nil
}

func showCurrentConfig(w io.Writer, cfg *config.CrawlConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	// Validate configuration before showing it
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Configuration validation failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "Displaying configuration anyway...\n\n")
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Fprintf(w, "# Current CorpusCrawl Configuration\n")
	fmt.Fprintf(w, "# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "# Configuration file search paths: ./corpuscrawl.yml\n")
	fmt.Fprintf(w, "# Environment variables prefix: CC_\n\n")

	fmt.Fprint(w, string(yamlData))

	fmt.Fprintf(w, "\n# Configuration source priority:\n")
	fmt.Fprintf(w, "# 1. Command-line arguments (highest priority)\n")
	fmt.Fprintf(w, "# 2. Environment variables (CC_ prefix)\n")
	fmt.Fprintf(w, "# 3. Configuration file (corpuscrawl.yml)\n")
	fmt.Fprintf(w, "# 4. Default values (lowest priority)\n")

	return nil
}

func runCrawler(cmd *cobra.Command, args []string) error {
	// Handle --show-config flag first
	showConfig, _ := cmd.Flags().GetBool("show-config")

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	// Update User-Agent with dynamic version if not explicitly set
	if !cmd.Flags().Changed("user-agent") && cfg.UserAgent == defaultUserAgent {
		cfg.UserAgent = generateUserAgent()
	}

	if showConfig {
		return showCurrentConfig(cmd.OutOrStdout(), cfg)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	closer, err := setupLogging(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	if len(cfg.SeedURLs) == 0 {
		return crawler.ErrNoSeeds
	}

	// Create database directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o750); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Starting crawler with configuration:\n")
	fmt.Fprintf(out, "  Seed URLs: %v\n", cfg.SeedURLs)
	fmt.Fprintf(out, "  Allowed domains: %v\n", cfg.Filter.AllowedDomains)
	fmt.Fprintf(out, "  Limit: %d\n", cfg.Limit)
	fmt.Fprintf(out, "  Concurrency: %d\n", cfg.Concurrency)
	fmt.Fprintf(out, "  Request Delay: %v\n", cfg.RequestDelay)
	fmt.Fprintf(out, "  Database: %s\n", cfg.DatabasePath)
	fmt.Fprintf(out, "  Output: %s\n", cfg.Report.OutputDir)

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	c, err := crawler.NewCrawler(cfg, store)
	if err != nil {
		return fmt.Errorf("failed to initialize crawler: %w", err)
	}
	defer func() { _ = c.Stop() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	crawlErr := c.Start(ctx, cfg.SeedURLs)
	if errors.Is(crawlErr, crawler.ErrNoSeeds) {
		return crawlErr
	}
	if ctx.Err() != nil {
		slog.Warn("Crawl interrupted, writing partial results")
	}

	snap := c.Snapshot()
	if err := store.SaveSnapshot(snap); err != nil {
		return errors.Join(crawlErr, fmt.Errorf("failed to save statistics: %w", err))
	}
	if err := writeReports(cfg.Report.OutputDir, snap); err != nil {
		return errors.Join(crawlErr, err)
	}

	logRejections(store)
	printSummary(out, cfg.Report.OutputDir, snap)

	return crawlErr
}

// writeReports writes the text answer files and the markdown summary
func writeReports(dir string, snap stats.Snapshot) error {
	if err := report.WriteText(dir, snap); err != nil {
		return fmt.Errorf("failed to write reports: %w", err)
	}
	if err := report.WriteMarkdownFile(dir, snap); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// logRejections logs how many frontier pages failed for each reason
func logRejections(store *storage.SQLiteStorage) {
	counts, err := store.RejectionCounts()
	if err != nil {
		slog.Warn("Failed to read rejection counts", "error", err)
		return
	}

	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	for _, reason := range reasons {
		slog.Info("Rejected pages", "reason", reason, "count", counts[reason])
	}
}

func printSummary(w io.Writer, dir string, snap stats.Snapshot) {
	fmt.Fprintf(w, "\nCrawl finished:\n")
	fmt.Fprintf(w, "  Unique pages: %d\n", len(snap.UniqueURLs))
	fmt.Fprintf(w, "  Longest page: %s (%d words)\n", snap.LongestPage.URL, snap.LongestPage.Tokens)
	fmt.Fprintf(w, "  Subdomains: %d\n", len(snap.Subdomains))
	fmt.Fprintf(w, "  Reports written to %s\n", dir)
}
