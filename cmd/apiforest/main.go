package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/apiforest"
	"github.com/jward/apiforest/internal/config"
)

var (
	flagDB       string
	flagFormat   string
	flagConfig   string
	flagLogLevel string
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
	Use:           "apiforest",
	Short:         "Measure how Python code uses its imported modules",
	Long:          "Apiforest builds per-file usage forests for every imported module and stores them in a SQLite database for queries and reports.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .apiforest/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .apiforest.toml in the repo root)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(analyzeCmd)
}

var (
	flagForce   bool
	flagExclude []string
	flagWorkers int
	flagSerial  bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index the Python files of a repository",
	Long:  "Parses Python files with tree-sitter, builds a usage forest per file, and writes the results to the SQLite database. Unchanged files are skipped.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "re-analyze files even when unchanged")
	indexCmd.Flags().StringSliceVar(&flagExclude, "exclude", nil, "extra glob patterns to exclude (repeatable)")
	indexCmd.Flags().IntVar(&flagWorkers, "workers", 0, "analysis workers (default: config or one per CPU)")
	indexCmd.Flags().BoolVar(&flagSerial, "serial", false, "analyze files one at a time")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}

	repoRoot := findRepoRoot(targetDir)
	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	dbPath := resolveDBPath(repoRoot, cfg)

	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dbDir, err)
	}

	opts := engineOptions(cfg, logger)
	opts = append(opts,
		apiforest.WithInclude(cfg.Paths.Include...),
		apiforest.WithExclude(append(cfg.Paths.Exclude, flagExclude...)...),
		apiforest.WithForce(flagForce),
		apiforest.WithParallel(cfg.UseParallel() && !flagSerial),
	)
	workers := cfg.Workers
	if flagWorkers > 0 {
		workers = flagWorkers
	}
	opts = append(opts, apiforest.WithWorkers(workers))

	engine, err := apiforest.New(dbPath, opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	run, err := engine.IndexDirectory(context.Background(), targetDir)
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %s in %s (%d indexed, %d unchanged, %d failed, %d nodes)\n",
		targetDir,
		time.Since(start).Round(time.Millisecond),
		run.FilesIndexed, run.FilesSkipped, run.FilesFailed, run.Nodes,
	)
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	return nil
}

// engineOptions returns the options shared by every command that builds an
// Engine.
func engineOptions(cfg *config.Config, logger *slog.Logger) []apiforest.Option {
	return []apiforest.Option{
		apiforest.WithLogger(logger),
		apiforest.WithMaxDepth(cfg.MaxDepth),
	}
}

// loadConfig reads --config when given, otherwise the project file in
// repoRoot if there is one.
func loadConfig(repoRoot string) (*config.Config, error) {
	if flagConfig != "" {
		return config.Load(flagConfig)
	}
	return config.Discover(repoRoot)
}

// newLogger builds the stderr logger. --log-level wins over the config.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	name := cfg.LogLevel
	if flagLogLevel != "" {
		name = flagLogLevel
	}
	level, err := config.ParseLevel(name)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
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

// resolveDBPath picks the database path: --db, then the config, then the
// default. Relative paths are taken from the repo root.
func resolveDBPath(repoRoot string, cfg *config.Config) string {
	p := config.DefaultDBPath
	switch {
	case flagDB != "":
		p = flagDB
	case cfg != nil && cfg.DBPath != "":
		p = cfg.DBPath
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(repoRoot, filepath.FromSlash(p))
}
