package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/apiforest"
)

var flagMaxDepth int

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.py>",
	Short: "Print the usage forest of one file without indexing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVar(&flagMaxDepth, "max-depth", 0, "nesting limit (default: config or 1000)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]

	cwd, err := os.Getwd()
	if err != nil {
		return outputError("analyze", fmt.Errorf("getting cwd: %w", err))
	}
	cfg, err := loadConfig(findRepoRoot(cwd))
	if err != nil {
		return outputError("analyze", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return outputError("analyze", err)
	}

	opts := engineOptions(cfg, logger)
	if flagMaxDepth > 0 {
		opts = append(opts, apiforest.WithMaxDepth(flagMaxDepth))
	}

	if _, ok := apiforest.LanguageForFile(path); !ok {
		return outputError("analyze", fmt.Errorf("%s: %w", path, apiforest.ErrUnsupportedLanguage))
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return outputError("analyze", fmt.Errorf("reading %s: %w", path, err))
	}
	res, err := apiforest.Analyze(context.Background(), src, opts...)
	if err != nil {
		return outputError("analyze", fmt.Errorf("%s: %w", path, err))
	}

	if flagFormat == "text" {
		return res.Forest.Dump(os.Stdout)
	}
	return outputResult(CLIResult{
		Command: "analyze",
		Results: CLIAnalysis{
			File:  path,
			Stats: statsToCLI(res.Stats),
			Roots: forestToCLI(res.Forest, ""),
		},
	})
}

func statsToCLI(s apiforest.Stats) CLIStats {
	return CLIStats{
		Nodes:             s.Nodes,
		Resolved:          s.Resolved,
		Unresolved:        s.Unresolved,
		Builtins:          s.Builtins,
		SkippedImports:    s.SkippedImports,
		UnknownConstructs: s.UnknownConstructs,
		UnknownByCategory: s.UnknownByCategory,
		Rollbacks:         s.Rollbacks,
	}
}
