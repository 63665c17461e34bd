package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/apiforest"
	"github.com/jward/apiforest/scripts"
)

var (
	flagSet        []string
	flagScriptsDir string
)

var reportCmd = &cobra.Command{
	Use:   "report <script>",
	Short: "Run a Risor report script against the index",
	Long:  `Runs a Risor report against the index and prints the values it emitted.

<script> is either a path to a .risor file or the name of a bundled report:
modules, top, failures, unresolved.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringSliceVar(&flagSet, "set", nil, "script global as key=value (repeatable)")
	reportCmd.Flags().StringVar(&flagScriptsDir, "scripts-dir", "", "directory for script imports (default: config report.scripts_dir)")
}

func runReport(cmd *cobra.Command, args []string) error {
	extras, err := parseSetFlags(flagSet)
	if err != nil {
		return outputError("report", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return outputError("report", fmt.Errorf("getting cwd: %w", err))
	}
	repoRoot := findRepoRoot(cwd)
	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return outputError("report", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return outputError("report", err)
	}
	dbPath := resolveDBPath(repoRoot, cfg)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return outputError("report", fmt.Errorf("database not found: %s (run 'apiforest index' first)", dbPath))
	}

	opts := engineOptions(cfg, logger)
	scriptPath := args[0]
	if isScriptFile(scriptPath) {
		abs, err := filepath.Abs(scriptPath)
		if err != nil {
			return outputError("report", err)
		}
		scriptPath = abs
		dir := flagScriptsDir
		if dir == "" {
			dir = cfg.Report.ScriptsDir
		}
		if dir == "" {
			dir = filepath.Dir(abs)
		} else if !filepath.IsAbs(dir) {
			dir = filepath.Join(repoRoot, dir)
		}
		opts = append(opts, apiforest.WithScriptsDir(dir))
	} else {
		scriptPath = scripts.ReportPath(scriptPath)
		opts = append(opts, apiforest.WithScriptsFS(scripts.FS))
	}

	engine, err := apiforest.New(dbPath, opts...)
	if err != nil {
		return outputError("report", fmt.Errorf("creating engine: %w", err))
	}
	defer engine.Close()

	values, err := engine.RunReport(context.Background(), scriptPath, extras)
	if err != nil {
		return outputError("report", err)
	}
	total := len(values)
	return outputResult(CLIResult{Command: "report", Results: values, TotalCount: &total})
}

// isScriptFile reports whether arg names a script on disk rather than a
// bundled report.
func isScriptFile(arg string) bool {
	if strings.HasSuffix(arg, ".risor") || strings.ContainsRune(arg, filepath.Separator) {
		return true
	}
	info, err := os.Stat(arg)
	return err == nil && !info.IsDir()
}

// parseSetFlags turns key=value pairs into script globals. Values stay
// strings; scripts convert them as needed.
func parseSetFlags(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	extras := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: want key=value", p)
		}
		extras[key] = value
	}
	return extras, nil
}
