package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/apiforest"
	"github.com/jward/apiforest/internal/store"
)

var (
	flagLimit  int
	flagModule string
	flagFailed bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the usage index",
	Long:  "Read module totals, ranked access paths, usage trees and indexing state from an indexed repository.",
}

func init() {
	topCmd.Flags().IntVar(&flagLimit, "limit", 20, "number of paths to show (0 for all)")
	topCmd.Flags().StringVar(&flagModule, "module", "", "only paths under this module")
	treeCmd.Flags().StringVar(&flagModule, "module", "", "only the tree of this module")
	filesCmd.Flags().BoolVar(&flagFailed, "failed", false, "only files whose analysis failed")

	queryCmd.AddCommand(modulesCmd)
	queryCmd.AddCommand(topCmd)
	queryCmd.AddCommand(treeCmd)
	queryCmd.AddCommand(filesCmd)
	queryCmd.AddCommand(runsCmd)
}

// --- Helpers ---

// openStore opens the Store at the resolved database path.
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	repoRoot := findRepoRoot(cwd)
	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return nil, err
	}
	dbPath := resolveDBPath(repoRoot, cfg)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'apiforest index' first)", dbPath)
	}
	return store.NewStore(dbPath)
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// nodeToCLI converts a usage node and its subtree.
func nodeToCLI(n *apiforest.UsageNode) CLINode {
	out := CLINode{
		ID:    n.ID,
		Kind:  n.Kind.String(),
		Path:  n.Path(),
		Count: n.Count(),
	}
	if ctxs := n.Contexts(); len(ctxs) > 0 {
		out.Aliases = make(map[string][]string, len(ctxs))
		for _, ctx := range ctxs {
			out.Aliases[string(ctx)] = n.Aliases(ctx)
		}
	}
	for _, c := range n.Children() {
		out.Children = append(out.Children, nodeToCLI(c))
	}
	return out
}

// forestToCLI converts the roots of f, optionally only the named module.
func forestToCLI(f *apiforest.Forest, module string) []CLINode {
	roots := []CLINode{}
	for _, r := range f.Roots() {
		if module != "" && r.Key != module {
			continue
		}
		roots = append(roots, nodeToCLI(r))
	}
	return roots
}

func usagesToCLI(usages []*apiforest.PathUsage) []CLIUsage {
	out := make([]CLIUsage, len(usages))
	for i, u := range usages {
		out[i] = CLIUsage{Module: u.Module, Path: u.Path, Kind: u.Kind, Count: u.Count, Files: u.Files}
	}
	return out
}

func fileToCLI(f *apiforest.File) CLIFile {
	return CLIFile{
		ID:         f.ID,
		Path:       f.Path,
		Status:     f.Status,
		Error:      f.Error,
		LineCount:  f.LineCount,
		Resolved:   f.Stats.Resolved,
		Unresolved: f.Stats.Unresolved,
	}
}

func runToCLI(r *apiforest.Run) CLIRun {
	out := CLIRun{
		ID:           r.ID,
		Root:         r.Root,
		StartedAt:    r.StartedAt.Format(time.RFC3339),
		FilesIndexed: r.FilesIndexed,
		FilesSkipped: r.FilesSkipped,
		FilesFailed:  r.FilesFailed,
		Nodes:        r.Nodes,
	}
	if r.FinishedAt != nil {
		out.FinishedAt = r.FinishedAt.Format(time.RFC3339)
	}
	return out
}

// --- Commands ---

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List imported modules by total uses",
	Args:  cobra.NoArgs,
	RunE:  runModules,
}

func runModules(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("modules", err)
	}
	defer s.Close()

	mods, err := apiforest.NewQueryBuilder(s).Modules()
	if err != nil {
		return outputError("modules", err)
	}

	out := make([]CLIModule, len(mods))
	for i, m := range mods {
		out[i] = CLIModule{Module: m.Module, Uses: m.Uses, Paths: m.Paths, Files: m.Files}
	}
	return outputResult(CLIResult{Command: "modules", Results: out})
}

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Rank access paths by total count",
	Args:  cobra.NoArgs,
	RunE:  runTop,
}

func runTop(cmd *cobra.Command, args []string) error {
	if flagLimit < 0 {
		return outputError("top", fmt.Errorf("invalid limit %d: must be non-negative", flagLimit))
	}

	s, err := openStore()
	if err != nil {
		return outputError("top", err)
	}
	defer s.Close()

	qb := apiforest.NewQueryBuilder(s)
	var usages []*apiforest.PathUsage
	if flagModule != "" {
		usages, err = qb.UsagesUnder(flagModule)
	} else {
		usages, err = qb.TopUsages(0)
	}
	if err != nil {
		return outputError("top", err)
	}

	total := len(usages)
	if flagLimit > 0 && len(usages) > flagLimit {
		usages = usages[:flagLimit]
	}
	return outputResult(CLIResult{
		Command:    "top",
		Results:    usagesToCLI(usages),
		TotalCount: &total,
	})
}

var treeCmd = &cobra.Command{
	Use:   "tree [file]",
	Short: "Show the usage forest of one file, or of all files merged",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTree,
}

func runTree(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("tree", err)
	}
	defer s.Close()

	qb := apiforest.NewQueryBuilder(s)
	var f *apiforest.Forest
	if len(args) == 1 {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return outputError("tree", fmt.Errorf("resolving file path %q: %w", args[0], err))
		}
		f, err = qb.Forest(path)
		if err != nil {
			return outputError("tree", err)
		}
		if f == nil {
			return outputError("tree", fmt.Errorf("file not indexed: %s", path))
		}
	} else {
		f, err = qb.MergedForest()
		if err != nil {
			return outputError("tree", err)
		}
	}

	return outputResult(CLIResult{Command: "tree", Results: forestToCLI(f, flagModule)})
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List indexed files with their status",
	Args:  cobra.NoArgs,
	RunE:  runFiles,
}

func runFiles(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("files", err)
	}
	defer s.Close()

	qb := apiforest.NewQueryBuilder(s)
	var files []*apiforest.File
	if flagFailed {
		files, err = qb.FailedFiles()
	} else {
		files, err = qb.Files()
	}
	if err != nil {
		return outputError("files", err)
	}

	out := make([]CLIFile, len(files))
	for i, f := range files {
		out[i] = fileToCLI(f)
	}
	return outputResult(CLIResult{Command: "files", Results: out})
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List indexing runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("runs", err)
	}
	defer s.Close()

	runs, err := apiforest.NewQueryBuilder(s).Runs()
	if err != nil {
		return outputError("runs", err)
	}

	out := make([]CLIRun, len(runs))
	for i, r := range runs {
		out[i] = runToCLI(r)
	}
	return outputResult(CLIResult{Command: "runs", Results: out})
}
