package main

// CLIResult is the top-level JSON envelope for all commands that print
// results.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIModule is one imported module with its totals.
type CLIModule struct {
	Module string `json:"module"`
	Uses   int    `json:"uses"`
	Paths  int    `json:"paths"`
	Files  int    `json:"files"`
}

// CLIUsage is one access path with its total count.
type CLIUsage struct {
	Module string `json:"module"`
	Path   string `json:"path"`
	Kind   string `json:"kind"`
	Count  int    `json:"count"`
	Files  int    `json:"files"`
}

// CLINode is a usage node with its subtree. Aliases maps scope contexts to
// the names bound there.
type CLINode struct {
	ID       string              `json:"id"`
	Kind     string              `json:"kind"`
	Path     string              `json:"path"`
	Count    int                 `json:"count"`
	Aliases  map[string][]string `json:"aliases,omitempty"`
	Children []CLINode           `json:"children,omitempty"`
}

// CLIFile is a JSON-friendly file representation.
type CLIFile struct {
	ID         int64  `json:"id"`
	Path       string `json:"path"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	LineCount  int    `json:"line_count"`
	Resolved   int    `json:"resolved"`
	Unresolved int    `json:"unresolved"`
}

// CLIRun is one indexing run.
type CLIRun struct {
	ID           string `json:"id"`
	Root         string `json:"root"`
	StartedAt    string `json:"started_at"`
	FinishedAt   string `json:"finished_at,omitempty"`
	FilesIndexed int    `json:"files_indexed"`
	FilesSkipped int    `json:"files_skipped"`
	FilesFailed  int    `json:"files_failed"`
	Nodes        int    `json:"nodes"`
}

// CLIAnalysis is the output of the analyze command.
type CLIAnalysis struct {
	File  string    `json:"file"`
	Stats CLIStats  `json:"stats"`
	Roots []CLINode `json:"roots"`
}

// CLIStats mirrors the analyzer counters.
type CLIStats struct {
	Nodes             int            `json:"nodes"`
	Resolved          int            `json:"resolved"`
	Unresolved        int            `json:"unresolved"`
	Builtins          int            `json:"builtins"`
	SkippedImports    int            `json:"skipped_imports"`
	UnknownConstructs int            `json:"unknown_constructs"`
	UnknownByCategory map[string]int `json:"unknown_by_category,omitempty"`
	Rollbacks         int            `json:"rollbacks"`
}
