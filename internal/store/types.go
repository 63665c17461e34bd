package store

import "time"

// File statuses.
const (
	StatusPending = "pending"
	StatusIndexed = "indexed"
	StatusFailed  = "failed"
)

type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	Status      string
	Error       string
	LineCount   int
	Stats       FileStats
	RunID       string
	LastIndexed time.Time
}

// FileStats mirrors the analyzer's per-file counters.
type FileStats struct {
	Resolved          int
	Unresolved        int
	SkippedImports    int
	UnknownConstructs int
	Rollbacks         int
}

// UsageNode is one persisted forest node. ParentID is nil for module roots.
type UsageNode struct {
	ID       int64
	FileID   int64
	ParentID *int64
	Module   string
	Kind     string
	Name     string
	Key      string
	Path     string
	Count    int
	Ordinal  int
}

type NodeAlias struct {
	ID      int64
	NodeID  int64
	Context string
	Alias   string
}

type Run struct {
	ID           string
	Root         string
	StartedAt    time.Time
	FinishedAt   *time.Time
	FilesIndexed int
	FilesSkipped int
	FilesFailed  int
	Nodes        int
}

// Aggregate query results

// ModuleSummary totals one imported module across all indexed files.
type ModuleSummary struct {
	Module string
	Uses   int // sum of root counts
	Paths  int // distinct access paths below the root
	Files  int
}

// PathUsage totals one access path across files. Calls and subscripts with
// different arguments share a path and are summed.
type PathUsage struct {
	Module string
	Path   string
	Kind   string
	Count  int
	Files  int
}
