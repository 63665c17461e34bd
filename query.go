package apiforest

import (
	"fmt"

	"github.com/jward/apiforest/internal/store"
)

// QueryBuilder provides read access to the indexed usage data.
type QueryBuilder struct {
	store *store.Store
}

// NewQueryBuilder returns a QueryBuilder reading from s. Most callers use
// [Engine.Query] instead; this exists for tools that open a Store directly.
func NewQueryBuilder(s *Store) *QueryBuilder {
	return &QueryBuilder{store: s}
}

// Modules summarizes every imported module across indexed files, most used
// first.
func (q *QueryBuilder) Modules() ([]*ModuleSummary, error) {
	mods, err := q.store.Modules()
	if err != nil {
		return nil, fmt.Errorf("modules: %w", err)
	}
	return mods, nil
}

// TopUsages returns the most used access paths across all modules.
// limit <= 0 returns every path.
func (q *QueryBuilder) TopUsages(limit int) ([]*PathUsage, error) {
	usages, err := q.store.Usages("", limit)
	if err != nil {
		return nil, fmt.Errorf("top usages: %w", err)
	}
	return usages, nil
}

// UsagesUnder returns every access path below module, most used first.
func (q *QueryBuilder) UsagesUnder(module string) ([]*PathUsage, error) {
	usages, err := q.store.Usages(module, 0)
	if err != nil {
		return nil, fmt.Errorf("usages under %s: %w", module, err)
	}
	return usages, nil
}

// Nodes returns the persisted nodes whose display path equals path, across
// files.
func (q *QueryBuilder) Nodes(path string) ([]*UsageRow, error) {
	nodes, err := q.store.UsageNodesByPath(path)
	if err != nil {
		return nil, fmt.Errorf("nodes %s: %w", path, err)
	}
	return nodes, nil
}

// Forest rebuilds the usage forest of one indexed file. It returns nil when
// the file is unknown or failed analysis.
func (q *QueryBuilder) Forest(path string) (*Forest, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("forest: lookup file: %w", err)
	}
	if f == nil || f.Status != store.StatusIndexed {
		return nil, nil
	}
	forest, err := q.store.LoadForest(f.ID)
	if err != nil {
		return nil, fmt.Errorf("forest: %w", err)
	}
	return forest, nil
}

// MergedForest folds every indexed file's forest into one, summing counts
// and uniting aliases.
func (q *QueryBuilder) MergedForest() (*Forest, error) {
	merged, err := q.store.LoadMergedForest()
	if err != nil {
		return nil, fmt.Errorf("merged forest: %w", err)
	}
	return merged, nil
}

// Files returns every file known to the index.
func (q *QueryBuilder) Files() ([]*File, error) {
	files, err := q.store.Files()
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	return files, nil
}

// FailedFiles returns files whose last analysis failed.
func (q *QueryBuilder) FailedFiles() ([]*File, error) {
	files, err := q.store.FilesByStatus(store.StatusFailed)
	if err != nil {
		return nil, fmt.Errorf("failed files: %w", err)
	}
	return files, nil
}

// Runs returns indexing runs, newest first.
func (q *QueryBuilder) Runs() ([]*Run, error) {
	runs, err := q.store.Runs()
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	return runs, nil
}
