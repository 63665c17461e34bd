package apiforest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/jward/apiforest/internal/store"
	"github.com/jward/apiforest/internal/syntax"
)

// workItem holds everything an analysis worker needs.
type workItem struct {
	path    string
	fileID  int64
	content []byte
	batch   *store.BatchedStore
}

// indexFilesParallel indexes files using a three-phase pipeline:
//
//	Phase A (serial):   Hash check, delete old data, prepare file records.
//	Phase B (parallel): Parse and analyze on a worker pool, one Analyzer per file.
//	Phase C (serial):   Commit batches to SQLite, record per-file outcomes.
func (e *Engine) indexFilesParallel(ctx context.Context, run *store.Run, paths []string) error {
	var errs []error

	// ---- Phase A: Serial file preparation ----
	var items []workItem
	for _, path := range paths {
		item, skip, err := e.prepareFile(run, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		items = append(items, item)
	}

	if len(items) > 0 {
		// ---- Phase B: Parallel analysis ----
		numWorkers := e.workers
		if numWorkers < 1 {
			numWorkers = runtime.NumCPU()
		}
		numWorkers = min(numWorkers, len(items))

		workCh := make(chan workItem, len(items))
		for _, item := range items {
			workCh <- item
		}
		close(workCh)

		type result struct {
			item workItem
			res  *Result
			err  error
		}
		resultCh := make(chan result, len(items))

		var wg sync.WaitGroup
		for range numWorkers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for item := range workCh {
					res, err := e.analyzeFile(ctx, item)
					resultCh <- result{item: item, res: res, err: err}
				}
			}()
		}

		go func() {
			wg.Wait()
			close(resultCh)
		}()

		// ---- Phase C: Serial commit ----
		for r := range resultCh {
			if err := e.commitFile(run, r.item, r.res, r.err); err != nil {
				errs = append(errs, fmt.Errorf("commit %s: %w", r.item.path, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("parallel indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// prepareFile does Phase A work for a single file: hash check, cleanup and
// file record. skip=true means the file is unchanged or not Python.
func (e *Engine) prepareFile(run *store.Run, path string) (workItem, bool, error) {
	lang, ok := syntax.LanguageForFile(path)
	if !ok {
		return workItem{}, true, nil
	}

	content, err := readSource(path)
	if err != nil {
		return workItem{}, false, err
	}
	hash := store.ContentHash(content)

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash && !e.force {
		run.FilesSkipped++
		return workItem{}, true, nil
	}

	if existing != nil {
		if err := e.store.DeleteFiles([]int64{existing.ID}); err != nil {
			return workItem{}, false, fmt.Errorf("delete old data: %w", err)
		}
	}

	fileID, err := e.store.InsertFile(&store.File{
		Path:        path,
		Language:    lang,
		Hash:        hash,
		LineCount:   bytes.Count(content, []byte{'\n'}) + 1,
		RunID:       run.ID,
		LastIndexed: time.Now(),
	})
	if err != nil {
		return workItem{}, false, fmt.Errorf("insert file: %w", err)
	}

	return workItem{
		path:    path,
		fileID:  fileID,
		content: content,
		batch:   store.NewBatchedStore(),
	}, false, nil
}

// analyzeFile builds the file's forest and buffers its rows in the item's
// BatchedStore. It touches no shared state.
func (e *Engine) analyzeFile(ctx context.Context, item workItem) (*Result, error) {
	res, err := analyzeSource(ctx, item.content, e.maxDepth, e.logger.With("file", item.path))
	if err != nil {
		return nil, err
	}
	if err := store.WriteForest(item.batch, item.fileID, res.Forest); err != nil {
		return nil, err
	}
	return res, nil
}

// commitFile records the outcome of analyzing one file. An analysis error
// marks the file failed and is not returned; only database errors are.
func (e *Engine) commitFile(run *store.Run, item workItem, res *Result, analyzeErr error) error {
	if analyzeErr != nil {
		if errors.Is(analyzeErr, context.Canceled) || errors.Is(analyzeErr, context.DeadlineExceeded) {
			return analyzeErr
		}
		e.logger.Warn("analysis failed", "file", item.path, "error", analyzeErr)
		run.FilesFailed++
		return e.store.UpdateFileResult(item.fileID, store.StatusFailed, analyzeErr.Error(), store.FileStats{})
	}

	if err := e.store.CommitBatch(item.batch); err != nil {
		return err
	}
	stats := store.FileStats{
		Resolved:          res.Stats.Resolved,
		Unresolved:        res.Stats.Unresolved,
		SkippedImports:    res.Stats.SkippedImports,
		UnknownConstructs: res.Stats.UnknownConstructs,
		Rollbacks:         res.Stats.Rollbacks,
	}
	if err := e.store.UpdateFileResult(item.fileID, store.StatusIndexed, "", stats); err != nil {
		return err
	}
	run.FilesIndexed++
	run.Nodes += res.Stats.Nodes
	e.logger.Debug("indexed file", "file", item.path, "nodes", res.Stats.Nodes)
	return nil
}
