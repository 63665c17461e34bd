package apiforest

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jward/apiforest/internal/config"
	"github.com/jward/apiforest/internal/runtime"
	"github.com/jward/apiforest/internal/store"
	"github.com/jward/apiforest/internal/syntax"
)

// analyzerVersion is bumped whenever the analyzer's output for unchanged
// input changes. A database built by another version is fully re-indexed.
const analyzerVersion = "1"

// Engine orchestrates the apiforest pipeline: file discovery, change
// detection, per-file analysis, persistence, reports and query access.
type Engine struct {
	store      *store.Store
	logger     *slog.Logger
	scriptsDir string
	scriptsFS  fs.FS
	maxDepth   int
	workers    int
	include    []string
	exclude    []string
	matcher    *config.Matcher

	// force re-analyzes files even when their content hash is unchanged.
	force bool
	// useParallel enables the parallel analysis pipeline.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallel controls parallel analysis. When true (default), IndexFiles
// analyzes files on a worker pool with a single goroutine committing
// batches to SQLite. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers caps the worker pool. Values below 1 mean one per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithLogger sets the Engine's logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMaxDepth caps syntax and traversal nesting per file.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// WithInclude restricts IndexDirectory to paths matching one of the glob
// patterns, relative to the indexed root.
func WithInclude(patterns ...string) Option {
	return func(e *Engine) {
		e.include = append(e.include, patterns...)
	}
}

// WithExclude skips paths matching any of the glob patterns, relative to
// the indexed root.
func WithExclude(patterns ...string) Option {
	return func(e *Engine) {
		e.exclude = append(e.exclude, patterns...)
	}
}

// WithScriptsDir sets the directory report scripts and their imports are
// loaded from.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithScriptsFS loads report scripts from fsys instead of disk, which allows
// embedding them via go:embed.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithForce re-analyzes every file regardless of its content hash.
func WithForce(force bool) Option {
	return func(e *Engine) {
		e.force = force
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:      slog.New(slog.DiscardHandler),
		maxDepth:    syntax.DefaultMaxDepth,
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	m, err := config.NewMatcher(e.include, e.exclude)
	if err != nil {
		return nil, fmt.Errorf("apiforest: %w", err)
	}
	e.matcher = m

	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("apiforest: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("apiforest: migrate: %w", err)
	}
	e.store = s

	if e.AnalyzerChanged() {
		e.logger.Info("analyzer version changed, re-indexing everything", "version", analyzerVersion)
		e.force = true
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// AnalyzerChanged reports whether the database was built by a different
// analyzer version, or has never been indexed.
func (e *Engine) AnalyzerChanged() bool {
	stored, err := e.store.GetMetadata("analyzer_version")
	if err != nil || stored == "" {
		return true
	}
	return stored != analyzerVersion
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// IndexFiles indexes the given Python files and records the run. When
// WithParallel is enabled, analysis runs on a worker pool with batched
// SQLite writes; otherwise files are processed one at a time.
//
// For each file:
//  1. Skip unsupported extensions
//  2. Skip unchanged files (same content hash, previously indexed)
//  3. Delete stale data, insert the file record
//  4. Parse and analyze the file into a usage forest
//  5. Commit the forest, or mark the file failed
//
// Files that fail analysis (for example ErrRecursionLimit) are stored with
// status failed and do not make IndexFiles return an error. I/O and
// database errors are aggregated and returned after every file was tried.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) (*Run, error) {
	return e.index(ctx, "", paths)
}

// IndexDirectory indexes every Python file under root and prunes files that
// disappeared since the last run. Inside a git repository it uses git
// ls-files to respect .gitignore; otherwise it walks the filesystem,
// skipping hidden, virtualenv and cache directories.
func (e *Engine) IndexDirectory(ctx context.Context, root string) (*Run, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("apiforest: resolve root: %w", err)
	}

	paths, err := e.gitListFiles(abs)
	if err != nil {
		e.logger.Debug("git listing unavailable, walking directory", "root", abs, "error", err)
		paths, err = e.walkListFiles(abs)
		if err != nil {
			return nil, fmt.Errorf("apiforest: %w", err)
		}
	}

	stale, err := e.store.FilesNotIn(abs, paths)
	if err != nil {
		return nil, fmt.Errorf("apiforest: find removed files: %w", err)
	}
	if len(stale) > 0 {
		if err := e.store.DeleteFiles(stale); err != nil {
			return nil, fmt.Errorf("apiforest: prune removed files: %w", err)
		}
		e.logger.Info("pruned removed files", "count", len(stale))
	}

	return e.index(ctx, abs, paths)
}

func (e *Engine) index(ctx context.Context, root string, paths []string) (*Run, error) {
	run := &store.Run{ID: uuid.NewString(), Root: root, StartedAt: time.Now()}
	if err := e.store.InsertRun(run); err != nil {
		return nil, fmt.Errorf("apiforest: %w", err)
	}
	log := e.logger.With("run", run.ID)
	log.Info("indexing started", "root", root, "files", len(paths))

	var err error
	if e.useParallel {
		err = e.indexFilesParallel(ctx, run, paths)
	} else {
		err = e.indexFilesSerial(ctx, run, paths)
	}

	if ferr := e.store.FinishRun(run); ferr != nil && err == nil {
		err = fmt.Errorf("apiforest: %w", ferr)
	}
	if err == nil {
		if merr := e.store.SetMetadata("analyzer_version", analyzerVersion); merr != nil {
			err = fmt.Errorf("apiforest: %w", merr)
		} else {
			e.force = false
		}
	}

	log.Info("indexing finished",
		"indexed", run.FilesIndexed,
		"skipped", run.FilesSkipped,
		"failed", run.FilesFailed,
		"nodes", run.Nodes)
	return run, err
}

func (e *Engine) indexFilesSerial(ctx context.Context, run *store.Run, paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, skip, err := e.prepareFile(run, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		res, aerr := e.analyzeFile(ctx, item)
		if err := e.commitFile(run, item, res, aerr); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// skipDirs are directory names never descended into by walkListFiles.
var skipDirs = map[string]bool{
	"__pycache__":   true,
	"node_modules":  true,
	"site-packages": true,
	"venv":          true,
	"env":           true,
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to Python sources.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore and global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if e.accept(line) {
			paths = append(paths, filepath.Join(root, line))
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a
// fallback when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || skipDirs[name] || e.matcher.SkipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if e.accept(rel) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// accept reports whether the file at rel (relative to the indexed root) is
// a Python source allowed by the include and exclude patterns.
func (e *Engine) accept(rel string) bool {
	if _, ok := syntax.LanguageForFile(rel); !ok {
		return false
	}
	return e.matcher.Match(rel)
}

// RunReport executes a Risor report script against the index and returns
// the values it emitted.
func (e *Engine) RunReport(ctx context.Context, scriptPath string, extras map[string]any) ([]any, error) {
	rt := e.newRuntime()
	if err := rt.RunScript(ctx, scriptPath, extras); err != nil {
		return nil, err
	}
	return rt.Emitted(), nil
}

// RunReportSource executes Risor report source directly.
func (e *Engine) RunReportSource(ctx context.Context, source string, extras map[string]any) ([]any, error) {
	rt := e.newRuntime()
	if err := rt.RunSource(ctx, source, extras); err != nil {
		return nil, err
	}
	return rt.Emitted(), nil
}

func (e *Engine) newRuntime() *runtime.Runtime {
	rtOpts := []runtime.RuntimeOption{
		runtime.WithRuntimeLogger(e.logger),
		runtime.WithRuntimeMaxDepth(e.maxDepth),
	}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
	}
	return runtime.NewRuntime(e.store, e.scriptsDir, rtOpts...)
}

func readSource(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return content, nil
}
