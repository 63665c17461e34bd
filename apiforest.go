package apiforest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jward/apiforest/internal/forest"
	"github.com/jward/apiforest/internal/syntax"
)

// ErrRecursionLimit is returned when a file nests deeper than the configured
// maximum depth. Use errors.Is to check for it.
var ErrRecursionLimit = forest.ErrRecursionLimit

// ErrUnsupportedLanguage is returned by AnalyzeFile for non-Python files.
var ErrUnsupportedLanguage = syntax.ErrUnsupportedLanguage

// LanguageForFile returns the language apiforest analyzes path as, by file
// extension.
func LanguageForFile(path string) (string, bool) {
	return syntax.LanguageForFile(path)
}

// Analyze parses and analyzes Python source without an Engine or database.
// Only the WithMaxDepth and WithLogger options take effect.
func Analyze(ctx context.Context, src []byte, opts ...Option) (*Result, error) {
	e := &Engine{
		logger:   slog.New(slog.DiscardHandler),
		maxDepth: syntax.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return analyzeSource(ctx, src, e.maxDepth, e.logger)
}

// AnalyzeSource parses and analyzes Python source without touching the
// database.
func (e *Engine) AnalyzeSource(ctx context.Context, src []byte) (*Result, error) {
	return analyzeSource(ctx, src, e.maxDepth, e.logger)
}

// AnalyzeFile reads and analyzes one Python file without touching the
// database.
func (e *Engine) AnalyzeFile(ctx context.Context, path string) (*Result, error) {
	if _, ok := syntax.LanguageForFile(path); !ok {
		return nil, fmt.Errorf("apiforest: %s: %w", path, ErrUnsupportedLanguage)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("apiforest: read %s: %w", path, err)
	}
	res, err := e.AnalyzeSource(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("apiforest: %s: %w", path, err)
	}
	return res, nil
}

// analyzeSource reports every depth overflow, whether hit while converting
// the syntax tree or while walking it, as ErrRecursionLimit.
func analyzeSource(ctx context.Context, src []byte, maxDepth int, logger *slog.Logger) (*Result, error) {
	tree, err := syntax.Parse(ctx, src, syntax.WithMaxDepth(maxDepth))
	if errors.Is(err, syntax.ErrTooDeep) {
		return nil, fmt.Errorf("%w: %w", ErrRecursionLimit, err)
	}
	if err != nil {
		return nil, err
	}
	return forest.Analyze(tree.Root, forest.WithMaxDepth(maxDepth), forest.WithLogger(logger))
}
