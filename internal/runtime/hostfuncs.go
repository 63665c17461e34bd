package runtime

import (
	"context"
	"log/slog"

	"github.com/risor-io/risor/object"

	"github.com/jward/apiforest/internal/forest"
	"github.com/jward/apiforest/internal/syntax"
)

// makeAnalyzeSrcFn creates "analyze_src", which analyzes Python source
// in memory and returns the forest as nested maps.
//
// analyze_src(src) → {"stats": {...}, "roots": [node, ...]}
func makeAnalyzeSrcFn(maxDepth int, logger *slog.Logger) *object.Builtin {
	return object.NewBuiltin("analyze_src", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("analyze_src", 1, len(args))
		}
		src, err := toString(args[0])
		if err != nil {
			return object.Errorf("analyze_src: %v", err)
		}

		tree, err := syntax.Parse(ctx, []byte(src), syntax.WithMaxDepth(maxDepth))
		if err != nil {
			return object.Errorf("analyze_src: %v", err)
		}
		res, err := forest.Analyze(tree.Root, forest.WithMaxDepth(maxDepth), forest.WithLogger(logger))
		if err != nil {
			return object.Errorf("analyze_src: %v", err)
		}

		roots := res.Forest.Roots()
		list := make([]object.Object, 0, len(roots))
		for _, r := range roots {
			list = append(list, usageNodeToObject(r))
		}
		return object.NewMap(map[string]object.Object{
			"stats": statsToObject(res.Stats),
			"roots": object.NewList(list),
		})
	})
}

func usageNodeToObject(n *forest.UsageNode) object.Object {
	aliases := map[string]object.Object{}
	for _, c := range n.Contexts() {
		names := n.Aliases(c)
		items := make([]object.Object, 0, len(names))
		for _, name := range names {
			items = append(items, object.NewString(name))
		}
		aliases[string(c)] = object.NewList(items)
	}

	children := n.Children()
	kids := make([]object.Object, 0, len(children))
	for _, c := range children {
		kids = append(kids, usageNodeToObject(c))
	}

	return object.NewMap(map[string]object.Object{
		"id":       object.NewString(n.ID),
		"kind":     object.NewString(n.Kind.String()),
		"key":      object.NewString(n.Key),
		"path":     object.NewString(n.Path()),
		"count":    object.NewInt(int64(n.Count())),
		"aliases":  object.NewMap(aliases),
		"children": object.NewList(kids),
	})
}

func statsToObject(s forest.Stats) object.Object {
	byCategory := make(map[string]object.Object, len(s.UnknownByCategory))
	for category, n := range s.UnknownByCategory {
		byCategory[category] = object.NewInt(int64(n))
	}
	return object.NewMap(map[string]object.Object{
		"nodes":               object.NewInt(int64(s.Nodes)),
		"resolved":            object.NewInt(int64(s.Resolved)),
		"unresolved":          object.NewInt(int64(s.Unresolved)),
		"builtins":            object.NewInt(int64(s.Builtins)),
		"skipped_imports":     object.NewInt(int64(s.SkippedImports)),
		"unknown_constructs":  object.NewInt(int64(s.UnknownConstructs)),
		"unknown_by_category": object.NewMap(byCategory),
		"rollbacks":           object.NewInt(int64(s.Rollbacks)),
	})
}

// makeEmitFn creates "emit", which records a value as report output.
//
// emit(value) → nil
func makeEmitFn(r *Runtime) *object.Builtin {
	return object.NewBuiltin("emit", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("emit", 1, len(args))
		}
		r.emit(args[0].Interface())
		return object.Nil
	})
}

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg)
}
