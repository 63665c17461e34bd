package runtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/risor-io/risor/object"

	"github.com/jward/apiforest/internal/store"
)

// Store query bridges. Risor cannot read Go struct pointers field by field
// without proxies, so results are converted to lists of maps on the Go side.

func makeModulesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("modules", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("modules", 0, len(args))
		}
		mods, err := s.Modules()
		if err != nil {
			return object.Errorf("modules: %v", err)
		}
		results := make([]object.Object, 0, len(mods))
		for _, m := range mods {
			results = append(results, object.NewMap(map[string]object.Object{
				"module": object.NewString(m.Module),
				"uses":   object.NewInt(int64(m.Uses)),
				"paths":  object.NewInt(int64(m.Paths)),
				"files":  object.NewInt(int64(m.Files)),
			}))
		}
		return object.NewList(results)
	})
}

// top_usages(limit) or top_usages(limit, module)
func makeTopUsagesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("top_usages", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.Errorf("top_usages: expected 1 or 2 arguments, got %d", len(args))
		}
		limit, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("top_usages: limit: %v", err)
		}
		var module string
		if len(args) == 2 {
			if module, err = toString(args[1]); err != nil {
				return object.Errorf("top_usages: module: %v", err)
			}
		}
		usages, err := s.Usages(module, int(limit))
		if err != nil {
			return object.Errorf("top_usages: %v", err)
		}
		return pathUsagesToList(usages)
	})
}

func makeUsagesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("usages", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("usages", 1, len(args))
		}
		module, err := toString(args[0])
		if err != nil {
			return object.Errorf("usages: %v", err)
		}
		usages, err := s.Usages(module, 0)
		if err != nil {
			return object.Errorf("usages: %v", err)
		}
		return pathUsagesToList(usages)
	})
}

func makeNodesByPathFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("nodes_by_path", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("nodes_by_path", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("nodes_by_path: %v", err)
		}
		nodes, err := s.UsageNodesByPath(path)
		if err != nil {
			return object.Errorf("nodes_by_path: %v", err)
		}
		return usageNodesToList(nodes)
	})
}

func makeNodeChildrenFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("node_children", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_children", 1, len(args))
		}
		id, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("node_children: %v", err)
		}
		nodes, err := s.NodeChildren(id)
		if err != nil {
			return object.Errorf("node_children: %v", err)
		}
		return usageNodesToList(nodes)
	})
}

func makeAliasesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("aliases", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("aliases", 1, len(args))
		}
		id, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("aliases: %v", err)
		}
		aliases, err := s.AliasesForNode(id)
		if err != nil {
			return object.Errorf("aliases: %v", err)
		}
		results := make([]object.Object, 0, len(aliases))
		for _, a := range aliases {
			results = append(results, object.NewMap(map[string]object.Object{
				"id":      object.NewInt(a.ID),
				"node_id": object.NewInt(a.NodeID),
				"context": object.NewString(a.Context),
				"alias":   object.NewString(a.Alias),
			}))
		}
		return object.NewList(results)
	})
}

// makeFilesFn lists indexed files, optionally restricted to one status.
func makeFilesFn(s *store.Store, status string) *object.Builtin {
	name := "files"
	if status == store.StatusFailed {
		name = "failed_files"
	}
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError(name, 0, len(args))
		}
		var (
			files []*store.File
			err   error
		)
		if status == "" {
			files, err = s.Files()
		} else {
			files, err = s.FilesByStatus(status)
		}
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		results := make([]object.Object, 0, len(files))
		for _, f := range files {
			results = append(results, object.NewMap(map[string]object.Object{
				"id":           object.NewInt(f.ID),
				"path":         object.NewString(f.Path),
				"status":       object.NewString(f.Status),
				"error":        object.NewString(f.Error),
				"line_count":   object.NewInt(int64(f.LineCount)),
				"resolved":     object.NewInt(int64(f.Stats.Resolved)),
				"unresolved":   object.NewInt(int64(f.Stats.Unresolved)),
				"run_id":       object.NewString(f.RunID),
				"last_indexed": object.NewString(formatTime(f.LastIndexed)),
			}))
		}
		return object.NewList(results)
	})
}

func makeRunsFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("runs", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("runs", 0, len(args))
		}
		runs, err := s.Runs()
		if err != nil {
			return object.Errorf("runs: %v", err)
		}
		results := make([]object.Object, 0, len(runs))
		for _, run := range runs {
			m := map[string]object.Object{
				"id":            object.NewString(run.ID),
				"root":          object.NewString(run.Root),
				"started_at":    object.NewString(formatTime(run.StartedAt)),
				"finished_at":   object.Nil,
				"files_indexed": object.NewInt(int64(run.FilesIndexed)),
				"files_skipped": object.NewInt(int64(run.FilesSkipped)),
				"files_failed":  object.NewInt(int64(run.FilesFailed)),
				"nodes":         object.NewInt(int64(run.Nodes)),
			}
			if run.FinishedAt != nil {
				m["finished_at"] = object.NewString(formatTime(*run.FinishedAt))
			}
			results = append(results, object.NewMap(m))
		}
		return object.NewList(results)
	})
}

// makeDBQueryFn creates a db_query bridge for SELECT and WITH queries. The
// store runs them on a query_only connection, so writes hidden behind a CTE
// fail too. Returns a list of maps (column name to value).
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") && !strings.HasPrefix(trimmed, "WITH") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, fmt.Sprintf("%v", arg))
			}
		}

		cols, rows, err := s.QueryRows(ctx, sqlStr, queryArgs...)
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		results := make([]object.Object, 0, len(rows))
		for _, values := range rows {
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		return object.NewList(results)
	})
}

// sqlValueToObject converts a database value to a Risor object.
func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	case time.Time:
		return object.NewString(formatTime(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

func pathUsagesToList(usages []*store.PathUsage) object.Object {
	results := make([]object.Object, 0, len(usages))
	for _, u := range usages {
		results = append(results, object.NewMap(map[string]object.Object{
			"module": object.NewString(u.Module),
			"path":   object.NewString(u.Path),
			"kind":   object.NewString(u.Kind),
			"count":  object.NewInt(int64(u.Count)),
			"files":  object.NewInt(int64(u.Files)),
		}))
	}
	return object.NewList(results)
}

func usageNodesToList(nodes []*store.UsageNode) object.Object {
	results := make([]object.Object, 0, len(nodes))
	for _, n := range nodes {
		m := map[string]object.Object{
			"id":        object.NewInt(n.ID),
			"file_id":   object.NewInt(n.FileID),
			"parent_id": object.Nil,
			"module":    object.NewString(n.Module),
			"kind":      object.NewString(n.Kind),
			"name":      object.NewString(n.Name),
			"key":       object.NewString(n.Key),
			"path":      object.NewString(n.Path),
			"count":     object.NewInt(int64(n.Count)),
		}
		if n.ParentID != nil {
			m["parent_id"] = object.NewInt(*n.ParentID)
		}
		results = append(results, object.NewMap(m))
	}
	return object.NewList(results)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
