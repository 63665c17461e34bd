// Package apiforest measures how Python code uses the modules it imports.
// For every file it builds a usage forest: one tree per imported module whose
// nodes are the attribute, call and subscript paths reached from that import,
// each with the number of times it was used.
//
// # Pipeline
//
// Indexing a file runs three steps:
//
//  1. Parse the source with tree-sitter and convert the concrete syntax tree
//     into the closed set of constructs in internal/syntax.
//
//  2. Walk the tree with the analyzer in internal/forest. Imports create
//     roots, assignments bind aliases to nodes in a scope context such as
//     "global.fetch", and each access path is resolved against the visible
//     aliases. Aliases bound inside one branch of an if or try are rolled
//     back when the branch ends.
//
//  3. Write the forest, its aliases and per-file statistics to SQLite.
//
// Files are analyzed on a worker pool; store writes are applied serially.
//
// # Usage
//
//	e, err := apiforest.New(".apiforest/index.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	run, err := e.IndexDirectory(ctx, "path/to/project")
//	top, err := e.Query().TopUsages(20)
//
// A single source can be analyzed without a database through
// [Engine.AnalyzeSource] or [Engine.AnalyzeFile].
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] reads the index:
//
//   - [QueryBuilder.Modules] summarizes each imported module.
//   - [QueryBuilder.TopUsages] and [QueryBuilder.UsagesUnder] rank access
//     paths by total count.
//   - [QueryBuilder.Forest] rebuilds the forest of one file and
//     [QueryBuilder.MergedForest] sums all of them.
//   - [QueryBuilder.Files], [QueryBuilder.FailedFiles] and [QueryBuilder.Runs]
//     describe indexing state.
//
// # Incremental Indexing
//
// Unchanged files are detected by content hash and skipped. Changing the
// analyzer version stored in the database, or passing [WithForce], reindexes
// everything. [Engine.IndexDirectory] also drops files that disappeared from
// the indexed root.
//
// # Reports
//
// Reports are Risor scripts run against the index with [Engine.RunReport].
// Scripts call host functions such as modules(), top_usages(n) and
// db_query(sql) and hand results back with emit(value). The bundled reports
// live in the scripts package.
package apiforest
