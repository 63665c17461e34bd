package store

import (
	"database/sql"
	"fmt"
)

// --- File operations ---

const fileCols = `id, path, language, hash, status, error, line_count,
	resolved, unresolved, skipped_imports, unknown_constructs, rollbacks,
	run_id, last_indexed`

func (s *Store) InsertFile(f *File) (int64, error) {
	if f.Status == "" {
		f.Status = StatusPending
	}
	res, err := s.db.Exec(
		`INSERT INTO files (path, language, hash, status, error, line_count, run_id, last_indexed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Path, f.Language, f.Hash, f.Status, f.Error, f.LineCount, f.RunID, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

// UpdateFileResult records the outcome of analyzing a file.
func (s *Store) UpdateFileResult(fileID int64, status, errMsg string, stats FileStats) error {
	_, err := s.db.Exec(
		`UPDATE files SET status = ?, error = ?, resolved = ?, unresolved = ?,
			skipped_imports = ?, unknown_constructs = ?, rollbacks = ?
		 WHERE id = ?`,
		status, errMsg, stats.Resolved, stats.Unresolved,
		stats.SkippedImports, stats.UnknownConstructs, stats.Rollbacks, fileID,
	)
	if err != nil {
		return fmt.Errorf("update file result: %w", err)
	}
	return nil
}

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	var hash sql.NullString
	var lastIndexed sql.NullTime
	err := scanner.Scan(
		&f.ID, &f.Path, &f.Language, &hash, &f.Status, &f.Error, &f.LineCount,
		&f.Stats.Resolved, &f.Stats.Unresolved, &f.Stats.SkippedImports,
		&f.Stats.UnknownConstructs, &f.Stats.Rollbacks,
		&f.RunID, &lastIndexed,
	)
	if err != nil {
		return nil, err
	}
	f.Hash = hash.String
	f.LastIndexed = lastIndexed.Time
	return f, nil
}

func (s *Store) queryFiles(query string, args ...any) ([]*File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// FileByPath returns nil, nil when the path is not indexed.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// Files returns every indexed file ordered by path.
func (s *Store) Files() ([]*File, error) {
	files, err := s.queryFiles("SELECT " + fileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	return files, nil
}

func (s *Store) FilesByStatus(status string) ([]*File, error) {
	files, err := s.queryFiles("SELECT "+fileCols+" FROM files WHERE status = ? ORDER BY path", status)
	if err != nil {
		return nil, fmt.Errorf("files by status: %w", err)
	}
	return files, nil
}

// --- Usage node operations ---

const nodeCols = `id, file_id, parent_id, module, kind, name, key, path, count, ordinal`

func (s *Store) InsertUsageNode(n *UsageNode) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO usage_nodes (file_id, parent_id, module, kind, name, key, path, count, ordinal)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.FileID, n.ParentID, n.Module, n.Kind, n.Name, n.Key, n.Path, n.Count, n.Ordinal,
	)
	if err != nil {
		return 0, fmt.Errorf("insert usage node: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	n.ID = id
	return id, nil
}

func scanUsageNode(scanner interface{ Scan(...any) error }) (*UsageNode, error) {
	n := &UsageNode{}
	err := scanner.Scan(
		&n.ID, &n.FileID, &n.ParentID, &n.Module, &n.Kind, &n.Name,
		&n.Key, &n.Path, &n.Count, &n.Ordinal,
	)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Store) queryUsageNodes(query string, args ...any) ([]*UsageNode, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var nodes []*UsageNode
	for rows.Next() {
		n, err := scanUsageNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan usage node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// UsageNodesByFile returns a file's nodes in insertion order, which puts
// every parent before its children.
func (s *Store) UsageNodesByFile(fileID int64) ([]*UsageNode, error) {
	return s.queryUsageNodes("SELECT "+nodeCols+" FROM usage_nodes WHERE file_id = ? ORDER BY id", fileID)
}

// NodeChildren returns the direct children of a node in creation order.
func (s *Store) NodeChildren(nodeID int64) ([]*UsageNode, error) {
	return s.queryUsageNodes("SELECT "+nodeCols+" FROM usage_nodes WHERE parent_id = ? ORDER BY ordinal", nodeID)
}

// UsageNodesByPath returns every node, across files, with the given path.
func (s *Store) UsageNodesByPath(path string) ([]*UsageNode, error) {
	return s.queryUsageNodes("SELECT "+nodeCols+" FROM usage_nodes WHERE path = ? ORDER BY file_id, id", path)
}

// --- Alias operations ---

func (s *Store) InsertNodeAlias(a *NodeAlias) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO node_aliases (node_id, context, alias) VALUES (?, ?, ?)",
		a.NodeID, a.Context, a.Alias,
	)
	if err != nil {
		return 0, fmt.Errorf("insert node alias: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	a.ID = id
	return id, nil
}

func (s *Store) queryAliases(query string, args ...any) ([]*NodeAlias, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var aliases []*NodeAlias
	for rows.Next() {
		a := &NodeAlias{}
		if err := rows.Scan(&a.ID, &a.NodeID, &a.Context, &a.Alias); err != nil {
			return nil, fmt.Errorf("scan node alias: %w", err)
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

// AliasesForNode returns a node's aliases ordered by context, then alias.
func (s *Store) AliasesForNode(nodeID int64) ([]*NodeAlias, error) {
	return s.queryAliases(
		"SELECT id, node_id, context, alias FROM node_aliases WHERE node_id = ? ORDER BY context, alias", nodeID,
	)
}

// AliasesByFile returns every alias of a file's nodes.
func (s *Store) AliasesByFile(fileID int64) ([]*NodeAlias, error) {
	return s.queryAliases(
		`SELECT a.id, a.node_id, a.context, a.alias FROM node_aliases a
		 JOIN usage_nodes n ON n.id = a.node_id
		 WHERE n.file_id = ? ORDER BY a.id`, fileID,
	)
}
