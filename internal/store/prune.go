package store

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FilesNotIn returns the IDs of indexed files under root whose path is not
// in keep, such as files deleted since the last run. An empty root covers
// every file.
func (s *Store) FilesNotIn(root string, keep []string) ([]int64, error) {
	present := make(map[string]bool, len(keep))
	for _, p := range keep {
		present[p] = true
	}
	rows, err := s.db.Query("SELECT id, path FROM files")
	if err != nil {
		return nil, fmt.Errorf("files not in: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		var path string
		if err := rows.Scan(&id, &path); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		if !present[path] && underRoot(path, root) {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

// DeleteFiles removes files and their forests in one transaction.
func (s *Store) DeleteFiles(fileIDs []int64) error {
	if len(fileIDs) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range fileIDs {
		if err := deleteFileDataTx(tx, id); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		"DELETE FROM files WHERE id IN ("+placeholderList(len(fileIDs))+")", int64sToArgs(fileIDs)...,
	); err != nil {
		return fmt.Errorf("delete files: %w", err)
	}
	return tx.Commit()
}

func underRoot(path, root string) bool {
	if root == "" || path == root {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}
