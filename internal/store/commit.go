package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch inserts all buffered rows from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real
// IDs, and parent and node references within the batch are rewritten
// using the fakeToReal mapping.
//
// Insert order respects FK dependencies:
//  1. Usage nodes (parents are buffered before their children)
//  2. Node aliases (depend on node_id)
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64, len(batch.Nodes))

	// 1. Usage nodes
	for _, n := range batch.Nodes {
		if n.ParentID != nil && *n.ParentID < 0 {
			realID, ok := fakeToReal[*n.ParentID]
			if !ok {
				return fmt.Errorf("commit batch: node %q has parent_id=%d not in fakeToReal map", n.Path, *n.ParentID)
			}
			n.ParentID = &realID
		}
		realID, err := insertUsageNodeTx(tx, &n)
		if err != nil {
			return fmt.Errorf("commit batch: node %q: %w", n.Path, err)
		}
		fakeToReal[n.ID] = realID
	}

	// 2. Node aliases
	for _, a := range batch.Aliases {
		if a.NodeID < 0 {
			realID, ok := fakeToReal[a.NodeID]
			if !ok {
				return fmt.Errorf("commit batch: alias %q has node_id=%d not in fakeToReal map", a.Alias, a.NodeID)
			}
			a.NodeID = realID
		}
		if _, err := insertNodeAliasTx(tx, &a); err != nil {
			return fmt.Errorf("commit batch: alias %q: %w", a.Alias, err)
		}
	}

	return tx.Commit()
}

func insertUsageNodeTx(tx *sql.Tx, n *UsageNode) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO usage_nodes (file_id, parent_id, module, kind, name, key, path, count, ordinal)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.FileID, n.ParentID, n.Module, n.Kind, n.Name, n.Key, n.Path, n.Count, n.Ordinal,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertNodeAliasTx(tx *sql.Tx, a *NodeAlias) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO node_aliases (node_id, context, alias) VALUES (?, ?, ?)",
		a.NodeID, a.Context, a.Alias,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
