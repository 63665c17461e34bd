package store

import (
	"fmt"

	"github.com/jward/apiforest/internal/forest"
)

// WriteForest writes every node and alias of f for fileID through w,
// parents before children.
func WriteForest(w NodeWriter, fileID int64, f *forest.Forest) error {
	var write func(n *forest.UsageNode, parentID *int64, ordinal int) error
	write = func(n *forest.UsageNode, parentID *int64, ordinal int) error {
		row := &UsageNode{
			FileID:   fileID,
			ParentID: parentID,
			Module:   n.Root().Key,
			Kind:     n.Kind.String(),
			Name:     n.ID,
			Key:      n.Key,
			Path:     n.Path(),
			Count:    n.Count(),
			Ordinal:  ordinal,
		}
		id, err := w.InsertUsageNode(row)
		if err != nil {
			return fmt.Errorf("write node %s: %w", row.Path, err)
		}
		for _, ctx := range n.Contexts() {
			for _, alias := range n.Aliases(ctx) {
				if _, err := w.InsertNodeAlias(&NodeAlias{NodeID: id, Context: string(ctx), Alias: alias}); err != nil {
					return fmt.Errorf("write alias %s: %w", alias, err)
				}
			}
		}
		for i, c := range n.Children() {
			if err := write(c, &id, i); err != nil {
				return err
			}
		}
		return nil
	}
	for i, r := range f.Roots() {
		if err := write(r, nil, i); err != nil {
			return err
		}
	}
	return nil
}

// LoadForest rebuilds the forest stored for one file.
func (s *Store) LoadForest(fileID int64) (*forest.Forest, error) {
	rows, err := s.UsageNodesByFile(fileID)
	if err != nil {
		return nil, fmt.Errorf("load forest: %w", err)
	}
	aliases, err := s.AliasesByFile(fileID)
	if err != nil {
		return nil, fmt.Errorf("load forest: %w", err)
	}

	f := forest.New()
	built := make(map[int64]*forest.UsageNode, len(rows))
	for _, row := range rows {
		kind, ok := forest.ParseNodeKind(row.Kind)
		if !ok {
			return nil, fmt.Errorf("load forest: node %d has unknown kind %q", row.ID, row.Kind)
		}
		var n *forest.UsageNode
		if row.ParentID == nil {
			n = f.EnsureRoot(row.Key)
		} else {
			parent, ok := built[*row.ParentID]
			if !ok {
				return nil, fmt.Errorf("load forest: node %d has missing parent %d", row.ID, *row.ParentID)
			}
			n = f.EnsureChild(parent, kind, row.Key)
		}
		if err := n.Observe(row.Count); err != nil {
			return nil, fmt.Errorf("load forest: node %d: %w", row.ID, err)
		}
		built[row.ID] = n
	}
	for _, a := range aliases {
		if n, ok := built[a.NodeID]; ok {
			f.AddAlias(n, forest.Context(a.Context), a.Alias)
		}
	}
	return f, nil
}

// LoadMergedForest folds the forests of every indexed file into one.
func (s *Store) LoadMergedForest() (*forest.Forest, error) {
	files, err := s.FilesByStatus(StatusIndexed)
	if err != nil {
		return nil, err
	}
	merged := forest.New()
	for _, file := range files {
		f, err := s.LoadForest(file.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file.Path, err)
		}
		merged.Merge(f)
	}
	return merged, nil
}
