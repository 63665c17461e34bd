package store

import "fmt"

// Modules summarizes every imported module, most used first.
func (s *Store) Modules() ([]*ModuleSummary, error) {
	rows, err := s.db.Query(`
		SELECT module,
		       SUM(CASE WHEN parent_id IS NULL THEN count ELSE 0 END) AS uses,
		       COUNT(DISTINCT CASE WHEN parent_id IS NOT NULL THEN path END) AS paths,
		       COUNT(DISTINCT file_id) AS files
		FROM usage_nodes
		GROUP BY module
		ORDER BY uses DESC, module`)
	if err != nil {
		return nil, fmt.Errorf("modules: %w", err)
	}
	defer rows.Close()
	var out []*ModuleSummary
	for rows.Next() {
		m := &ModuleSummary{}
		if err := rows.Scan(&m.Module, &m.Uses, &m.Paths, &m.Files); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Usages aggregates access paths below module roots, most used first.
// An empty module means every module; limit <= 0 means no limit.
func (s *Store) Usages(module string, limit int) ([]*PathUsage, error) {
	query := `
		SELECT module, path, kind, SUM(count) AS total, COUNT(DISTINCT file_id)
		FROM usage_nodes
		WHERE parent_id IS NOT NULL`
	var args []any
	if module != "" {
		query += " AND module = ?"
		args = append(args, module)
	}
	query += " GROUP BY module, path, kind ORDER BY total DESC, path"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("usages: %w", err)
	}
	defer rows.Close()
	var out []*PathUsage
	for rows.Next() {
		u := &PathUsage{}
		if err := rows.Scan(&u.Module, &u.Path, &u.Kind, &u.Count, &u.Files); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
