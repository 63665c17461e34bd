package store

import (
	"database/sql"
	"fmt"
	"time"
)

// --- Run operations ---

func (s *Store) InsertRun(r *Run) error {
	_, err := s.db.Exec(
		"INSERT INTO runs (id, root, started_at) VALUES (?, ?, ?)",
		r.ID, r.Root, r.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stamps the run's end time and totals.
func (s *Store) FinishRun(r *Run) error {
	now := time.Now()
	r.FinishedAt = &now
	_, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, files_indexed = ?, files_skipped = ?, files_failed = ?, nodes = ?
		 WHERE id = ?`,
		now, r.FilesIndexed, r.FilesSkipped, r.FilesFailed, r.Nodes, r.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Runs returns runs newest first.
func (s *Store) Runs() ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT id, root, started_at, finished_at, files_indexed, files_skipped, files_failed, nodes
		 FROM runs ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	defer rows.Close()
	var runs []*Run
	for rows.Next() {
		r := &Run{}
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Root, &r.StartedAt, &finished,
			&r.FilesIndexed, &r.FilesSkipped, &r.FilesFailed, &r.Nodes); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if finished.Valid {
			r.FinishedAt = &finished.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// --- Metadata ---

// GetMetadata returns "" when the key is unset.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata: %w", err)
	}
	return value, nil
}

func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	return nil
}
