package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is recorded in the metadata table by Migrate.
const SchemaVersion = "1"

// Store is the SQLite data access layer for indexed files, their usage
// forests, and indexing runs.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := s.SetMetadata("schema_version", SchemaVersion); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id                 INTEGER PRIMARY KEY,
  path               TEXT NOT NULL UNIQUE,
  language           TEXT NOT NULL,
  hash               TEXT,
  status             TEXT NOT NULL DEFAULT 'pending',
  error              TEXT NOT NULL DEFAULT '',
  line_count         INTEGER NOT NULL DEFAULT 0,
  resolved           INTEGER NOT NULL DEFAULT 0,
  unresolved         INTEGER NOT NULL DEFAULT 0,
  skipped_imports    INTEGER NOT NULL DEFAULT 0,
  unknown_constructs INTEGER NOT NULL DEFAULT 0,
  rollbacks          INTEGER NOT NULL DEFAULT 0,
  run_id             TEXT NOT NULL DEFAULT '',
  last_indexed       TIMESTAMP
);

CREATE TABLE IF NOT EXISTS usage_nodes (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  parent_id       INTEGER REFERENCES usage_nodes(id),
  module          TEXT NOT NULL,
  kind            TEXT NOT NULL,
  name            TEXT NOT NULL,
  key             TEXT NOT NULL,
  path            TEXT NOT NULL,
  count           INTEGER NOT NULL DEFAULT 0,
  ordinal         INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS node_aliases (
  id              INTEGER PRIMARY KEY,
  node_id         INTEGER NOT NULL REFERENCES usage_nodes(id),
  context         TEXT NOT NULL,
  alias           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
  id              TEXT PRIMARY KEY,
  root            TEXT NOT NULL DEFAULT '',
  started_at      TIMESTAMP NOT NULL,
  finished_at     TIMESTAMP,
  files_indexed   INTEGER NOT NULL DEFAULT 0,
  files_skipped   INTEGER NOT NULL DEFAULT 0,
  files_failed    INTEGER NOT NULL DEFAULT 0,
  nodes           INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_status ON files(status);
CREATE INDEX IF NOT EXISTS idx_usage_nodes_file ON usage_nodes(file_id);
CREATE INDEX IF NOT EXISTS idx_usage_nodes_parent ON usage_nodes(parent_id);
CREATE INDEX IF NOT EXISTS idx_usage_nodes_module ON usage_nodes(module);
CREATE INDEX IF NOT EXISTS idx_usage_nodes_path ON usage_nodes(path);
CREATE INDEX IF NOT EXISTS idx_node_aliases_node ON node_aliases(node_id);
CREATE INDEX IF NOT EXISTS idx_node_aliases_alias ON node_aliases(alias);
`

// DeleteFileData transactionally removes a file's usage forest. The file
// row itself is kept.
func (s *Store) DeleteFileData(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteFileDataTx(tx, fileID); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteFileDataTx(tx *sql.Tx, fileID int64) error {
	if _, err := tx.Exec(
		"DELETE FROM node_aliases WHERE node_id IN (SELECT id FROM usage_nodes WHERE file_id = ?)", fileID,
	); err != nil {
		return fmt.Errorf("delete node aliases: %w", err)
	}
	// Children reference their parent, so drop the self-references first.
	if _, err := tx.Exec("UPDATE usage_nodes SET parent_id = NULL WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("detach usage nodes: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM usage_nodes WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("delete usage nodes: %w", err)
	}
	return nil
}
