package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for the batch index.
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
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  hash            TEXT NOT NULL,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS documents (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  ordinal         INTEGER NOT NULL,
  start_offset    INTEGER NOT NULL,
  end_offset      INTEGER NOT NULL,
  text            TEXT,
  resolved        BOOLEAN NOT NULL DEFAULT FALSE,
  error           TEXT
);

CREATE TABLE IF NOT EXISTS fragments (
  id              INTEGER PRIMARY KEY,
  document_id     INTEGER NOT NULL REFERENCES documents(id),
  file_id         INTEGER NOT NULL REFERENCES files(id),
  name            TEXT NOT NULL,
  type_condition  TEXT,
  text_offset     INTEGER NOT NULL,
  body            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS spreads (
  id              INTEGER PRIMARY KEY,
  document_id     INTEGER NOT NULL REFERENCES documents(id),
  name            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

CREATE INDEX IF NOT EXISTS idx_documents_file ON documents(file_id);
CREATE INDEX IF NOT EXISTS idx_fragments_name ON fragments(name);
CREATE INDEX IF NOT EXISTS idx_fragments_file ON fragments(file_id);
CREATE INDEX IF NOT EXISTS idx_spreads_document ON spreads(document_id);
CREATE INDEX IF NOT EXISTS idx_spreads_name ON spreads(name);
`

// DeleteFileData transactionally removes a file and everything indexed
// from it. Deletes in reverse-dependency order to respect FK constraints.
func (s *Store) DeleteFileData(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteFileTx(tx, fileID, true); err != nil {
		return err
	}
	return tx.Commit()
}

// deleteFileTx removes a file's documents, fragments and spreads, and the
// file row itself when dropFile is set.
func deleteFileTx(tx *sql.Tx, fileID int64, dropFile bool) error {
	stmts := []string{
		"DELETE FROM spreads WHERE document_id IN (SELECT id FROM documents WHERE file_id = ?)",
		"DELETE FROM fragments WHERE file_id = ?",
		"DELETE FROM documents WHERE file_id = ?",
	}
	if dropFile {
		stmts = append(stmts, "DELETE FROM files WHERE id = ?")
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, fileID); err != nil {
			return fmt.Errorf("delete file data: %w", err)
		}
	}
	return nil
}

// SetMetadata stores a key/value pair, replacing any previous value.
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

// Metadata returns the value stored for key, or "" when unset.
func (s *Store) Metadata(key string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("metadata: %w", err)
	}
	return value.String, nil
}
