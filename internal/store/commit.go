package store

import (
	"database/sql"
	"fmt"
	"time"
)

// CommitBatch replaces everything indexed for the batch's file within a
// single transaction. The file row is inserted or updated, the file's old
// documents are deleted, and the buffered rows are inserted with fake
// (negative) IDs remapped to real ones.
//
// Insert order respects FK dependencies:
//  1. Documents (depend on file_id)
//  2. Fragments (depend on document_id, file_id)
//  3. Spreads (depend on document_id)
func (s *Store) CommitBatch(batch *BatchedStore) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fileID, err := upsertFileTx(tx, batch.Path, batch.Hash)
	if err != nil {
		return 0, fmt.Errorf("commit batch: file %s: %w", batch.Path, err)
	}
	if err := deleteFileTx(tx, fileID, false); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}

	fakeToReal := make(map[int64]int64)

	// 1. Documents
	for _, d := range batch.Documents {
		d.FileID = fileID
		realID, err := insertDocumentTx(tx, &d)
		if err != nil {
			return 0, fmt.Errorf("commit batch: document %d: %w", d.Ordinal, err)
		}
		fakeToReal[d.ID] = realID
	}

	// 2. Fragments
	for _, f := range batch.Fragments {
		f.FileID = fileID
		if f.DocumentID < 0 {
			f.DocumentID = fakeToReal[f.DocumentID]
		}
		if _, err := insertFragmentTx(tx, &f); err != nil {
			return 0, fmt.Errorf("commit batch: fragment %q: %w", f.Name, err)
		}
	}

	// 3. Spreads
	for _, sp := range batch.Spreads {
		if sp.DocumentID < 0 {
			sp.DocumentID = fakeToReal[sp.DocumentID]
		}
		if _, err := tx.Exec("INSERT INTO spreads (document_id, name) VALUES (?, ?)", sp.DocumentID, sp.Name); err != nil {
			return 0, fmt.Errorf("commit batch: spread %q: %w", sp.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	return fileID, nil
}

// --- Transaction-scoped insert helpers ---
// These mirror the Store insert methods but accept *sql.Tx instead of using s.db.

func upsertFileTx(tx *sql.Tx, path, hash string) (int64, error) {
	now := time.Now().UTC().Truncate(time.Second)
	var id int64
	err := tx.QueryRow("SELECT id FROM files WHERE path = ?", path).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Exec("INSERT INTO files (path, hash, last_indexed) VALUES (?, ?, ?)", path, hash, now)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	case err != nil:
		return 0, err
	}
	if _, err := tx.Exec("UPDATE files SET hash = ?, last_indexed = ? WHERE id = ?", hash, now, id); err != nil {
		return 0, err
	}
	return id, nil
}

func insertDocumentTx(tx *sql.Tx, d *Document) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO documents (file_id, ordinal, start_offset, end_offset, text, resolved, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.FileID, d.Ordinal, d.StartOffset, d.EndOffset, d.Text, d.Resolved, d.Error,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertFragmentTx(tx *sql.Tx, f *Fragment) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO fragments (document_id, file_id, name, type_condition, text_offset, body)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.DocumentID, f.FileID, f.Name, f.TypeCondition, f.TextOffset, f.Body,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
