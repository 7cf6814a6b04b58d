package store

import (
	"database/sql"
	"fmt"
)

// --- File operations ---

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, hash, last_indexed) VALUES (?, ?, ?)",
		f.Path, f.Hash, f.LastIndexed,
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

func (s *Store) FileByPath(path string) (*File, error) {
	f := &File{}
	err := s.db.QueryRow(
		"SELECT id, path, hash, last_indexed FROM files WHERE path = ?", path,
	).Scan(&f.ID, &f.Path, &f.Hash, &f.LastIndexed)
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
	rows, err := s.db.Query("SELECT id, path, hash, last_indexed FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		if err := rows.Scan(&f.ID, &f.Path, &f.Hash, &f.LastIndexed); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// --- Document operations ---

func (s *Store) InsertDocument(d *Document) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO documents (file_id, ordinal, start_offset, end_offset, text, resolved, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.FileID, d.Ordinal, d.StartOffset, d.EndOffset, d.Text, d.Resolved, d.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	d.ID = id
	return id, nil
}

// DocumentsByFile returns a file's documents in ordinal order.
func (s *Store) DocumentsByFile(fileID int64) ([]*Document, error) {
	rows, err := s.db.Query(
		`SELECT id, file_id, ordinal, start_offset, end_offset, text, resolved, error
		 FROM documents WHERE file_id = ? ORDER BY ordinal`, fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("documents by file: %w", err)
	}
	defer rows.Close()
	var docs []*Document
	for rows.Next() {
		d := &Document{}
		var text, errText sql.NullString
		if err := rows.Scan(&d.ID, &d.FileID, &d.Ordinal, &d.StartOffset, &d.EndOffset, &text, &d.Resolved, &errText); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Text = text.String
		d.Error = errText.String
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// --- Fragment operations ---

func (s *Store) InsertFragment(f *Fragment) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO fragments (document_id, file_id, name, type_condition, text_offset, body)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.DocumentID, f.FileID, f.Name, f.TypeCondition, f.TextOffset, f.Body,
	)
	if err != nil {
		return 0, fmt.Errorf("insert fragment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

func (s *Store) queryFragments(query string, args ...any) ([]*FragmentLocation, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fragments: %w", err)
	}
	defer rows.Close()
	var out []*FragmentLocation
	for rows.Next() {
		f := &FragmentLocation{}
		var cond sql.NullString
		if err := rows.Scan(&f.ID, &f.DocumentID, &f.FileID, &f.Name, &cond, &f.TextOffset, &f.Body, &f.Path); err != nil {
			return nil, fmt.Errorf("scan fragment: %w", err)
		}
		f.TypeCondition = cond.String
		out = append(out, f)
	}
	return out, rows.Err()
}

const fragmentColumns = `SELECT fr.id, fr.document_id, fr.file_id, fr.name, fr.type_condition, fr.text_offset, fr.body, f.path
	FROM fragments fr JOIN files f ON f.id = fr.file_id`

// Fragments returns every fragment ordered by name, then path.
func (s *Store) Fragments() ([]*FragmentLocation, error) {
	return s.queryFragments(fragmentColumns + " ORDER BY fr.name, f.path, fr.id")
}

// FragmentsByName returns every definition of name, ordered by path.
func (s *Store) FragmentsByName(name string) ([]*FragmentLocation, error) {
	return s.queryFragments(fragmentColumns+" WHERE fr.name = ? ORDER BY f.path, fr.id", name)
}

// DuplicateFragmentNames returns names defined more than once, sorted.
func (s *Store) DuplicateFragmentNames() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM fragments GROUP BY name HAVING COUNT(*) > 1 ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("duplicate fragment names: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// --- Spread operations ---

func (s *Store) InsertSpread(sp *Spread) (int64, error) {
	res, err := s.db.Exec("INSERT INTO spreads (document_id, name) VALUES (?, ?)", sp.DocumentID, sp.Name)
	if err != nil {
		return 0, fmt.Errorf("insert spread: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	sp.ID = id
	return id, nil
}

// SpreadsOf returns the fragment names a document spreads, in insert order.
func (s *Store) SpreadsOf(documentID int64) ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM spreads WHERE document_id = ? ORDER BY id", documentID)
	if err != nil {
		return nil, fmt.Errorf("spreads of: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan spread: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
