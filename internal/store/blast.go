package store

import "fmt"

// FilesSpreading returns the paths of files with a document that spreads
// any of names. These are the files whose external fragments change when
// one of names changes.
func (s *Store) FilesSpreading(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	query := `SELECT DISTINCT f.path
		FROM spreads sp
		JOIN documents d ON d.id = sp.document_id
		JOIN files f ON f.id = d.file_id
		WHERE sp.name IN (` + placeholderList(len(names)) + `)
		ORDER BY f.path`
	rows, err := s.db.Query(query, stringsToArgs(names)...)
	if err != nil {
		return nil, fmt.Errorf("files spreading: %w", err)
	}
	defer rows.Close()
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// FragmentNamesInFiles returns the fragment names defined in the given
// files, sorted and without repeats.
func (s *Store) FragmentNamesInFiles(fileIDs []int64) ([]string, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}
	query := "SELECT DISTINCT name FROM fragments WHERE file_id IN (" + placeholderList(len(fileIDs)) + ") ORDER BY name"
	rows, err := s.db.Query(query, int64sToArgs(fileIDs)...)
	if err != nil {
		return nil, fmt.Errorf("fragment names in files: %w", err)
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
