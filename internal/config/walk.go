package config

import (
	"io/fs"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher applies include and exclude glob patterns to slash-separated
// paths relative to a project root.
type Matcher struct {
	includes []string
	excludes []string
}

// Matcher returns the matcher for the configured patterns.
func (c *Config) Matcher() *Matcher {
	return NewMatcher(c.Include, c.Exclude)
}

// NewMatcher builds a matcher. No includes means every file.
func NewMatcher(includes, excludes []string) *Matcher {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Matcher{includes: includes, excludes: excludes}
}

// Match reports whether rel is included and not excluded.
func (m *Matcher) Match(rel string) bool {
	return m.included(rel) && !m.excluded(rel)
}

func (m *Matcher) included(rel string) bool {
	for _, pattern := range m.includes {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func (m *Matcher) excluded(rel string) bool {
	for _, pattern := range m.excludes {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// Walk returns the files under root that m matches, as paths joined to
// root, in lexical order.
func (m *Matcher) Walk(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && m.excluded(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if m.Match(rel) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
