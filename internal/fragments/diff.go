package fragments

import "sort"

// Change is the difference between two name -> body maps.
type Change struct {
	Appeared    []string
	Disappeared []string
	Updated     []string
}

// Empty reports whether nothing changed.
func (c Change) Empty() bool {
	return len(c.Appeared) == 0 && len(c.Disappeared) == 0 && len(c.Updated) == 0
}

// Names returns every changed name, sorted.
func (c Change) Names() []string {
	names := make([]string, 0, len(c.Appeared)+len(c.Disappeared)+len(c.Updated))
	names = append(names, c.Appeared...)
	names = append(names, c.Disappeared...)
	names = append(names, c.Updated...)
	sort.Strings(names)
	return names
}

// Diff compares the fragment bodies a file held before and after an update.
// A name whose body differs counts as updated. Each result list is sorted.
func Diff(old, new map[string]string) Change {
	var c Change
	for name, body := range new {
		prev, ok := old[name]
		switch {
		case !ok:
			c.Appeared = append(c.Appeared, name)
		case prev != body:
			c.Updated = append(c.Updated, name)
		}
	}
	for name := range old {
		if _, ok := new[name]; !ok {
			c.Disappeared = append(c.Disappeared, name)
		}
	}
	sort.Strings(c.Appeared)
	sort.Strings(c.Disappeared)
	sort.Strings(c.Updated)
	return c
}
