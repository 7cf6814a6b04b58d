package host

import (
	"path"
	"strings"
)

// resolveModule maps an import specifier written in from to a held file.
// Only relative specifiers are resolved. A specifier naming a .js file
// also matches the TypeScript source it compiles from.
func (p *Project) resolveModule(from, spec string) (*file, bool) {
	for _, c := range moduleCandidates(from, spec) {
		if f, ok := p.files[c]; ok {
			return f, true
		}
	}
	return nil, false
}

// moduleCandidates lists the paths spec may name, in lookup order.
func moduleCandidates(from, spec string) []string {
	if !strings.HasPrefix(spec, "./") && !strings.HasPrefix(spec, "../") {
		return nil
	}
	base := path.Join(path.Dir(from), spec)

	candidates := []string{base}
	if ext := path.Ext(base); ext != "" {
		stem := strings.TrimSuffix(base, ext)
		for _, e := range Extensions {
			candidates = append(candidates, stem+e)
		}
	}
	for _, e := range Extensions {
		candidates = append(candidates, base+e)
	}
	for _, e := range Extensions {
		candidates = append(candidates, base+"/index"+e)
	}
	return candidates
}

// Reaches reports whether target is, or would be if it were added, one of
// the modules that name's relative imports and re-exports lead to,
// directly or through other held modules.
func (p *Project) Reaches(name, target string) bool {
	name, target = Clean(name), Clean(target)
	seen := map[string]bool{name: true}
	queue := []string{name}
	for len(queue) > 0 {
		f, ok := p.files[queue[0]]
		queue = queue[1:]
		if !ok {
			continue
		}
		for _, spec := range f.moduleSpecifiers() {
			for _, c := range moduleCandidates(f.path, spec) {
				if c == target {
					return true
				}
			}
			if m, ok := p.resolveModule(f.path, spec); ok && !seen[m.path] {
				seen[m.path] = true
				queue = append(queue, m.path)
			}
		}
	}
	return false
}

// moduleSpecifiers returns the sources of f's top-level import and
// re-export statements.
func (f *file) moduleSpecifiers() []string {
	var out []string
	for i := 0; i < int(f.root.NamedChildCount()); i++ {
		stmt := f.root.NamedChild(i)
		if stmt.Type() != "import_statement" && stmt.Type() != "export_statement" {
			continue
		}
		if src := stmt.ChildByFieldName("source"); src != nil {
			out = append(out, specifierName(f, src))
		}
	}
	return out
}
