package host

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// extToGrammar maps file extensions to grammar names.
var extToGrammar = map[string]string{
	".ts":  "typescript",
	".mts": "typescript",
	".cts": "typescript",
	".tsx": "tsx",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".cjs": "javascript",
}

// Extensions lists the file extensions the host can parse, in the order
// module specifiers are probed.
var Extensions = []string{".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs"}

// grammars is lazily initialized on first call via sync.Once.
var (
	grammars     map[string]*sitter.Language
	grammarsOnce sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		grammars = map[string]*sitter.Language{
			"typescript": ts.GetLanguage(),
			"tsx":        tsx.GetLanguage(),
			"javascript": javascript.GetLanguage(),
		}
	})
}

// Supported reports whether path has an extension the host can parse.
func Supported(path string) bool {
	_, ok := extToGrammar[strings.ToLower(filepath.Ext(path))]
	return ok
}

// grammarFor returns the tree-sitter language for path.
func grammarFor(path string) (*sitter.Language, bool) {
	name, ok := extToGrammar[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, false
	}
	initGrammars()
	l, ok := grammars[name]
	return l, ok
}
