package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIDiagnostic is a diagnostic with 1-based line and column.
type CLIDiagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// CLIFragment is a JSON-friendly fragment definition.
type CLIFragment struct {
	Name          string `json:"name"`
	TypeCondition string `json:"type_condition,omitempty"`
	File          string `json:"file"`
	Line          int    `json:"line,omitempty"`
	Body          string `json:"body,omitempty"`
}

// CLIDocument is one resolved (or unresolved) document literal.
type CLIDocument struct {
	File         string          `json:"file"`
	Index        int             `json:"index"`
	Tag          string          `json:"tag,omitempty"`
	Line         int             `json:"line"`
	Resolved     bool            `json:"resolved"`
	Text         string          `json:"text,omitempty"`
	Dependencies []string        `json:"dependencies,omitempty"`
	External     []string        `json:"external,omitempty"`
	Errors       []CLIResolveErr `json:"errors,omitempty"`
}

// CLIResolveErr describes one interpolation that could not be resolved.
type CLIResolveErr struct {
	Expr   string `json:"expr"`
	Reason string `json:"reason"`
	Line   int    `json:"line"`
	Col    int    `json:"col"`
}

// CLIStoredDocument is a persisted document row.
type CLIStoredDocument struct {
	File     string `json:"file"`
	Ordinal  int    `json:"ordinal"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Resolved bool   `json:"resolved"`
	Text     string `json:"text,omitempty"`
	Error    string `json:"error,omitempty"`
}
