package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/fatih/color"
)

var (
	errorStyle   = color.New(color.Bold, color.FgHiRed)
	warningStyle = color.New(color.Bold, color.FgYellow)
	fileStyle    = color.New(color.Bold)
	codeStyle    = color.New(color.FgHiBlack)
	nameStyle    = color.New(color.FgHiBlue)
)

// lineCol converts a byte offset in text to a 1-based line and column.
// Columns count runes.
func lineCol(text string, offset int) (int, int) {
	offset = min(max(offset, 0), len(text))
	head := text[:offset]
	line := strings.Count(head, "\n") + 1
	lineStart := strings.LastIndexByte(head, '\n') + 1
	return line, utf8.RuneCountInString(head[lineStart:]) + 1
}

// formatDiagnosticsText writes one "file:line:col: severity: message [code]"
// line per diagnostic, followed by a summary.
func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic) {
	var errs, warns int
	for _, d := range diags {
		sev := warningStyle
		if d.Severity == "error" {
			sev = errorStyle
			errs++
		} else {
			warns++
		}
		fmt.Fprintf(w, "%s: %s %s %s\n",
			fileStyle.Sprintf("%s:%d:%d", d.File, d.Line, d.Col),
			sev.Sprint(d.Severity+":"),
			d.Message,
			codeStyle.Sprintf("[%s]", d.Code),
		)
	}
	if len(diags) > 0 {
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d error(s), %d warning(s)\n", errs, warns)
}

// formatFragmentsText formats CLIFragment results as aligned columns.
func formatFragmentsText(w io.Writer, frags []CLIFragment) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tON\tFILE")
	for _, f := range frags {
		loc := f.File
		if f.Line > 0 {
			loc = fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", nameStyle.Sprint(f.Name), f.TypeCondition, loc)
	}
	tw.Flush()
}

// formatDuplicatesText groups duplicated fragment definitions by name.
func formatDuplicatesText(w io.Writer, dups map[string][]CLIFragment) {
	names := make([]string, 0, len(dups))
	for name := range dups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s (%d definitions)\n", nameStyle.Sprint(name), len(dups[name]))
		for _, f := range dups[name] {
			fmt.Fprintf(w, "  %s\n", f.File)
		}
	}
}

// formatDocumentsText prints each document's resolved text, or why it did
// not resolve.
func formatDocumentsText(w io.Writer, docs []CLIDocument) {
	for i, d := range docs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, fileStyle.Sprintf("# %s:%d (#%d)", d.File, d.Line, d.Index))
		if !d.Resolved {
			for _, e := range d.Errors {
				fmt.Fprintf(w, "%s cannot resolve %s at %d:%d: %s\n",
					warningStyle.Sprint("warning:"), e.Expr, e.Line, e.Col, e.Reason)
			}
			continue
		}
		fmt.Fprintln(w, strings.TrimSpace(d.Text))
		if len(d.External) > 0 {
			fmt.Fprintf(w, "%s %s\n", codeStyle.Sprint("# external:"), strings.Join(d.External, ", "))
		}
	}
}

// formatStoredDocumentsText formats persisted documents as aligned columns.
func formatStoredDocumentsText(w io.Writer, docs []CLIStoredDocument) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTART\tEND\tSTATUS")
	for _, d := range docs {
		status := "resolved"
		if !d.Resolved {
			status = strings.ReplaceAll(d.Error, "\n", "; ")
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\n", d.Ordinal, d.Start, d.End, status)
	}
	tw.Flush()
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to stdout through color.Output.
func outputResultText(result CLIResult) error {
	w := color.Output
	switch v := result.Results.(type) {
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v)
	case []CLIFragment:
		formatFragmentsText(w, v)
	case map[string][]CLIFragment:
		formatDuplicatesText(w, v)
	case []CLIDocument:
		formatDocumentsText(w, v)
	case []CLIStoredDocument:
		formatStoredDocumentsText(w, v)
	case []string:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Sprint("Error:"), err)
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
