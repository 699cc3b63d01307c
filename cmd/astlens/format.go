package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
)

var (
	selectedStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	highlightStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	expanderGlyphs   = map[string]string{"expanded": "▾", "collapsed": "▸", "leaf": "•"}
	selectedLineMark = selectedStyle.Render("→")
)

// formatTreeText draws visible rows as an indented outline.
func formatTreeText(w io.Writer, t CLITree) {
	if t.Fallback {
		fmt.Fprintln(w, dimStyle.Render("(fallback tree: one node per source line)"))
	}
	for _, pe := range t.Errors {
		fmt.Fprintln(w, errorStyle.Render(formatParseError(pe)))
	}
	for _, r := range t.Rows {
		label := r.Label
		switch {
		case r.Selected:
			label = selectedStyle.Render(label)
		case r.Highlighted:
			label = highlightStyle.Render(label)
		}
		line := fmt.Sprintf("%s%s %s", strings.Repeat("  ", r.Depth), expanderGlyphs[r.State], label)
		if r.Span != nil {
			line += " " + dimStyle.Render(spanText(*r.Span))
		}
		fmt.Fprintln(w, line)
	}
	if t.Query != "" {
		fmt.Fprintf(w, "\n%d match(es) for %q\n", len(t.Matches), t.Query)
	}
}

// formatLinesText formats the line index as aligned columns.
func formatLinesText(w io.Writer, lines []CLILine) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tINNERMOST\tKIND\tDEPTH\tTEXT")
	for _, l := range lines {
		inner := l.Entries[0]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n",
			l.Line, inner.Path, inner.Kind, len(l.Entries), strings.TrimSpace(l.Text))
	}
	tw.Flush()
}

// formatSelectionText formats a selected node and its properties.
func formatSelectionText(w io.Writer, s CLISelection) {
	fmt.Fprintln(w, selectedStyle.Render(s.Label))
	fmt.Fprintf(w, "Path: %s\n", s.Path)
	if s.Span != nil {
		fmt.Fprintf(w, "Span: %s\n", spanText(*s.Span))
	}
	if len(s.Ancestors) > 0 {
		fmt.Fprintf(w, "Within: %s\n", strings.Join(s.Ancestors, " > "))
	}
	if len(s.Fields) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FIELD\tKIND\tVALUE")
		for _, f := range s.Fields {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, f.Kind, f.Value)
		}
		tw.Flush()
	}
	if s.Source != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, s.Source)
	}
}

// formatMatchesText formats search hits as aligned columns.
func formatMatchesText(w io.Writer, matches []CLIMatch) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tLABEL\tLINES")
	for _, m := range matches {
		lines := "-"
		if m.Span != nil {
			lines = spanText(*m.Span)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Path, m.Label, lines)
	}
	tw.Flush()
}

// formatArchiveText reports what a SQLite export wrote.
func formatArchiveText(w io.Writer, a CLIArchive) {
	fmt.Fprintf(w, "Database: %s\n", a.Database)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSNAPSHOT")
	files := make([]string, 0, len(a.Written))
	for file := range a.Written {
		files = append(files, file)
	}
	sort.Strings(files)
	for _, file := range files {
		fmt.Fprintf(tw, "%s\t%d\n", file, a.Written[file])
	}
	for _, file := range a.Unchanged {
		fmt.Fprintf(tw, "%s\tunchanged\n", file)
	}
	tw.Flush()
}

// formatArchivedText formats nodes read back from an export.
func formatArchivedText(w io.Writer, a CLIArchived) {
	fmt.Fprintf(w, "Snapshot: %d\n", a.Snapshot)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tLABEL\tDEPTH\tLINES")
	for _, n := range a.Nodes {
		lines := "-"
		if n.Span != nil {
			lines = spanText(*n.Span)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", n.Path, n.Label, n.Depth, lines)
	}
	tw.Flush()
}

// sourceExcerpt renders lines around the selected line with a marker.
func sourceExcerpt(lines []string, selected, around int) string {
	if selected < 1 || selected > len(lines) {
		return ""
	}
	from := max(selected-around, 1)
	to := min(selected+around, len(lines))
	var b strings.Builder
	for n := from; n <= to; n++ {
		mark := " "
		text := lines[n-1]
		if n == selected {
			mark = selectedLineMark
			text = selectedStyle.Render(text)
		}
		fmt.Fprintf(&b, "%s %s %s\n", mark, dimStyle.Render(fmt.Sprintf("%4d", n)), text)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func spanText(s CLISpan) string {
	if s.StartLine == s.EndLine {
		return fmt.Sprintf("%d:%d-%d", s.StartLine, s.StartCol, s.EndCol)
	}
	return fmt.Sprintf("%d:%d-%d:%d", s.StartLine, s.StartCol, s.EndLine, s.EndCol)
}

func formatParseError(pe CLIParseError) string {
	if pe.Line == 0 {
		return "error: " + pe.Message
	}
	return fmt.Sprintf("error: %d:%d: %s", pe.Line, pe.Col, pe.Message)
}

// outputResult writes result as JSON, or as text via the type's formatter.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(os.Stdout, result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case CLITree:
		formatTreeText(w, v)
	case []CLILine:
		formatLinesText(w, v)
	case CLISelection:
		formatSelectionText(w, v)
	case []CLIMatch:
		formatMatchesText(w, v)
	case CLIArchive:
		formatArchiveText(w, v)
	case CLIArchived:
		formatArchivedText(w, v)
	case nil:
		// No output for nil results (e.g., a line no node covers).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
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
