package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jward/astlens"
	"github.com/spf13/cobra"
)

// --- tree ---

var (
	flagCollapseAll bool
	flagLine        int
	flagPath        string
	flagSearch      string
)

var treeCmd = &cobra.Command{
	Use:   "tree <file>",
	Short: "Print the syntax tree",
	Long:  "Prints the visible rows of the tree. --line and --path select a node (revealing it), --search highlights and reveals matches.",
	Args:  cobra.ExactArgs(1),
	RunE:  runTree,
}

func init() {
	treeCmd.Flags().BoolVar(&flagCollapseAll, "collapse-all", false, "collapse every node before selecting or searching")
	treeCmd.Flags().IntVar(&flagLine, "line", 0, "select the innermost node covering this 1-based line")
	treeCmd.Flags().StringVar(&flagPath, "path", "", "select the node at this path (e.g. root.body.0)")
	treeCmd.Flags().StringVar(&flagSearch, "search", "", "highlight nodes whose label contains this text")
}

func runTree(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	v, holder, err := newViewer(ctx, args[0])
	if err != nil {
		return outputError("tree", err)
	}
	if flagCollapseAll {
		v.CollapseAll()
	}
	if flagSearch != "" {
		v.Search(flagSearch)
	}
	if err := applySelection(v); err != nil {
		return outputError("tree", err)
	}
	return outputResult(CLIResult{Command: "tree", File: args[0], Results: toCLITree(holder.last)})
}

// applySelection applies --line / --path. Neither flag is a no-op.
func applySelection(v *astlens.Viewer) error {
	switch {
	case flagPath != "":
		p, err := astlens.ParsePath(flagPath)
		if err != nil {
			return err
		}
		if !v.SelectByPath(p) {
			return fmt.Errorf("no node at path %s", p)
		}
	case flagLine != 0:
		if !v.SelectByLine(flagLine) {
			logger.Info("no node covers line", "line", flagLine)
		}
	}
	return nil
}

// --- lines ---

var linesCmd = &cobra.Command{
	Use:   "lines <file>",
	Short: "Print which nodes cover each source line",
	Long:  "Dumps the line index: for every covered line, the nodes spanning it from innermost to outermost. Lines no node covers are omitted.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLines,
}

func runLines(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshot(cmd.Context(), args[0])
	if err != nil {
		return outputError("lines", err)
	}
	index, _ := astlens.BuildIndex(snap.Root)
	source := snap.Lines()

	out := make([]CLILine, 0, index.Len())
	for _, line := range index.Lines() {
		cl := CLILine{Line: line}
		if line <= len(source) {
			cl.Text = source[line-1]
		}
		for _, e := range index.Entries(line) {
			cl.Entries = append(cl.Entries, CLILineEntry{
				Path: string(e.Path),
				Kind: e.Kind,
				Span: *toCLISpan(&e.Span),
			})
		}
		out = append(out, cl)
	}
	return outputResult(CLIResult{Command: "lines", File: args[0], Results: out})
}

// --- select ---

var selectCmd = &cobra.Command{
	Use:   "select <file>",
	Short: "Select a node by line or path and describe it",
	Long:  "Selects the innermost node covering --line, or the node at --path, and prints its label, span, enclosing nodes, properties and source excerpt.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSelect,
}

func init() {
	selectCmd.Flags().IntVar(&flagLine, "line", 0, "1-based source line")
	selectCmd.Flags().StringVar(&flagPath, "path", "", "node path (e.g. root.body.0)")
	selectCmd.MarkFlagsMutuallyExclusive("line", "path")
	selectCmd.MarkFlagsOneRequired("line", "path")
}

func runSelect(cmd *cobra.Command, args []string) error {
	v, holder, err := newViewer(cmd.Context(), args[0])
	if err != nil {
		return outputError("select", err)
	}
	if err := applySelection(v); err != nil {
		return outputError("select", err)
	}
	p, ok := v.Selected()
	if !ok {
		return outputResult(CLIResult{Command: "select", File: args[0], Results: nil})
	}
	d, _ := v.NodeDetails(p)
	sel := CLISelection{
		Path:      string(d.Path),
		Kind:      d.Kind,
		Label:     d.Label,
		Span:      toCLISpan(d.Span),
		Ancestors: []string{},
		Fields:    make([]CLIField, 0, len(d.Fields)),
		Source:    sourceExcerpt(holder.last.Lines, holder.last.SelectedLine, 2),
	}
	for _, anc := range v.Addressing().Ancestors(p) {
		label, _ := v.Label(anc)
		sel.Ancestors = append(sel.Ancestors, label)
	}
	for _, f := range d.Fields {
		sel.Fields = append(sel.Fields, CLIField{Name: f.Name, Kind: f.Kind.String(), Value: f.Value})
	}
	return outputResult(CLIResult{Command: "select", File: args[0], Results: sel})
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <file> <query>",
	Short: "Find nodes whose label contains a query",
	Long:  "Case-insensitive substring search over node labels (kind plus inline summary).",
	Args:  cobra.ExactArgs(2),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	v, _, err := newViewer(cmd.Context(), args[0])
	if err != nil {
		return outputError("search", err)
	}
	addr := v.Addressing()
	matches := v.Search(args[1])
	out := make([]CLIMatch, 0, len(matches))
	for _, p := range matches {
		label, _ := v.Label(p)
		m := CLIMatch{Path: string(p), Label: label}
		if n, ok := addr.NodeAt(p); ok {
			m.Span = toCLISpan(n.Span)
		}
		out = append(out, m)
	}
	return outputResult(CLIResult{Command: "search", File: args[0], Results: out})
}

// --- export ---

var (
	flagTo  string
	flagOut string
)

var exportCmd = &cobra.Command{
	Use:   "export <file>...",
	Short: "Export trees as JSON, YAML or SQLite",
	Long: "Writes the tree of one file as JSON or YAML (to --out or stdout), or appends " +
		"snapshots of one or more files to a SQLite database. Files whose source is " +
		"unchanged since their last SQLite export are skipped.",
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&flagTo, "to", "", "json|yaml|sqlite (default: config export.format)")
	exportCmd.Flags().StringVar(&flagOut, "out", "", "output path (default: stdout; sqlite: .astlens/export.db in the repo root)")
}

func runExport(cmd *cobra.Command, args []string) error {
	to := flagTo
	if to == "" {
		to = cfg.Export.Format
	}
	out := flagOut
	if out == "" {
		out = cfg.Export.Out
	}

	to = strings.ToLower(to)
	if to == "sqlite" {
		res, err := exportSQLite(cmd.Context(), args, out)
		if err != nil {
			return outputError("export", err)
		}
		return outputResult(CLIResult{Command: "export", Results: res})
	}

	format, err := astlens.ParseFormat(to)
	if err != nil {
		return outputError("export", err)
	}
	if len(args) != 1 {
		return outputError("export", errors.New("json and yaml export take exactly one file"))
	}
	snap, err := loadSnapshot(cmd.Context(), args[0])
	if err != nil {
		return outputError("export", err)
	}

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return outputError("export", fmt.Errorf("creating %s: %w", out, err))
		}
		defer f.Close()
		w = f
	}
	// The exported document is the output; no envelope.
	if err := astlens.Export(w, snap.Root, format); err != nil {
		return outputError("export", err)
	}
	return nil
}

func exportSQLite(ctx context.Context, files []string, out string) (CLIArchive, error) {
	if out == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return CLIArchive{}, fmt.Errorf("getting cwd: %w", err)
		}
		out = filepath.Join(findRepoRoot(cwd), ".astlens", "export.db")
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return CLIArchive{}, fmt.Errorf("creating %s: %w", filepath.Dir(out), err)
	}
	if flagAST != "" {
		return CLIArchive{}, errors.New("--ast is not supported with sqlite export")
	}

	l, err := labeler()
	if err != nil {
		return CLIArchive{}, err
	}
	a, err := astlens.OpenArchive(out, astlens.WithArchiveLabeler(l), astlens.WithArchiveLogger(logger))
	if err != nil {
		return CLIArchive{}, err
	}
	defer a.Close()

	res, err := a.ArchiveFiles(ctx, files, language())
	if err != nil {
		return CLIArchive{}, err
	}
	return CLIArchive{Database: out, Written: res.Written, Unchanged: res.Unchanged}, nil
}
