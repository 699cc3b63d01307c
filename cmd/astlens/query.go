package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jward/astlens"
	"github.com/spf13/cobra"
)

var (
	flagDB       string
	flagKind     string
	flagSnapshot int64
)

var queryCmd = &cobra.Command{
	Use:   "query <file>",
	Short: "Look up nodes in a SQLite export",
	Long: "Reads back the newest snapshot of <file> written by 'export --to sqlite' (or the one named by --snapshot) " +
		"and prints the nodes covering --line innermost first, the node at --path with its enclosing nodes, or every node of --kind.",
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&flagDB, "db", "", "database path (default: .astlens/export.db in the repo root)")
	queryCmd.Flags().Int64Var(&flagSnapshot, "snapshot", 0, "snapshot id (default: newest for the file)")
	queryCmd.Flags().IntVar(&flagLine, "line", 0, "1-based source line")
	queryCmd.Flags().StringVar(&flagPath, "path", "", "node path (e.g. root.body.0)")
	queryCmd.Flags().StringVar(&flagKind, "kind", "", "node kind (e.g. ReturnStatement)")
	queryCmd.MarkFlagsMutuallyExclusive("line", "path", "kind")
	queryCmd.MarkFlagsOneRequired("line", "path", "kind")
}

func runQuery(cmd *cobra.Command, args []string) error {
	db := flagDB
	if db == "" && strings.EqualFold(cfg.Export.Format, "sqlite") {
		db = cfg.Export.Out
	}
	if db == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return outputError("query", fmt.Errorf("getting cwd: %w", err))
		}
		db = filepath.Join(findRepoRoot(cwd), ".astlens", "export.db")
	}
	if _, err := os.Stat(db); err != nil {
		return outputError("query", fmt.Errorf("no export database at %s (run 'astlens export --to sqlite' first)", db))
	}

	a, err := astlens.OpenArchive(db, astlens.WithArchiveLogger(logger))
	if err != nil {
		return outputError("query", err)
	}
	defer a.Close()

	res, err := queryArchive(a.Query(), args[0])
	if err != nil {
		return outputError("query", err)
	}
	return outputResult(CLIResult{Command: "query", File: args[0], Results: res})
}

func queryArchive(q *astlens.QueryBuilder, file string) (CLIArchived, error) {
	id := flagSnapshot
	if id == 0 {
		latest, err := q.Latest(file)
		if err != nil {
			return CLIArchived{}, err
		}
		if latest == nil {
			return CLIArchived{}, fmt.Errorf("%s has not been exported", file)
		}
		id = latest.ID
	}

	var nodes []astlens.ArchivedNode
	switch {
	case flagPath != "":
		p, err := astlens.ParsePath(flagPath)
		if err != nil {
			return CLIArchived{}, err
		}
		n, err := q.NodeByPath(id, p)
		if err != nil {
			return CLIArchived{}, err
		}
		if n == nil {
			return CLIArchived{}, fmt.Errorf("no node at path %s in snapshot %d", p, id)
		}
		ancestors, err := q.Ancestors(id, p)
		if err != nil {
			return CLIArchived{}, err
		}
		nodes = append([]astlens.ArchivedNode{*n}, ancestors...)
	case flagLine != 0:
		var err error
		if nodes, err = q.NodesAtLine(id, flagLine); err != nil {
			return CLIArchived{}, err
		}
	case flagKind != "":
		var err error
		if nodes, err = q.NodesByKind(id, flagKind); err != nil {
			return CLIArchived{}, err
		}
	default:
		return CLIArchived{}, errors.New("one of --line, --path or --kind is required")
	}

	out := CLIArchived{Snapshot: id, Nodes: make([]CLIArchivedNode, 0, len(nodes))}
	for _, n := range nodes {
		out.Nodes = append(out.Nodes, CLIArchivedNode{
			Path:  string(n.Path),
			Kind:  n.Kind,
			Label: n.Label,
			Depth: n.Depth,
			Span:  toCLISpan(n.Span),
		})
	}
	return out, nil
}
