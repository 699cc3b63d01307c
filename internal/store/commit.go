package store

import (
	"database/sql"
	"fmt"
	"time"
)

// CommitExport writes one snapshot export in a single transaction and
// returns the new snapshot id.
//
// Insert order respects FK dependencies:
//  1. Snapshot
//  2. Nodes (parent_id resolved from ParentPath; parents come first)
//  3. Line entries (node_id resolved from Path)
//  4. Parse errors
func (s *Store) CommitExport(exp *Export) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("commit export: begin: %w", err)
	}
	defer tx.Rollback()

	exportedAt := exp.Snapshot.ExportedAt
	if exportedAt.IsZero() {
		exportedAt = time.Now()
	}
	res, err := tx.Exec(
		`INSERT INTO snapshots (name, language, fingerprint, fallback, source, exported_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		exp.Snapshot.Name, nullString(exp.Snapshot.Language), exp.Snapshot.Fingerprint,
		exp.Snapshot.Fallback, exp.Snapshot.Source, exportedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("commit export: snapshot: %w", err)
	}
	snapID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("commit export: snapshot id: %w", err)
	}

	nodeStmt, err := tx.Prepare(
		`INSERT INTO nodes (snapshot_id, path, parent_id, ordinal, depth, kind, label,
		   start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("commit export: prepare nodes: %w", err)
	}
	defer nodeStmt.Close()

	pathToID := make(map[string]int64, len(exp.Nodes))
	for _, n := range exp.Nodes {
		var parentID sql.NullInt64
		if n.ParentPath != "" {
			id, ok := pathToID[n.ParentPath]
			if !ok {
				return 0, fmt.Errorf("commit export: node %q: parent %q not exported before it", n.Path, n.ParentPath)
			}
			parentID = sql.NullInt64{Int64: id, Valid: true}
		}
		var sl, sc, el, ec sql.NullInt64
		if n.Span != nil {
			sl, sc = nullInt(n.Span.StartLine), nullInt(n.Span.StartCol)
			el, ec = nullInt(n.Span.EndLine), nullInt(n.Span.EndCol)
		}
		res, err := nodeStmt.Exec(snapID, n.Path, parentID, n.Ordinal, n.Depth, n.Kind, n.Label, sl, sc, el, ec)
		if err != nil {
			return 0, fmt.Errorf("commit export: node %q: %w", n.Path, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("commit export: node %q id: %w", n.Path, err)
		}
		pathToID[n.Path] = id
	}

	lineStmt, err := tx.Prepare(
		`INSERT INTO line_entries (snapshot_id, line, rank, node_id) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("commit export: prepare lines: %w", err)
	}
	defer lineStmt.Close()

	for _, le := range exp.Lines {
		nodeID, ok := pathToID[le.Path]
		if !ok {
			return 0, fmt.Errorf("commit export: line %d: unknown node %q", le.Line, le.Path)
		}
		if _, err := lineStmt.Exec(snapID, le.Line, le.Rank, nodeID); err != nil {
			return 0, fmt.Errorf("commit export: line %d: %w", le.Line, err)
		}
	}

	for _, pe := range exp.Errors {
		if _, err := tx.Exec(
			`INSERT INTO parse_errors (snapshot_id, message, line, col) VALUES (?, ?, ?, ?)`,
			snapID, pe.Message, nullInt(pe.Line), nullInt(pe.Column),
		); err != nil {
			return 0, fmt.Errorf("commit export: parse error: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit export: %w", err)
	}
	return snapID, nil
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
