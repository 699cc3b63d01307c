// Package store writes snapshot exports to SQLite: the tree's nodes, the
// line index, and parse diagnostics, one row set per exported snapshot.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for exported snapshots.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS snapshots (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL,
  language        TEXT,
  fingerprint     TEXT NOT NULL,
  fallback        BOOLEAN DEFAULT FALSE,
  source          TEXT NOT NULL,
  exported_at     TIMESTAMP
);

CREATE TABLE IF NOT EXISTS nodes (
  id              INTEGER PRIMARY KEY,
  snapshot_id     INTEGER NOT NULL REFERENCES snapshots(id),
  path            TEXT NOT NULL,
  parent_id       INTEGER REFERENCES nodes(id),
  ordinal         INTEGER NOT NULL,
  depth           INTEGER NOT NULL,
  kind            TEXT NOT NULL,
  label           TEXT NOT NULL,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER,
  UNIQUE (snapshot_id, path)
);

CREATE TABLE IF NOT EXISTS line_entries (
  snapshot_id     INTEGER NOT NULL REFERENCES snapshots(id),
  line            INTEGER NOT NULL,
  rank            INTEGER NOT NULL,
  node_id         INTEGER NOT NULL REFERENCES nodes(id),
  PRIMARY KEY (snapshot_id, line, rank)
);

CREATE TABLE IF NOT EXISTS parse_errors (
  id              INTEGER PRIMARY KEY,
  snapshot_id     INTEGER NOT NULL REFERENCES snapshots(id),
  message         TEXT NOT NULL,
  line            INTEGER,
  col             INTEGER
);

CREATE INDEX IF NOT EXISTS idx_nodes_kind ON nodes(snapshot_id, kind);
CREATE INDEX IF NOT EXISTS idx_line_entries_node ON line_entries(node_id);
`

// Snapshots lists every exported snapshot, oldest first.
func (s *Store) Snapshots() ([]*Snapshot, error) {
	rows, err := s.db.Query(
		`SELECT id, name, language, fingerprint, fallback, source, exported_at
		 FROM snapshots ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("snapshots: %w", err)
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		snap := &Snapshot{}
		var lang sql.NullString
		var exported sql.NullTime
		if err := rows.Scan(&snap.ID, &snap.Name, &lang, &snap.Fingerprint, &snap.Fallback, &snap.Source, &exported); err != nil {
			return nil, fmt.Errorf("snapshots: scan: %w", err)
		}
		snap.Language = lang.String
		snap.ExportedAt = exported.Time
		out = append(out, snap)
	}
	return out, rows.Err()
}

// NodeByPath returns the node exported under path, or nil when absent.
func (s *Store) NodeByPath(snapshotID int64, path string) (*Node, error) {
	row := s.db.QueryRow(
		`SELECT `+nodeColumns+` FROM nodes n
		 LEFT JOIN nodes p ON p.id = n.parent_id
		 WHERE n.snapshot_id = ? AND n.path = ?`, snapshotID, path)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("node by path: %w", err)
	}
	return n, nil
}

// NodesAtLine returns the nodes covering line, innermost first.
func (s *Store) NodesAtLine(snapshotID int64, line int) ([]*Node, error) {
	rows, err := s.db.Query(
		`SELECT `+nodeColumns+` FROM line_entries le
		 JOIN nodes n ON n.id = le.node_id
		 LEFT JOIN nodes p ON p.id = n.parent_id
		 WHERE le.snapshot_id = ? AND le.line = ?
		 ORDER BY le.rank`, snapshotID, line)
	if err != nil {
		return nil, fmt.Errorf("nodes at line: %w", err)
	}
	defer rows.Close()

	var out []*Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("nodes at line: scan: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// NodesByKind returns a snapshot's nodes of one kind in traversal order.
func (s *Store) NodesByKind(snapshotID int64, kind string) ([]*Node, error) {
	rows, err := s.db.Query(
		`SELECT `+nodeColumns+` FROM nodes n
		 LEFT JOIN nodes p ON p.id = n.parent_id
		 WHERE n.snapshot_id = ? AND n.kind = ?
		 ORDER BY n.ordinal`, snapshotID, kind)
	if err != nil {
		return nil, fmt.Errorf("nodes by kind: %w", err)
	}
	defer rows.Close()

	var out []*Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("nodes by kind: scan: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ParseErrors returns a snapshot's diagnostics.
func (s *Store) ParseErrors(snapshotID int64) ([]ParseError, error) {
	rows, err := s.db.Query(
		`SELECT message, line, col FROM parse_errors WHERE snapshot_id = ? ORDER BY id`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("parse errors: %w", err)
	}
	defer rows.Close()

	var out []ParseError
	for rows.Next() {
		var pe ParseError
		var line, col sql.NullInt64
		if err := rows.Scan(&pe.Message, &line, &col); err != nil {
			return nil, fmt.Errorf("parse errors: scan: %w", err)
		}
		pe.Line, pe.Column = int(line.Int64), int(col.Int64)
		out = append(out, pe)
	}
	return out, rows.Err()
}

const nodeColumns = `n.id, n.snapshot_id, n.path, p.path, n.ordinal, n.depth, n.kind, n.label,
  n.start_line, n.start_col, n.end_line, n.end_col`

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(sc scanner) (*Node, error) {
	n := &Node{}
	var parent sql.NullString
	var sl, sc2, el, ec sql.NullInt64
	if err := sc.Scan(&n.ID, &n.SnapshotID, &n.Path, &parent, &n.Ordinal, &n.Depth, &n.Kind, &n.Label,
		&sl, &sc2, &el, &ec); err != nil {
		return nil, err
	}
	n.ParentPath = parent.String
	if sl.Valid {
		n.Span = &Span{
			StartLine: int(sl.Int64),
			StartCol:  int(sc2.Int64),
			EndLine:   int(el.Int64),
			EndCol:    int(ec.Int64),
		}
	}
	return n, nil
}

// LatestSnapshot returns the newest snapshot exported under name, or nil.
// Source is left empty.
func (s *Store) LatestSnapshot(name string) (*Snapshot, error) {
	snap := &Snapshot{}
	var lang sql.NullString
	var exported sql.NullTime
	err := s.db.QueryRow(
		`SELECT id, name, language, fingerprint, fallback, exported_at
		 FROM snapshots WHERE name = ? ORDER BY id DESC LIMIT 1`, name,
	).Scan(&snap.ID, &snap.Name, &lang, &snap.Fingerprint, &snap.Fallback, &exported)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	snap.Language = lang.String
	snap.ExportedAt = exported.Time
	return snap, nil
}

// LatestFingerprint returns the fingerprint of the newest snapshot exported
// under name.
func (s *Store) LatestFingerprint(name string) (string, bool, error) {
	var fp string
	err := s.db.QueryRow(
		`SELECT fingerprint FROM snapshots WHERE name = ? ORDER BY id DESC LIMIT 1`, name,
	).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("latest fingerprint: %w", err)
	}
	return fp, true, nil
}
