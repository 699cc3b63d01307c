package astlens

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jward/astlens/internal/store"
)

// QueryBuilder reads snapshots back out of an Archive.
type QueryBuilder struct {
	store *store.Store
}

// Query returns a QueryBuilder over the archive's database.
func (a *Archive) Query() *QueryBuilder {
	return &QueryBuilder{store: a.store}
}

// ArchivedSnapshot describes one stored export.
type ArchivedSnapshot struct {
	ID          int64
	Name        string
	Language    string
	Fingerprint string
	Fallback    bool
	ExportedAt  time.Time
}

// ArchivedNode is a stored node. Parent is empty for the root.
type ArchivedNode struct {
	Path   Path
	Parent Path
	Kind   string
	Label  string
	Depth  int
	Span   *Span
}

// Snapshots lists every stored export, oldest first.
func (q *QueryBuilder) Snapshots() ([]ArchivedSnapshot, error) {
	snaps, err := q.store.Snapshots()
	if err != nil {
		return nil, fmt.Errorf("astlens: query: %w", err)
	}
	out := make([]ArchivedSnapshot, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, toArchivedSnapshot(s))
	}
	return out, nil
}

// Latest returns the newest export stored under name, or nil when there is
// none.
func (q *QueryBuilder) Latest(name string) (*ArchivedSnapshot, error) {
	snap, err := q.store.LatestSnapshot(name)
	if err != nil {
		return nil, fmt.Errorf("astlens: query: %w", err)
	}
	if snap == nil {
		return nil, nil
	}
	as := toArchivedSnapshot(snap)
	return &as, nil
}

// Source returns the source text stored with a snapshot.
func (q *QueryBuilder) Source(snapshotID int64) (string, error) {
	var src string
	err := q.store.DB().QueryRow(`SELECT source FROM snapshots WHERE id = ?`, snapshotID).Scan(&src)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("astlens: source: no snapshot %d", snapshotID)
	}
	if err != nil {
		return "", fmt.Errorf("astlens: source: %w", err)
	}
	return src, nil
}

// NodeAt returns the innermost node covering line, or nil when no node does.
func (q *QueryBuilder) NodeAt(snapshotID int64, line int) (*ArchivedNode, error) {
	nodes, err := q.NodesAtLine(snapshotID, line)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return &nodes[0], nil
}

// NodesAtLine returns the nodes covering line, innermost first.
func (q *QueryBuilder) NodesAtLine(snapshotID int64, line int) ([]ArchivedNode, error) {
	nodes, err := q.store.NodesAtLine(snapshotID, line)
	if err != nil {
		return nil, fmt.Errorf("astlens: query: %w", err)
	}
	return toArchivedNodes(nodes), nil
}

// NodeByPath returns the node stored under p, or nil when absent.
func (q *QueryBuilder) NodeByPath(snapshotID int64, p Path) (*ArchivedNode, error) {
	n, err := q.store.NodeByPath(snapshotID, string(p))
	if err != nil {
		return nil, fmt.Errorf("astlens: query: %w", err)
	}
	if n == nil {
		return nil, nil
	}
	an := toArchivedNode(n)
	return &an, nil
}

// NodesByKind returns a snapshot's nodes of one kind in traversal order.
func (q *QueryBuilder) NodesByKind(snapshotID int64, kind string) ([]ArchivedNode, error) {
	nodes, err := q.store.NodesByKind(snapshotID, kind)
	if err != nil {
		return nil, fmt.Errorf("astlens: query: %w", err)
	}
	return toArchivedNodes(nodes), nil
}

// Children returns the direct children of the node at p in traversal order.
func (q *QueryBuilder) Children(snapshotID int64, p Path) ([]ArchivedNode, error) {
	rows, err := q.store.DB().Query(
		`SELECT c.path, c.kind, c.label, c.depth, c.start_line, c.start_col, c.end_line, c.end_col
		 FROM nodes c JOIN nodes n ON n.id = c.parent_id
		 WHERE n.snapshot_id = ? AND n.path = ?
		 ORDER BY c.ordinal`, snapshotID, string(p))
	if err != nil {
		return nil, fmt.Errorf("astlens: children: %w", err)
	}
	defer rows.Close()

	var out []ArchivedNode
	for rows.Next() {
		n := ArchivedNode{Parent: p}
		var path string
		var sl, sc, el, ec sql.NullInt64
		if err := rows.Scan(&path, &n.Kind, &n.Label, &n.Depth, &sl, &sc, &el, &ec); err != nil {
			return nil, fmt.Errorf("astlens: children: scan: %w", err)
		}
		n.Path = Path(path)
		if sl.Valid {
			n.Span = &Span{
				StartLine:   int(sl.Int64),
				StartColumn: int(sc.Int64),
				EndLine:     int(el.Int64),
				EndColumn:   int(ec.Int64),
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Ancestors returns the chain of nodes enclosing p, nearest first.
func (q *QueryBuilder) Ancestors(snapshotID int64, p Path) ([]ArchivedNode, error) {
	n, err := q.NodeByPath(snapshotID, p)
	if err != nil || n == nil {
		return nil, err
	}
	var out []ArchivedNode
	for parent := n.Parent; parent != ""; {
		anc, err := q.NodeByPath(snapshotID, parent)
		if err != nil {
			return nil, err
		}
		if anc == nil {
			break
		}
		out = append(out, *anc)
		parent = anc.Parent
	}
	return out, nil
}

// Diagnostics returns the parse errors stored with a snapshot.
func (q *QueryBuilder) Diagnostics(snapshotID int64) ([]ParseError, error) {
	errs, err := q.store.ParseErrors(snapshotID)
	if err != nil {
		return nil, fmt.Errorf("astlens: query: %w", err)
	}
	out := make([]ParseError, 0, len(errs))
	for _, pe := range errs {
		out = append(out, ParseError{Message: pe.Message, Line: pe.Line, Column: pe.Column})
	}
	return out, nil
}

func toArchivedSnapshot(s *store.Snapshot) ArchivedSnapshot {
	return ArchivedSnapshot{
		ID:          s.ID,
		Name:        s.Name,
		Language:    s.Language,
		Fingerprint: s.Fingerprint,
		Fallback:    s.Fallback,
		ExportedAt:  s.ExportedAt,
	}
}

func toArchivedNode(n *store.Node) ArchivedNode {
	an := ArchivedNode{
		Path:   Path(n.Path),
		Parent: Path(n.ParentPath),
		Kind:   n.Kind,
		Label:  n.Label,
		Depth:  n.Depth,
	}
	if n.Span != nil {
		an.Span = &Span{
			StartLine:   n.Span.StartLine,
			StartColumn: n.Span.StartCol,
			EndLine:     n.Span.EndLine,
			EndColumn:   n.Span.EndCol,
		}
	}
	return an
}

func toArchivedNodes(nodes []*store.Node) []ArchivedNode {
	out := make([]ArchivedNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, toArchivedNode(n))
	}
	return out
}
