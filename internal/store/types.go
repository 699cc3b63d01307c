package store

import "time"

type Snapshot struct {
	ID          int64
	Name        string
	Language    string
	Fingerprint string
	Fallback    bool
	Source      string
	ExportedAt  time.Time
}

type Span struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Node is one exported tree node. ParentPath is empty for the root.
type Node struct {
	ID         int64
	SnapshotID int64
	Path       string
	ParentPath string
	Ordinal    int
	Depth      int
	Kind       string
	Label      string
	Span       *Span
}

// LineEntry places the node at Path on Line; Rank 0 is the innermost node.
type LineEntry struct {
	Line int
	Rank int
	Path string
}

type ParseError struct {
	Message string
	Line    int
	Column  int
}

// Export is everything written for one snapshot. Nodes must be in traversal
// order so parents precede their children.
type Export struct {
	Snapshot Snapshot
	Nodes    []Node
	Lines    []LineEntry
	Errors   []ParseError
}
