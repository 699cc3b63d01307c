package astlens

import (
	"context"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/jward/astlens/internal/ast"
	"github.com/jward/astlens/internal/syntax"
)

// Snapshot is one immutable tree together with the exact source text it was
// derived from. Span line numbers refer to Lines().
type Snapshot struct {
	Name     string
	Source   string
	Language string
	Root     *Node
	// Errors lists locations the parser flagged. A non-empty list does not
	// make the tree unusable.
	Errors []ParseError
	// Fallback marks a coarse tree built because no grammar could parse the
	// source.
	Fallback bool
}

// NewSnapshot wraps an externally produced tree.
func NewSnapshot(name, source string, root *Node) *Snapshot {
	return &Snapshot{Name: name, Source: source, Root: root}
}

// ParseSnapshot parses source with tree-sitter. When language is empty it
// is inferred from name. A source that cannot be parsed still yields a
// navigable fallback snapshot whose Errors say why.
func ParseSnapshot(ctx context.Context, name string, source []byte, language string) *Snapshot {
	if language == "" {
		language, _ = syntax.LanguageForFile(name)
	}
	res, _ := syntax.Parse(ctx, source, language)
	return &Snapshot{
		Name:     name,
		Source:   string(source),
		Language: res.Language,
		Root:     res.Root,
		Errors:   res.Errors,
		Fallback: res.Fallback,
	}
}

// DecodeSnapshot reads an ESTree/Babel JSON tree produced for source.
func DecodeSnapshot(name, source string, tree io.Reader) (*Snapshot, error) {
	root, err := ast.DecodeJSON(tree)
	if err != nil {
		return nil, fmt.Errorf("astlens: decode %s: %w", name, err)
	}
	return &Snapshot{Name: name, Source: source, Language: "estree", Root: root}, nil
}

// Lines splits the source on line terminators; line N is Lines()[N-1].
func (s *Snapshot) Lines() []string {
	return syntax.SplitLines(s.Source)
}

// Line returns the text of 1-based line n.
func (s *Snapshot) Line(n int) (string, bool) {
	lines := s.Lines()
	if n < 1 || n > len(lines) {
		return "", false
	}
	return lines[n-1], true
}

// Fingerprint hashes the source text. Two snapshots with equal fingerprints
// came from the same text, but their paths are still not interchangeable.
func (s *Snapshot) Fingerprint() uint64 {
	return xxhash.Sum64String(s.Source)
}
