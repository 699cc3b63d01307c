package astlens

import (
	"github.com/jward/astlens/internal/ast"
	"github.com/jward/astlens/internal/syntax"
)

// Public type aliases for the internal tree model. These are Go type aliases
// (=), so values move between astlens and its collaborators unconverted.

type Node = ast.Node
type Field = ast.Field
type FieldKind = ast.FieldKind
type Span = ast.Span
type ParseError = syntax.ParseError

const (
	ScalarField = ast.ScalarField
	ChildField  = ast.ChildField
	ListField   = ast.ListField
	MetaField   = ast.MetaField
)

// Events are the notifications consumed by the rendering layer. Nil
// callbacks are skipped.
type Events struct {
	// OnLineSelected asks the source view to scroll to and highlight line.
	OnLineSelected func(line int)
	// OnNodeSelected reports the newly selected node and the first line of
	// its span (0 when the node has no span).
	OnNodeSelected func(p Path, startLine int)
	// OnSearchResult reports the paths matched by the latest search.
	OnSearchResult func(matches []Path)
}

func (e Events) lineSelected(line int) {
	if e.OnLineSelected != nil {
		e.OnLineSelected(line)
	}
}

func (e Events) nodeSelected(p Path, startLine int) {
	if e.OnNodeSelected != nil {
		e.OnNodeSelected(p, startLine)
	}
}

func (e Events) searchResult(matches []Path) {
	if e.OnSearchResult != nil {
		e.OnSearchResult(matches)
	}
}
