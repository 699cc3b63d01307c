package ast

// Span is a node's inclusive source extent. Lines are 1-based, columns 0-based.
type Span struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// Size returns the (line, column) extent used to rank enclosing nodes.
func (s Span) Size() (lines, cols int) {
	return s.EndLine - s.StartLine, s.EndColumn - s.StartColumn
}

// Smaller reports whether s is strictly more specific than o.
func (s Span) Smaller(o Span) bool {
	sl, sc := s.Size()
	ol, oc := o.Size()
	if sl != ol {
		return sl < ol
	}
	return sc < oc
}

// Covers reports whether line falls inside the span.
func (s Span) Covers(line int) bool {
	end := s.EndLine
	if end < s.StartLine {
		end = s.StartLine
	}
	return line >= s.StartLine && line <= end
}

// FieldKind distinguishes the shapes a field value can take.
type FieldKind int

const (
	ScalarField FieldKind = iota
	ChildField
	ListField
	MetaField
)

func (k FieldKind) String() string {
	switch k {
	case ScalarField:
		return "scalar"
	case ChildField:
		return "child"
	case ListField:
		return "list"
	case MetaField:
		return "meta"
	}
	return "unknown"
}

// Field is one named member of a Node.
//
// Exactly one of Scalar, Child, List is meaningful, selected by Kind.
// MetaField values live in Scalar and are carried only for export.
type Field struct {
	Name   string
	Kind   FieldKind
	Scalar any
	Child  *Node
	List   []*Node
}

// Node is one syntax tree node. Nodes are read-only once a snapshot is built.
type Node struct {
	Kind   string
	Fields []Field
	Span   *Span
}

// Field returns the first field named name.
func (n *Node) Field(name string) (Field, bool) {
	if n == nil {
		return Field{}, false
	}
	for _, f := range n.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Scalar returns the scalar value of a field, or nil.
func (n *Node) Scalar(name string) any {
	f, ok := n.Field(name)
	if !ok || f.Kind != ScalarField {
		return nil
	}
	return f.Scalar
}

// Child returns the single child stored under name.
func (n *Node) Child(name string) *Node {
	f, ok := n.Field(name)
	if !ok || f.Kind != ChildField {
		return nil
	}
	return f.Child
}

// List returns the sequence stored under name.
func (n *Node) List(name string) []*Node {
	f, ok := n.Field(name)
	if !ok || f.Kind != ListField {
		return nil
	}
	return f.List
}

// EachChild calls fn for every child node in document order. index is -1
// for single-child fields and the sequence position otherwise; nil sequence
// members are skipped but keep their positions. Returning false stops.
func (n *Node) EachChild(fn func(f Field, index int, child *Node) bool) {
	if n == nil {
		return
	}
	for _, f := range n.Fields {
		switch f.Kind {
		case ChildField:
			if f.Child != nil && !fn(f, -1, f.Child) {
				return
			}
		case ListField:
			for i, c := range f.List {
				if c == nil {
					continue
				}
				if !fn(f, i, c) {
					return
				}
			}
		}
	}
}

// ScalarOf constructs a scalar field.
func ScalarOf(name string, v any) Field {
	return Field{Name: name, Kind: ScalarField, Scalar: v}
}

// ChildOf constructs a single-child field.
func ChildOf(name string, n *Node) Field {
	return Field{Name: name, Kind: ChildField, Child: n}
}

// ListOf constructs a sequence field.
func ListOf(name string, nodes ...*Node) Field {
	return Field{Name: name, Kind: ListField, List: nodes}
}
