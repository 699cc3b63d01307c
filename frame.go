package astlens

// Surface receives a full Frame after every state change.
type Surface interface {
	Draw(f Frame) error
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(f Frame) error

func (fn SurfaceFunc) Draw(f Frame) error { return fn(f) }

// RowState is the expander drawn in front of a row.
type RowState int

const (
	RowLeaf RowState = iota
	RowExpanded
	RowCollapsed
)

func (s RowState) String() string {
	switch s {
	case RowExpanded:
		return "expanded"
	case RowCollapsed:
		return "collapsed"
	}
	return "leaf"
}

// Row is one visible tree node.
type Row struct {
	ID          VisualID
	Path        Path
	Depth       int
	Label       string
	State       RowState
	Span        *Span
	Selected    bool
	Highlighted bool
}

// Frame is everything a surface needs to draw both views.
type Frame struct {
	Name     string
	Language string
	Fallback bool
	Errors   []ParseError

	// Lines is the source text; Lines[0] is line 1.
	Lines []string
	// SelectedLine is the first line of the selected node, 0 when nothing
	// with a span is selected.
	SelectedLine int

	Rows     []Row
	Selected Path
	Query    string
	Matches  []Path
}

// Empty reports whether the frame carries no snapshot.
func (f Frame) Empty() bool { return len(f.Rows) == 0 && f.Name == "" }

// frame renders the session's current visible state.
func (s *session) frame() Frame {
	f := Frame{
		Name:     s.snap.Name,
		Language: s.snap.Language,
		Fallback: s.snap.Fallback,
		Errors:   append([]ParseError(nil), s.snap.Errors...),
		Lines:    s.snap.Lines(),
		Query:    s.search.Query(),
		Matches:  s.search.Highlights(),
	}
	selected, hasSelection := s.selection.Selected()
	if hasSelection {
		f.Selected = selected
		if n, ok := s.addr.NodeAt(selected); ok && n.Span != nil {
			f.SelectedLine = n.Span.StartLine
		}
	}

	visible := s.collapse.Visible()
	f.Rows = make([]Row, 0, len(visible))
	for _, id := range visible {
		vn := s.tree.nodes[id]
		n := s.addr.nodes[vn.Path]
		row := Row{
			ID:          id,
			Path:        vn.Path,
			Depth:       vn.Depth,
			Label:       s.labels[vn.Path],
			Span:        n.Span,
			Selected:    hasSelection && vn.Path == selected,
			Highlighted: s.search.Highlighted(vn.Path),
		}
		switch {
		case len(vn.Children) == 0:
			row.State = RowLeaf
		case s.collapse.IsCollapsed(id):
			row.State = RowCollapsed
		default:
			row.State = RowExpanded
		}
		f.Rows = append(f.Rows, row)
	}
	return f
}
