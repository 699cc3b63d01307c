package astlens

import "log/slog"

// SelectionSynchronizer keeps the tree selection and the source view in
// step. Both entry points clear the previous selection, reveal the chosen
// node, mark it selected, and notify listeners. Lookups that miss are
// expected races with snapshot replacement and are silently ignored.
type SelectionSynchronizer struct {
	index    *LineIndex
	addr     *Addressing
	tree     *VisualTree
	collapse *CollapseState
	events   Events
	logger   *slog.Logger

	selected Path
}

// NewSelectionSynchronizer wires a synchronizer to one snapshot's state.
func NewSelectionSynchronizer(index *LineIndex, addr *Addressing, tree *VisualTree, collapse *CollapseState, events Events, logger *slog.Logger) *SelectionSynchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SelectionSynchronizer{
		index:    index,
		addr:     addr,
		tree:     tree,
		collapse: collapse,
		events:   events,
		logger:   logger,
	}
}

// SelectByLine selects the most specific node covering line. Among equally
// sized spans the one met first in traversal wins.
func (s *SelectionSynchronizer) SelectByLine(line int) bool {
	entry, ok := s.index.Innermost(line)
	if !ok {
		s.logger.Debug("no node covers line", slog.Int("line", line))
		return false
	}
	return s.SelectByPath(entry.Path)
}

// SelectByPath selects the node at p.
func (s *SelectionSynchronizer) SelectByPath(p Path) bool {
	n, ok := s.addr.NodeAt(p)
	if !ok {
		s.logger.Debug("stale path lookup", slog.String("path", string(p)))
		return false
	}
	id, ok := s.tree.ByPath(p)
	if !ok {
		s.logger.Debug("path has no visual node", slog.String("path", string(p)))
		return false
	}

	s.selected = ""
	s.collapse.Reveal(id)
	s.selected = p

	startLine := 0
	if n.Span != nil {
		startLine = n.Span.StartLine
	}
	s.events.nodeSelected(p, startLine)
	if startLine > 0 {
		s.events.lineSelected(startLine)
	}
	return true
}

// Selected returns the selected path, if any.
func (s *SelectionSynchronizer) Selected() (Path, bool) {
	return s.selected, s.selected != ""
}

// Clear drops the selection without notifying.
func (s *SelectionSynchronizer) Clear() {
	s.selected = ""
}
