package astlens

import "strings"

// SearchEngine highlights nodes whose label contains a query and reveals
// them. It never hides anything: non-matching nodes just stay unhighlighted.
type SearchEngine struct {
	addr     *Addressing
	tree     *VisualTree
	collapse *CollapseState
	label    func(*Node) string
	events   Events

	query      string
	highlights map[Path]bool
	matches    []Path
}

// NewSearchEngine wires a search engine to one snapshot's state. label
// renders the text each node is matched against.
func NewSearchEngine(addr *Addressing, tree *VisualTree, collapse *CollapseState, label func(*Node) string, events Events) *SearchEngine {
	return &SearchEngine{
		addr:       addr,
		tree:       tree,
		collapse:   collapse,
		label:      label,
		events:     events,
		highlights: make(map[Path]bool),
	}
}

// Search replaces the highlight set with the nodes matching query, case
// insensitively, and expands the ancestors of every match. A blank query
// only clears highlights.
func (s *SearchEngine) Search(query string) []Path {
	clear(s.highlights)
	s.matches = nil
	s.query = query

	if strings.TrimSpace(query) == "" {
		s.events.searchResult(nil)
		return nil
	}

	needle := strings.ToLower(query)
	for _, p := range s.addr.order {
		n := s.addr.nodes[p]
		if !strings.Contains(strings.ToLower(s.label(n)), needle) {
			continue
		}
		s.highlights[p] = true
		s.matches = append(s.matches, p)
		if id, ok := s.tree.ByPath(p); ok {
			s.collapse.Reveal(id)
		}
	}

	out := append([]Path(nil), s.matches...)
	s.events.searchResult(out)
	return out
}

// Highlighted reports whether p matched the latest search.
func (s *SearchEngine) Highlighted(p Path) bool { return s.highlights[p] }

// Highlights returns the latest matches in traversal order.
func (s *SearchEngine) Highlights() []Path {
	return append([]Path(nil), s.matches...)
}

// Query returns the latest query.
func (s *SearchEngine) Query() string { return s.query }
