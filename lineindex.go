package astlens

import (
	"sort"
)

// Entry is one node covering a source line.
type Entry struct {
	Path Path
	Kind string
	Span Span
}

// LineIndex maps 1-based source lines to the nodes whose spans cover them,
// most specific first. Lines covered by no node are absent.
type LineIndex struct {
	lines map[int][]Entry
}

// BuildIndex walks root once, addressing every node and recording each
// spanned node on every line of its span. Unspanned nodes are traversed
// but contribute no entries.
func BuildIndex(root *Node) (*LineIndex, *Addressing) {
	idx := &LineIndex{lines: make(map[int][]Entry)}
	addr := newAddressing(root)
	if root == nil {
		return idx, addr
	}

	addr.walk(root, RootPath, "", func(n *Node, p Path) {
		if n.Span == nil {
			return
		}
		sp := *n.Span
		e := Entry{Path: p, Kind: n.Kind, Span: sp}
		for line := max(sp.StartLine, 1); sp.Covers(line); line++ {
			idx.lines[line] = append(idx.lines[line], e)
		}
	})

	// Entries were appended in traversal order, so a stable sort on span
	// size leaves equal spans ordered first-encountered first.
	for _, entries := range idx.lines {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Span.Smaller(entries[j].Span)
		})
	}
	return idx, addr
}

// Entries returns the nodes covering line, innermost first, or nil.
func (li *LineIndex) Entries(line int) []Entry {
	entries, ok := li.lines[line]
	if !ok {
		return nil
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Innermost returns the most specific node covering line.
func (li *LineIndex) Innermost(line int) (Entry, bool) {
	entries := li.lines[line]
	if len(entries) == 0 {
		return Entry{}, false
	}
	return entries[0], true
}

// Has reports whether any node covers line.
func (li *LineIndex) Has(line int) bool {
	_, ok := li.lines[line]
	return ok
}

// Lines returns the covered lines in ascending order.
func (li *LineIndex) Lines() []int {
	out := make([]int, 0, len(li.lines))
	for line := range li.lines {
		out = append(out, line)
	}
	sort.Ints(out)
	return out
}

// Len is the number of covered lines.
func (li *LineIndex) Len() int { return len(li.lines) }
