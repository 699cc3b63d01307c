package astlens

import "fmt"

// VisualID identifies one drawn node instance. IDs are assigned per render
// and have no meaning once the snapshot is replaced.
type VisualID string

// VisualNode is the render-time shape of one node.
type VisualNode struct {
	ID       VisualID
	Path     Path
	Parent   VisualID
	Children []VisualID
	Depth    int
}

// VisualTree assigns visual ids to an addressed snapshot and records the
// parent/child structure the collapse state machine needs.
type VisualTree struct {
	nodes  map[VisualID]*VisualNode
	byPath map[Path]VisualID
	order  []VisualID
}

// NewVisualTree numbers nodes node_0, node_1, ... in traversal order.
func NewVisualTree(addr *Addressing) *VisualTree {
	t := &VisualTree{
		nodes:  make(map[VisualID]*VisualNode, addr.Len()),
		byPath: make(map[Path]VisualID, addr.Len()),
	}
	for i, p := range addr.order {
		id := VisualID(fmt.Sprintf("node_%d", i))
		vn := &VisualNode{ID: id, Path: p}
		if parentPath, ok := addr.Parent(p); ok {
			parent := t.nodes[t.byPath[parentPath]]
			vn.Parent = parent.ID
			vn.Depth = parent.Depth + 1
			parent.Children = append(parent.Children, id)
		}
		t.nodes[id] = vn
		t.byPath[p] = id
		t.order = append(t.order, id)
	}
	return t
}

// Root returns the id of the root node, or "" for an empty tree.
func (t *VisualTree) Root() VisualID {
	if len(t.order) == 0 {
		return ""
	}
	return t.order[0]
}

// Node returns a copy of the visual node for id.
func (t *VisualTree) Node(id VisualID) (VisualNode, bool) {
	vn, ok := t.nodes[id]
	if !ok {
		return VisualNode{}, false
	}
	out := *vn
	out.Children = append([]VisualID(nil), vn.Children...)
	return out, true
}

// ByPath returns the visual id drawn for p.
func (t *VisualTree) ByPath(p Path) (VisualID, bool) {
	id, ok := t.byPath[p]
	return id, ok
}

// PathOf returns the node path behind a visual id.
func (t *VisualTree) PathOf(id VisualID) (Path, bool) {
	vn, ok := t.nodes[id]
	if !ok {
		return "", false
	}
	return vn.Path, true
}

// Ancestors returns the ids enclosing id, root first.
func (t *VisualTree) Ancestors(id VisualID) []VisualID {
	var out []VisualID
	vn, ok := t.nodes[id]
	for ok && vn.Parent != "" {
		out = append(out, vn.Parent)
		vn, ok = t.nodes[vn.Parent]
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Children returns the direct children of id.
func (t *VisualTree) Children(id VisualID) []VisualID {
	vn, ok := t.nodes[id]
	if !ok {
		return nil
	}
	return append([]VisualID(nil), vn.Children...)
}

// Order returns every id in traversal order.
func (t *VisualTree) Order() []VisualID {
	return append([]VisualID(nil), t.order...)
}

// Len is the number of drawn nodes.
func (t *VisualTree) Len() int { return len(t.order) }
