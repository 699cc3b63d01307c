package astlens

// CollapseState tracks which drawn nodes are collapsed. Only nodes with
// children carry state; everything starts expanded. Visibility is derived
// from ancestor state on demand and never stored per descendant.
type CollapseState struct {
	tree      *VisualTree
	collapsed map[VisualID]bool
}

// NewCollapseState returns an all-expanded state for tree.
func NewCollapseState(tree *VisualTree) *CollapseState {
	return &CollapseState{tree: tree, collapsed: make(map[VisualID]bool)}
}

// IsStateful reports whether id can be expanded or collapsed.
func (c *CollapseState) IsStateful(id VisualID) bool {
	vn, ok := c.tree.nodes[id]
	return ok && len(vn.Children) > 0
}

// IsCollapsed reports whether id is currently collapsed.
func (c *CollapseState) IsCollapsed(id VisualID) bool {
	return c.collapsed[id]
}

// Toggle flips id between expanded and collapsed. Leaves and unknown ids
// are left alone and report false.
func (c *CollapseState) Toggle(id VisualID) bool {
	if !c.IsStateful(id) {
		return false
	}
	if c.collapsed[id] {
		delete(c.collapsed, id)
	} else {
		c.collapsed[id] = true
	}
	return true
}

// Expand opens id and reports whether its state changed.
func (c *CollapseState) Expand(id VisualID) bool {
	if !c.collapsed[id] {
		return false
	}
	delete(c.collapsed, id)
	return true
}

// Collapse closes id and reports whether its state changed.
func (c *CollapseState) Collapse(id VisualID) bool {
	if !c.IsStateful(id) || c.collapsed[id] {
		return false
	}
	c.collapsed[id] = true
	return true
}

// ExpandAll opens every node.
func (c *CollapseState) ExpandAll() {
	clear(c.collapsed)
}

// CollapseAll closes every node that has children.
func (c *CollapseState) CollapseAll() {
	for _, id := range c.tree.order {
		if c.IsStateful(id) {
			c.collapsed[id] = true
		}
	}
}

// IsVisible reports whether every ancestor of id is expanded.
func (c *CollapseState) IsVisible(id VisualID) bool {
	vn, ok := c.tree.nodes[id]
	if !ok {
		return false
	}
	for vn.Parent != "" {
		if c.collapsed[vn.Parent] {
			return false
		}
		vn = c.tree.nodes[vn.Parent]
	}
	return true
}

// Reveal expands every ancestor of id so it becomes visible and returns the
// ancestors whose state changed, root first. The node's own state is kept.
func (c *CollapseState) Reveal(id VisualID) []VisualID {
	var changed []VisualID
	for _, anc := range c.tree.Ancestors(id) {
		if c.Expand(anc) {
			changed = append(changed, anc)
		}
	}
	return changed
}

// Visible returns the drawn rows in order: a node followed by its children
// when it is expanded.
func (c *CollapseState) Visible() []VisualID {
	root := c.tree.Root()
	if root == "" {
		return nil
	}
	var out []VisualID
	c.appendVisible(root, &out)
	return out
}

func (c *CollapseState) appendVisible(id VisualID, out *[]VisualID) {
	*out = append(*out, id)
	if c.collapsed[id] {
		return
	}
	for _, child := range c.tree.nodes[id].Children {
		c.appendVisible(child, out)
	}
}

// Collapsed returns the collapsed ids in traversal order.
func (c *CollapseState) Collapsed() []VisualID {
	out := make([]VisualID, 0, len(c.collapsed))
	for _, id := range c.tree.order {
		if c.collapsed[id] {
			out = append(out, id)
		}
	}
	return out
}

// Len is the number of collapsed nodes.
func (c *CollapseState) Len() int { return len(c.collapsed) }
