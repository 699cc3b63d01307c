package astlens

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Path is a snapshot-scoped node address: the dotted field selectors from
// the root, e.g. "root.body.0.declarations.0.init". A Path is meaningless
// against any snapshot other than the one it was assigned in.
type Path string

// RootPath addresses the root node of every snapshot.
const RootPath Path = "root"

// Field returns the path of the single child stored under name.
func (p Path) Field(name string) Path {
	return p + "." + Path(name)
}

// Index returns the path of member i of the sequence stored under name.
func (p Path) Index(name string, i int) Path {
	return p + "." + Path(name) + "." + Path(strconv.Itoa(i))
}

// Segments splits the path on dots, including the leading "root".
func (p Path) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), ".")
}

// Depth is the number of selectors below the root. Sequence members count
// their field and index as two selectors.
func (p Path) Depth() int {
	return len(p.Segments()) - 1
}

func (p Path) String() string { return string(p) }

var errBadPath = errors.New("astlens: malformed path")

// ParsePath validates the dotted form of a path.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ".")
	if parts[0] != string(RootPath) {
		return "", fmt.Errorf("%w %q: must start with %q", errBadPath, s, RootPath)
	}
	for _, part := range parts[1:] {
		if part == "" {
			return "", fmt.Errorf("%w %q: empty selector", errBadPath, s)
		}
	}
	return Path(s), nil
}

// Addressing maps nodes of one snapshot to paths and back. It is built by a
// single depth-first traversal in field order and is immutable afterwards.
type Addressing struct {
	root    *Node
	paths   map[*Node]Path
	nodes   map[Path]*Node
	parents map[Path]Path
	order   []Path
}

func newAddressing(root *Node) *Addressing {
	return &Addressing{
		root:    root,
		paths:   make(map[*Node]Path),
		nodes:   make(map[Path]*Node),
		parents: make(map[Path]Path),
	}
}

// AssignPaths addresses every node reachable from root.
func AssignPaths(root *Node) *Addressing {
	a := newAddressing(root)
	if root != nil {
		a.walk(root, RootPath, "", nil)
	}
	return a
}

// walk assigns p to n and recurses into its children. A node reached a
// second time keeps its first path and is not traversed again. A path that
// is already taken (field names containing dots or repeated names in a
// hand-built node) stays with the node that claimed it first; the later
// subtree is left unaddressed.
func (a *Addressing) walk(n *Node, p, parent Path, visit func(*Node, Path)) {
	if _, seen := a.paths[n]; seen {
		return
	}
	if _, taken := a.nodes[p]; taken {
		return
	}
	a.paths[n] = p
	a.nodes[p] = n
	if parent != "" {
		a.parents[p] = parent
	}
	a.order = append(a.order, p)
	if visit != nil {
		visit(n, p)
	}
	n.EachChild(func(f Field, index int, child *Node) bool {
		cp := p.Field(f.Name)
		if index >= 0 {
			cp = p.Index(f.Name, index)
		}
		a.walk(child, cp, p, visit)
		return true
	})
}

// Root returns the snapshot root.
func (a *Addressing) Root() *Node { return a.root }

// PathOf returns the path assigned to n.
func (a *Addressing) PathOf(n *Node) (Path, bool) {
	p, ok := a.paths[n]
	return p, ok
}

// NodeAt resolves p. A path that does not exist in this snapshot reports
// false; callers treat that as nothing to do.
func (a *Addressing) NodeAt(p Path) (*Node, bool) {
	n, ok := a.nodes[p]
	return n, ok
}

// Parent returns the path of the node containing p.
func (a *Addressing) Parent(p Path) (Path, bool) {
	parent, ok := a.parents[p]
	return parent, ok
}

// Ancestors returns the paths enclosing p, root first.
func (a *Addressing) Ancestors(p Path) []Path {
	var out []Path
	for {
		parent, ok := a.parents[p]
		if !ok {
			break
		}
		out = append(out, parent)
		p = parent
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Paths returns every path in traversal order.
func (a *Addressing) Paths() []Path {
	out := make([]Path, len(a.order))
	copy(out, a.order)
	return out
}

// Len is the number of addressed nodes.
func (a *Addressing) Len() int { return len(a.order) }
