package astlens

import (
	"github.com/jward/astlens/internal/ast"
)

func sp(startLine, startCol, endLine, endCol int) *Span {
	return &Span{StartLine: startLine, StartColumn: startCol, EndLine: endLine, EndColumn: endCol}
}

func node(kind string, span *Span, fields ...Field) *Node {
	return &Node{Kind: kind, Span: span, Fields: fields}
}

func ident(name string, span *Span) *Node {
	return node("Identifier", span, ast.ScalarOf("name", name))
}

// fixtureSource is the text fixtureTree was derived from.
const fixtureSource = `// sums two numbers
function add(a, b) {
  const sum =
    a + b;
  return sum;
}
`

// fixtureTree returns a Program whose FunctionDeclaration spans lines 2-6
// and contains a ReturnStatement on line 5. The returned identifier has no
// span.
//
//	node_0  root                                        Program          1-6
//	node_1  root.body.0                                 FunctionDecl     2-6
//	node_2  root.body.0.id                              Identifier add   2
//	node_3  root.body.0.params.0                        Identifier a     2
//	node_4  root.body.0.params.1                        Identifier b     2
//	node_5  root.body.0.body                            BlockStatement   2-6
//	node_6  root.body.0.body.body.0                     VariableDecl     3-4
//	node_7  root.body.0.body.body.0.declarations.0      VariableDeclarator 3-4
//	node_8  root.body.0.body.body.0.declarations.0.id   Identifier sum   3
//	node_9  root.body.0.body.body.1                     ReturnStatement  5
//	node_10 root.body.0.body.body.1.argument            Identifier sum   -
func fixtureTree() *Node {
	return node("Program", sp(1, 0, 6, 1),
		ast.ScalarOf("sourceType", "script"),
		ast.ListOf("body",
			node("FunctionDeclaration", sp(2, 0, 6, 1),
				ast.ChildOf("id", ident("add", sp(2, 9, 2, 12))),
				ast.ListOf("params",
					ident("a", sp(2, 13, 2, 14)),
					ident("b", sp(2, 16, 2, 17)),
				),
				ast.ChildOf("body", node("BlockStatement", sp(2, 19, 6, 1),
					ast.ListOf("body",
						node("VariableDeclaration", sp(3, 2, 4, 10),
							ast.ScalarOf("kind", "const"),
							ast.ListOf("declarations",
								node("VariableDeclarator", sp(3, 8, 4, 9),
									ast.ChildOf("id", ident("sum", sp(3, 8, 3, 11))),
								),
							),
						),
						node("ReturnStatement", sp(5, 2, 5, 13),
							ast.ChildOf("argument", ident("sum", nil)),
						),
					),
				)),
			),
		),
	)
}

const (
	pathFunc     Path = "root.body.0"
	pathBlock    Path = "root.body.0.body"
	pathVarDecl  Path = "root.body.0.body.body.0"
	pathSumDecl  Path = "root.body.0.body.body.0.declarations.0.id"
	pathReturn   Path = "root.body.0.body.body.1"
	pathReturned Path = "root.body.0.body.body.1.argument"
)

func fixtureSnapshot() *Snapshot {
	return NewSnapshot("add.js", fixtureSource, fixtureTree())
}

// fixtureState builds the per-snapshot collaborators the Viewer wires
// together.
func fixtureState() (*LineIndex, *Addressing, *VisualTree, *CollapseState) {
	index, addr := BuildIndex(fixtureTree())
	tree := NewVisualTree(addr)
	return index, addr, tree, NewCollapseState(tree)
}

// recorder captures Events in the order they fire.
type recorder struct {
	lines   []int
	nodes   []Path
	starts  []int
	results [][]Path
}

func (r *recorder) events() Events {
	return Events{
		OnLineSelected: func(line int) { r.lines = append(r.lines, line) },
		OnNodeSelected: func(p Path, startLine int) {
			r.nodes = append(r.nodes, p)
			r.starts = append(r.starts, startLine)
		},
		OnSearchResult: func(matches []Path) { r.results = append(r.results, matches) },
	}
}

// frameRecorder is a Surface keeping every frame drawn.
type frameRecorder struct {
	frames []Frame
}

func (f *frameRecorder) Draw(fr Frame) error {
	f.frames = append(f.frames, fr)
	return nil
}

func (f *frameRecorder) last() Frame {
	if len(f.frames) == 0 {
		return Frame{}
	}
	return f.frames[len(f.frames)-1]
}
