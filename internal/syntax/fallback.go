package syntax

import (
	"strings"

	"github.com/jward/astlens/internal/ast"
)

// Fallback builds a coarse tree for source no grammar could handle: a
// Program spanning the whole text with one ExpressionStatement per non-blank
// line. The statement carries the line's span; its Literal does not.
func Fallback(src string) *ast.Node {
	lines := SplitLines(src)
	body := make([]*ast.Node, 0, len(lines))
	for i, line := range lines {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		lit := &ast.Node{
			Kind:   "Literal",
			Fields: []ast.Field{ast.ScalarOf("value", text)},
		}
		body = append(body, &ast.Node{
			Kind:   "ExpressionStatement",
			Fields: []ast.Field{ast.ChildOf("expression", lit)},
			Span: &ast.Span{
				StartLine:   i + 1,
				StartColumn: 0,
				EndLine:     i + 1,
				EndColumn:   len(line),
			},
		})
	}
	return &ast.Node{
		Kind:   "Program",
		Fields: []ast.Field{ast.ListOf("body", body...)},
		Span:   &ast.Span{StartLine: 1, StartColumn: 0, EndLine: len(lines), EndColumn: 0},
	}
}
