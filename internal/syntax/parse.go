// Package syntax turns source text into generic ast trees using tree-sitter.
// It is the parsing collaborator of astlens: the engine itself never looks
// at grammar-specific node kinds.
package syntax

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/astlens/internal/ast"
)

// ErrUnsupportedLanguage is returned (alongside a fallback tree) when no
// grammar is registered for the requested language.
var ErrUnsupportedLanguage = errors.New("syntax: unsupported language")

// unnamedField collects named children that the grammar did not attach to a
// field.
const unnamedField = "children"

// ParseError is a location tree-sitter flagged as ERROR or MISSING, or a
// whole-parse failure (Line 0).
type ParseError struct {
	Message string
	Line    int
	Column  int
}

func (e ParseError) Error() string {
	if e.Line == 0 {
		return e.Message
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// Result is the outcome of parsing one source text.
type Result struct {
	Root     *ast.Node
	Language string
	Errors   []ParseError
	// Fallback is set when Root came from Fallback rather than a grammar.
	Fallback bool
}

// Parse parses src with the grammar for language. Parsing never leaves the
// caller without a tree: an unknown language or a failed parse produces a
// fallback tree, and the returned error explains why.
func Parse(ctx context.Context, src []byte, language string) (*Result, error) {
	lang := CanonicalLanguage(language)
	grammar, ok := GrammarFor(lang)
	if !ok {
		err := fmt.Errorf("%w %q", ErrUnsupportedLanguage, language)
		return fallbackResult(src, lang, err), err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		err = fmt.Errorf("syntax: tree-sitter parse failed: %w", err)
		return fallbackResult(src, lang, err), err
	}
	defer tree.Close()

	res := &Result{Language: lang}
	res.Root = convert(tree.RootNode(), src, &res.Errors)
	return res, nil
}

func fallbackResult(src []byte, lang string, cause error) *Result {
	return &Result{
		Root:     Fallback(string(src)),
		Language: lang,
		Errors:   []ParseError{{Message: cause.Error()}},
		Fallback: true,
	}
}

// convert copies a tree-sitter subtree into ast nodes. Only named nodes are
// kept. Children are grouped by grammar field name in first-seen order; a
// field seen once is a single child, repeated fields and unnamed children
// become sequences. Named leaves carry their source text in a "text" field.
func convert(n *sitter.Node, src []byte, errs *[]ParseError) *ast.Node {
	node := &ast.Node{Kind: n.Type(), Span: spanOf(n)}
	if n.Type() == "ERROR" {
		*errs = append(*errs, ParseError{
			Message: "syntax error",
			Line:    node.Span.StartLine,
			Column:  node.Span.StartColumn,
		})
	}

	var order []string
	groups := make(map[string][]*ast.Node)
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if child.IsMissing() {
			sp := spanOf(child)
			*errs = append(*errs, ParseError{
				Message: fmt.Sprintf("missing %s", child.Type()),
				Line:    sp.StartLine,
				Column:  sp.StartColumn,
			})
			continue
		}
		if !child.IsNamed() {
			continue
		}
		name := n.FieldNameForChild(i)
		if name == "" {
			name = unnamedField
		}
		if _, seen := groups[name]; !seen {
			order = append(order, name)
		}
		groups[name] = append(groups[name], convert(child, src, errs))
	}

	if len(order) == 0 {
		node.Fields = append(node.Fields, ast.ScalarOf("text", n.Content(src)))
		return node
	}
	for _, name := range order {
		members := groups[name]
		if name == unnamedField || len(members) > 1 {
			node.Fields = append(node.Fields, ast.ListOf(name, members...))
			continue
		}
		node.Fields = append(node.Fields, ast.ChildOf(name, members[0]))
	}
	return node
}

func spanOf(n *sitter.Node) *ast.Span {
	start, end := n.StartPoint(), n.EndPoint()
	return &ast.Span{
		StartLine:   int(start.Row) + 1,
		StartColumn: int(start.Column),
		EndLine:     int(end.Row) + 1,
		EndColumn:   int(end.Column),
	}
}

// SplitLines splits source on line terminators (\n or \r\n). Line N of a
// span is element N-1.
func SplitLines(src string) []string {
	lines := strings.Split(src, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
