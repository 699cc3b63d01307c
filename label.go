package astlens

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jward/astlens/internal/ast"
)

// summaryLimit caps inline text summaries, in runes.
const summaryLimit = 30

// Labeler produces the short inline summary drawn after a node's kind.
// An empty summary draws the kind alone.
type Labeler interface {
	Summary(n *Node) string
}

// LabelerFunc adapts a function to Labeler.
type LabelerFunc func(n *Node) string

func (f LabelerFunc) Summary(n *Node) string { return f(n) }

// Label renders the text a node is drawn (and searched) with.
func Label(n *Node, l Labeler) string {
	kind := n.Kind
	if kind == "" {
		kind = "Unknown"
	}
	if l == nil {
		return kind
	}
	if s := l.Summary(n); s != "" {
		return kind + " " + s
	}
	return kind
}

// DefaultLabeler summarizes common ESTree kinds and falls back to a node's
// own name, value, or text field, which covers tree-sitter leaves.
type DefaultLabeler struct{}

func (DefaultLabeler) Summary(n *Node) string {
	switch n.Kind {
	case "Identifier", "JSXIdentifier":
		return scalarString(n.Scalar("name"))
	case "Literal", "StringLiteral", "NumericLiteral", "BooleanLiteral":
		return quoteScalar(n.Scalar("value"))
	case "FunctionDeclaration":
		name := childName(n.Child("id"))
		if name == "" {
			name = "anonymous"
		}
		return fmt.Sprintf("%s(%d params)", name, len(n.List("params")))
	case "FunctionExpression", "ArrowFunctionExpression":
		return fmt.Sprintf("(%d params)", len(n.List("params")))
	case "JSXElement":
		name := childName(n.Child("openingElement").Child("name"))
		if name == "" {
			name = "unknown"
		}
		return "<" + name + ">"
	case "JSXText":
		text := strings.TrimSpace(scalarString(n.Scalar("value")))
		if text == "" {
			return ""
		}
		return `"` + truncate(text) + `"`
	case "ImportDeclaration":
		return fmt.Sprintf("from %q", scalarString(n.Child("source").Scalar("value")))
	case "VariableDeclaration":
		return fmt.Sprintf("%s (%d)", scalarString(n.Scalar("kind")), len(n.List("declarations")))
	case "CallExpression":
		callee := n.Child("callee")
		name := childName(callee)
		if name == "" {
			name = childName(callee.Child("property"))
		}
		if name == "" {
			name = "unknown"
		}
		return fmt.Sprintf("%s(%d args)", name, len(n.List("arguments")))
	case "MemberExpression":
		obj, prop := childName(n.Child("object")), childName(n.Child("property"))
		if obj == "" {
			obj = "?"
		}
		if prop == "" {
			prop = "?"
		}
		return obj + "." + prop
	}
	return genericSummary(n)
}

// genericSummary covers kinds with no dedicated rule.
func genericSummary(n *Node) string {
	if name, ok := n.Scalar("name").(string); ok && name != "" {
		return truncate(name)
	}
	if text, ok := n.Scalar("text").(string); ok {
		text = strings.TrimSpace(text)
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[:i] + "..."
		}
		return truncate(text)
	}
	return ""
}

func childName(n *Node) string {
	if n == nil {
		return ""
	}
	return scalarString(n.Scalar("name"))
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= summaryLimit {
		return s
	}
	r := []rune(s)
	return string(r[:summaryLimit]) + "..."
}

// scalarString renders a scalar without quoting.
func scalarString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case fmt.Stringer:
		return val.String()
	}
	return fmt.Sprint(v)
}

// quoteScalar renders a scalar the way JSON would.
func quoteScalar(v any) string {
	var buf bytes.Buffer
	if err := writeValue(&buf, v); err != nil {
		return fmt.Sprint(v)
	}
	return buf.String()
}

// FieldDetail is one row of a node's property listing.
type FieldDetail struct {
	Name  string
	Kind  FieldKind
	Value string
}

// NodeDetails is everything the details panel shows for one node.
type NodeDetails struct {
	Path   Path
	Kind   string
	Label  string
	Span   *Span
	Fields []FieldDetail
}

// describe lists a node's fields, skipping positional meta data.
func describe(p Path, n *Node, l Labeler) NodeDetails {
	d := NodeDetails{Path: p, Kind: n.Kind, Label: Label(n, l), Span: n.Span}
	for _, f := range n.Fields {
		if f.Kind == ast.MetaField {
			continue
		}
		d.Fields = append(d.Fields, FieldDetail{Name: f.Name, Kind: f.Kind, Value: formatFieldValue(f)})
	}
	return d
}

func formatFieldValue(f Field) string {
	switch f.Kind {
	case ast.ChildField:
		if f.Child == nil {
			return "null"
		}
		names := make([]string, 0, len(f.Child.Fields)+1)
		if f.Child.Kind != "" {
			names = append(names, "type")
		}
		for _, cf := range f.Child.Fields {
			names = append(names, cf.Name)
		}
		return "Object{" + strings.Join(names, ", ") + "}"
	case ast.ListField:
		return fmt.Sprintf("Array(%d)", len(f.List))
	}
	switch v := f.Scalar.(type) {
	case nil:
		return "null"
	case string:
		return `"` + v + `"`
	case []any:
		return fmt.Sprintf("Array(%d)", len(v))
	}
	return scalarString(f.Scalar)
}
