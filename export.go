package astlens

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jward/astlens/internal/ast"
)

// Format names a textual export format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for export formats astlens cannot write.
var ErrUnknownFormat = errors.New("astlens: unknown export format")

// ParseFormat accepts "json", "yaml" or "yml", case insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownFormat, s)
}

// Export writes the full tree in document order. Only tree data is written:
// visual ids, collapse state and selection never appear.
func Export(w io.Writer, root *Node, format Format) error {
	switch format {
	case FormatJSON:
		return exportJSON(w, root)
	case FormatYAML:
		return exportYAML(w, root)
	}
	return fmt.Errorf("%w %q", ErrUnknownFormat, format)
}

func exportJSON(w io.Writer, root *Node) error {
	var compact bytes.Buffer
	if err := writeNode(&compact, root); err != nil {
		return fmt.Errorf("astlens: export json: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return fmt.Errorf("astlens: export json: %w", err)
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

func writeNode(buf *bytes.Buffer, n *Node) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}
	buf.WriteByte('{')
	first := true
	key := func(k string) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		writeString(buf, k)
		buf.WriteByte(':')
	}

	if n.Kind != "" {
		key("type")
		writeString(buf, n.Kind)
	}
	hasLoc := false
	for _, f := range n.Fields {
		key(f.Name)
		switch f.Kind {
		case ast.ChildField:
			if err := writeNode(buf, f.Child); err != nil {
				return err
			}
		case ast.ListField:
			if f.List == nil {
				buf.WriteString("[]")
				continue
			}
			buf.WriteByte('[')
			for i, c := range f.List {
				if i > 0 {
					buf.WriteByte(',')
				}
				if err := writeNode(buf, c); err != nil {
					return err
				}
			}
			buf.WriteByte(']')
		default:
			if f.Name == "loc" {
				hasLoc = true
			}
			if err := writeValue(buf, f.Scalar); err != nil {
				return err
			}
		}
	}
	if n.Span != nil && !hasLoc {
		key("loc")
		if err := writeValue(buf, spanObject(*n.Span)); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// spanObject renders a span the way ESTree parsers do.
func spanObject(s Span) ast.Object {
	return ast.Object{
		{Key: "start", Value: ast.Object{
			{Key: "line", Value: json.Number(strconv.Itoa(s.StartLine))},
			{Key: "column", Value: json.Number(strconv.Itoa(s.StartColumn))},
		}},
		{Key: "end", Value: ast.Object{
			{Key: "line", Value: json.Number(strconv.Itoa(s.EndLine))},
			{Key: "column", Value: json.Number(strconv.Itoa(s.EndColumn))},
		}},
	}
}

// writeValue writes a decoded JSON value, keeping object member order.
func writeValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case json.Number:
		buf.WriteString(val.String())
	case string:
		writeString(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case ast.Object:
		buf.WriteByte('{')
		for i, m := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, m.Key)
			buf.WriteByte(':')
			if err := writeValue(buf, m.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

// writeString writes s as a JSON string without HTML escaping, so JSX text
// stays readable.
func writeString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
}

func exportYAML(w io.Writer, root *Node) error {
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{yamlNode(root)}}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("astlens: export yaml: %w", err)
	}
	return enc.Close()
}

func yamlNode(n *Node) *yaml.Node {
	if n == nil {
		return yamlScalar("!!null", "null")
	}
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	add := func(k string, v *yaml.Node) {
		m.Content = append(m.Content, yamlScalar("!!str", k), v)
	}
	if n.Kind != "" {
		add("type", yamlScalar("!!str", n.Kind))
	}
	hasLoc := false
	for _, f := range n.Fields {
		switch f.Kind {
		case ast.ChildField:
			add(f.Name, yamlNode(f.Child))
		case ast.ListField:
			seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			for _, c := range f.List {
				seq.Content = append(seq.Content, yamlNode(c))
			}
			add(f.Name, seq)
		default:
			if f.Name == "loc" {
				hasLoc = true
			}
			add(f.Name, yamlValue(f.Scalar))
		}
	}
	if n.Span != nil && !hasLoc {
		add("loc", yamlValue(spanObject(*n.Span)))
	}
	return m
}

func yamlValue(v any) *yaml.Node {
	switch val := v.(type) {
	case nil:
		return yamlScalar("!!null", "null")
	case bool:
		return yamlScalar("!!bool", strconv.FormatBool(val))
	case json.Number:
		if _, err := val.Int64(); err == nil {
			return yamlScalar("!!int", val.String())
		}
		return yamlScalar("!!float", val.String())
	case string:
		return yamlScalar("!!str", val)
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range val {
			seq.Content = append(seq.Content, yamlValue(item))
		}
		return seq
	case ast.Object:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, member := range val {
			m.Content = append(m.Content, yamlScalar("!!str", member.Key), yamlValue(member.Value))
		}
		return m
	}
	return yamlScalar("!!str", fmt.Sprint(v))
}

func yamlScalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}
