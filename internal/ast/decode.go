package ast

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Object is a JSON object that remembers member order.
type Object []Member

// Member is one key/value pair of an Object.
type Member struct {
	Key   string
	Value any
}

// Get returns the value stored under key.
func (o Object) Get(key string) (any, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// set stores v under key. A repeated key keeps its first position and takes
// the last value, matching encoding/json.
func (o Object) set(key string, v any) Object {
	for i := range o {
		if o[i].Key == key {
			o[i].Value = v
			return o
		}
	}
	return append(o, Member{Key: key, Value: v})
}

// metaKeys are positional bookkeeping keys emitted by ESTree-style parsers.
// They are exported verbatim but never traversed or labelled.
var metaKeys = map[string]bool{
	"start": true,
	"end":   true,
	"loc":   true,
	"range": true,
	"raw":   true,
}

// IsMetaKey reports whether key is carried as a MetaField.
func IsMetaKey(key string) bool { return metaKeys[key] }

var errNotObject = errors.New("ast: tree root must be a JSON object")

// DecodeJSON reads an ESTree/Babel-style JSON tree. Objects become nodes
// (the "type" member is the kind), arrays of objects become sequences, and
// everything else is kept as scalar data in document order.
func DecodeJSON(r io.Reader) (*Node, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	v, err := readValue(dec)
	if err != nil {
		return nil, fmt.Errorf("ast: decode: %w", err)
	}
	obj, ok := v.(Object)
	if !ok {
		return nil, errNotObject
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("ast: decode: trailing data after tree")
	}
	return objectToNode(obj), nil
}

func readValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return readObject(dec)
		case '[':
			return readArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	default:
		return t, nil
	}
}

func readObject(dec *json.Decoder) (Object, error) {
	obj := Object{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		v, err := readValue(dec)
		if err != nil {
			return nil, err
		}
		obj = obj.set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func readArray(dec *json.Decoder) ([]any, error) {
	arr := []any{}
	for dec.More() {
		v, err := readValue(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

func objectToNode(obj Object) *Node {
	n := &Node{}
	for _, m := range obj {
		if m.Key == "type" {
			// An empty type stays a scalar field so export writes it back.
			if s, ok := m.Value.(string); ok && s != "" {
				n.Kind = s
				continue
			}
		}
		if IsMetaKey(m.Key) {
			n.Fields = append(n.Fields, Field{Name: m.Key, Kind: MetaField, Scalar: m.Value})
			if m.Key == "loc" {
				n.Span = spanFromLoc(m.Value)
			}
			continue
		}
		n.Fields = append(n.Fields, valueToField(m.Key, m.Value))
	}
	return n
}

func valueToField(name string, v any) Field {
	switch val := v.(type) {
	case Object:
		return ChildOf(name, objectToNode(val))
	case []any:
		if !allObjects(val) {
			return ScalarOf(name, val)
		}
		list := make([]*Node, len(val))
		for i, item := range val {
			if obj, ok := item.(Object); ok {
				list[i] = objectToNode(obj)
			}
		}
		return ListOf(name, list...)
	}
	return ScalarOf(name, v)
}

// allObjects reports whether every non-null member is an object. An empty
// array counts as a (empty) node sequence.
func allObjects(arr []any) bool {
	for _, item := range arr {
		if item == nil {
			continue
		}
		if _, ok := item.(Object); !ok {
			return false
		}
	}
	return true
}

// spanFromLoc reads {start:{line,column}, end:{line,column}}.
func spanFromLoc(v any) *Span {
	loc, ok := v.(Object)
	if !ok {
		return nil
	}
	sl, sc, ok1 := position(loc, "start")
	el, ec, ok2 := position(loc, "end")
	if !ok1 || !ok2 {
		return nil
	}
	return &Span{StartLine: sl, StartColumn: sc, EndLine: el, EndColumn: ec}
}

func position(loc Object, key string) (line, col int, ok bool) {
	v, found := loc.Get(key)
	if !found {
		return 0, 0, false
	}
	pos, isObj := v.(Object)
	if !isObj {
		return 0, 0, false
	}
	line, ok = intMember(pos, "line")
	if !ok {
		return 0, 0, false
	}
	col, _ = intMember(pos, "column")
	return line, col, true
}

func intMember(o Object, key string) (int, bool) {
	v, ok := o.Get(key)
	if !ok {
		return 0, false
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	i, err := num.Int64()
	if err != nil {
		return 0, false
	}
	return int(i), true
}
