package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/risor-io/risor/object"
)

// NodeInfo is the script-visible view of one tree node.
type NodeInfo struct {
	ID   int
	Path string
	Kind string
	// Parent is the ID of the enclosing node, -1 for the root.
	Parent int
	// Field is the field name the node is stored under in its parent.
	Field     string
	Scalars   map[string]any
	StartLine int
	EndLine   int
	Children  int
}

// Labels runs a label script over nodes and returns the summaries it set,
// keyed by NodeInfo.ID. Scripts get two globals:
//
//	nodes                 list of maps: id, path, kind, parent, field, fields,
//	                      start_line, end_line, children; nodes[i]["id"] == i
//	set_label(id, text)   record the summary for node id
func (r *Runtime) Labels(ctx context.Context, source string, nodes []NodeInfo) (map[int]string, error) {
	sink, globals := labelGlobals(nodes)
	if err := r.RunSource(ctx, source, globals); err != nil {
		return nil, err
	}
	return sink.labels, nil
}

// LabelsFromFile is Labels for a script read through LoadScript on every
// call, so edits to the file apply to the next run.
func (r *Runtime) LabelsFromFile(ctx context.Context, scriptPath string, nodes []NodeInfo) (map[int]string, error) {
	sink, globals := labelGlobals(nodes)
	if err := r.RunScript(ctx, scriptPath, globals); err != nil {
		return nil, err
	}
	return sink.labels, nil
}

func labelGlobals(nodes []NodeInfo) (*labelSink, map[string]any) {
	sink := &labelSink{labels: make(map[int]string)}
	return sink, map[string]any{
		"nodes":     nodesToList(nodes),
		"set_label": makeSetLabelFn(sink),
	}
}

type labelSink struct {
	mu     sync.Mutex
	labels map[int]string
}

// makeSetLabelFn creates the "set_label" host function.
//
// set_label(id, text) → nil
func makeSetLabelFn(sink *labelSink) *object.Builtin {
	return object.NewBuiltin("set_label", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("set_label", 2, len(args))
		}
		id, ok := args[0].(*object.Int)
		if !ok {
			return object.Errorf("set_label: id must be an int, got %s", args[0].Type())
		}
		var text string
		if s, ok := args[1].(*object.String); ok {
			text = s.Value()
		} else if args[1] != object.Nil {
			text = args[1].Inspect()
		}
		sink.mu.Lock()
		sink.labels[int(id.Value())] = text
		sink.mu.Unlock()
		return object.Nil
	})
}

// nodesToList converts NodeInfo values to a Risor list of maps.
func nodesToList(nodes []NodeInfo) object.Object {
	items := make([]object.Object, 0, len(nodes))
	for _, n := range nodes {
		fields := make(map[string]object.Object, len(n.Scalars))
		for k, v := range n.Scalars {
			fields[k] = scalarToObject(v)
		}
		items = append(items, object.NewMap(map[string]object.Object{
			"id":         object.NewInt(int64(n.ID)),
			"path":       object.NewString(n.Path),
			"kind":       object.NewString(n.Kind),
			"parent":     object.NewInt(int64(n.Parent)),
			"field":      object.NewString(n.Field),
			"fields":     object.NewMap(fields),
			"start_line": object.NewInt(int64(n.StartLine)),
			"end_line":   object.NewInt(int64(n.EndLine)),
			"children":   object.NewInt(int64(n.Children)),
		}))
	}
	return object.NewList(items)
}

// scalarToObject converts a decoded scalar to a Risor object.
func scalarToObject(v any) object.Object {
	switch val := v.(type) {
	case nil:
		return object.Nil
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return object.NewInt(i)
		}
		if f, err := val.Float64(); err == nil {
			return object.NewFloat(f)
		}
		return object.NewString(val.String())
	case int:
		return object.NewInt(int64(val))
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case []any:
		items := make([]object.Object, 0, len(val))
		for _, item := range val {
			items = append(items, scalarToObject(item))
		}
		return object.NewList(items)
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg, slog.String("source", "label-script"))
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg, slog.String("source", "label-script"))
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg, slog.String("source", "label-script"))
}
