package astlens

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/jward/astlens/internal/ast"
	"github.com/jward/astlens/internal/runtime"
)

// SnapshotLabeler is a Labeler that needs to see a whole snapshot before it
// can summarize its nodes. The Viewer calls ForSnapshot once per installed
// snapshot, outside its lock, and uses the returned Labeler for that
// snapshot only.
type SnapshotLabeler interface {
	Labeler
	ForSnapshot(ctx context.Context, snap *Snapshot, addr *Addressing) (Labeler, error)
}

// ScriptLabeler produces summaries with a Risor script. The script sees a
// global list `nodes` (maps with id, path, kind, fields, start_line,
// end_line, children) and calls set_label(id, text) for the nodes it wants
// to summarize. Nodes it skips get DefaultLabeler summaries.
//
//	for i := 0; i < len(nodes); i++ {
//	    n := nodes[i]
//	    if n["kind"] == "function_declaration" {
//	        set_label(n["id"], n["path"])
//	    }
//	}
type ScriptLabeler struct {
	rt     *runtime.Runtime
	source string
	// script is set for file-backed labelers; the file is re-read per
	// snapshot.
	script string
}

// NewScriptLabeler wraps inline Risor source.
func NewScriptLabeler(source string, logger *slog.Logger) *ScriptLabeler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScriptLabeler{
		rt:     runtime.NewRuntime("", runtime.WithLogger(logger)),
		source: source,
	}
}

// LoadScriptLabeler reads a .risor file. Imports resolve next to it. The
// file is read again for every snapshot, so a watched session picks up
// script edits.
func LoadScriptLabeler(path string, logger *slog.Logger) (*ScriptLabeler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := runtime.NewRuntime(filepath.Dir(path), runtime.WithLogger(logger))
	if _, err := rt.LoadScript(filepath.Base(path)); err != nil {
		return nil, fmt.Errorf("astlens: label script: %w", err)
	}
	return &ScriptLabeler{rt: rt, script: filepath.Base(path)}, nil
}

// LoadScriptLabelerFS reads a .risor file from fsys. Imports resolve
// against the same FS.
func LoadScriptLabelerFS(fsys fs.FS, path string, logger *slog.Logger) (*ScriptLabeler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := runtime.NewRuntime("", runtime.WithRuntimeFS(fsys), runtime.WithLogger(logger))
	src, err := rt.LoadScript(path)
	if err != nil {
		return nil, fmt.Errorf("astlens: label script: %w", err)
	}
	return &ScriptLabeler{rt: rt, source: src}, nil
}

// Summary is the DefaultLabeler summary; script output is only available
// through ForSnapshot.
func (s *ScriptLabeler) Summary(n *Node) string {
	return DefaultLabeler{}.Summary(n)
}

// ForSnapshot runs the script over every addressed node.
func (s *ScriptLabeler) ForSnapshot(ctx context.Context, snap *Snapshot, addr *Addressing) (Labeler, error) {
	ids := make(map[Path]int, addr.Len())
	infos := make([]runtime.NodeInfo, 0, addr.Len())
	for i, p := range addr.order {
		ids[p] = i
		info := nodeInfo(i, p, addr.nodes[p])
		info.Parent = -1
		if parent, ok := addr.Parent(p); ok {
			info.Parent = ids[parent]
		}
		infos = append(infos, info)
	}

	var labels map[int]string
	var err error
	if s.script != "" {
		labels, err = s.rt.LabelsFromFile(ctx, s.script, infos)
	} else {
		labels, err = s.rt.Labels(ctx, s.source, infos)
	}
	if err != nil {
		return nil, fmt.Errorf("astlens: label script for %s: %w", snap.Name, err)
	}

	byNode := make(map[*Node]string, len(labels))
	for id, text := range labels {
		if id < 0 || id >= len(addr.order) {
			continue
		}
		byNode[addr.nodes[addr.order[id]]] = text
	}
	return LabelerFunc(func(n *Node) string {
		if text, ok := byNode[n]; ok {
			return text
		}
		return DefaultLabeler{}.Summary(n)
	}), nil
}

func nodeInfo(id int, p Path, n *Node) runtime.NodeInfo {
	info := runtime.NodeInfo{
		ID:      id,
		Path:    string(p),
		Kind:    n.Kind,
		Field:   fieldName(p),
		Scalars: make(map[string]any),
	}
	if n.Span != nil {
		info.StartLine, info.EndLine = n.Span.StartLine, n.Span.EndLine
	}
	for _, f := range n.Fields {
		if f.Kind == ast.ScalarField {
			info.Scalars[f.Name] = f.Scalar
		}
	}
	n.EachChild(func(ast.Field, int, *Node) bool {
		info.Children++
		return true
	})
	return info
}

// fieldName is the field a node is stored under: the last selector of its
// path, skipping a sequence index.
func fieldName(p Path) string {
	segs := p.Segments()
	for i := len(segs) - 1; i > 0; i-- {
		if _, err := strconv.Atoi(segs[i]); err != nil {
			return segs[i]
		}
	}
	return ""
}
