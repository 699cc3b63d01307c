package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleNodes is a function_declaration with its name identifier and an
// empty body block.
func sampleNodes() []NodeInfo {
	return []NodeInfo{
		{ID: 0, Path: "root", Kind: "source_file", Parent: -1, StartLine: 1, EndLine: 3, Children: 1,
			Scalars: map[string]any{}},
		{ID: 1, Path: "root.children.0", Kind: "function_declaration", Parent: 0, Field: "children",
			StartLine: 1, EndLine: 3, Children: 2, Scalars: map[string]any{}},
		{ID: 2, Path: "root.children.0.name", Kind: "identifier", Parent: 1, Field: "name",
			StartLine: 1, EndLine: 1, Scalars: map[string]any{"text": "Greet"}},
		{ID: 3, Path: "root.children.0.body", Kind: "block", Parent: 1, Field: "body",
			StartLine: 1, EndLine: 3, Scalars: map[string]any{"text": "{}", "size": json.Number("2")}},
	}
}

// --- Label scripts ---

func TestLabels_SetLabel(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")

	script := `
for i := 0; i < len(nodes); i++ {
    n := nodes[i]
    if n["field"] == "name" {
        set_label(n["parent"], n["fields"]["text"])
    }
}
`
	labels, err := rt.Labels(context.Background(), script, sampleNodes())
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "Greet"}, labels)
}

func TestLabels_NodeShape(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")

	script := `
assert(len(nodes) == 4, 'expected 4 nodes, got {len(nodes)}')
root := nodes[0]
assert(root["parent"] == -1, "root has no parent")
assert(root["kind"] == "source_file", "root kind")
fn := nodes[1]
assert(fn["children"] == 2, "expected 2 children")
assert(fn["start_line"] == 1, "start line")
assert(fn["end_line"] == 3, "end line")
body := nodes[3]
assert(body["fields"]["size"] == 2, "json numbers become ints")
assert(body["path"] == "root.children.0.body", "path")
`
	labels, err := rt.Labels(context.Background(), script, sampleNodes())
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestLabels_NonStringTextUsesInspect(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")

	labels, err := rt.Labels(context.Background(), `set_label(2, 42)`, sampleNodes())
	require.NoError(t, err)
	assert.Equal(t, "42", labels[2])
}

func TestLabels_BadID(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")

	_, err := rt.Labels(context.Background(), `set_label("x", "y")`, sampleNodes())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id must be an int")
}

func TestLabels_ScriptError(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")

	_, err := rt.Labels(context.Background(), `assert(false, "boom")`, sampleNodes())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runtime: script <inline>")
}

func TestLabelsFromFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "labels.risor"),
		[]byte(`set_label(0, "whole file")`), 0o644))

	rt := NewRuntime(dir)
	labels, err := rt.LabelsFromFile(context.Background(), "labels.risor", sampleNodes())
	require.NoError(t, err)
	assert.Equal(t, "whole file", labels[0])
}

func TestLog_RoutesToLogger(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	rt := NewRuntime("", WithLogger(logger))

	require.NoError(t, rt.RunSource(context.Background(), `log.Warn("careful")`, nil))
	assert.Contains(t, buf.String(), "careful")
	assert.Contains(t, buf.String(), "source=label-script")
}

// --- Script loading ---

func TestRunScript_LoadsFile(t *testing.T) {
	dir := t.TempDir()

	scriptPath := filepath.Join(dir, "test.risor")
	require.NoError(t, os.WriteFile(scriptPath, []byte(`result := 1 + 1`), 0644))

	rt := NewRuntime(dir)
	err := rt.RunScript(context.Background(), "test.risor", nil)
	require.NoError(t, err)
}

func TestRunScript_MissingFile(t *testing.T) {
	rt := NewRuntime(t.TempDir())

	err := rt.RunScript(context.Background(), "nonexistent.risor", nil)
	require.Error(t, err)
}

func TestLoadScript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.risor")
	content := `x := 42`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rt := NewRuntime(dir)
	got, err := rt.LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	mapFS := fstest.MapFS{
		"labels/go.risor": &fstest.MapFile{Data: []byte(content)},
	}

	rt := NewRuntime("", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("labels/go.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS_NotFound(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithRuntimeFS(fstest.MapFS{}))

	_, err := rt.LoadScript("nonexistent.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestLoadScript_FromFSFS_StripsLeadingSeparator(t *testing.T) {
	t.Parallel()

	content := `y := 99`
	mapFS := fstest.MapFS{
		"labels/go.risor": &fstest.MapFile{Data: []byte(content)},
	}

	rt := NewRuntime("", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("/labels/go.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestRunScript_FromFSFS(t *testing.T) {
	mapFS := fstest.MapFS{
		"test.risor": &fstest.MapFile{Data: []byte(`result := 1 + 1`)},
	}

	rt := NewRuntime("", WithRuntimeFS(mapFS))
	err := rt.RunScript(context.Background(), "test.risor", nil)
	require.NoError(t, err)
}

// --- Importer wiring ---

func TestImport_FSImporter(t *testing.T) {
	// Risor's FSImporter resolves "lib_helpers" by trying name + ".risor",
	// so the file must be at the flat path "lib_helpers.risor" in the FS.
	mapFS := fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func greet(name) {
	return "hello " + name
}
`)},
	}

	rt := NewRuntime("", WithRuntimeFS(mapFS))

	script := `
import lib_helpers

msg := lib_helpers.greet("world")
assert(msg == "hello world", 'expected "hello world", got ' + msg)
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestImport_LocalImporter(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0644))

	rt := NewRuntime(dir)

	script := `
import math_utils

result := math_utils.double(21)
assert(result == 42, 'expected 42, got {result}')
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestImport_GlobalsAvailableInImportedModules(t *testing.T) {
	// Imported modules see host globals only if the importer is told their
	// names.
	mapFS := fstest.MapFS{
		"helper.risor": &fstest.MapFile{Data: []byte(`
func label_first(text) {
	set_label(0, text)
}
`)},
	}

	rt := NewRuntime("", WithRuntimeFS(mapFS))

	script := `
import helper
helper.label_first("from module")
`
	labels, err := rt.Labels(context.Background(), script, sampleNodes())
	require.NoError(t, err)
	assert.Equal(t, "from module", labels[0])
}

func TestNewRuntime_Defaults(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("/some/dir")
	require.NotNil(t, rt)
	assert.Nil(t, rt.fsys)
	assert.Equal(t, "/some/dir", rt.scriptsDir)
	assert.NotNil(t, rt.logger)
}
