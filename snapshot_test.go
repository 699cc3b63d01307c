package astlens

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_Lines(t *testing.T) {
	t.Parallel()
	snap := NewSnapshot("x.js", "a\r\nb\n\nc", nil)

	assert.Equal(t, []string{"a", "b", "", "c"}, snap.Lines())
	line, ok := snap.Line(2)
	require.True(t, ok)
	assert.Equal(t, "b", line)
	_, ok = snap.Line(0)
	assert.False(t, ok)
	_, ok = snap.Line(5)
	assert.False(t, ok)
}

func TestSnapshot_Fingerprint(t *testing.T) {
	t.Parallel()
	a := NewSnapshot("a.js", fixtureSource, fixtureTree())
	b := NewSnapshot("b.js", fixtureSource, nil)
	c := NewSnapshot("a.js", fixtureSource+"\n", fixtureTree())

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestDecodeSnapshot(t *testing.T) {
	t.Parallel()
	snap, err := DecodeSnapshot("x.js", "x\n", strings.NewReader(estreeInput))
	require.NoError(t, err)
	assert.Equal(t, "estree", snap.Language)
	assert.Equal(t, "Program", snap.Root.Kind)
	require.NotNil(t, snap.Root.Span)
	assert.Equal(t, 20, snap.Root.Span.EndColumn)
}

func TestDecodeSnapshot_Malformed(t *testing.T) {
	t.Parallel()
	_, err := DecodeSnapshot("x.js", "", strings.NewReader(`[1, 2]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "astlens: decode x.js")
}

func TestParseSnapshot_Go(t *testing.T) {
	t.Parallel()
	src := "package main\n\nfunc Greet() string {\n\treturn \"hi\"\n}\n"
	snap := ParseSnapshot(context.Background(), "greet.go", []byte(src), "")

	assert.Equal(t, "go", snap.Language)
	assert.False(t, snap.Fallback)
	assert.Empty(t, snap.Errors)
	require.NotNil(t, snap.Root)

	index, _ := BuildIndex(snap.Root)
	inner, ok := index.Innermost(4)
	require.True(t, ok)
	assert.Equal(t, 4, inner.Span.StartLine)
}

func TestParseSnapshot_UnknownLanguageFallsBack(t *testing.T) {
	t.Parallel()
	src := "first\n\n  third\n"
	snap := ParseSnapshot(context.Background(), "notes.txt", []byte(src), "")

	assert.True(t, snap.Fallback)
	assert.NotEmpty(t, snap.Errors)
	require.NotNil(t, snap.Root)

	index, _ := BuildIndex(snap.Root)
	assert.False(t, index.Has(5), "past the end of the source")
	inner, ok := index.Innermost(3)
	require.True(t, ok)
	assert.Equal(t, "ExpressionStatement", inner.Kind)
	inner, _ = index.Innermost(2)
	assert.Equal(t, "Program", inner.Kind, "blank lines only sit inside the program")
}
