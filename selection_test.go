package astlens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSelection(t *testing.T) (*SelectionSynchronizer, *CollapseState, *recorder) {
	t.Helper()
	index, addr, tree, collapse := fixtureState()
	rec := &recorder{}
	return NewSelectionSynchronizer(index, addr, tree, collapse, rec.events(), nil), collapse, rec
}

func TestSelectByLine_PicksMostSpecificNode(t *testing.T) {
	t.Parallel()
	s, _, rec := newTestSelection(t)

	require.True(t, s.SelectByLine(5))
	p, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, pathReturn, p)
	assert.Equal(t, []Path{pathReturn}, rec.nodes)
	assert.Equal(t, []int{5}, rec.starts)
	assert.Equal(t, []int{5}, rec.lines)
}

func TestSelectByLine_EmitsNodeStartLine(t *testing.T) {
	t.Parallel()
	s, _, rec := newTestSelection(t)

	// Line 4 resolves to the declarator, which starts on line 3.
	require.True(t, s.SelectByLine(4))
	assert.Equal(t, []int{3}, rec.starts)
	assert.Equal(t, []int{3}, rec.lines)
}

func TestSelectByLine_RevealsAncestors(t *testing.T) {
	t.Parallel()
	s, collapse, _ := newTestSelection(t)
	collapse.CollapseAll()

	require.True(t, s.SelectByLine(5))
	assert.True(t, collapse.IsVisible("node_9"))
	assert.True(t, collapse.IsCollapsed("node_9"))
	assert.True(t, collapse.IsCollapsed("node_6"), "siblings stay collapsed")
}

func TestSelectByLine_Idempotent(t *testing.T) {
	t.Parallel()
	s, collapse, rec := newTestSelection(t)
	collapse.CollapseAll()

	require.True(t, s.SelectByLine(5))
	first, _ := s.Selected()
	collapsedAfterFirst := collapse.Collapsed()

	require.True(t, s.SelectByLine(5))
	second, _ := s.Selected()
	assert.Equal(t, first, second)
	assert.Equal(t, collapsedAfterFirst, collapse.Collapsed())
	assert.Equal(t, []Path{pathReturn, pathReturn}, rec.nodes)
}

func TestSelectByLine_UncoveredLineIsNoOp(t *testing.T) {
	t.Parallel()
	s, _, rec := newTestSelection(t)
	require.True(t, s.SelectByLine(5))

	assert.False(t, s.SelectByLine(40))
	assert.False(t, s.SelectByLine(0))
	p, _ := s.Selected()
	assert.Equal(t, pathReturn, p, "a miss keeps the previous selection")
	assert.Len(t, rec.nodes, 1)
}

func TestSelectByPath(t *testing.T) {
	t.Parallel()
	s, collapse, rec := newTestSelection(t)
	collapse.CollapseAll()

	require.True(t, s.SelectByPath(pathSumDecl))
	p, _ := s.Selected()
	assert.Equal(t, pathSumDecl, p)
	assert.True(t, collapse.IsVisible("node_8"))
	assert.Equal(t, []int{3}, rec.lines)
}

func TestSelectByPath_StalePathIsNoOp(t *testing.T) {
	t.Parallel()
	s, collapse, rec := newTestSelection(t)
	collapse.CollapseAll()

	assert.False(t, s.SelectByPath("root.body.3.id"))
	_, ok := s.Selected()
	assert.False(t, ok)
	assert.Empty(t, rec.nodes)
	assert.Equal(t, 6, collapse.Len(), "no ancestor expansion on a miss")
}

func TestSelectByPath_UnspannedNode(t *testing.T) {
	t.Parallel()
	s, _, rec := newTestSelection(t)

	require.True(t, s.SelectByPath(pathReturned))
	assert.Equal(t, []int{0}, rec.starts)
	assert.Empty(t, rec.lines, "nothing to scroll to")
}

func TestSelection_ReplacesPreviousSelection(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestSelection(t)

	s.SelectByLine(5)
	s.SelectByPath(pathFunc)
	p, _ := s.Selected()
	assert.Equal(t, pathFunc, p)

	s.Clear()
	_, ok := s.Selected()
	assert.False(t, ok)
}

func TestSelection_DoesNotClearSearchHighlights(t *testing.T) {
	t.Parallel()
	index, addr, tree, collapse := fixtureState()
	s := NewSelectionSynchronizer(index, addr, tree, collapse, Events{}, nil)
	search := NewSearchEngine(addr, tree, collapse, func(n *Node) string { return Label(n, DefaultLabeler{}) }, Events{})

	search.Search("sum")
	s.SelectByLine(2)
	assert.True(t, search.Highlighted(pathSumDecl))
}
