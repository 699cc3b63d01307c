package astlens

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestViewer(t *testing.T, opts ...Option) (*Viewer, *frameRecorder) {
	t.Helper()
	surface := &frameRecorder{}
	v, err := NewViewer(surface, opts...)
	require.NoError(t, err)
	require.NoError(t, v.Replace(context.Background(), fixtureSnapshot()))
	return v, surface
}

func TestNewViewer_MissingContainer(t *testing.T) {
	t.Parallel()
	_, err := NewViewer(nil)
	require.ErrorIs(t, err, ErrMissingContainer)
}

func TestViewer_NoSnapshotIsInert(t *testing.T) {
	t.Parallel()
	surface := &frameRecorder{}
	v, err := NewViewer(surface)
	require.NoError(t, err)

	assert.False(t, v.SelectByLine(1))
	assert.False(t, v.SelectByPath(RootPath))
	assert.Nil(t, v.Search("x"))
	v.CollapseAll()
	assert.Nil(t, v.Snapshot())
	assert.True(t, v.Frame().Empty())
	assert.Empty(t, surface.frames)
	assert.Error(t, v.Export(&nopWriter{}, FormatJSON))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestViewer_ReplaceDrawsFrame(t *testing.T) {
	t.Parallel()
	v, surface := newTestViewer(t)

	require.Len(t, surface.frames, 1)
	f := surface.last()
	assert.Equal(t, "add.js", f.Name)
	assert.Len(t, f.Rows, 11)
	assert.Equal(t, "Program", f.Rows[0].Label)
	assert.Equal(t, RowExpanded, f.Rows[0].State)
	assert.Equal(t, RowLeaf, f.Rows[2].State)
	assert.Equal(t, 2, f.Rows[5].Depth)
	assert.Equal(t, "// sums two numbers", f.Lines[0])
	assert.Equal(t, 11, v.Tree().Len())
}

func TestViewer_SelectByLineScenario(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var started []int
	v, surface := newTestViewer(t, WithEvents(Events{
		OnNodeSelected: func(p Path, startLine int) {
			mu.Lock()
			defer mu.Unlock()
			started = append(started, startLine)
		},
	}))

	require.True(t, v.SelectByLine(5))
	p, ok := v.Selected()
	require.True(t, ok)
	assert.Equal(t, pathReturn, p)
	assert.Equal(t, []int{5}, started)

	f := surface.last()
	assert.Equal(t, pathReturn, f.Selected)
	assert.Equal(t, 5, f.SelectedLine)
	for _, r := range f.Rows {
		assert.Equal(t, r.Path == pathReturn, r.Selected, r.Path)
	}
}

func TestViewer_ReplacementResetsState(t *testing.T) {
	t.Parallel()
	v, surface := newTestViewer(t)
	v.CollapseAll()
	v.SelectByLine(5)
	v.Search("sum")
	require.NotEmpty(t, v.Collapsed())

	require.NoError(t, v.Replace(context.Background(), fixtureSnapshot()))

	_, ok := v.Selected()
	assert.False(t, ok)
	assert.Empty(t, v.Collapsed())
	assert.False(t, v.Highlighted(pathSumDecl))
	f := surface.last()
	assert.Len(t, f.Rows, 11)
	assert.Empty(t, f.Selected)
	assert.Zero(t, f.SelectedLine)
	assert.Empty(t, f.Query)
	for _, r := range f.Rows {
		assert.NotEqual(t, RowCollapsed, r.State)
	}
}

func TestViewer_StalePathAfterReplacement(t *testing.T) {
	t.Parallel()
	v, _ := newTestViewer(t)

	other := NewSnapshot("one.js", "x\n", node("Program", sp(1, 0, 1, 1)))
	require.NoError(t, v.Replace(context.Background(), other))

	assert.False(t, v.SelectByPath(pathReturn))
	_, ok := v.Selected()
	assert.False(t, ok)
}

func TestViewer_ClickNodeTogglesAndSelects(t *testing.T) {
	t.Parallel()
	v, surface := newTestViewer(t)

	require.True(t, v.ClickNode("node_5"))
	assert.Equal(t, []VisualID{"node_5"}, v.Collapsed())
	p, _ := v.Selected()
	assert.Equal(t, pathBlock, p)
	assert.False(t, v.IsVisible("node_9"))
	assert.Len(t, surface.last().Rows, 6)

	// Clicking a leaf only selects it.
	require.True(t, v.ClickNode("node_2"))
	assert.Equal(t, []VisualID{"node_5"}, v.Collapsed())

	assert.False(t, v.ClickNode("node_404"))
}

func TestViewer_ToggleLeafDoesNotRedraw(t *testing.T) {
	t.Parallel()
	v, surface := newTestViewer(t)

	assert.False(t, v.Toggle("node_2"))
	assert.Len(t, surface.frames, 1)
	assert.True(t, v.Toggle("node_1"))
	assert.Len(t, surface.frames, 2)
}

func TestViewer_ExpandAllCollapseAll(t *testing.T) {
	t.Parallel()
	v, surface := newTestViewer(t)

	v.ExpandAll()
	v.CollapseAll()
	assert.Len(t, v.Collapsed(), 6)
	assert.Len(t, surface.last().Rows, 1)

	v.ExpandAll()
	assert.Empty(t, v.Collapsed())
	assert.Len(t, surface.last().Rows, 11)
}

func TestViewer_SearchHighlightsAndReveals(t *testing.T) {
	t.Parallel()
	var results [][]Path
	v, surface := newTestViewer(t, WithEvents(Events{
		OnSearchResult: func(m []Path) { results = append(results, m) },
	}))
	v.CollapseAll()

	matches := v.Search("Identifier SUM")
	assert.Equal(t, []Path{pathSumDecl, pathReturned}, matches)
	assert.Equal(t, [][]Path{matches}, results)

	f := surface.last()
	assert.Equal(t, "Identifier SUM", f.Query)
	var highlighted []Path
	for _, r := range f.Rows {
		if r.Highlighted {
			highlighted = append(highlighted, r.Path)
		}
	}
	assert.Equal(t, matches, highlighted)

	assert.Nil(t, v.Search(""))
	assert.False(t, v.Highlighted(pathSumDecl))
}

func TestViewer_SearchKeepsSelection(t *testing.T) {
	t.Parallel()
	v, _ := newTestViewer(t)
	v.SelectByLine(5)
	v.Search("add")

	p, ok := v.Selected()
	require.True(t, ok)
	assert.Equal(t, pathReturn, p)
}

func TestViewer_ClearSelection(t *testing.T) {
	t.Parallel()
	var selections int
	v, surface := newTestViewer(t, WithEvents(Events{
		OnNodeSelected: func(Path, int) { selections++ },
	}))
	v.SelectByLine(5)
	draws := len(surface.frames)

	v.ClearSelection()
	_, ok := v.Selected()
	assert.False(t, ok)
	assert.Len(t, surface.frames, draws+1)
	assert.Equal(t, 1, selections)

	v.ClearSelection()
	assert.Len(t, surface.frames, draws+1, "nothing to clear")
}

func TestViewer_ListenersRunAfterUnlock(t *testing.T) {
	t.Parallel()
	var v *Viewer
	var seen []Path
	surface := &frameRecorder{}
	v, err := NewViewer(surface, WithEvents(Events{
		OnNodeSelected: func(p Path, _ int) {
			// Re-entering the viewer would deadlock if the lock were held.
			got, _ := v.Selected()
			seen = append(seen, got)
			if p == pathReturn {
				v.SelectByPath(pathFunc)
			}
		},
	}))
	require.NoError(t, err)
	require.NoError(t, v.Replace(context.Background(), fixtureSnapshot()))

	require.True(t, v.SelectByLine(5))
	assert.Equal(t, []Path{pathReturn, pathFunc}, seen)
	p, _ := v.Selected()
	assert.Equal(t, pathFunc, p)
}

func TestViewer_LabelAndDetails(t *testing.T) {
	t.Parallel()
	v, _ := newTestViewer(t)

	label, ok := v.Label(pathFunc)
	require.True(t, ok)
	assert.Equal(t, "FunctionDeclaration add(2 params)", label)

	d, ok := v.NodeDetails(pathVarDecl)
	require.True(t, ok)
	assert.Equal(t, "VariableDeclaration", d.Kind)
	assert.Equal(t, 3, d.Span.StartLine)
	require.Len(t, d.Fields, 2)
	assert.Equal(t, FieldDetail{Name: "kind", Kind: ScalarField, Value: `"const"`}, d.Fields[0])
	assert.Equal(t, "Array(1)", d.Fields[1].Value)

	_, ok = v.NodeDetails("root.nope")
	assert.False(t, ok)
}

func TestViewer_NilRootUsesFallback(t *testing.T) {
	t.Parallel()
	surface := &frameRecorder{}
	v, err := NewViewer(surface)
	require.NoError(t, err)

	require.NoError(t, v.Replace(context.Background(), NewSnapshot("x.txt", "alpha\n\nbeta", nil)))
	f := surface.last()
	assert.True(t, f.Fallback)
	require.True(t, v.SelectByLine(3))
	p, _ := v.Selected()
	assert.Equal(t, Path("root.body.1"), p)

	require.True(t, v.SelectByLine(2))
	p, _ = v.Selected()
	assert.Equal(t, RootPath, p, "blank lines only sit inside the program")
}

func TestViewer_ReplaceNilSnapshot(t *testing.T) {
	t.Parallel()
	v, _ := newTestViewer(t)
	require.Error(t, v.Replace(context.Background(), nil))
	assert.NotNil(t, v.Snapshot(), "previous snapshot stays installed")
}

// --- Load ---

func TestViewer_Load(t *testing.T) {
	t.Parallel()
	surface := &frameRecorder{}
	v, err := NewViewer(surface)
	require.NoError(t, err)

	require.NoError(t, v.Load(context.Background(), ProviderFunc(func(context.Context) (*Snapshot, error) {
		return fixtureSnapshot(), nil
	})))
	assert.Equal(t, "add.js", v.Snapshot().Name)
}

func TestViewer_LoadProviderError(t *testing.T) {
	t.Parallel()
	v, _ := newTestViewer(t)
	boom := errors.New("boom")

	err := v.Load(context.Background(), ProviderFunc(func(context.Context) (*Snapshot, error) {
		return nil, boom
	}))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "add.js", v.Snapshot().Name)
}

func TestViewer_LoadCanceled(t *testing.T) {
	t.Parallel()
	v, _ := newTestViewer(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := v.Load(ctx, ProviderFunc(func(context.Context) (*Snapshot, error) {
		cancel()
		return NewSnapshot("late.js", "", nil), nil
	}))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "add.js", v.Snapshot().Name)
}

func TestViewer_LoadSupersededByNewerReplace(t *testing.T) {
	t.Parallel()
	v, surface := newTestViewer(t)

	fetching := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- v.Load(context.Background(), ProviderFunc(func(context.Context) (*Snapshot, error) {
			close(fetching)
			<-release
			return NewSnapshot("stale.js", "old\n", nil), nil
		}))
	}()

	<-fetching
	require.NoError(t, v.Replace(context.Background(), NewSnapshot("fresh.js", "new\n", nil)))
	close(release)

	require.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, "fresh.js", v.Snapshot().Name)
	assert.Equal(t, "fresh.js", surface.last().Name)
}

func TestViewer_NilReplaceKeepsPendingLoad(t *testing.T) {
	t.Parallel()
	v, _ := newTestViewer(t)

	fetching := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- v.Load(context.Background(), ProviderFunc(func(context.Context) (*Snapshot, error) {
			close(fetching)
			<-release
			return NewSnapshot("loaded.js", "x\n", nil), nil
		}))
	}()

	<-fetching
	require.Error(t, v.Replace(context.Background(), nil))
	close(release)

	require.NoError(t, <-done)
	assert.Equal(t, "loaded.js", v.Snapshot().Name)
}

func TestViewer_ConcurrentUse(t *testing.T) {
	t.Parallel()
	v, _ := newTestViewer(t)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 20 {
				switch (i + j) % 4 {
				case 0:
					v.SelectByLine(j%7 + 1)
				case 1:
					v.Search("sum")
				case 2:
					v.Toggle("node_1")
				case 3:
					_ = v.Replace(context.Background(), fixtureSnapshot())
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 11, v.Tree().Len())
}
