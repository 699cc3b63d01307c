package astlens

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/jward/astlens/internal/syntax"
)

// Viewer owns the navigation state for one displayed snapshot. All state
// belonging to a snapshot (line index, paths, visual ids, collapse state,
// selection, highlights) lives in one session value that is swapped as a
// unit on replacement, so nothing from an old snapshot survives into a new
// one.
//
// Listener callbacks and surface draws run after the state lock is
// released; callbacks may call back into the Viewer.
type Viewer struct {
	surface Surface
	labeler Labeler
	events  Events
	logger  *slog.Logger

	mu      sync.Mutex
	gen     uint64
	sess    *session
	pending []func()

	// drawMu keeps frames reaching the surface in the order they were built.
	drawMu sync.Mutex
}

// session is the per-snapshot state.
type session struct {
	snap      *Snapshot
	index     *LineIndex
	addr      *Addressing
	tree      *VisualTree
	collapse  *CollapseState
	selection *SelectionSynchronizer
	search    *SearchEngine
	labeler   Labeler
	labels    map[Path]string
}

// Option configures a Viewer.
type Option func(*Viewer)

// WithLabeler sets the summary producer. A labeler that also implements
// SnapshotLabeler is prepared once per installed snapshot.
func WithLabeler(l Labeler) Option {
	return func(v *Viewer) {
		v.labeler = l
	}
}

// WithEvents registers selection and search listeners.
func WithEvents(e Events) Option {
	return func(v *Viewer) {
		v.events = e
	}
}

// WithLogger routes diagnostics. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(v *Viewer) {
		v.logger = l
	}
}

// NewViewer creates a Viewer drawing on surface. It holds no snapshot until
// Replace or Load installs one.
func NewViewer(surface Surface, opts ...Option) (*Viewer, error) {
	if surface == nil {
		return nil, ErrMissingContainer
	}
	v := &Viewer{
		surface: surface,
		labeler: DefaultLabeler{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v, nil
}

// Provider produces a snapshot, typically by reading and parsing a file.
type Provider interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (*Snapshot, error)

func (fn ProviderFunc) Snapshot(ctx context.Context) (*Snapshot, error) { return fn(ctx) }

// Replace installs snap, discarding every piece of state derived from the
// previous snapshot. Indexing happens before the swap; readers see either
// the old state or the new one, never a mix.
func (v *Viewer) Replace(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return errNilSnapshot
	}
	return v.install(ctx, v.nextGeneration(), snap)
}

// Load fetches a snapshot from p without holding the Viewer's lock and
// installs it. If another Load or Replace started while p was running, the
// fetched snapshot is dropped and ErrSuperseded is returned.
func (v *Viewer) Load(ctx context.Context, p Provider) error {
	gen := v.nextGeneration()
	snap, err := p.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("astlens: load: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("astlens: load: %w", err)
	}
	return v.install(ctx, gen, snap)
}

func (v *Viewer) nextGeneration() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	return v.gen
}

func (v *Viewer) install(ctx context.Context, gen uint64, snap *Snapshot) error {
	if snap == nil {
		return errNilSnapshot
	}
	if snap.Root == nil {
		// A snapshot without a tree is shown with a per-line fallback so the
		// source stays navigable.
		fallback := *snap
		fallback.Root = syntax.Fallback(snap.Source)
		fallback.Fallback = true
		snap = &fallback
	}

	sess := v.newSession(ctx, snap)

	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		v.logger.Debug("dropping superseded snapshot",
			slog.String("name", snap.Name), slog.Uint64("generation", gen))
		return ErrSuperseded
	}
	v.sess = sess
	v.pending = nil
	frame := sess.frame()
	v.publish(frame, nil)

	v.logger.Debug("snapshot installed",
		slog.String("name", snap.Name),
		slog.Int("nodes", sess.addr.Len()),
		slog.Int("lines", sess.index.Len()),
		slog.Bool("fallback", snap.Fallback))
	return nil
}

func (v *Viewer) newSession(ctx context.Context, snap *Snapshot) *session {
	index, addr := BuildIndex(snap.Root)
	tree := NewVisualTree(addr)
	collapse := NewCollapseState(tree)

	labeler := v.labeler
	if sl, ok := labeler.(SnapshotLabeler); ok {
		prepared, err := sl.ForSnapshot(ctx, snap, addr)
		if err != nil {
			v.logger.Warn("label script failed, using default labels",
				slog.String("name", snap.Name), slog.String("error", err.Error()))
			prepared = DefaultLabeler{}
		}
		labeler = prepared
	}

	labels := make(map[Path]string, addr.Len())
	for _, p := range addr.order {
		labels[p] = Label(addr.nodes[p], labeler)
	}

	events := v.queuedEvents()
	s := &session{
		snap:     snap,
		index:    index,
		addr:     addr,
		tree:     tree,
		collapse: collapse,
		labeler:  labeler,
		labels:   labels,
	}
	s.selection = NewSelectionSynchronizer(index, addr, tree, collapse, events, v.logger)
	s.search = NewSearchEngine(addr, tree, collapse, func(n *Node) string {
		p, _ := addr.PathOf(n)
		return labels[p]
	}, events)
	return s
}

// queuedEvents defers listener calls until the state lock is released.
// Callers of the returned Events must hold v.mu.
func (v *Viewer) queuedEvents() Events {
	return Events{
		OnLineSelected: func(line int) {
			v.pending = append(v.pending, func() { v.events.lineSelected(line) })
		},
		OnNodeSelected: func(p Path, startLine int) {
			v.pending = append(v.pending, func() { v.events.nodeSelected(p, startLine) })
		},
		OnSearchResult: func(matches []Path) {
			v.pending = append(v.pending, func() { v.events.searchResult(matches) })
		},
	}
}

// publish is called with v.mu held and releases it. It draws frame, then
// runs queued listener calls.
func (v *Viewer) publish(frame Frame, pending []func()) {
	v.drawMu.Lock()
	v.mu.Unlock()
	if err := v.surface.Draw(frame); err != nil {
		v.logger.Warn("draw failed", slog.String("error", err.Error()))
	}
	v.drawMu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

// update runs fn against the current session and redraws when fn reports a
// change. It returns fn's result, or false without a snapshot.
func (v *Viewer) update(fn func(s *session) bool) bool {
	v.mu.Lock()
	if v.sess == nil {
		v.mu.Unlock()
		return false
	}
	changed := fn(v.sess)
	pending := v.pending
	v.pending = nil
	if !changed {
		v.mu.Unlock()
		for _, call := range pending {
			call()
		}
		return false
	}
	v.publish(v.sess.frame(), pending)
	return true
}

// read runs fn against the current session under the lock.
func (v *Viewer) read(fn func(s *session)) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.sess == nil {
		return false
	}
	fn(v.sess)
	return true
}

// SelectByLine selects the innermost node covering line. Lines no node
// covers are ignored.
func (v *Viewer) SelectByLine(line int) bool {
	return v.update(func(s *session) bool {
		return s.selection.SelectByLine(line)
	})
}

// SelectByPath selects the node at p. Paths that do not resolve in the
// current snapshot are ignored.
func (v *Viewer) SelectByPath(p Path) bool {
	return v.update(func(s *session) bool {
		return s.selection.SelectByPath(p)
	})
}

// ClickNode handles a click on a row header: the node's expansion flips and
// the node becomes the selection.
func (v *Viewer) ClickNode(id VisualID) bool {
	return v.update(func(s *session) bool {
		p, ok := s.tree.PathOf(id)
		if !ok {
			return false
		}
		s.collapse.Toggle(id)
		s.selection.SelectByPath(p)
		return true
	})
}

// Toggle flips the expansion of id. Leaves report false.
func (v *Viewer) Toggle(id VisualID) bool {
	return v.update(func(s *session) bool {
		return s.collapse.Toggle(id)
	})
}

// ExpandAll opens every node.
func (v *Viewer) ExpandAll() {
	v.update(func(s *session) bool {
		s.collapse.ExpandAll()
		return true
	})
}

// CollapseAll closes every node that has children.
func (v *Viewer) CollapseAll() {
	v.update(func(s *session) bool {
		s.collapse.CollapseAll()
		return true
	})
}

// Search highlights and reveals the nodes whose label contains query.
func (v *Viewer) Search(query string) []Path {
	var matches []Path
	v.update(func(s *session) bool {
		matches = s.search.Search(query)
		return true
	})
	return matches
}

// ClearSelection drops the selection without notifying listeners.
func (v *Viewer) ClearSelection() {
	v.update(func(s *session) bool {
		_, had := s.selection.Selected()
		s.selection.Clear()
		return had
	})
}

// Snapshot returns the installed snapshot, or nil.
func (v *Viewer) Snapshot() *Snapshot {
	var snap *Snapshot
	v.read(func(s *session) { snap = s.snap })
	return snap
}

// Index returns the installed snapshot's line index. The index is never
// mutated after it is built.
func (v *Viewer) Index() *LineIndex {
	var li *LineIndex
	v.read(func(s *session) { li = s.index })
	return li
}

// Addressing returns the installed snapshot's path table.
func (v *Viewer) Addressing() *Addressing {
	var a *Addressing
	v.read(func(s *session) { a = s.addr })
	return a
}

// Tree returns the installed snapshot's visual ids.
func (v *Viewer) Tree() *VisualTree {
	var t *VisualTree
	v.read(func(s *session) { t = s.tree })
	return t
}

// Selected returns the selected path.
func (v *Viewer) Selected() (Path, bool) {
	var p Path
	var ok bool
	v.read(func(s *session) { p, ok = s.selection.Selected() })
	return p, ok
}

// Collapsed returns the collapsed visual ids in traversal order.
func (v *Viewer) Collapsed() []VisualID {
	var ids []VisualID
	v.read(func(s *session) { ids = s.collapse.Collapsed() })
	return ids
}

// IsVisible reports whether id is drawn under the current collapse state.
func (v *Viewer) IsVisible(id VisualID) bool {
	var ok bool
	v.read(func(s *session) { ok = s.collapse.IsVisible(id) })
	return ok
}

// Highlighted reports whether p matched the latest search.
func (v *Viewer) Highlighted(p Path) bool {
	var ok bool
	v.read(func(s *session) { ok = s.search.Highlighted(p) })
	return ok
}

// Frame renders the current state without drawing it.
func (v *Viewer) Frame() Frame {
	var f Frame
	v.read(func(s *session) { f = s.frame() })
	return f
}

// Label returns the rendered label of the node at p.
func (v *Viewer) Label(p Path) (string, bool) {
	var label string
	var ok bool
	v.read(func(s *session) { label, ok = s.labels[p] })
	return label, ok
}

// NodeDetails lists the properties of the node at p.
func (v *Viewer) NodeDetails(p Path) (NodeDetails, bool) {
	var d NodeDetails
	var ok bool
	v.read(func(s *session) {
		n, found := s.addr.NodeAt(p)
		if !found {
			return
		}
		d, ok = describe(p, n, s.labeler), true
	})
	return d, ok
}

// Export writes the installed tree in format. Visual state is not part of
// the output.
func (v *Viewer) Export(w io.Writer, format Format) error {
	snap := v.Snapshot()
	if snap == nil {
		return errNilSnapshot
	}
	return Export(w, snap.Root, format)
}
