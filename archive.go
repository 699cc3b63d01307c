package astlens

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/jward/astlens/internal/store"
)

// Archive appends snapshot exports to a SQLite database. Each export holds
// the snapshot's source, every node with its path, label and span, the
// innermost-first line index, and parse diagnostics.
type Archive struct {
	store   *store.Store
	labeler Labeler
	logger  *slog.Logger
}

// ArchiveOption configures an Archive.
type ArchiveOption func(*Archive)

// WithArchiveLabeler sets the labeler used for stored labels.
func WithArchiveLabeler(l Labeler) ArchiveOption {
	return func(a *Archive) {
		a.labeler = l
	}
}

// WithArchiveLogger routes diagnostics.
func WithArchiveLogger(l *slog.Logger) ArchiveOption {
	return func(a *Archive) {
		a.logger = l
	}
}

// OpenArchive opens (creating if needed) the database at dbPath.
func OpenArchive(dbPath string, opts ...ArchiveOption) (*Archive, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("astlens: open archive: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("astlens: migrate archive: %w", err)
	}
	a := &Archive{store: s, labeler: DefaultLabeler{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Close releases the database.
func (a *Archive) Close() error {
	return a.store.Close()
}

// Store exposes the underlying store for queries.
func (a *Archive) Store() *store.Store {
	return a.store
}

// Write stores one snapshot and returns its id.
func (a *Archive) Write(ctx context.Context, snap *Snapshot) (int64, error) {
	exp, err := a.prepare(ctx, snap)
	if err != nil {
		return 0, err
	}
	id, err := a.store.CommitExport(exp)
	if err != nil {
		return 0, fmt.Errorf("astlens: archive %s: %w", snap.Name, err)
	}
	return id, nil
}

// ExportSQLite appends the installed snapshot to the database at dbPath,
// labelled the way the Viewer draws it.
func (v *Viewer) ExportSQLite(dbPath string) (int64, error) {
	var exp *store.Export
	v.read(func(s *session) {
		exp = buildExport(s.snap, s.index, s.addr, s.tree, s.labels)
	})
	if exp == nil {
		return 0, errNilSnapshot
	}
	a, err := OpenArchive(dbPath, WithArchiveLogger(v.logger))
	if err != nil {
		return 0, err
	}
	defer a.Close()
	id, err := a.store.CommitExport(exp)
	if err != nil {
		return 0, fmt.Errorf("astlens: export sqlite: %w", err)
	}
	return id, nil
}

// ArchiveResult reports what ArchiveFiles did with each input.
type ArchiveResult struct {
	Written   map[string]int64 // file path -> snapshot id
	Unchanged []string         // skipped: newest stored fingerprint matches
}

// archiveItem holds everything a parse worker needs.
type archiveItem struct {
	path        string
	source      []byte
	fingerprint string
	export      *store.Export
}

// ArchiveFiles parses and stores files using a three-phase pipeline:
//
//	Phase A (serial):   Read, fingerprint, skip files whose newest export matches.
//	Phase B (parallel): Parse, index and label via a worker pool.
//	Phase C (serial):   Commit each export in its own transaction.
//
// language forces a grammar; empty infers it per file.
func (a *Archive) ArchiveFiles(ctx context.Context, paths []string, language string) (*ArchiveResult, error) {
	result := &ArchiveResult{Written: make(map[string]int64)}

	// ---- Phase A: Serial preparation ----
	var items []archiveItem
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("astlens: read %s: %w", path, err)
		}
		fp := fingerprintString(xxhash.Sum64(src))
		prev, ok, err := a.store.LatestFingerprint(path)
		if err != nil {
			return nil, fmt.Errorf("astlens: archive %s: %w", path, err)
		}
		if ok && prev == fp {
			result.Unchanged = append(result.Unchanged, path)
			continue
		}
		items = append(items, archiveItem{path: path, source: src, fingerprint: fp})
	}
	if len(items) == 0 {
		return result, nil
	}

	// ---- Phase B: Parallel parse ----
	numWorkers := max(min(runtime.NumCPU(), len(items)), 1)

	workCh := make(chan archiveItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type outcome struct {
		item archiveItem
		err  error
	}
	resultCh := make(chan outcome, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				if err := ctx.Err(); err != nil {
					resultCh <- outcome{item: item, err: err}
					continue
				}
				snap := ParseSnapshot(ctx, item.path, item.source, language)
				exp, err := a.prepare(ctx, snap)
				item.export = exp
				resultCh <- outcome{item: item, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	var errs []error
	for res := range resultCh {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("parse %s: %w", res.item.path, res.err))
			continue
		}
		id, err := a.store.CommitExport(res.item.export)
		if err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", res.item.path, err))
			continue
		}
		result.Written[res.item.path] = id
		a.logger.Debug("archived snapshot",
			slog.String("path", res.item.path), slog.Int64("id", id),
			slog.Int("nodes", len(res.item.export.Nodes)))
	}

	if len(errs) > 0 {
		return result, fmt.Errorf("astlens: archiving had %d error(s): %w", len(errs), errs[0])
	}
	return result, nil
}

// prepare indexes and labels snap into a store export.
func (a *Archive) prepare(ctx context.Context, snap *Snapshot) (*store.Export, error) {
	if snap == nil || snap.Root == nil {
		return nil, errNilSnapshot
	}
	index, addr := BuildIndex(snap.Root)
	tree := NewVisualTree(addr)

	labeler := a.labeler
	if sl, ok := labeler.(SnapshotLabeler); ok {
		prepared, err := sl.ForSnapshot(ctx, snap, addr)
		if err != nil {
			a.logger.Warn("label script failed, using default labels",
				slog.String("name", snap.Name), slog.String("error", err.Error()))
			prepared = DefaultLabeler{}
		}
		labeler = prepared
	}
	labels := make(map[Path]string, addr.Len())
	for _, p := range addr.order {
		labels[p] = Label(addr.nodes[p], labeler)
	}
	return buildExport(snap, index, addr, tree, labels), nil
}

func buildExport(snap *Snapshot, index *LineIndex, addr *Addressing, tree *VisualTree, labels map[Path]string) *store.Export {
	exp := &store.Export{
		Snapshot: store.Snapshot{
			Name:        snap.Name,
			Language:    snap.Language,
			Fingerprint: fingerprintString(snap.Fingerprint()),
			Fallback:    snap.Fallback,
			Source:      snap.Source,
			ExportedAt:  time.Now(),
		},
		Nodes: make([]store.Node, 0, addr.Len()),
	}
	for i, p := range addr.order {
		n := addr.nodes[p]
		row := store.Node{
			Path:    string(p),
			Ordinal: i,
			Kind:    n.Kind,
			Label:   labels[p],
		}
		if parent, ok := addr.Parent(p); ok {
			row.ParentPath = string(parent)
		}
		if id, ok := tree.ByPath(p); ok {
			row.Depth = tree.nodes[id].Depth
		}
		if n.Span != nil {
			row.Span = &store.Span{
				StartLine: n.Span.StartLine,
				StartCol:  n.Span.StartColumn,
				EndLine:   n.Span.EndLine,
				EndCol:    n.Span.EndColumn,
			}
		}
		exp.Nodes = append(exp.Nodes, row)
	}
	for _, line := range index.Lines() {
		for rank, e := range index.lines[line] {
			exp.Lines = append(exp.Lines, store.LineEntry{Line: line, Rank: rank, Path: string(e.Path)})
		}
	}
	for _, pe := range snap.Errors {
		exp.Errors = append(exp.Errors, store.ParseError{Message: pe.Message, Line: pe.Line, Column: pe.Column})
	}
	return exp
}

func fingerprintString(h uint64) string {
	return fmt.Sprintf("%016x", h)
}
