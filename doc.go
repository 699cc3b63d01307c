// Package astlens is the cross-reference engine of a syntax tree viewer. It
// maps source lines to tree nodes, gives every node a stable dotted path
// within its snapshot, and drives the interactive state of a tree view:
// expand and collapse, search-and-reveal, and selection kept in step with
// the source view.
//
// # Pipeline
//
// A snapshot moves through the engine in one pass:
//
//  1. Parse: [ParseSnapshot] parses source with tree-sitter, or
//     [DecodeSnapshot] reads an ESTree JSON tree. Source that no grammar
//     accepts still yields a per-line fallback tree.
//
//  2. Index: [BuildIndex] walks the tree once, assigning paths
//     (root.body.0.declarations.0.init) and recording every spanned node on
//     each line it covers, innermost first.
//
//  3. View: a [Viewer] numbers the drawn nodes, keeps the collapse state,
//     selection and search highlights, and sends a [Frame] to its [Surface]
//     after every change.
//
// # Usage
//
//	v, err := astlens.NewViewer(surface, astlens.WithEvents(astlens.Events{
//		OnLineSelected: func(line int) { ... },
//	}))
//	if err != nil { ... }
//
//	snap := astlens.ParseSnapshot(ctx, "main.go", src, "")
//	err = v.Replace(ctx, snap)
//
//	v.SelectByLine(5)      // innermost node covering line 5, ancestors revealed
//	v.Search("identifier") // highlight and reveal matches
//
// # Snapshots
//
// Paths, visual ids and line entries belong to the snapshot that produced
// them. [Viewer.Replace] swaps all of it in one step, and [Viewer.Load]
// drops a fetched snapshot with [ErrSuperseded] when a newer one was
// installed first.
//
// # Export
//
// [Export] writes a tree as JSON or YAML in field order. An [Archive]
// stores snapshots, their line index and labels in SQLite.
package astlens
