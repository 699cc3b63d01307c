package astlens

import "errors"

var (
	// ErrMissingContainer is returned by NewViewer when there is no surface
	// to draw on.
	ErrMissingContainer = errors.New("astlens: missing render surface")

	// ErrSuperseded is returned by Load and Replace when a newer snapshot
	// was installed while this one was being prepared. The late snapshot is
	// discarded.
	ErrSuperseded = errors.New("astlens: superseded by a newer snapshot")

	errNilSnapshot = errors.New("astlens: nil snapshot")
)
