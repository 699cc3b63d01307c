// Package scripts bundles the Risor label scripts shipped with astlens.
package scripts

import (
	"embed"
	"io/fs"
)

//go:embed labels/*.risor
var FS embed.FS

// Labels returns the bundled label scripts rooted at labels/, so a script
// is addressed as "go.risor".
func Labels() fs.FS {
	sub, err := fs.Sub(FS, "labels")
	if err != nil {
		panic(err)
	}
	return sub
}
