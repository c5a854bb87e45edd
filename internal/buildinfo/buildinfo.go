// Package buildinfo exposes the version metadata stamped in via ldflags.
package buildinfo

import (
	"fmt"
	"io"
)

// Set at build time, e.g.:
//
//	go build -ldflags "-X .../internal/buildinfo.Version=v1.0.0"
var (
	Version = "N/A"
	Date    = "N/A"
	Commit  = "N/A"
)

// PrintBuildData writes the build metadata to w.
func PrintBuildData(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", Version)
	fmt.Fprintf(w, "Build date: %s\n", Date)
	fmt.Fprintf(w, "Build commit: %s\n", Commit)
}
