// Package version exposes build information for diagnostics.
package version

import (
	"fmt"
	"runtime/debug"
)

// Overridable via ldflags at build time.
var (
	Version    = "dev"
	CommitHash = ""
)

// Info returns the version string, with the short commit hash when known.
func Info() string {
	if CommitHash == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" {
					CommitHash = setting.Value
				}
			}
		}
	}
	if CommitHash == "" {
		return Version
	}
	shortHash := CommitHash
	if len(shortHash) > 7 {
		shortHash = shortHash[:7]
	}
	return fmt.Sprintf("%s (%s)", Version, shortHash)
}
