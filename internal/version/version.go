// Package version reports the sastriage build.
package version

import (
	"runtime"
	"runtime/debug"
)

// Overridden at build time:
// go build -ldflags "-X sastriage/internal/version.Version=0.3.0 -X sastriage/internal/version.Commit=$(git rev-parse HEAD)"
var (
	Version   = "0.3.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Build is the machine-readable form printed by `sastriage version --json`.
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
}

// Current returns the build description, filling an unset commit from the
// VCS stamp the Go toolchain embeds.
func Current() Build {
	b := Build{Version: Version, Commit: Commit, BuildDate: BuildDate, GoVersion: runtime.Version()}
	if b.Commit == "unknown" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					b.Commit = s.Value
				case "vcs.time":
					if b.BuildDate == "unknown" {
						b.BuildDate = s.Value
					}
				}
			}
		}
	}
	return b
}

// Info returns the version with a short commit when one is known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns the multi-line version banner.
func Full() string {
	b := Current()
	return "sastriage version " + b.Version + "\n" +
		"Commit: " + b.Commit + "\n" +
		"Built: " + b.BuildDate + "\n" +
		"Go: " + b.GoVersion
}
