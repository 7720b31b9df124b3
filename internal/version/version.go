/*
Package version reports the build of hybrid-rank.

Values are set via ldflags during build:

	-X github.com/khanglvm/hybrid-rank/internal/version.Version=v0.3.0
	-X github.com/khanglvm/hybrid-rank/internal/version.Commit=abc1234
	-X github.com/khanglvm/hybrid-rank/internal/version.Date=2026-01-31

Without ldflags the module version recorded by `go install` is used, and
"dev" otherwise.
*/
package version

import "runtime/debug"

var (
	// Version is the release tag (e.g., v0.3.0)
	Version = "dev"
	// Commit is the short git commit hash
	Commit = "none"
	// Date is the UTC build date (YYYY-MM-DD)
	Date = "unknown"
)

func init() {
	if Version != "dev" {
		return
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		Version = bi.Main.Version
	}
}

// Info is the machine-readable build description.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Get returns the current build info.
func Get() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}

// GetVersion returns the version as a display string.
func GetVersion() string {
	return FormatVersion(Version, Commit, Date)
}

// FormatVersion formats version components into a display string
func FormatVersion(version, commit, date string) string {
	if version == "dev" {
		return version + " (development build)"
	}
	if commit == "none" {
		return version
	}
	return version + " (commit: " + commit + ", built: " + date + ")"
}
