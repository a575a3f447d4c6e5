// Package version holds build metadata for the featprobe CLI.
// The variables are overridden at build time via -ldflags.
package version

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// String returns the version line printed by `featprobe version`.
func String() string {
	return Version + " (" + Commit + ") " + BuildTime
}
