// Package version holds build metadata injected via ldflags:
//
//	-X github.com/paperfinder/paperfinder/internal/version.Version=v1.2.0
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders all build metadata on one line.
func String() string {
	return fmt.Sprintf("paperfinder %s (commit %s, built %s)", Version, Commit, Date)
}
