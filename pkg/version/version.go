// Package version exposes build metadata injected via -ldflags.
package version

import "fmt"

// Build metadata, set at link time:
//
//	-X github.com/Sumatoshi-tech/pystyle/pkg/version.Version=v1.2.3
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the build metadata for the version command.
func String() string {
	return fmt.Sprintf("pystyle %s (commit: %s, built: %s)", Version, Commit, Date)
}
