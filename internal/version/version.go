// Package version holds build-time version information for the kbrag binary.
// The variables are populated via -ldflags:
//
//	go build -ldflags="-X github.com/54b3r/kbrag-go/internal/version.Version=v1.2.3 \
//	                    -X github.com/54b3r/kbrag-go/internal/version.Commit=abc1234 \
//	                    -X github.com/54b3r/kbrag-go/internal/version.BuildDate=2026-01-01"
package version

import "fmt"

var (
	// Version is the semantic version of the binary. Defaults to "dev".
	Version = "dev"
	// Commit is the short git SHA. Defaults to "unknown".
	Commit = "unknown"
	// BuildDate is the UTC build date. Defaults to "unknown".
	BuildDate = "unknown"
)

// String renders the version line printed by `kbrag version`.
func String() string {
	return fmt.Sprintf("kbrag %s (commit %s, built %s)", Version, Commit, BuildDate)
}
