// Package version carries build metadata set through -ldflags -X.
package version

import "fmt"

var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// String formats the build metadata for -version and /health.
func String() string {
	return fmt.Sprintf("trackfit %s (%s, built %s)", Version, GitSHA, BuildTime)
}
