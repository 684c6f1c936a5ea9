// Package version carries build metadata injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/banshee-data/blink.report/internal/version.Version=v0.3.0"
package version

import "fmt"

var (
	// Version is the release tag
	Version = "dev"
	// GitSHA is the commit the binary was built from
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build metadata for a command's -version output.
func String(command string) string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", command, Version, GitSHA, BuildTime)
}
