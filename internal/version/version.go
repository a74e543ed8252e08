// Package version carries build metadata injected with -ldflags, e.g.
// -X paddlecast/internal/version.Version=v1.2.0.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version of the binary. Overridden at build time.
	Version = "dev"
	// Commit is the git commit hash. Overridden at build time.
	Commit = "unknown"
	// BuildDate is the build timestamp. Overridden at build time.
	BuildDate = "unknown"
)

// UserAgent identifies upstream requests made by this build.
func UserAgent(app, contact string) string {
	if contact == "" {
		return fmt.Sprintf("%s/%s", app, Version)
	}
	return fmt.Sprintf("%s/%s (%s)", app, Version, contact)
}

// String renders the build information block printed by the version command.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s\ngo: %s %s/%s\n",
		Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
