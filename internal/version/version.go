// Package version carries build-time version information, injected with
// ldflags:
//
//	go build -ldflags "-X github.com/mandipulse/mandipulse/internal/version.Version=1.0.0 ..."
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version, "dev" for local builds.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildDate is the UTC build timestamp in RFC 3339 format.
	BuildDate = "unknown"
)

// Full returns the multi-line output of the version subcommand.
func Full() string {
	return fmt.Sprintf("mandipulse %s\n  Commit:     %s\n  Built:      %s\n  Go version: %s\n  OS/Arch:    %s/%s",
		Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
