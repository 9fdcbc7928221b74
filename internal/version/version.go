// Package version holds build information injected through -ldflags
package version

import (
	"fmt"
	"runtime"
)

// Set at build time, e.g.
//
//	go build -ldflags "-X github.com/longkey1/aiproj/internal/version.Version=v0.1.0"
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildTime = "unknown"
)

// Short returns only the version number
func Short() string {
	return Version
}

// Info returns the full version description
func Info() string {
	return fmt.Sprintf("aiproj %s\ncommit: %s\nbuilt: %s\ngo: %s", Version, CommitSHA, BuildTime, runtime.Version())
}
