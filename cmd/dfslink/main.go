// dfslink - CLI client for a DFS web gateway.
package main

import (
	"os"

	"github.com/dfslink/dfslink/internal/cli"
	"github.com/dfslink/dfslink/internal/version"
)

// Version information, overridden by ldflags in release builds.
var (
	Version   = "v1.2.0"
	BuildTime = "2026-08-30"
)

func main() {
	// Propagate version to the canonical source for all packages.
	version.Version = Version
	version.BuildTime = BuildTime
	cli.Version = Version
	cli.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
