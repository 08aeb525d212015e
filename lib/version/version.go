// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

// Package version exposes build metadata for Folio binaries. The
// release pipeline injects the values with -ldflags -X; development
// builds and test runs see the defaults.
package version

import (
	"fmt"
	"runtime"
)

// Injected at build time, for example:
//
//	go build -ldflags "-X github.com/folio-foundation/folio/lib/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	// Version is the semantic version, set manually for releases.
	Version = "0.1.0-dev"

	// GitCommit is the short SHA the binary was built from.
	GitCommit = "unknown"

	// GitDirty is "true" when the working tree had uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// Short returns just the version number.
func Short() string {
	return Version
}

// Commit returns the git SHA, suffixed with -dirty when the build tree
// was not clean.
func Commit() string {
	if GitDirty == "true" {
		return GitCommit + "-dirty"
	}
	return GitCommit
}

// Info returns the one-line form used by --version output.
func Info() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit(), BuildTime)
}

// Full returns Info plus the Go runtime and target platform, for bug
// reports.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Print writes the standard --version line for the named binary to
// stdout.
func Print(name string) {
	fmt.Printf("%s %s\n", name, Info())
}
