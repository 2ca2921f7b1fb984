// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version provides build-time version information.
package version

import "fmt"

// Injected via ldflags at build time.
var (
	Version   = "dev" // semantic version from git tags (e.g., "v1.2.3")
	GitCommit = ""    // short git commit hash
	BuildTime = ""    // build timestamp in RFC3339 format
)

// Info bundles the build-time version information.
type Info struct {
	Version   string
	GitCommit string
	BuildTime string
}

// Get returns the current build information.
func Get() Info {
	return Info{Version: Version, GitCommit: GitCommit, BuildTime: BuildTime}
}

// String renders the build information for the -version flag.
func (i Info) String() string {
	s := i.Version
	if i.GitCommit != "" {
		s = fmt.Sprintf("%s (%s)", s, i.GitCommit)
	}
	if i.BuildTime != "" {
		s = fmt.Sprintf("%s built %s", s, i.BuildTime)
	}
	return s
}
