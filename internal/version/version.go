// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package version

import (
	"runtime/debug"
)

// Version is overridden at build time with -ldflags "-X github.com/canonical/care-service/internal/version.Version=..."
var Version = "0.1.0" // x-release-please-version

// BuildInfo describes the running binary
type BuildInfo struct {
	Version   string `json:"version"`
	Revision  string `json:"revision,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
}

// Info reads the VCS revision stamped by the Go toolchain, if any
func Info() BuildInfo {
	info := BuildInfo{Version: Version}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	info.GoVersion = bi.GoVersion

	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			info.Revision = s.Value
		}
	}

	return info
}
