// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

package internal

import "github.com/Masterminds/semver/v3"

// Version is the version of the running binary. Release builds overwrite it
// via
//
//	-ldflags="-X 'github.com/clauded/clauded/internal.Version=<version>'"
var Version = "0.0.0-dev.0"

// GetVersionNumber returns the stamped version, or "unknown" when the build
// stamped a value that does not parse as a semantic version.
func GetVersionNumber() string {
	if _, err := semver.NewVersion(Version); err != nil {
		return "unknown"
	}
	return Version
}
