// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

package internal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetVersionNumber(t *testing.T) {
	require.Equal(t, "0.0.0-dev.0", GetVersionNumber())

	orig := Version
	defer func() { Version = orig }()

	Version = "1.4.2"
	require.Equal(t, "1.4.2", GetVersionNumber())

	Version = "invalid"
	require.Equal(t, "unknown", GetVersionNumber())

	Version = ""
	require.Equal(t, "unknown", GetVersionNumber())
}
