// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauded/clauded/pkg/osutil"
)

// executeCommand runs the root command with args and returns what it wrote.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// writeProjectFile drops a fixture file under root, creating parents.
func writeProjectFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), osutil.PermissionDirectory))
	require.NoError(t, os.WriteFile(path, []byte(content), osutil.PermissionFile))
}

func Test_VersionCommand(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		out, err := executeCommand(t, "version")
		require.NoError(t, err)
		assert.Equal(t, "clauded version 0.0.0-dev.0\n", out)
	})

	t.Run("json", func(t *testing.T) {
		out, err := executeCommand(t, "version", "-o", "json")
		require.NoError(t, err)
		assert.JSONEq(t, `{"version": "0.0.0-dev.0"}`, out)
	})
}

func Test_UnknownCommand(t *testing.T) {
	_, err := executeCommand(t, "provision")
	require.Error(t, err)
}
