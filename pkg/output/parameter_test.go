// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

package output

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func newOutputCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "detect"}
	return AddOutputParam(cmd, []Format{JsonFormat, NoneFormat}, NoneFormat)
}

func Test_GetFormatter(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		cmd := newOutputCommand()

		formatter, err := GetFormatter(cmd)
		require.NoError(t, err)
		require.Equal(t, NoneFormat, formatter.Kind())
	})

	t.Run("explicit json", func(t *testing.T) {
		cmd := newOutputCommand()
		require.NoError(t, cmd.Flags().Set("output", "json"))

		formatter, err := GetFormatter(cmd)
		require.NoError(t, err)
		require.Equal(t, JsonFormat, formatter.Kind())
	})

	t.Run("case and whitespace tolerant", func(t *testing.T) {
		cmd := newOutputCommand()
		require.NoError(t, cmd.Flags().Set("output", " JSON "))

		formatter, err := GetFormatter(cmd)
		require.NoError(t, err)
		require.Equal(t, JsonFormat, formatter.Kind())
	})

	t.Run("unsupported value", func(t *testing.T) {
		cmd := newOutputCommand()
		require.NoError(t, cmd.Flags().Set("output", "yaml"))

		formatter, err := GetFormatter(cmd)
		require.Error(t, err)
		require.ErrorContains(t, err, "unsupported format 'yaml'")
		require.Nil(t, formatter)
	})

	t.Run("missing flag", func(t *testing.T) {
		cmd := &cobra.Command{Use: "bare"}

		formatter, err := GetFormatter(cmd)
		require.Error(t, err)
		require.Nil(t, formatter)
	})
}
