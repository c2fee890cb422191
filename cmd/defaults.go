// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/clauded/clauded/internal/wizard"
	"github.com/clauded/clauded/pkg/output"
)

func newDefaultsCommand() *cobra.Command {
	flags := &detectionFlags{}

	cmd := &cobra.Command{
		Use:   "defaults [dir]",
		Short: "Print environment defaults derived from project detection.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := output.GetFormatter(cmd)
			if err != nil {
				return err
			}

			root := "."
			if len(args) > 0 {
				root = args[0]
			}

			result := runDetection(cmd, root, flags, false)
			return formatter.Format(wizard.DefaultsFor(result), output.GetWriter(cmd.Context()))
		},
	}

	flags.Bind(cmd)
	output.AddOutputParam(cmd, []output.Format{output.JsonFormat}, output.JsonFormat)

	return cmd
}
