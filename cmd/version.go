// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clauded/clauded/internal"
	"github.com/clauded/clauded/pkg/output"
)

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of clauded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := output.GetFormatter(cmd)
			if err != nil {
				return err
			}

			writer := output.GetWriter(cmd.Context())
			if formatter.Kind() == output.JsonFormat {
				return formatter.Format(map[string]string{"version": internal.GetVersionNumber()}, writer)
			}

			fmt.Fprintf(writer, "clauded version %s\n", internal.GetVersionNumber())
			return nil
		},
	}

	output.AddOutputParam(cmd, []output.Format{output.JsonFormat, output.NoneFormat}, output.NoneFormat)

	return cmd
}
