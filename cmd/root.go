// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

// Package cmd builds the clauded command tree.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/clauded/clauded/pkg/output"
)

// NewRootCmd assembles the root command and its subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "clauded <command> [options]",
		Short:         "Detect project characteristics and derive environment defaults.",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(output.WithWriter(cmd.Context(), cmd.OutOrStdout()))
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(newDetectCommand())
	rootCmd.AddCommand(newDefaultsCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
