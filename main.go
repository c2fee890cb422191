// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/mattn/go-colorable"
	"github.com/spf13/pflag"

	"github.com/clauded/clauded/cmd"
	"github.com/clauded/clauded/pkg/output"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	restoreColorMode := colorable.EnableColorsStdout(nil)
	defer restoreColorMode()

	configureLogging()

	if err := cmd.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, output.WithErrorFormat("Error: %v", err))
		os.Exit(1)
	}
}

// configureLogging routes slog to stderr, lowered to debug level when
// --debug is on the command line.
func configureLogging() {
	level := slog.LevelWarn
	if isDebugEnabled() {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// isDebugEnabled looks for --debug ahead of cobra's own parsing so logging
// is configured before any command code runs.
func isDebugEnabled() bool {
	debug := false
	help := false
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)

	// The full command line carries flags this set does not define; parse
	// past them instead of failing.
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.BoolVar(&debug, "debug", false, "")

	// pflag treats "help" as special and returns ErrHelp from Parse when
	// --help is on the command line and no help flag is defined.
	flags.BoolVarP(&help, "help", "h", false, "")

	if err := flags.Parse(os.Args[1:]); err != nil {
		slog.Debug("could not parse command line", "error", err)
	}

	return debug
}
