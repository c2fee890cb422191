// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/clauded/clauded/internal/detect"
	"github.com/clauded/clauded/pkg/output"
	"github.com/clauded/clauded/pkg/spin"
)

type detectionFlags struct {
	maxFiles int
	excludes []string
	noDetect bool
}

func (f *detectionFlags) Bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.maxFiles, "max-files", detect.DefaultMaxFiles,
		"Maximum number of files to visit before the scan is truncated (0 for no limit)")
	cmd.Flags().StringArrayVar(&f.excludes, "exclude", nil,
		"Glob pattern excluded from the scan, relative to the project root (repeatable)")
	cmd.Flags().BoolVar(&f.noDetect, "no-detect", false,
		"Skip detection and report an empty result")
}

func newDetectCommand() *cobra.Command {
	flags := &detectionFlags{}

	cmd := &cobra.Command{
		Use:   "detect [dir]",
		Short: "Detect languages, versions, frameworks, tools, and databases in a project.",
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

			interactive := formatter.Kind() != output.JsonFormat &&
				(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))
			result := runDetection(cmd, root, flags, interactive)

			writer := output.GetWriter(cmd.Context())
			if formatter.Kind() == output.JsonFormat {
				return formatter.Format(result, writer)
			}

			renderSummary(writer, result)
			return nil
		},
	}

	flags.Bind(cmd)
	output.AddOutputParam(cmd, []output.Format{output.JsonFormat, output.NoneFormat}, output.NoneFormat)

	return cmd
}

// runDetection executes the configured detection, under a spinner when the
// command is interactive.
func runDetection(cmd *cobra.Command, root string, flags *detectionFlags, interactive bool) *detect.DetectionResult {
	if flags.noDetect {
		return detect.NewEmptyResult()
	}

	detector := detect.NewDetector(
		detect.WithMaxFiles(flags.maxFiles),
		detect.WithExcludePatterns(flags.excludes...),
	)

	var result *detect.DetectionResult
	runFn := func() error {
		result = detector.Detect(cmd.Context(), root)
		return nil
	}

	if interactive {
		_ = spin.New("Detecting project configuration").Run(runFn)
	} else {
		_ = runFn()
	}

	return result
}

func confidenceMarker(confidence detect.Confidence) string {
	switch confidence {
	case detect.ConfidenceMedium:
		return " (detected)"
	case detect.ConfidenceLow:
		return output.WithGrayFormat(" (suggestion)")
	}
	return ""
}

// renderSummary prints the human-readable detection report, one section per
// populated result field.
func renderSummary(w io.Writer, result *detect.DetectionResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "📋 Auto-detected from project:")
	fmt.Fprintln(w)

	if len(result.Languages) > 0 {
		fmt.Fprintln(w, "Languages:")
		primary := result.PrimaryLanguage()
		for _, lang := range result.Languages {
			marker := confidenceMarker(lang.Confidence)
			if lang.Name == primary {
				marker += output.WithHighLightFormat(" (primary)")
			}
			fmt.Fprintf(w, "  • %s%s - %d files, %.0fKB\n",
				lang.Name, marker, lang.FileCount, float64(lang.ByteCount)/1024)
		}
		fmt.Fprintln(w)
	}

	if len(result.Versions) > 0 {
		fmt.Fprintln(w, "Versions:")
		for _, runtime := range detect.Runtimes {
			spec, ok := result.Versions[runtime]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "  • %s: %s (from %s)\n", runtime, spec.Version, spec.SourceFile)
		}
		fmt.Fprintln(w)
	}

	if len(result.Frameworks) > 0 {
		fmt.Fprintln(w, "Frameworks:")
		for _, item := range result.Frameworks {
			fmt.Fprintf(w, "  • %s%s - from %s\n", item.Name, confidenceMarker(item.Confidence), item.SourceFile)
		}
		fmt.Fprintln(w)
	}

	if len(result.Tools) > 0 {
		fmt.Fprintln(w, "Tools:")
		for _, item := range result.Tools {
			fmt.Fprintf(w, "  • %s%s - %s\n", item.Name, confidenceMarker(item.Confidence), item.SourceEvidence)
		}
		fmt.Fprintln(w)
	}

	if len(result.Databases) > 0 {
		fmt.Fprintln(w, "Databases:")
		for _, item := range result.Databases {
			fmt.Fprintf(w, "  • %s%s - from %s\n", item.Name, confidenceMarker(item.Confidence), item.SourceFile)
		}
		fmt.Fprintln(w)
	}

	if len(result.MCPRuntimes) > 0 {
		names := make([]string, len(result.MCPRuntimes))
		for i, runtime := range result.MCPRuntimes {
			names[i] = string(runtime)
		}
		fmt.Fprintf(w, "MCP runtimes: %s\n", strings.Join(names, ", "))
		fmt.Fprintln(w)
	}

	if result.ScanStats != nil {
		line := fmt.Sprintf("Scan: %d files scanned, %d excluded in %dms",
			result.ScanStats.FilesScanned, result.ScanStats.FilesExcluded, result.ScanStats.DurationMs)
		if result.ScanStats.ScanTruncated {
			line += " (truncated)"
		}
		fmt.Fprintln(w, output.WithGrayFormat(line))
	}
}
