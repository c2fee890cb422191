// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

// Package detect analyzes a project directory and reports the languages,
// runtime versions, frameworks, tools, and databases it appears to use.
// Detection is read-only and best-effort: every strategy degrades to an
// empty contribution when its inputs are missing or malformed, and results
// carry confidence levels and evidence so callers can weigh them.
package detect

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/benbjohnson/clock"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/clauded/clauded/internal/detect/corpus"
)

// DefaultMaxFiles caps how many files the language scan visits before the
// walk stops and the result is flagged as truncated.
const DefaultMaxFiles = 25000

// DetectOption adjusts how a Detector is constructed.
type DetectOption interface {
	apply(detectConfig) detectConfig
}

type detectConfig struct {
	// MaxFiles caps the number of files visited during the language scan.
	// Zero or negative disables the cap.
	MaxFiles int
	// ExcludePatterns are doublestar globs matched against root-relative
	// paths. Matching files are skipped and counted as excluded, on top of
	// the built-in vendor rules.
	ExcludePatterns []string
	// UserMCPConfig is the user-level MCP configuration file consulted after
	// the project-level ones. Empty disables the user-level lookup.
	UserMCPConfig string
	// Clock supplies scan timing.
	Clock clock.Clock

	// Internal usage fields
	userMCPConfigSet bool
}

func newConfig(options ...DetectOption) detectConfig {
	c := detectConfig{
		MaxFiles: DefaultMaxFiles,
	}

	for _, opt := range options {
		c = opt.apply(c)
	}

	if c.Clock == nil {
		c.Clock = clock.New()
	}

	if !c.userMCPConfigSet {
		if home, err := os.UserHomeDir(); err == nil {
			c.UserMCPConfig = filepath.Join(home, ".claude.json")
		}
	}

	return c
}

type maxFilesOption struct {
	limit int
}

func (o *maxFilesOption) apply(c detectConfig) detectConfig {
	c.MaxFiles = o.limit
	return c
}

// WithMaxFiles overrides the file ceiling for the language scan. Values of
// zero or below disable the ceiling.
func WithMaxFiles(limit int) DetectOption {
	return &maxFilesOption{limit}
}

type excludePatternsOption struct {
	patterns []string
}

func (o *excludePatternsOption) apply(c detectConfig) detectConfig {
	c.ExcludePatterns = append(c.ExcludePatterns, o.patterns...)
	return c
}

// WithExcludePatterns adds doublestar globs whose matches are skipped during
// the language scan.
func WithExcludePatterns(patterns ...string) DetectOption {
	return &excludePatternsOption{patterns}
}

type userMCPConfigOption struct {
	path string
}

func (o *userMCPConfigOption) apply(c detectConfig) detectConfig {
	c.UserMCPConfig = o.path
	c.userMCPConfigSet = true
	return c
}

// WithUserMCPConfig overrides the location of the user-level MCP config.
// An empty path disables the user-level lookup entirely.
func WithUserMCPConfig(path string) DetectOption {
	return &userMCPConfigOption{path}
}

type clockOption struct {
	clk clock.Clock
}

func (o *clockOption) apply(c detectConfig) detectConfig {
	c.Clock = o.clk
	return c
}

// WithClock substitutes the clock used for scan timing.
func WithClock(clk clock.Clock) DetectOption {
	return &clockOption{clk}
}

// Detector runs the individual detection strategies against a project root.
// A single Detector may be reused across projects and goroutines.
type Detector struct {
	corpus        *corpus.Corpus
	clock         clock.Clock
	maxFiles      int
	excludes      []string
	userMCPConfig string
}

// NewDetector builds a Detector from the given options. Invalid exclude
// patterns are dropped with a warning rather than failing construction.
func NewDetector(options ...DetectOption) *Detector {
	c := newConfig(options...)

	d := &Detector{
		corpus:        corpus.Default(),
		clock:         c.Clock,
		maxFiles:      c.MaxFiles,
		userMCPConfig: c.UserMCPConfig,
	}

	for _, pattern := range c.ExcludePatterns {
		if !doublestar.ValidatePattern(pattern) {
			slog.Warn("ignoring invalid exclude pattern", "pattern", pattern)
			continue
		}
		d.excludes = append(d.excludes, pattern)
	}

	return d
}

// excluded reports whether a root-relative path matches a user exclude glob.
func (d *Detector) excluded(relPath string) bool {
	for _, pattern := range d.excludes {
		if ok, err := doublestar.PathMatch(pattern, relPath); err == nil && ok {
			return true
		}
	}
	return false
}

// Detect runs every detection strategy against root and consolidates the
// results. It never returns an error: an unreadable or empty root yields an
// empty result, and individual strategy failures leave the result partial.
// Nothing under root is ever modified. Cancelling ctx stops the language
// scan early and skips the remaining strategies, with ScanTruncated set.
func (d *Detector) Detect(ctx context.Context, root string) *DetectionResult {
	result := newDetectionResult()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		slog.WarnContext(ctx, "could not resolve project root", "root", root, "error", err)
		return result
	}
	root = absRoot

	entries, err := os.ReadDir(root)
	if err != nil {
		slog.DebugContext(ctx, "project root not readable", "root", root, "error", err)
		return result
	}
	if len(entries) == 0 {
		slog.DebugContext(ctx, "project root is empty", "root", root)
		return result
	}

	slog.DebugContext(ctx, "starting detection", "root", root)
	started := d.clock.Now()

	languages, stats := d.DetectLanguages(ctx, root)
	result.Languages = languages
	slog.DebugContext(ctx, "language detection complete",
		"languages", len(languages),
		"scanned", stats.FilesScanned,
		"excluded", stats.FilesExcluded)

	if ctx.Err() != nil {
		stats.ScanTruncated = true
	} else {
		result.Versions = d.DetectVersions(root)
		slog.DebugContext(ctx, "version detection complete", "versions", len(result.Versions))

		result.Frameworks, result.Tools = d.DetectFrameworksAndTools(root)
		slog.DebugContext(ctx, "framework detection complete",
			"frameworks", len(result.Frameworks),
			"tools", len(result.Tools))

		result.Databases = d.DetectDatabases(root)
		slog.DebugContext(ctx, "database detection complete", "databases", len(result.Databases))

		mcp := d.DetectMCPRequirements(root)
		result.MCPRuntimes = mcp.RequiredRuntimes()
		mergeTools(result, mcp.DetectedItems())
		slog.DebugContext(ctx, "mcp detection complete",
			"requirements", len(mcp.Requirements),
			"configs", len(mcp.SourceFiles))
	}

	stats.DurationMs = d.clock.Since(started).Milliseconds()
	result.ScanStats = &stats

	slog.DebugContext(ctx, "detection complete", "duration_ms", stats.DurationMs)
	return result
}

// mergeTools appends MCP-derived tool items whose names are not already
// present in the tools list.
func mergeTools(result *DetectionResult, items []DetectedItem) {
	existing := map[string]bool{}
	for _, tool := range result.Tools {
		existing[tool.Name] = true
	}
	for _, item := range items {
		if existing[item.Name] {
			continue
		}
		existing[item.Name] = true
		result.Tools = append(result.Tools, item)
	}
}
