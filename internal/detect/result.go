// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

package detect

import "sort"

// Confidence grades how certain a detection is. It drives both display and
// the pre-selection policy of consumers.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// rank orders confidences for merging; higher wins.
func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// AtLeast reports whether c is at least as certain as other.
func (c Confidence) AtLeast(other Confidence) bool {
	return c.rank() >= other.rank()
}

// Runtime names a provisionable language runtime.
type Runtime string

const (
	RuntimePython Runtime = "python"
	RuntimeNode   Runtime = "node"
	RuntimeJava   Runtime = "java"
	RuntimeKotlin Runtime = "kotlin"
	RuntimeRust   Runtime = "rust"
	RuntimeGo     Runtime = "go"
)

// Runtimes lists the supported runtimes in cascade evaluation order.
var Runtimes = []Runtime{RuntimePython, RuntimeNode, RuntimeJava, RuntimeKotlin, RuntimeRust, RuntimeGo}

// Constraint classifies a version string.
type Constraint string

const (
	// A single fixed version.
	ConstraintExact Constraint = "exact"
	// A lower bound with no second bound.
	ConstraintMinimum Constraint = "minimum"
	// Multi-bound, caret/tilde style, or wildcard.
	ConstraintRange Constraint = "range"
)

// DetectedLanguage is one language found in the tree, with the byte and
// file tallies that back its confidence.
type DetectedLanguage struct {
	Name        string     `json:"name"`
	Confidence  Confidence `json:"confidence"`
	ByteCount   int64      `json:"byte_count"`
	FileCount   int        `json:"-"`
	SampleFiles []string   `json:"source_files"`
}

// VersionSpec is a validated runtime version constraint and its provenance.
type VersionSpec struct {
	Version        string     `json:"version"`
	SourceFile     string     `json:"source_file"`
	ConstraintType Constraint `json:"constraint_type"`
}

// DetectedItem is a framework, tool, or database detection. SourceEvidence
// holds the token that justified it: a dependency name, a compose service
// name, an env var name, or a file name.
type DetectedItem struct {
	Name           string     `json:"name"`
	Confidence     Confidence `json:"confidence"`
	SourceFile     string     `json:"source_file"`
	SourceEvidence string     `json:"source_evidence"`
}

// ScanStats reports the cost and coverage of the language scan.
type ScanStats struct {
	FilesScanned  int   `json:"files_scanned"`
	FilesExcluded int   `json:"files_excluded"`
	DurationMs    int64 `json:"duration_ms"`
	ScanTruncated bool  `json:"scan_truncated"`
}

// MCPRequirement is a runtime or tool implied by one MCP server's launch
// command. At least one of Runtime and Tool is set.
type MCPRequirement struct {
	Runtime    Runtime
	Tool       string
	SourceFile string
	Command    string
	ServerName string
	Confidence Confidence
}

// MCPDetection aggregates the requirements found across MCP config files.
type MCPDetection struct {
	Requirements []MCPRequirement
	SourceFiles  []string
}

// addSourceFile records a config file that declared at least one server,
// keeping SourceFiles free of duplicates.
func (d *MCPDetection) addSourceFile(path string) {
	for _, existing := range d.SourceFiles {
		if existing == path {
			return
		}
	}
	d.SourceFiles = append(d.SourceFiles, path)
}

// RequiredRuntimes returns the distinct runtimes the MCP servers need,
// sorted by name.
func (d *MCPDetection) RequiredRuntimes() []Runtime {
	seen := map[Runtime]bool{}
	var runtimes []Runtime
	for _, req := range d.Requirements {
		if req.Runtime != "" && !seen[req.Runtime] {
			seen[req.Runtime] = true
			runtimes = append(runtimes, req.Runtime)
		}
	}
	sort.Slice(runtimes, func(i, j int) bool { return runtimes[i] < runtimes[j] })
	return runtimes
}

// RequiredTools returns the distinct tools the MCP servers need, sorted by
// name.
func (d *MCPDetection) RequiredTools() []string {
	seen := map[string]bool{}
	var tools []string
	for _, req := range d.Requirements {
		if req.Tool != "" && !seen[req.Tool] {
			seen[req.Tool] = true
			tools = append(tools, req.Tool)
		}
	}
	sort.Strings(tools)
	return tools
}

// DetectedItems converts the tool requirements into DetectedItem form, one
// item per distinct tool, with the first contributing server as evidence.
func (d *MCPDetection) DetectedItems() []DetectedItem {
	seen := map[string]bool{}
	items := []DetectedItem{}
	for _, req := range d.Requirements {
		if req.Tool == "" || seen[req.Tool] {
			continue
		}
		seen[req.Tool] = true
		items = append(items, DetectedItem{
			Name:           req.Tool,
			Confidence:     req.Confidence,
			SourceFile:     req.SourceFile,
			SourceEvidence: "MCP server '" + req.ServerName + "' uses " + req.Command,
		})
	}
	return items
}

// DetectionResult is the consolidated output of one Detect call. It is
// fully populated before being returned and never mutated afterwards.
type DetectionResult struct {
	Languages   []DetectedLanguage      `json:"languages"`
	Versions    map[Runtime]VersionSpec `json:"versions"`
	Frameworks  []DetectedItem          `json:"frameworks"`
	Tools       []DetectedItem          `json:"tools"`
	Databases   []DetectedItem          `json:"databases"`
	MCPRuntimes []Runtime               `json:"-"`
	ScanStats   *ScanStats              `json:"scan_stats"`
}

// newDetectionResult returns an empty result whose collections marshal as
// empty, not null.
func newDetectionResult() *DetectionResult {
	return &DetectionResult{
		Languages:  []DetectedLanguage{},
		Versions:   map[Runtime]VersionSpec{},
		Frameworks: []DetectedItem{},
		Tools:      []DetectedItem{},
		Databases:  []DetectedItem{},
	}
}

// NewEmptyResult returns a result with no detections, the same shape Detect
// yields for an unreadable or empty project root.
func NewEmptyResult() *DetectionResult {
	return newDetectionResult()
}

// markupLanguages is excluded from primary-language selection; names match
// the vendored language table.
var markupLanguages = map[string]bool{
	"HTML":     true,
	"XML":      true,
	"JSON":     true,
	"YAML":     true,
	"Markdown": true,
	"CSS":      true,
	"SCSS":     true,
	"Sass":     true,
}

// PrimaryLanguage returns the highest-byte-count non-markup language, or ""
// when only markup and data files were found.
func (r *DetectionResult) PrimaryLanguage() string {
	var primary string
	var bytes int64 = -1
	for _, lang := range r.Languages {
		if markupLanguages[lang.Name] {
			continue
		}
		if lang.ByteCount > bytes {
			primary = lang.Name
			bytes = lang.ByteCount
		}
	}
	return primary
}

// DetectedVersion returns the detected version string for runtime, or "".
func (r *DetectionResult) DetectedVersion(runtime Runtime) string {
	if spec, ok := r.Versions[runtime]; ok {
		return spec.Version
	}
	return ""
}

// ToolDetected reports whether a tool with the given name was detected.
func (r *DetectionResult) ToolDetected(name string) bool {
	for _, item := range r.Tools {
		if item.Name == name {
			return true
		}
	}
	return false
}

// DatabaseDetected reports whether a database with the given name was
// detected.
func (r *DetectionResult) DatabaseDetected(name string) bool {
	for _, item := range r.Databases {
		if item.Name == name {
			return true
		}
	}
	return false
}

// MCPRuntimeRequired reports whether any MCP server requires runtime.
func (r *DetectionResult) MCPRuntimeRequired(runtime Runtime) bool {
	for _, rt := range r.MCPRuntimes {
		if rt == runtime {
			return true
		}
	}
	return false
}

// Empty reports whether nothing at all was detected.
func (r *DetectionResult) Empty() bool {
	return len(r.Languages) == 0 && len(r.Versions) == 0 && len(r.Frameworks) == 0 &&
		len(r.Tools) == 0 && len(r.Databases) == 0 && len(r.MCPRuntimes) == 0
}
