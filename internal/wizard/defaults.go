// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

// Package wizard derives environment-setup defaults from detection results.
// The interactive wizard consumes these as its pre-selections; everything
// here stays overridable by the user.
package wizard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/clauded/clauded/internal/detect"
)

// noneChoice is the wizard choice meaning "do not install this runtime".
const noneChoice = "None"

// languageRuntimes maps detected language names to the runtime they select.
var languageRuntimes = map[string]detect.Runtime{
	"Python":     detect.RuntimePython,
	"JavaScript": detect.RuntimeNode,
	"TypeScript": detect.RuntimeNode,
	"Java":       detect.RuntimeJava,
	"Kotlin":     detect.RuntimeKotlin,
	"Rust":       detect.RuntimeRust,
	"Go":         detect.RuntimeGo,
}

// runtimeChoices lists the wizard version choices per runtime, newest first.
var runtimeChoices = map[detect.Runtime][]string{
	detect.RuntimePython: {"3.12", "3.11", "3.10", noneChoice},
	detect.RuntimeNode:   {"22", "20", "18", noneChoice},
	detect.RuntimeJava:   {"21", "17", "11", noneChoice},
	detect.RuntimeKotlin: {"2.0", "1.9", noneChoice},
	detect.RuntimeRust:   {"stable", "nightly", noneChoice},
	detect.RuntimeGo:     {"1.25.6", "1.24.12", noneChoice},
}

// Defaults holds the wizard pre-selections derived from one detection run.
// Runtime fields carry a version choice or "None".
type Defaults struct {
	Python     string   `json:"python"`
	Node       string   `json:"node"`
	Java       string   `json:"java"`
	Kotlin     string   `json:"kotlin"`
	Rust       string   `json:"rust"`
	Go         string   `json:"go"`
	Tools      []string `json:"tools"`
	Databases  []string `json:"databases"`
	Frameworks []string `json:"frameworks"`
	CPUs       string   `json:"cpus"`
	Memory     string   `json:"memory"`
	Disk       string   `json:"disk"`
}

// staticDefaults is the starting point when nothing was detected.
func staticDefaults() Defaults {
	return Defaults{
		Python:     noneChoice,
		Node:       noneChoice,
		Java:       noneChoice,
		Kotlin:     noneChoice,
		Rust:       noneChoice,
		Go:         noneChoice,
		Tools:      []string{},
		Databases:  []string{},
		Frameworks: []string{"claude-code"},
		CPUs:       "4",
		Memory:     "8GiB",
		Disk:       "20GiB",
	}
}

// Prechecked reports whether an item at the given confidence should start
// selected in the wizard. Low-confidence detections stay visible but
// unchecked.
func Prechecked(confidence detect.Confidence) bool {
	return confidence.AtLeast(detect.ConfidenceMedium)
}

// DefaultsFor converts a detection result into wizard pre-selections.
//
// A runtime gets its detected version normalized to the nearest wizard
// choice. When a language was detected without a usable version, the newest
// choice is used. Runtimes with no signal stay at "None". Tools, databases,
// and frameworks are pre-checked at medium confidence and above, and
// claude-code is always included in the framework list.
func DefaultsFor(result *detect.DetectionResult) Defaults {
	defaults := staticDefaults()
	if result == nil {
		return defaults
	}

	detected := map[detect.Runtime]bool{}
	for _, lang := range result.Languages {
		if !Prechecked(lang.Confidence) {
			continue
		}
		if runtime, ok := languageRuntimes[lang.Name]; ok {
			detected[runtime] = true
		}
	}

	choose := func(runtime detect.Runtime) string {
		choices := runtimeChoices[runtime]
		if spec, ok := result.Versions[runtime]; ok {
			if normalized := normalizeForChoice(spec.Version, runtime, choices); normalized != "" {
				return normalized
			}
			return choices[0]
		}
		if detected[runtime] {
			return choices[0]
		}
		return noneChoice
	}

	defaults.Python = choose(detect.RuntimePython)
	defaults.Node = choose(detect.RuntimeNode)
	defaults.Java = choose(detect.RuntimeJava)
	defaults.Kotlin = choose(detect.RuntimeKotlin)
	defaults.Rust = choose(detect.RuntimeRust)
	defaults.Go = choose(detect.RuntimeGo)

	for _, item := range result.Tools {
		if Prechecked(item.Confidence) {
			defaults.Tools = append(defaults.Tools, item.Name)
		}
	}
	for _, item := range result.Databases {
		if Prechecked(item.Confidence) {
			defaults.Databases = append(defaults.Databases, item.Name)
		}
	}

	frameworks := []string{}
	for _, item := range result.Frameworks {
		if Prechecked(item.Confidence) {
			frameworks = append(frameworks, item.Name)
		}
	}
	hasClaudeCode := false
	for _, name := range frameworks {
		if name == "claude-code" {
			hasClaudeCode = true
			break
		}
	}
	if !hasClaudeCode {
		frameworks = append([]string{"claude-code"}, frameworks...)
	}
	defaults.Frameworks = frameworks

	return defaults
}

// constraintPrefixRe strips leading comparison operators from a stored
// version constraint, leaving the first version it mentions.
var constraintPrefixRe = regexp.MustCompile(`^[><=~^]+\s*`)

// looseVersionRe pulls leading numeric components out of values that carry
// trailing constraint text, like "3.10,<4.0".
var looseVersionRe = regexp.MustCompile(`^(\d+)(?:\.(\d+))?`)

// versionComponents returns the major and major.minor parts of a version
// value. Well-formed versions go through semver; constraint leftovers fall
// back to a prefix scan.
func versionComponents(version string) (major, majorMinor string, ok bool) {
	if v, err := semver.NewVersion(version); err == nil {
		return fmt.Sprintf("%d", v.Major()), fmt.Sprintf("%d.%d", v.Major(), v.Minor()), true
	}
	m := looseVersionRe.FindStringSubmatch(version)
	if m == nil {
		return "", "", false
	}
	if m[2] == "" {
		return m[1], "", true
	}
	return m[1], m[1] + "." + m[2], true
}

// normalizeForChoice maps a detected version onto the wizard choice list for
// its runtime. It returns the matching choice, or empty when the version
// fits none of them.
func normalizeForChoice(version string, runtime detect.Runtime, choices []string) string {
	if version == "" || len(choices) == 0 {
		return ""
	}
	clean := strings.TrimSpace(constraintPrefixRe.ReplaceAllString(version, ""))

	switch runtime {
	case detect.RuntimePython, detect.RuntimeKotlin:
		if _, majorMinor, ok := versionComponents(clean); ok && majorMinor != "" && contains(choices, majorMinor) {
			return majorMinor
		}
	case detect.RuntimeNode, detect.RuntimeJava:
		if major, _, ok := versionComponents(clean); ok && contains(choices, major) {
			return major
		}
	case detect.RuntimeRust:
		if contains(choices, clean) {
			return clean
		}
		if strings.HasPrefix(clean, "stable") && contains(choices, "stable") {
			return "stable"
		}
		if strings.HasPrefix(clean, "nightly") && contains(choices, "nightly") {
			return "nightly"
		}
		// A pinned numeric toolchain installs via the stable channel.
		if clean != "" && clean[0] >= '0' && clean[0] <= '9' && contains(choices, "stable") {
			return "stable"
		}
	case detect.RuntimeGo:
		if contains(choices, clean) {
			return clean
		}
		if _, majorMinor, ok := versionComponents(clean); ok && majorMinor != "" {
			for _, choice := range choices {
				if choice != noneChoice && strings.HasPrefix(choice, majorMinor) {
					return choice
				}
			}
		}
	}
	return ""
}

func contains(choices []string, value string) bool {
	for _, choice := range choices {
		if choice == value {
			return true
		}
	}
	return false
}
