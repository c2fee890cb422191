// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauded/clauded/internal/detect"
)

// runtimeChoice returns the selection d holds for the given runtime.
func runtimeChoice(t *testing.T, d Defaults, runtime detect.Runtime) string {
	t.Helper()
	switch runtime {
	case detect.RuntimePython:
		return d.Python
	case detect.RuntimeNode:
		return d.Node
	case detect.RuntimeJava:
		return d.Java
	case detect.RuntimeKotlin:
		return d.Kotlin
	case detect.RuntimeRust:
		return d.Rust
	case detect.RuntimeGo:
		return d.Go
	}
	t.Fatalf("unknown runtime %s", runtime)
	return ""
}

func TestDefaultsForNil(t *testing.T) {
	defaults := DefaultsFor(nil)

	assert.Equal(t, Defaults{
		Python:     "None",
		Node:       "None",
		Java:       "None",
		Kotlin:     "None",
		Rust:       "None",
		Go:         "None",
		Tools:      []string{},
		Databases:  []string{},
		Frameworks: []string{"claude-code"},
		CPUs:       "4",
		Memory:     "8GiB",
		Disk:       "20GiB",
	}, defaults)
}

func TestDefaultsForEmptyResult(t *testing.T) {
	defaults := DefaultsFor(detect.NewEmptyResult())

	assert.Equal(t, DefaultsFor(nil), defaults)
}

func TestRuntimeVersionNormalization(t *testing.T) {
	tests := []struct {
		runtime detect.Runtime
		version string
		expect  string
	}{
		{detect.RuntimePython, "3.11.4", "3.11"},
		{detect.RuntimePython, ">=3.10,<4.0", "3.10"},
		{detect.RuntimePython, ">=3.11", "3.11"},
		// Versions outside the choice list fall back to the newest choice.
		{detect.RuntimePython, "3.9", "3.12"},
		{detect.RuntimePython, "2.7", "3.12"},
		{detect.RuntimeNode, "18.17.0", "18"},
		{detect.RuntimeNode, "^20.0.0", "20"},
		{detect.RuntimeNode, ">=18", "18"},
		{detect.RuntimeNode, "16", "22"},
		{detect.RuntimeJava, "17", "17"},
		{detect.RuntimeJava, "11", "11"},
		{detect.RuntimeJava, "1.8", "21"},
		{detect.RuntimeKotlin, "1.9.22", "1.9"},
		{detect.RuntimeKotlin, "2.0", "2.0"},
		{detect.RuntimeRust, "stable", "stable"},
		{detect.RuntimeRust, "nightly-2024-01-15", "nightly"},
		{detect.RuntimeRust, "1.75.0", "stable"},
		{detect.RuntimeGo, "1.25.6", "1.25.6"},
		{detect.RuntimeGo, "1.24.3", "1.24.12"},
		{detect.RuntimeGo, ">=1.22", "1.25.6"},
	}
	for _, tt := range tests {
		t.Run(string(tt.runtime)+"/"+tt.version, func(t *testing.T) {
			result := detect.NewEmptyResult()
			result.Versions[tt.runtime] = detect.VersionSpec{Version: tt.version}

			defaults := DefaultsFor(result)

			assert.Equal(t, tt.expect, runtimeChoice(t, defaults, tt.runtime))
		})
	}
}

func TestDefaultsForLanguageWithoutVersion(t *testing.T) {
	result := detect.NewEmptyResult()
	result.Languages = []detect.DetectedLanguage{
		{Name: "Rust", Confidence: detect.ConfidenceHigh},
		{Name: "TypeScript", Confidence: detect.ConfidenceMedium},
	}

	defaults := DefaultsFor(result)

	assert.Equal(t, "stable", defaults.Rust)
	assert.Equal(t, "22", defaults.Node)
	assert.Equal(t, "None", defaults.Python)
}

func TestDefaultsForLowConfidenceLanguage(t *testing.T) {
	result := detect.NewEmptyResult()
	result.Languages = []detect.DetectedLanguage{
		{Name: "Python", Confidence: detect.ConfidenceLow},
	}

	defaults := DefaultsFor(result)

	assert.Equal(t, "None", defaults.Python)
}

func TestDefaultsForVersionWithoutLanguage(t *testing.T) {
	result := detect.NewEmptyResult()
	result.Versions[detect.RuntimeGo] = detect.VersionSpec{Version: "1.24.3"}

	defaults := DefaultsFor(result)

	assert.Equal(t, "1.24.12", defaults.Go)
}

func TestDefaultsSelectionGating(t *testing.T) {
	result := detect.NewEmptyResult()
	result.Tools = []detect.DetectedItem{
		{Name: "docker", Confidence: detect.ConfidenceHigh},
		{Name: "uv", Confidence: detect.ConfidenceMedium},
		{Name: "gh", Confidence: detect.ConfidenceLow},
	}
	result.Databases = []detect.DetectedItem{
		{Name: "postgresql", Confidence: detect.ConfidenceHigh},
		{Name: "redis", Confidence: detect.ConfidenceLow},
	}
	result.Frameworks = []detect.DetectedItem{
		{Name: "fastapi", Confidence: detect.ConfidenceHigh},
		{Name: "flask", Confidence: detect.ConfidenceMedium},
		{Name: "celery", Confidence: detect.ConfidenceLow},
	}

	defaults := DefaultsFor(result)

	assert.Equal(t, []string{"docker", "uv"}, defaults.Tools)
	assert.Equal(t, []string{"postgresql"}, defaults.Databases)
	assert.Equal(t, []string{"claude-code", "fastapi", "flask"}, defaults.Frameworks)
}

func TestDefaultsKeepClaudeCodeSingle(t *testing.T) {
	result := detect.NewEmptyResult()
	result.Frameworks = []detect.DetectedItem{
		{Name: "claude-code", Confidence: detect.ConfidenceHigh},
		{Name: "fastapi", Confidence: detect.ConfidenceHigh},
	}

	defaults := DefaultsFor(result)

	assert.Equal(t, []string{"claude-code", "fastapi"}, defaults.Frameworks)
}

func TestPrechecked(t *testing.T) {
	assert.True(t, Prechecked(detect.ConfidenceHigh))
	assert.True(t, Prechecked(detect.ConfidenceMedium))
	assert.False(t, Prechecked(detect.ConfidenceLow))
}

func TestVersionComponents(t *testing.T) {
	tests := []struct {
		version    string
		major      string
		majorMinor string
		ok         bool
	}{
		{"3.11.4", "3", "3.11", true},
		{"18", "18", "18.0", true},
		{"3.10,<4.0", "3", "3.10", true},
		{"banana", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			major, majorMinor, ok := versionComponents(tt.version)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.major, major)
			assert.Equal(t, tt.majorMinor, majorMinor)
		})
	}
}
