// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

package detect

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func languageByName(languages []DetectedLanguage, name string) *DetectedLanguage {
	for i := range languages {
		if languages[i].Name == name {
			return &languages[i]
		}
	}
	return nil
}

func TestDetectLanguagesTallies(t *testing.T) {
	root := t.TempDir()
	mainPy := writeFile(t, root, "main.py", strings.Repeat("x", 1499)+"\n")
	utilPy := writeFile(t, root, "util.py", strings.Repeat("y", 599)+"\n")
	writeFile(t, root, "tool.go", strings.Repeat("z", 99)+"\n")

	languages, stats := testDetector(t).DetectLanguages(context.Background(), root)

	require.Len(t, languages, 2)
	assert.Equal(t, 3, stats.FilesScanned)
	assert.Equal(t, 0, stats.FilesExcluded)
	assert.False(t, stats.ScanTruncated)

	python := languages[0]
	assert.Equal(t, "Python", python.Name)
	assert.Equal(t, int64(2100), python.ByteCount)
	assert.Equal(t, 2, python.FileCount)
	assert.Equal(t, ConfidenceMedium, python.Confidence)
	assert.Equal(t, []string{mainPy, utilPy}, python.SampleFiles)

	golang := languages[1]
	assert.Equal(t, "Go", golang.Name)
	assert.Equal(t, int64(100), golang.ByteCount)
	assert.Equal(t, ConfidenceLow, golang.Confidence)
}

func TestDetectLanguagesSortsTiesByName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "y.py", strings.Repeat("a", 500))
	writeFile(t, root, "x.go", strings.Repeat("b", 500))

	languages, _ := testDetector(t).DetectLanguages(context.Background(), root)

	require.Len(t, languages, 2)
	assert.Equal(t, "Go", languages[0].Name)
	assert.Equal(t, "Python", languages[1].Name)
}

func TestLanguageConfidence(t *testing.T) {
	tests := []struct {
		name     string
		files    int
		bytes    int64
		expected Confidence
	}{
		{"many files", 11, 1, ConfidenceHigh},
		{"many bytes", 1, 10*1024 + 1, ConfidenceHigh},
		{"thresholds are strict", 10, 10 * 1024, ConfidenceMedium},
		{"some files", 3, 3, ConfidenceMedium},
		{"some bytes", 1, 1024, ConfidenceMedium},
		{"little of both", 2, 1023, ConfidenceLow},
		{"single tiny file", 1, 1, ConfidenceLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, languageConfidence(tt.files, tt.bytes))
		})
	}
}

func TestDetectLanguagesSampleCap(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, root, "a.py", "a = 1\n")
	b := writeFile(t, root, "b.py", "b = 2\n")
	c := writeFile(t, root, "c.py", "c = 3\n")
	writeFile(t, root, "d.py", "d = 4\n")
	writeFile(t, root, "e.py", "e = 5\n")

	languages, _ := testDetector(t).DetectLanguages(context.Background(), root)

	python := languageByName(languages, "Python")
	require.NotNil(t, python)
	assert.Equal(t, 5, python.FileCount)
	assert.Equal(t, []string{a, b, c}, python.SampleFiles)
}

func TestDetectLanguagesZeroByteFilesDropped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "empty.py", "")

	languages, stats := testDetector(t).DetectLanguages(context.Background(), root)

	assert.Empty(t, languages)
	assert.Equal(t, 1, stats.FilesScanned)
}

func TestDetectLanguagesFilenameAndShebangSignals(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module example.com/app\n\ngo 1.22\n")
	writeFile(t, root, "Dockerfile", "FROM alpine:3.19\n")
	writeFile(t, root, "deploy", "#!/usr/bin/env python3\nprint('deploying')\n")
	writeFile(t, root, "setup", "#!/bin/bash\nset -euo pipefail\n")
	writeFile(t, root, ".bashrc", "alias ll='ls -la'\n")

	languages, _ := testDetector(t).DetectLanguages(context.Background(), root)

	assert.NotNil(t, languageByName(languages, "Go Module"))
	assert.NotNil(t, languageByName(languages, "Dockerfile"))
	assert.NotNil(t, languageByName(languages, "Python"))

	shell := languageByName(languages, "Shell")
	require.NotNil(t, shell)
	assert.Equal(t, 2, shell.FileCount)
}

func TestDetectLanguagesAmbiguousExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "functions.sql",
		"CREATE FUNCTION add(a int, b int) RETURNS int AS $$\nBEGIN\n  RETURN a + b;\nEND\n$$ LANGUAGE plpgsql;\n")
	writeFile(t, root, "queries.sql", "SELECT id, name FROM users WHERE active;\n")
	writeFile(t, root, "app.ts", "export const answer: number = 42;\n")
	writeFile(t, root, "strings.ts", "<TS version=\"2.1\" language=\"de\">\n  <context/>\n</TS>\n")

	languages, _ := testDetector(t).DetectLanguages(context.Background(), root)

	for _, expected := range []string{"PLpgSQL", "SQL", "TypeScript", "XML"} {
		lang := languageByName(languages, expected)
		require.NotNil(t, lang, "expected %s to be detected", expected)
		assert.Equal(t, 1, lang.FileCount, "language %s", expected)
	}
}

func TestDetectLanguagesVendorExclusions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, filepath.Join("src", "app.js"), "console.log('app');\n")
	writeFile(t, root, filepath.Join("node_modules", "lib", "index.js"), "module.exports = {};\n")
	writeFile(t, root, filepath.Join(".git", "HEAD"), "ref: refs/heads/main\n")
	writeFile(t, root, filepath.Join("dist", "bundle.js"), "!function(){}();\n")
	writeFile(t, root, filepath.Join("build", "out.py"), "generated = True\n")

	languages, stats := testDetector(t).DetectLanguages(context.Background(), root)

	require.Len(t, languages, 1)
	assert.Equal(t, "JavaScript", languages[0].Name)
	assert.Equal(t, 1, languages[0].FileCount)
	assert.Equal(t, 1, stats.FilesScanned)
	assert.Equal(t, 4, stats.FilesExcluded)
}

func TestDetectLanguagesUserExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "model.gen.go", "package main\n// generated\n")
	writeFile(t, root, filepath.Join("generated", "api.py"), "API = True\n")

	detector := testDetector(t, WithExcludePatterns("generated/**", "*.gen.go"))
	languages, stats := detector.DetectLanguages(context.Background(), root)

	require.Len(t, languages, 1)
	assert.Equal(t, "Go", languages[0].Name)
	assert.Equal(t, 1, languages[0].FileCount)
	assert.Equal(t, 2, stats.FilesExcluded)
}

func TestDetectLanguagesSymlinksNeverFollowed(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	secret := writeFile(t, outside, "secret.py", "password = 'hunter2'\n")
	writeFile(t, outside, filepath.Join("pkg", "mod.py"), "x = 1\n")

	require.NoError(t, os.Symlink(secret, filepath.Join(root, "link.py")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "pkg"), filepath.Join(root, "linked-dir")))

	languages, stats := testDetector(t).DetectLanguages(context.Background(), root)

	assert.Empty(t, languages)
	assert.Equal(t, 0, stats.FilesScanned)
	assert.Equal(t, 2, stats.FilesExcluded)
}

func TestDetectLanguagesMaxFilesCeiling(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.py", "b.py", "c.py", "d.py", "e.py", "f.py", "g.py", "h.py"} {
		writeFile(t, root, name, "x = 1\n")
	}

	detector := testDetector(t, WithMaxFiles(5))
	languages, stats := detector.DetectLanguages(context.Background(), root)

	assert.True(t, stats.ScanTruncated)
	assert.Equal(t, 5, stats.FilesScanned)

	python := languageByName(languages, "Python")
	require.NotNil(t, python)
	assert.Equal(t, 5, python.FileCount)
}

func TestDetectLanguagesCancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.py", "x = 1\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	languages, stats := testDetector(t).DetectLanguages(ctx, root)

	assert.Empty(t, languages)
	assert.True(t, stats.ScanTruncated)
}

func TestDetectLanguagesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "does-not-exist")

	languages, stats := testDetector(t).DetectLanguages(context.Background(), root)

	assert.Empty(t, languages)
	assert.Zero(t, stats.FilesScanned)
}

func TestShebangInterpreter(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{"direct", "#!/bin/bash\necho hi\n", "bash"},
		{"env indirection", "#!/usr/bin/env python3\nprint()\n", "python3"},
		{"no shebang", "plain text\n", ""},
		{"empty", "", ""},
		{"bare marker", "#!\n", ""},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, root, "script"+string(rune('a'+i)), tt.content)
			assert.Equal(t, tt.expected, shebangInterpreter(path, root))
		})
	}
}
