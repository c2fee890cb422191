// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

package detect

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// maxReadBytes bounds every config-file read during detection.
const maxReadBytes = 8192

// isSafePath reports whether path may be read as part of scanning root.
// Symlinks are rejected outright, and the resolved path must stay inside
// the resolved root.
func isSafePath(path, root string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return false
	}

	resolvedPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return false
	}

	rel, err := filepath.Rel(resolvedRoot, resolvedPath)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}

// boundedRead returns at most maxReadBytes of path's content, or nil when
// the path is unsafe or unreadable. Callers treat nil as "file absent".
func boundedRead(path, root string) []byte {
	if !isSafePath(path, root) {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxReadBytes))
	if err != nil {
		return nil
	}
	return data
}

// versionValidators holds per-runtime allow-lists for version strings read
// from project files. A string that fails its validator is discarded along
// with the rest of that runtime's cascade.
var versionValidators = map[Runtime]*regexp.Regexp{
	RuntimePython: regexp.MustCompile(`^(\d+\.\d+(\.\d+)?|[><=~!]+\d+\.\d+(\.\d+)?(,[><=]+\d+\.\d+(\.\d+)?)?)$`),
	RuntimeNode:   regexp.MustCompile(`^v?\d+(\.\d+)*([.xX*])?$|^\^?\d+(\.\d+)*$|^>=?\d+(\.\d+)*$`),
	RuntimeJava:   regexp.MustCompile(`^\d+(\.\d+)*$`),
	RuntimeKotlin: regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`),
	RuntimeRust:   regexp.MustCompile(`^(stable|nightly|beta)(-\d{4}-\d{2}-\d{2})?$|^\d+\.\d+\.\d+$`),
	RuntimeGo:     regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`),
}

// validVersion reports whether value passes runtime's validator. Unknown
// runtimes never validate.
func validVersion(runtime Runtime, value string) bool {
	validator, ok := versionValidators[runtime]
	if !ok {
		return false
	}
	return validator.MatchString(value)
}
