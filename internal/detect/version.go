// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

package detect

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/mod/modfile"
)

// DetectVersions resolves at most one version constraint per runtime by
// walking each runtime's source cascade: single-purpose version file, then
// .tool-versions, then the ecosystem manifest. A present-but-invalid value
// ends the cascade for that runtime rather than falling through, so a
// corrupted explicit file is never silently overridden by a weaker source.
func (d *Detector) DetectVersions(root string) map[Runtime]VersionSpec {
	versions := map[Runtime]VersionSpec{}
	tools := parseToolVersions(root)

	resolvers := map[Runtime]func(string, toolVersions) *VersionSpec{
		RuntimePython: pythonVersion,
		RuntimeNode:   nodeVersion,
		RuntimeJava:   javaVersion,
		RuntimeKotlin: kotlinVersion,
		RuntimeRust:   rustVersion,
		RuntimeGo:     goVersion,
	}
	for _, runtime := range Runtimes {
		if spec := resolvers[runtime](root, tools); spec != nil {
			versions[runtime] = *spec
		}
	}
	return versions
}

// toolVersions is the parsed .tool-versions file. A runtime lands in
// invalid when its entry failed validation and no later entry replaced it;
// the cascade then stops for that runtime.
type toolVersions struct {
	specs   map[Runtime]VersionSpec
	invalid map[Runtime]bool
}

var runtimeAliases = map[string]Runtime{
	"nodejs": RuntimeNode,
	"golang": RuntimeGo,
}

func parseToolVersions(root string) toolVersions {
	tv := toolVersions{specs: map[Runtime]VersionSpec{}, invalid: map[Runtime]bool{}}

	path := filepath.Join(root, ".tool-versions")
	data := boundedRead(path, root)
	if data == nil {
		return tv
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		runtime := Runtime(fields[0])
		if alias, ok := runtimeAliases[fields[0]]; ok {
			runtime = alias
		}
		if !supportedRuntime(runtime) {
			continue
		}

		version := fields[1]
		if !validVersion(runtime, version) {
			slog.Warn("rejecting version from .tool-versions", "runtime", runtime, "value", version)
			tv.invalid[runtime] = true
			continue
		}
		tv.specs[runtime] = VersionSpec{Version: version, SourceFile: path, ConstraintType: ConstraintExact}
	}
	return tv
}

func supportedRuntime(r Runtime) bool {
	switch r {
	case RuntimePython, RuntimeNode, RuntimeJava, RuntimeKotlin, RuntimeRust, RuntimeGo:
		return true
	}
	return false
}

// fromToolVersions applies the .tool-versions step of a cascade. The bool
// reports whether the cascade is settled, either with a spec or with a
// validation stop.
func fromToolVersions(tools toolVersions, runtime Runtime) (*VersionSpec, bool) {
	if spec, ok := tools.specs[runtime]; ok {
		return &spec, true
	}
	if tools.invalid[runtime] {
		return nil, true
	}
	return nil, false
}

// versionFileValue reads a single-purpose version file and returns its
// first non-empty line. ok distinguishes a usable value from an absent or
// blank file, which lets the cascade continue.
func versionFileValue(root, name string) (value, path string, ok bool) {
	path = filepath.Join(root, name)
	data := boundedRead(path, root)
	if data == nil {
		return "", path, false
	}
	value = firstNonEmptyLine(data)
	return value, path, value != ""
}

func firstNonEmptyLine(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

var setupPythonRequiresRe = regexp.MustCompile(`python_requires\s*=\s*['"]([^'"]+)['"]`)

func pythonVersion(root string, tools toolVersions) *VersionSpec {
	if version, path, ok := versionFileValue(root, ".python-version"); ok {
		if !validVersion(RuntimePython, version) {
			slog.Warn("rejecting python version", "value", version, "file", path)
			return nil
		}
		return &VersionSpec{Version: version, SourceFile: path, ConstraintType: ConstraintExact}
	}
	if spec, done := fromToolVersions(tools, RuntimePython); done {
		return spec
	}

	pyprojectPath := filepath.Join(root, "pyproject.toml")
	if data := boundedRead(pyprojectPath, root); data != nil {
		var doc struct {
			Project struct {
				RequiresPython string `toml:"requires-python"`
			} `toml:"project"`
		}
		if err := toml.Unmarshal(data, &doc); err != nil {
			slog.Warn("failed to parse pyproject.toml", "file", pyprojectPath, "error", err)
		} else if requires := strings.TrimSpace(doc.Project.RequiresPython); requires != "" {
			if !validVersion(RuntimePython, requires) {
				slog.Warn("rejecting python version", "value", requires, "file", pyprojectPath)
				return nil
			}
			return &VersionSpec{Version: requires, SourceFile: pyprojectPath, ConstraintType: classifyConstraint(requires)}
		}
	}

	setupPath := filepath.Join(root, "setup.py")
	if data := boundedRead(setupPath, root); data != nil {
		if m := setupPythonRequiresRe.FindSubmatch(data); m != nil {
			requires := strings.TrimSpace(string(m[1]))
			if !validVersion(RuntimePython, requires) {
				slog.Warn("rejecting python version", "value", requires, "file", setupPath)
				return nil
			}
			return &VersionSpec{Version: requires, SourceFile: setupPath, ConstraintType: classifyConstraint(requires)}
		}
	}
	return nil
}

func nodeVersion(root string, tools toolVersions) *VersionSpec {
	for _, name := range []string{".nvmrc", ".node-version"} {
		if version, path, ok := versionFileValue(root, name); ok {
			version = strings.TrimPrefix(version, "v")
			if !validVersion(RuntimeNode, version) {
				slog.Warn("rejecting node version", "value", version, "file", path)
				return nil
			}
			return &VersionSpec{Version: version, SourceFile: path, ConstraintType: ConstraintExact}
		}
	}
	if spec, done := fromToolVersions(tools, RuntimeNode); done {
		return spec
	}

	packagePath := filepath.Join(root, "package.json")
	if data := boundedRead(packagePath, root); data != nil && gjson.ValidBytes(data) {
		if engines := strings.TrimSpace(gjson.GetBytes(data, "engines.node").String()); engines != "" {
			if !validVersion(RuntimeNode, engines) {
				slog.Warn("rejecting node version", "value", engines, "file", packagePath)
				return nil
			}
			return &VersionSpec{Version: engines, SourceFile: packagePath, ConstraintType: classifyConstraint(engines)}
		}
	}
	return nil
}

var (
	mavenCompilerSourceRe = regexp.MustCompile(`<maven\.compiler\.source>(\d+(?:\.\d+)*)</maven\.compiler\.source>`)
	sourceCompatibilityRe = regexp.MustCompile(`sourceCompatibility\s*=\s*['"]?(\d+(?:\.\d+)*)['"]?`)

	// build.gradle.kts syntaxes, tried in order.
	ktsJavaVersionRes = []*regexp.Regexp{
		regexp.MustCompile(`sourceCompatibility\s*=\s*JavaVersion\.VERSION_(\d+)`),
		regexp.MustCompile(`jvmToolchain\s*\(\s*(\d+)\s*\)`),
		regexp.MustCompile(`JavaLanguageVersion\.of\s*\(\s*(\d+)\s*\)`),
	}
)

func javaVersion(root string, tools toolVersions) *VersionSpec {
	if version, path, ok := versionFileValue(root, ".java-version"); ok {
		if !validVersion(RuntimeJava, version) {
			slog.Warn("rejecting java version", "value", version, "file", path)
			return nil
		}
		return &VersionSpec{Version: version, SourceFile: path, ConstraintType: ConstraintExact}
	}
	if spec, done := fromToolVersions(tools, RuntimeJava); done {
		return spec
	}

	pomPath := filepath.Join(root, "pom.xml")
	if data := boundedRead(pomPath, root); data != nil {
		if m := mavenCompilerSourceRe.FindSubmatch(data); m != nil {
			return javaSpec(string(m[1]), pomPath)
		}
	}

	gradlePath := filepath.Join(root, "build.gradle")
	if data := boundedRead(gradlePath, root); data != nil {
		if m := sourceCompatibilityRe.FindSubmatch(data); m != nil {
			return javaSpec(string(m[1]), gradlePath)
		}
	}

	ktsPath := filepath.Join(root, "build.gradle.kts")
	if data := boundedRead(ktsPath, root); data != nil {
		for _, re := range ktsJavaVersionRes {
			if m := re.FindSubmatch(data); m != nil {
				return javaSpec(string(m[1]), ktsPath)
			}
		}
	}
	return nil
}

func javaSpec(version, path string) *VersionSpec {
	if !validVersion(RuntimeJava, version) {
		slog.Warn("rejecting java version", "value", version, "file", path)
		return nil
	}
	return &VersionSpec{Version: version, SourceFile: path, ConstraintType: ConstraintExact}
}

var kotlinPluginVersionRes = []*regexp.Regexp{
	regexp.MustCompile(`kotlin\s*\(\s*["']jvm["']\s*\)\s+version\s+["']([^"']+)["']`),
	regexp.MustCompile(`id\s*\(\s*["']org\.jetbrains\.kotlin\.jvm["']\s*\)\s+version\s+["']([^"']+)["']`),
}

func kotlinVersion(root string, tools toolVersions) *VersionSpec {
	if spec, done := fromToolVersions(tools, RuntimeKotlin); done {
		return spec
	}

	ktsPath := filepath.Join(root, "build.gradle.kts")
	if data := boundedRead(ktsPath, root); data != nil {
		for _, re := range kotlinPluginVersionRes {
			if m := re.FindSubmatch(data); m != nil {
				version := strings.TrimSpace(string(m[1]))
				if !validVersion(RuntimeKotlin, version) {
					slog.Warn("rejecting kotlin version", "value", version, "file", ktsPath)
					return nil
				}
				return &VersionSpec{Version: version, SourceFile: ktsPath, ConstraintType: ConstraintExact}
			}
		}
	}
	return nil
}

func rustVersion(root string, tools toolVersions) *VersionSpec {
	tomlPath := filepath.Join(root, "rust-toolchain.toml")
	if data := boundedRead(tomlPath, root); data != nil {
		var doc struct {
			Toolchain struct {
				Channel string `toml:"channel"`
			} `toml:"toolchain"`
		}
		if err := toml.Unmarshal(data, &doc); err != nil {
			slog.Warn("failed to parse rust-toolchain.toml", "file", tomlPath, "error", err)
		} else if channel := strings.TrimSpace(doc.Toolchain.Channel); channel != "" {
			if !validVersion(RuntimeRust, channel) {
				slog.Warn("rejecting rust version", "value", channel, "file", tomlPath)
				return nil
			}
			return &VersionSpec{Version: channel, SourceFile: tomlPath, ConstraintType: ConstraintExact}
		}
	}

	if version, path, ok := versionFileValue(root, "rust-toolchain"); ok {
		if !validVersion(RuntimeRust, version) {
			slog.Warn("rejecting rust version", "value", version, "file", path)
			return nil
		}
		return &VersionSpec{Version: version, SourceFile: path, ConstraintType: ConstraintExact}
	}

	if spec, done := fromToolVersions(tools, RuntimeRust); done {
		return spec
	}
	return nil
}

func goVersion(root string, tools toolVersions) *VersionSpec {
	if spec, done := fromToolVersions(tools, RuntimeGo); done {
		return spec
	}

	modPath := filepath.Join(root, "go.mod")
	data := boundedRead(modPath, root)
	if data == nil {
		return nil
	}
	file, err := modfile.ParseLax(modPath, data, nil)
	if err != nil {
		slog.Warn("failed to parse go.mod", "file", modPath, "error", err)
		return nil
	}
	if file.Go == nil || file.Go.Version == "" {
		return nil
	}
	version := file.Go.Version
	if !validVersion(RuntimeGo, version) {
		slog.Warn("rejecting go version", "value", version, "file", modPath)
		return nil
	}
	return &VersionSpec{Version: version, SourceFile: modPath, ConstraintType: ConstraintMinimum}
}

var (
	bareVersionRe      = regexp.MustCompile(`^\d+(\.\d+)*$`)
	comparisonPrefixRe = regexp.MustCompile(`^(>=|<=|>|<)`)
	rangePrefixRe      = regexp.MustCompile(`^(\^|~|=~|!=|~=)`)
)

// classifyConstraint grades a validated version string: a bare version is
// exact, a single lower/upper bound is a minimum, and anything combining
// bounds or using caret/tilde/wildcard syntax is a range.
func classifyConstraint(version string) Constraint {
	version = strings.TrimSpace(version)

	if bareVersionRe.MatchString(version) {
		return ConstraintExact
	}
	if comparisonPrefixRe.MatchString(version) {
		stripped := strings.ReplaceAll(strings.ReplaceAll(version, ">=", ""), "<=", "")
		if strings.Contains(version, ",") || strings.Contains(stripped, " ") {
			return ConstraintRange
		}
		return ConstraintMinimum
	}
	if rangePrefixRe.MatchString(version) {
		return ConstraintRange
	}
	if strings.Contains(version, "|") {
		return ConstraintRange
	}
	if strings.ContainsAny(version, "xX") {
		return ConstraintRange
	}
	return ConstraintExact
}
