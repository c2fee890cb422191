// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

package detect

import (
	"encoding/xml"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/mod/modfile"
)

// Dependency catalogs. An identifier that maps to a catalog name becomes a
// framework item; names in optionalTools become tool items instead.
var (
	pythonPackageCatalog = map[string]string{
		"django":  "django",
		"flask":   "flask",
		"fastapi": "fastapi",
	}

	nodePackageCatalog = map[string]string{
		"react":        "react",
		"vue":          "vue",
		"angular":      "angular",
		"express":      "express",
		"next":         "next",
		"nest":         "nest",
		"@nestjs/core": "nest",
		"playwright":   "playwright",
	}

	// Matched as substrings of Maven/Gradle artifact ids, in order.
	jvmArtifactCatalog = []artifactMapping{
		{"spring-boot-starter", "spring-boot"},
		{"quarkus-core", "quarkus"},
		{"quarkus-rest", "quarkus"},
		{"ktor-server", "ktor"},
	}

	rustCrateCatalog = map[string]string{
		"actix-web": "actix",
		"rocket":    "rocket",
		"tokio":     "tokio",
	}

	// Matched as substrings of go.mod require paths, in order.
	goModuleCatalog = []artifactMapping{
		{"github.com/gin-gonic/gin", "gin"},
		{"github.com/labstack/echo", "echo"},
		{"github.com/gofiber/fiber", "fiber"},
	}

	frameworkNames = map[string]bool{
		"django": true, "flask": true, "fastapi": true,
		"react": true, "vue": true, "angular": true, "express": true, "next": true, "nest": true,
		"spring-boot": true, "quarkus": true, "ktor": true,
		"actix": true, "rocket": true, "tokio": true,
		"gin": true, "echo": true, "fiber": true,
	}

	optionalTools = map[string]bool{
		"playwright": true,
		"docker":     true,
	}
)

type artifactMapping struct {
	pattern string
	name    string
}

// DetectFrameworksAndTools parses each ecosystem's manifests and splits the
// catalog matches into frameworks and tools. The two lists are disjoint. A
// manifest that fails to parse contributes nothing; the remaining sources
// still run.
func (d *Detector) DetectFrameworksAndTools(root string) (frameworks, tools []DetectedItem) {
	var all []DetectedItem
	all = append(all, pythonFrameworkItems(root)...)
	all = append(all, nodeFrameworkItems(root)...)
	all = append(all, pomFrameworkItems(root)...)
	all = append(all, gradleFrameworkItems(root, "build.gradle", false)...)
	all = append(all, gradleFrameworkItems(root, "build.gradle.kts", true)...)
	all = append(all, rustFrameworkItems(root)...)
	all = append(all, goFrameworkItems(root)...)
	if docker := detectDockerFiles(root); docker != nil {
		all = append(all, *docker)
	}

	frameworks = []DetectedItem{}
	tools = []DetectedItem{}
	for _, item := range all {
		switch {
		case frameworkNames[item.Name]:
			frameworks = append(frameworks, item)
		case optionalTools[item.Name]:
			tools = append(tools, item)
		}
	}
	return frameworks, tools
}

// packageSeparators delimit a bare package name from version specifiers and
// extras in a Python dependency string.
var packageSeparators = []string{">=", "<=", "==", "!=", ">", "<", "~=", "["}

// extractPackageName strips version specifiers and extras from a Python
// dependency string, cutting at the earliest separator.
func extractPackageName(dep string) string {
	cut := len(dep)
	for _, sep := range packageSeparators {
		if idx := strings.Index(dep, sep); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return strings.TrimSpace(dep[:cut])
}

type pyprojectManifest struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
}

// pythonFrameworkItems reads pyproject.toml, falling back to
// requirements.txt only when no pyproject.toml is readable. Production
// dependencies are high confidence, optional groups medium.
func pythonFrameworkItems(root string) []DetectedItem {
	var items []DetectedItem

	pyprojectPath := filepath.Join(root, "pyproject.toml")
	if data := boundedRead(pyprojectPath, root); data != nil {
		var manifest pyprojectManifest
		if err := toml.Unmarshal(data, &manifest); err != nil {
			slog.Warn("failed to parse pyproject.toml", "file", pyprojectPath, "error", err)
			return items
		}

		for _, dep := range manifest.Project.Dependencies {
			if item := pythonCatalogItem(dep, ConfidenceHigh, pyprojectPath); item != nil {
				items = append(items, *item)
			}
		}

		groups := make([]string, 0, len(manifest.Project.OptionalDependencies))
		for group := range manifest.Project.OptionalDependencies {
			groups = append(groups, group)
		}
		sort.Strings(groups)
		for _, group := range groups {
			for _, dep := range manifest.Project.OptionalDependencies[group] {
				if item := pythonCatalogItem(dep, ConfidenceMedium, pyprojectPath); item != nil {
					items = append(items, *item)
				}
			}
		}
		return items
	}

	requirementsPath := filepath.Join(root, "requirements.txt")
	if data := boundedRead(requirementsPath, root); data != nil {
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if item := pythonCatalogItem(line, ConfidenceHigh, requirementsPath); item != nil {
				items = append(items, *item)
			}
		}
	}
	return items
}

func pythonCatalogItem(dep string, confidence Confidence, path string) *DetectedItem {
	name := extractPackageName(dep)
	framework, ok := pythonPackageCatalog[name]
	if !ok {
		return nil
	}
	return &DetectedItem{Name: framework, Confidence: confidence, SourceFile: path, SourceEvidence: name}
}

// nodeFrameworkItems matches package.json dependency names against the
// node catalog. devDependencies rank medium.
func nodeFrameworkItems(root string) []DetectedItem {
	var items []DetectedItem

	packagePath := filepath.Join(root, "package.json")
	data := boundedRead(packagePath, root)
	if data == nil {
		return items
	}
	if !gjson.ValidBytes(data) {
		slog.Warn("failed to parse package.json", "file", packagePath)
		return items
	}

	sections := []struct {
		key        string
		confidence Confidence
	}{
		{"dependencies", ConfidenceHigh},
		{"devDependencies", ConfidenceMedium},
	}
	for _, section := range sections {
		gjson.GetBytes(data, section.key).ForEach(func(key, _ gjson.Result) bool {
			if framework, ok := nodePackageCatalog[key.String()]; ok {
				items = append(items, DetectedItem{
					Name:           framework,
					Confidence:     section.confidence,
					SourceFile:     packagePath,
					SourceEvidence: key.String(),
				})
			}
			return true
		})
	}
	return items
}

// mavenProject is the subset of a POM file the detectors read. Element
// names match regardless of the POM namespace.
type mavenProject struct {
	Dependencies        []mavenDependency `xml:"dependencies>dependency"`
	ManagedDependencies []mavenDependency `xml:"dependencyManagement>dependencies>dependency"`
}

type mavenDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Scope      string `xml:"scope"`
}

func parsePomFile(root string) (*mavenProject, string) {
	pomPath := filepath.Join(root, "pom.xml")
	data := boundedRead(pomPath, root)
	if data == nil {
		return nil, pomPath
	}
	var project mavenProject
	if err := xml.Unmarshal(data, &project); err != nil {
		slog.Warn("failed to parse pom.xml", "file", pomPath, "error", err)
		return nil, pomPath
	}
	return &project, pomPath
}

func pomFrameworkItems(root string) []DetectedItem {
	project, pomPath := parsePomFile(root)
	if project == nil {
		return nil
	}

	var items []DetectedItem
	for _, dep := range append(project.Dependencies, project.ManagedDependencies...) {
		if dep.ArtifactID == "" {
			continue
		}
		for _, mapping := range jvmArtifactCatalog {
			if strings.Contains(dep.ArtifactID, mapping.pattern) {
				items = append(items, DetectedItem{
					Name:           mapping.name,
					Confidence:     ConfidenceHigh,
					SourceFile:     pomPath,
					SourceEvidence: dep.ArtifactID,
				})
				break
			}
		}
	}
	return items
}

// gradleConfigurations in most-specific-first order, so a test
// configuration is never mistaken for its production counterpart.
var gradleConfigurations = []string{"testImplementation", "implementation", "api", "runtimeOnly"}

// gradleFrameworkItems scans a Gradle build file for dependency
// declarations. Kotlin DSL files use parenthesized call syntax, which
// tightens the configuration match.
func gradleFrameworkItems(root, fileName string, parenthesized bool) []DetectedItem {
	gradlePath := filepath.Join(root, fileName)
	data := boundedRead(gradlePath, root)
	if data == nil {
		return nil
	}

	var items []DetectedItem
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)

		configuration := ""
		for _, candidate := range gradleConfigurations {
			probe := candidate
			if parenthesized {
				probe += "("
			}
			if strings.Contains(line, probe) {
				configuration = candidate
				break
			}
		}
		if configuration == "" {
			continue
		}

		artifact := gradleArtifact(line)
		if artifact == "" {
			continue
		}
		for _, mapping := range jvmArtifactCatalog {
			if strings.Contains(artifact, mapping.pattern) {
				confidence := ConfidenceHigh
				if strings.HasPrefix(configuration, "test") {
					confidence = ConfidenceMedium
				}
				items = append(items, DetectedItem{
					Name:           mapping.name,
					Confidence:     confidence,
					SourceFile:     gradlePath,
					SourceEvidence: artifact,
				})
				break
			}
		}
	}
	return items
}

// gradleArtifact pulls the artifact id out of a quoted
// group:artifact:version coordinate, accepting both quote styles.
func gradleArtifact(line string) string {
	start := strings.IndexAny(line, `"'`)
	if start < 0 {
		return ""
	}
	quote := line[start]
	rest := line[start+1:]
	end := strings.IndexByte(rest, quote)
	if end < 0 {
		return ""
	}
	parts := strings.Split(rest[:end], ":")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

type cargoManifest struct {
	Dependencies    map[string]any `toml:"dependencies"`
	DevDependencies map[string]any `toml:"dev-dependencies"`
}

func rustFrameworkItems(root string) []DetectedItem {
	cargoPath := filepath.Join(root, "Cargo.toml")
	data := boundedRead(cargoPath, root)
	if data == nil {
		return nil
	}

	var manifest cargoManifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		slog.Warn("failed to parse Cargo.toml", "file", cargoPath, "error", err)
		return nil
	}

	var items []DetectedItem
	appendCrates := func(crates map[string]any, confidence Confidence) {
		names := make([]string, 0, len(crates))
		for name := range crates {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if framework, ok := rustCrateCatalog[name]; ok {
				items = append(items, DetectedItem{
					Name:           framework,
					Confidence:     confidence,
					SourceFile:     cargoPath,
					SourceEvidence: name,
				})
			}
		}
	}
	appendCrates(manifest.Dependencies, ConfidenceHigh)
	appendCrates(manifest.DevDependencies, ConfidenceMedium)
	return items
}

func goFrameworkItems(root string) []DetectedItem {
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

	var items []DetectedItem
	for _, require := range file.Require {
		for _, mapping := range goModuleCatalog {
			if strings.Contains(require.Mod.Path, mapping.pattern) {
				items = append(items, DetectedItem{
					Name:           mapping.name,
					Confidence:     ConfidenceHigh,
					SourceFile:     modPath,
					SourceEvidence: require.Mod.Path,
				})
				break
			}
		}
	}
	return items
}

// detectDockerFiles reports the docker tool when a container build or
// compose file sits at the project root, first match wins.
func detectDockerFiles(root string) *DetectedItem {
	for _, name := range []string{"Dockerfile", "docker-compose.yml", "compose.yml"} {
		path := filepath.Join(root, name)
		if isSafePath(path, root) {
			return &DetectedItem{
				Name:           "docker",
				Confidence:     ConfidenceHigh,
				SourceFile:     path,
				SourceEvidence: name,
			}
		}
	}
	return nil
}
