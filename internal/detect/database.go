// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

package detect

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Image and dependency catalogs per database, in match order.
var (
	databaseImages = []struct {
		name     string
		patterns []string
	}{
		{"postgresql", []string{"postgres", "postgresql"}},
		{"redis", []string{"redis"}},
		{"mysql", []string{"mysql", "mariadb"}},
		{"mongodb", []string{"mongo", "mongodb"}},
	}

	databaseEnvVars = []struct {
		name string
		vars map[string]bool
	}{
		{"postgresql", map[string]bool{"DATABASE_URL": true, "POSTGRES_URL": true, "POSTGRESQL_URL": true}},
		{"redis", map[string]bool{"REDIS_URL": true, "REDIS_HOST": true}},
		{"mysql", map[string]bool{"MYSQL_URL": true, "DB_HOST": true}},
		{"sqlite", map[string]bool{"SQLITE_URL": true}},
		{"mongodb", map[string]bool{"MONGODB_URI": true, "MONGO_URL": true, "MONGODB_URL": true, "MONGODB_HOST": true, "MONGO_HOST": true}},
	}

	databaseURLSchemes = []struct {
		name    string
		schemes []string
	}{
		{"postgresql", []string{"postgres://", "postgresql://"}},
		{"redis", []string{"redis://"}},
		{"mysql", []string{"mysql://"}},
		{"sqlite", []string{"sqlite://"}},
		{"mongodb", []string{"mongodb://", "mongodb+srv://"}},
	}

	postgresAdapters = map[string]bool{"psycopg2": true, "psycopg2-binary": true, "asyncpg": true, "pg": true, "postgres": true}
	redisAdapters    = map[string]bool{"redis": true, "redis-py": true, "ioredis": true, "jedis": true, "lettuce": true}
	mysqlAdapters    = map[string]bool{"mysql-connector-python": true, "mysqlclient": true, "mysql": true, "mysql2": true, "mysql-connector-java": true}
	sqliteAdapters   = map[string]bool{"sqlite3": true, "better-sqlite3": true}
	mongoAdapters    = map[string]bool{"pymongo": true, "motor": true, "mongoengine": true, "beanie": true, "mongoose": true, "mongodb": true, "mongo": true, "mongo-driver": true, "mgo": true}
)

// DetectDatabases combines four strategies: compose services (high), env
// sample variables (low), ORM and driver dependencies (medium), and local
// database files (high). The merged list holds one item per database, the
// highest-confidence source winning, earlier strategies winning ties.
func (d *Detector) DetectDatabases(root string) []DetectedItem {
	var items []DetectedItem
	items = append(items, composeDatabaseItems(root)...)
	items = append(items, envFileDatabaseItems(root)...)
	items = append(items, ormAdapterItems(root)...)
	items = append(items, sqliteFileItems(root)...)
	return mergeDatabaseItems(items)
}

func databaseForImage(imageBase string) string {
	for _, entry := range databaseImages {
		for _, pattern := range entry.patterns {
			if strings.Contains(imageBase, pattern) {
				return entry.name
			}
		}
	}
	return ""
}

func databaseForEnvVar(name string) string {
	for _, entry := range databaseEnvVars {
		if entry.vars[name] {
			return entry.name
		}
	}
	return ""
}

func databaseForURL(value string) string {
	value = strings.ToLower(value)
	for _, entry := range databaseURLSchemes {
		for _, scheme := range entry.schemes {
			if strings.Contains(value, scheme) {
				return entry.name
			}
		}
	}
	return ""
}

// composeDatabaseItems matches service images in compose files against the
// database image catalog. Services are visited in document order so the
// evidence for a database is stable across runs.
func composeDatabaseItems(root string) []DetectedItem {
	var items []DetectedItem
	for _, name := range []string{"docker-compose.yml", "compose.yml"} {
		composePath := filepath.Join(root, name)
		data := boundedRead(composePath, root)
		if data == nil {
			continue
		}

		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			slog.Warn("failed to parse compose file", "file", composePath, "error", err)
			continue
		}
		if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
			continue
		}
		services := mappingValue(doc.Content[0], "services")
		if services == nil || services.Kind != yaml.MappingNode {
			continue
		}

		for i := 0; i+1 < len(services.Content); i += 2 {
			serviceName := services.Content[i].Value
			service := services.Content[i+1]
			if service.Kind != yaml.MappingNode {
				continue
			}
			image := mappingValue(service, "image")
			if image == nil || image.Kind != yaml.ScalarNode || image.Value == "" {
				continue
			}

			imageBase := strings.ToLower(strings.SplitN(image.Value, ":", 2)[0])
			if db := databaseForImage(imageBase); db != "" {
				items = append(items, DetectedItem{
					Name:           db,
					Confidence:     ConfidenceHigh,
					SourceFile:     composePath,
					SourceEvidence: serviceName,
				})
			}
		}
	}
	return items
}

func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// envFileDatabaseItems scans env sample files line by line. The live .env
// is deliberately not read. Matching tries the DATABASE_URL scheme first,
// then known variable names, then a scheme match on any other value.
func envFileDatabaseItems(root string) []DetectedItem {
	var items []DetectedItem
	for _, name := range []string{".env.example", ".env.sample"} {
		envPath := filepath.Join(root, name)
		data := boundedRead(envPath, root)
		if data == nil {
			continue
		}

		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") || !strings.Contains(line, "=") {
				continue
			}

			vars, err := godotenv.Unmarshal(line)
			if err != nil {
				continue
			}
			for key, value := range vars {
				varName := strings.ToUpper(strings.TrimSpace(key))

				db := ""
				if varName == "DATABASE_URL" && value != "" {
					db = databaseForURL(value)
				}
				if db == "" {
					db = databaseForEnvVar(varName)
				}
				if db == "" && value != "" {
					db = databaseForURL(value)
				}
				if db != "" {
					items = append(items, DetectedItem{
						Name:           db,
						Confidence:     ConfidenceLow,
						SourceFile:     envPath,
						SourceEvidence: varName,
					})
				}
			}
		}
	}
	return items
}

// ormAdapterItems infers databases from driver and ORM dependencies in
// Python, Node, and Java manifests.
func ormAdapterItems(root string) []DetectedItem {
	var items []DetectedItem

	pyprojectPath := filepath.Join(root, "pyproject.toml")
	if data := boundedRead(pyprojectPath, root); data != nil {
		var manifest pyprojectManifest
		if err := toml.Unmarshal(data, &manifest); err != nil {
			slog.Warn("failed to parse pyproject.toml", "file", pyprojectPath, "error", err)
		} else {
			for _, dep := range pythonDependencyNames(manifest) {
				if db := adapterDatabase(dep, false); db != "" {
					items = append(items, DetectedItem{
						Name:           db,
						Confidence:     ConfidenceMedium,
						SourceFile:     pyprojectPath,
						SourceEvidence: dep,
					})
				}
			}
		}
	}

	packagePath := filepath.Join(root, "package.json")
	if data := boundedRead(packagePath, root); data != nil && gjson.ValidBytes(data) {
		for _, dep := range nodeDependencyNames(data) {
			if db := adapterDatabase(dep, true); db != "" {
				items = append(items, DetectedItem{
					Name:           db,
					Confidence:     ConfidenceMedium,
					SourceFile:     packagePath,
					SourceEvidence: dep,
				})
			}
		}
	}

	if project, pomPath := parsePomFile(root); project != nil {
		for _, dep := range append(project.Dependencies, project.ManagedDependencies...) {
			artifact := strings.ToLower(dep.ArtifactID)
			if artifact == "" {
				continue
			}
			db := ""
			switch {
			case strings.Contains(artifact, "postgresql"):
				db = "postgresql"
			case containsAnyAdapter(artifact, redisAdapters):
				db = "redis"
			case strings.Contains(artifact, "mysql"):
				db = "mysql"
			case strings.Contains(artifact, "mongo"):
				db = "mongodb"
			}
			if db != "" {
				items = append(items, DetectedItem{
					Name:           db,
					Confidence:     ConfidenceMedium,
					SourceFile:     pomPath,
					SourceEvidence: artifact,
				})
			}
		}
	}

	return items
}

// adapterDatabase matches a lowercased dependency name against the adapter
// sets. SQLite adapters are Node packages; Python projects use the
// built-in driver, so the set is consulted only for Node.
func adapterDatabase(name string, includeSQLite bool) string {
	switch {
	case postgresAdapters[name]:
		return "postgresql"
	case redisAdapters[name]:
		return "redis"
	case mysqlAdapters[name]:
		return "mysql"
	case includeSQLite && sqliteAdapters[name]:
		return "sqlite"
	case mongoAdapters[name]:
		return "mongodb"
	}
	return ""
}

func containsAnyAdapter(artifact string, adapters map[string]bool) bool {
	for adapter := range adapters {
		if strings.Contains(artifact, adapter) {
			return true
		}
	}
	return false
}

// pythonDependencyNames returns the lowercased package names declared in
// pyproject.toml, deduplicated, in declaration order with optional groups
// sorted by name.
func pythonDependencyNames(manifest pyprojectManifest) []string {
	var names []string
	seen := map[string]bool{}
	add := func(spec string) {
		name := strings.ToLower(extractPackageName(spec))
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}

	for _, dep := range manifest.Project.Dependencies {
		add(dep)
	}
	groups := make([]string, 0, len(manifest.Project.OptionalDependencies))
	for group := range manifest.Project.OptionalDependencies {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	for _, group := range groups {
		for _, dep := range manifest.Project.OptionalDependencies[group] {
			add(dep)
		}
	}
	return names
}

// nodeDependencyNames returns the lowercased package names from both
// dependency sections of package.json, deduplicated, in document order.
func nodeDependencyNames(data []byte) []string {
	var names []string
	seen := map[string]bool{}
	for _, section := range []string{"dependencies", "devDependencies"} {
		gjson.GetBytes(data, section).ForEach(func(key, _ gjson.Result) bool {
			name := strings.ToLower(key.String())
			if name != "" && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
			return true
		})
	}
	return names
}

// sqliteFileItems reports sqlite for database files sitting directly in the
// project root. Deeper files are ignored to avoid false positives from
// fixtures and build output.
func sqliteFileItems(root string) []DetectedItem {
	entries, err := os.ReadDir(root)
	if err != nil {
		slog.Debug("could not list project root for database files", "root", root, "error", err)
		return nil
	}

	sqliteExtensions := map[string]bool{".db": true, ".sqlite": true, ".sqlite3": true}
	var items []DetectedItem
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !sqliteExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if !isSafePath(path, root) {
			continue
		}
		items = append(items, DetectedItem{
			Name:           "sqlite",
			Confidence:     ConfidenceHigh,
			SourceFile:     path,
			SourceEvidence: entry.Name(),
		})
	}
	return items
}

// mergeDatabaseItems keeps one item per database name. Applying it to an
// already-merged list is a no-op.
func mergeDatabaseItems(items []DetectedItem) []DetectedItem {
	merged := []DetectedItem{}
	index := map[string]int{}
	for _, item := range items {
		at, ok := index[item.Name]
		if !ok {
			index[item.Name] = len(merged)
			merged = append(merged, item)
			continue
		}
		if item.Confidence.rank() > merged[at].Confidence.rank() {
			merged[at] = item
		}
	}
	return merged
}
