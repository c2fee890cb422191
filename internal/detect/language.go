// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

package detect

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/clauded/clauded/internal/detect/corpus"
)

// maxSampleFiles caps the example paths retained per language.
const maxSampleFiles = 3

type languageTally struct {
	bytes   int64
	files   int
	samples []string
}

// DetectLanguages classifies every regular file under root and aggregates
// per-language byte and file counts. The returned list is sorted by byte
// count descending, name ascending on ties; languages with zero bytes are
// dropped. Scan counters are returned alongside so the caller can report
// coverage.
func (d *Detector) DetectLanguages(ctx context.Context, root string) ([]DetectedLanguage, ScanStats) {
	var stats ScanStats

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		slog.WarnContext(ctx, "language scan: project root is not a readable directory", "root", root)
		return []DetectedLanguage{}, stats
	}

	tallies := map[string]*languageTally{}

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			slog.DebugContext(ctx, "language scan: skipping unreadable entry", "path", path, "error", err)
			return nil
		}
		if ctx.Err() != nil {
			stats.ScanTruncated = true
			return filepath.SkipAll
		}
		if entry.IsDir() {
			return nil
		}
		if d.maxFiles > 0 && stats.FilesScanned+stats.FilesExcluded >= d.maxFiles {
			stats.ScanTruncated = true
			return filepath.SkipAll
		}

		// Sockets and pipes carry no language signal; symlinks and
		// escapes are rejected by the envelope and counted.
		if entry.Type()&fs.ModeSymlink == 0 && !entry.Type().IsRegular() {
			return nil
		}
		if !isSafePath(path, root) {
			stats.FilesExcluded++
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			stats.FilesExcluded++
			return nil
		}
		relPath := filepath.ToSlash(rel)
		if d.corpus.Excluded(relPath) || d.excluded(relPath) {
			stats.FilesExcluded++
			return nil
		}

		stats.FilesScanned++

		fileInfo, err := entry.Info()
		if err != nil {
			return nil
		}

		language := d.classify(path, entry.Name(), root)
		if language == "" {
			return nil
		}

		tally := tallies[language]
		if tally == nil {
			tally = &languageTally{}
			tallies[language] = tally
		}
		tally.bytes += fileInfo.Size()
		tally.files++
		if len(tally.samples) < maxSampleFiles {
			tally.samples = append(tally.samples, path)
		}
		return nil
	})
	if walkErr != nil {
		slog.WarnContext(ctx, "language scan: traversal stopped early", "root", root, "error", walkErr)
	}

	names := make([]string, 0, len(tallies))
	for name := range tallies {
		names = append(names, name)
	}
	sort.Strings(names)

	results := []DetectedLanguage{}
	for _, name := range names {
		tally := tallies[name]
		if tally.bytes == 0 {
			continue
		}
		results = append(results, DetectedLanguage{
			Name:        name,
			Confidence:  languageConfidence(tally.files, tally.bytes),
			ByteCount:   tally.bytes,
			FileCount:   tally.files,
			SampleFiles: tally.samples,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ByteCount > results[j].ByteCount
	})
	return results, stats
}

func languageConfidence(files int, bytes int64) Confidence {
	switch {
	case files > 10 || bytes > 10*1024:
		return ConfidenceHigh
	case files >= 3 || bytes >= 1024:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// classify names the language of one file, or "" when no signal matches.
// Signals are tried in order: exact filename, extension (with content
// disambiguation when ambiguous), then shebang interpreter.
func (d *Detector) classify(path, name, root string) string {
	if candidates := d.corpus.LanguagesForFilename(name); len(candidates) > 0 {
		return candidates[0]
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext != "" && !strings.EqualFold(ext, name) {
		if candidates := d.corpus.LanguagesForExtension(ext); len(candidates) > 0 {
			if len(candidates) == 1 {
				return candidates[0]
			}
			return d.disambiguate(path, ext, candidates, root)
		}
	}

	if interp := shebangInterpreter(path, root); interp != "" {
		if candidates := d.corpus.LanguagesForInterpreter(interp); len(candidates) > 0 {
			return candidates[0]
		}
	}
	return ""
}

// disambiguate picks among an ambiguous extension's candidates by matching
// content rules against the head of the file. The first rule whose patterns
// hold and whose language is a candidate wins; otherwise the corpus's first
// candidate stands.
func (d *Detector) disambiguate(path, ext string, candidates []string, root string) string {
	content := boundedRead(path, root)
	if content == nil {
		return candidates[0]
	}

	rules := d.corpus.Disambiguation(ext)
	if rules == nil {
		return candidates[0]
	}

	for _, rule := range rules.Rules {
		if !ruleMatches(rule, content) {
			continue
		}
		for _, language := range rule.Languages {
			for _, candidate := range candidates {
				if language == candidate {
					return language
				}
			}
		}
	}
	return candidates[0]
}

// ruleMatches evaluates one disambiguation rule against content. An and
// block replaces the rule's own patterns; a rule with no patterns matches
// unconditionally.
func ruleMatches(rule corpus.Rule, content []byte) bool {
	if len(rule.And) > 0 {
		for _, sub := range rule.And {
			if !ruleMatches(sub, content) {
				return false
			}
		}
		return true
	}
	if rule.Pattern != nil && !rule.Pattern.Match(content) {
		return false
	}
	if rule.NegativePattern != nil && rule.NegativePattern.Match(content) {
		return false
	}
	return true
}

// shebangInterpreter extracts the interpreter basename from a shebang line,
// handling the env indirection form by taking the final token.
func shebangInterpreter(path, root string) string {
	data := boundedRead(path, root)
	if len(data) < 2 || data[0] != '#' || data[1] != '!' {
		return ""
	}

	line := string(data[2:])
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return ""
	}
	return filepath.Base(fields[len(fields)-1])
}
