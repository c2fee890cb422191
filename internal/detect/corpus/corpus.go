// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

// Package corpus holds the vendored classification tables shared by the
// detectors: extension, filename and interpreter lookups, content-based
// disambiguation rules, and the vendored-path exclusion list.
//
// The tables are fixed at build time and embedded into the binary. Loading
// never fails loudly: corrupt data degrades to an empty corpus, so detection
// reports nothing rather than erroring.
package corpus

import (
	_ "embed"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed languages.yml
var languagesData []byte

//go:embed heuristics.yml
var heuristicsData []byte

//go:embed vendor.yml
var vendorData []byte

// Entry is one language row from the vendored language table.
type Entry struct {
	Name         string
	Type         string
	Extensions   []string
	Filenames    []string
	Interpreters []string
}

// Rule is a single disambiguation rule. A nil Pattern matches
// unconditionally; NegativePattern, when set, must not match. And-rules must
// all hold in addition to the rule's own patterns.
type Rule struct {
	Languages       []string
	Pattern         *regexp.Regexp
	NegativePattern *regexp.Regexp
	And             []Rule
}

// Disambiguation is the ordered rule set for one group of ambiguous
// extensions.
type Disambiguation struct {
	Extensions []string
	Rules      []Rule
}

// Corpus is the immutable classification data consulted by the detectors.
// All lookups preserve the declaration order of the vendored tables, which
// fixes the tie-break when an ambiguous extension has no matching heuristic.
type Corpus struct {
	entries         []Entry
	byExtension     map[string][]string
	byFilename      map[string][]string
	byInterpreter   map[string][]string
	disambiguations map[string]*Disambiguation
	exclusions      []*regexp.Regexp
}

var (
	loadOnce      sync.Once
	defaultCorpus *Corpus
)

// Default returns the process-wide corpus built from the embedded tables.
// The first call performs the load; later calls return the same value.
func Default() *Corpus {
	loadOnce.Do(func() {
		defaultCorpus = New(languagesData, heuristicsData, vendorData)
	})
	return defaultCorpus
}

// New builds a corpus from raw YAML tables. Undecodable tables are replaced
// by empty ones and individual malformed entries are dropped, so the result
// is always usable.
func New(languages []byte, heuristics []byte, vendor []byte) *Corpus {
	c := &Corpus{
		byExtension:     map[string][]string{},
		byFilename:      map[string][]string{},
		byInterpreter:   map[string][]string{},
		disambiguations: map[string]*Disambiguation{},
	}

	c.loadLanguages(languages)
	c.loadHeuristics(heuristics)
	c.loadExclusions(vendor)
	return c
}

// LanguagesForExtension returns the candidate languages declaring ext
// (lowercase, dot-prefixed), in table declaration order.
func (c *Corpus) LanguagesForExtension(ext string) []string {
	return c.byExtension[ext]
}

// LanguagesForFilename returns the candidate languages declaring the exact
// basename name.
func (c *Corpus) LanguagesForFilename(name string) []string {
	return c.byFilename[name]
}

// LanguagesForInterpreter returns the candidate languages declaring the
// shebang interpreter name.
func (c *Corpus) LanguagesForInterpreter(name string) []string {
	return c.byInterpreter[name]
}

// Disambiguation returns the rule set covering ext, or nil when the corpus
// has none.
func (c *Corpus) Disambiguation(ext string) *Disambiguation {
	return c.disambiguations[ext]
}

// Excluded reports whether the POSIX-style path relative to the project root
// matches any vendored exclusion pattern.
func (c *Corpus) Excluded(relPath string) bool {
	for _, re := range c.exclusions {
		if re.MatchString(relPath) {
			return true
		}
	}
	return false
}

// LanguageCount returns the number of languages in the table. A zero count
// means the corpus failed to load and detection will classify nothing.
func (c *Corpus) LanguageCount() int {
	return len(c.entries)
}

func (c *Corpus) loadLanguages(data []byte) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		slog.Warn("corpus: language table failed to parse", "error", err)
		return
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		slog.Warn("corpus: language table is not a mapping")
		return
	}

	// Walk the mapping node directly instead of decoding into a map: the
	// document order of the table is the ambiguous-extension tie-break.
	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		var row struct {
			Type         string   `yaml:"type"`
			Extensions   []string `yaml:"extensions"`
			Filenames    []string `yaml:"filenames"`
			Interpreters []string `yaml:"interpreters"`
		}
		if err := root.Content[i+1].Decode(&row); err != nil {
			slog.Debug("corpus: skipping malformed language entry", "language", name, "error", err)
			continue
		}

		entry := Entry{
			Name:         name,
			Type:         row.Type,
			Extensions:   row.Extensions,
			Filenames:    row.Filenames,
			Interpreters: row.Interpreters,
		}
		c.entries = append(c.entries, entry)

		for _, ext := range entry.Extensions {
			ext = strings.ToLower(ext)
			c.byExtension[ext] = append(c.byExtension[ext], name)
		}
		for _, filename := range entry.Filenames {
			c.byFilename[filename] = append(c.byFilename[filename], name)
		}
		for _, interp := range entry.Interpreters {
			c.byInterpreter[interp] = append(c.byInterpreter[interp], name)
		}
	}
}

type yamlRule struct {
	Language        yaml.Node  `yaml:"language"`
	Pattern         yaml.Node  `yaml:"pattern"`
	NegativePattern yaml.Node  `yaml:"negative_pattern"`
	And             []yamlRule `yaml:"and"`
}

func (c *Corpus) loadHeuristics(data []byte) {
	var doc struct {
		Disambiguations []struct {
			Extensions []string   `yaml:"extensions"`
			Rules      []yamlRule `yaml:"rules"`
		} `yaml:"disambiguations"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		slog.Warn("corpus: heuristics table failed to parse", "error", err)
		return
	}

	for _, block := range doc.Disambiguations {
		d := &Disambiguation{Extensions: block.Extensions}
		for _, raw := range block.Rules {
			rule, ok := convertRule(raw)
			if !ok {
				continue
			}
			d.Rules = append(d.Rules, rule)
		}
		for _, ext := range block.Extensions {
			ext = strings.ToLower(ext)
			if _, exists := c.disambiguations[ext]; exists {
				continue
			}
			c.disambiguations[ext] = d
		}
	}
}

// convertRule compiles one heuristic rule. A rule with an uncompilable
// pattern is dropped whole rather than half-applied.
func convertRule(raw yamlRule) (Rule, bool) {
	rule := Rule{Languages: stringList(raw.Language)}

	if patterns := stringList(raw.Pattern); len(patterns) > 0 {
		re, err := compilePattern(patterns)
		if err != nil {
			slog.Debug("corpus: dropping rule with bad pattern", "error", err)
			return Rule{}, false
		}
		rule.Pattern = re
	}
	if patterns := stringList(raw.NegativePattern); len(patterns) > 0 {
		re, err := compilePattern(patterns)
		if err != nil {
			slog.Debug("corpus: dropping rule with bad negative pattern", "error", err)
			return Rule{}, false
		}
		rule.NegativePattern = re
	}
	for _, sub := range raw.And {
		converted, ok := convertRule(sub)
		if !ok {
			return Rule{}, false
		}
		rule.And = append(rule.And, converted)
	}
	return rule, true
}

func (c *Corpus) loadExclusions(data []byte) {
	var patterns []string
	if err := yaml.Unmarshal(data, &patterns); err != nil {
		slog.Warn("corpus: vendor table failed to parse", "error", err)
		return
	}

	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			slog.Debug("corpus: skipping bad vendor pattern", "pattern", pattern, "error", err)
			continue
		}
		c.exclusions = append(c.exclusions, re)
	}
}

// stringList decodes a YAML value that may be a scalar or a sequence of
// scalars into a string slice.
func stringList(node yaml.Node) []string {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			return nil
		}
		return []string{node.Value}
	case yaml.SequenceNode:
		var values []string
		if err := node.Decode(&values); err != nil {
			return nil
		}
		return values
	default:
		return nil
	}
}

// compilePattern joins pattern alternatives and compiles them with
// multiline and dot-all flags, mirroring how the upstream rules are
// evaluated. Each alternative is grouped so anchors stay local to it.
func compilePattern(patterns []string) (*regexp.Regexp, error) {
	if len(patterns) == 1 {
		return regexp.Compile("(?ms)" + patterns[0])
	}
	grouped := make([]string, len(patterns))
	for i, p := range patterns {
		grouped[i] = "(" + p + ")"
	}
	return regexp.Compile("(?ms)" + strings.Join(grouped, "|"))
}
