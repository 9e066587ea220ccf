// Package textproc normalizes raw extracted regulation text and splits it
// into overlapping, boundary-aware chunks for indexing.
package textproc

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/permismed/permis-rag/pkg/fn"
)

// PatternsConfig lists the recurring boilerplate artifacts of a corpus.
// The patterns are configuration, not algorithm: each corpus carries its own.
type PatternsConfig struct {
	Boilerplate []string `yaml:"boilerplate"`
}

// DefaultPatterns matches the known artifacts of the arrêté du 28 mars 2022
// PDF extraction: the Journal Officiel page header and "-- N of M --" markers.
func DefaultPatterns() PatternsConfig {
	return PatternsConfig{
		Boilerplate: []string{
			`3\s*avril\s*2022\s+JOURNAL\s+OFFICIEL\s+DE\s+LA\s+RÉPUBLIQUE\s+FRANÇAISE\s+Texte\s+27\s+sur\s+92`,
			`--\s*\d+\s+of\s+\d+\s*--`,
		},
	}
}

// LoadPatterns reads a YAML patterns file. A missing file yields the defaults.
func LoadPatterns(path string) (PatternsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPatterns(), nil
		}
		return PatternsConfig{}, fmt.Errorf("textproc: read patterns %s: %w", path, err)
	}
	var cfg PatternsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return PatternsConfig{}, fmt.Errorf("textproc: parse patterns %s: %w", path, err)
	}
	if len(cfg.Boilerplate) == 0 {
		return DefaultPatterns(), nil
	}
	return cfg, nil
}

var (
	wsRun      = regexp.MustCompile(`\s{3,}`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
)

// Cleaner strips recurring page artifacts and normalizes whitespace.
// Clean is pure and idempotent: cleaning cleaned text is a no-op.
type Cleaner struct {
	boilerplate []*regexp.Regexp
}

// NewCleaner compiles the configured boilerplate patterns.
func NewCleaner(cfg PatternsConfig) (*Cleaner, error) {
	compiled := make([]*regexp.Regexp, len(cfg.Boilerplate))
	for i, p := range cfg.Boilerplate {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("textproc: compile boilerplate pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return &Cleaner{boilerplate: compiled}, nil
}

// Clean runs the ordered transform stages. Boilerplate removal comes first:
// it may leave whitespace holes the later stages are responsible for closing.
func (c *Cleaner) Clean(raw string) string {
	text := c.StripBoilerplate(raw)
	text = NormalizeLines(text)
	text = CollapseParagraphs(text)
	return strings.TrimSpace(text)
}

// StripBoilerplate removes every occurrence of the configured artifacts.
func (c *Cleaner) StripBoilerplate(text string) string {
	for _, re := range c.boilerplate {
		text = re.ReplaceAllString(text, "")
	}
	return text
}

// NormalizeLines collapses runs of 3+ whitespace characters inside each line
// to a single space and trims line edges. Lines left empty reduce to bare
// newlines; CollapseParagraphs then caps those runs at the two-newline
// paragraph separator, so no blank content survives beyond it.
func NormalizeLines(text string) string {
	lines := fn.Map(strings.Split(text, "\n"), func(line string) string {
		return strings.TrimSpace(wsRun.ReplaceAllString(line, " "))
	})
	return strings.Join(lines, "\n")
}

// CollapseParagraphs reduces runs of 3+ newlines to the two-newline
// paragraph separator.
func CollapseParagraphs(text string) string {
	return newlineRun.ReplaceAllString(text, "\n\n")
}
