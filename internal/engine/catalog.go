// Package engine implements the threat intelligence and risk scoring core:
// pattern matching over free-text threat descriptions, STRIDE categorization,
// DREAD score suggestion, mitigation recommendation, similarity ranking, and
// scanner-finding correlation.
//
// Every entry point is a pure function of its inputs and the immutable
// Catalog injected at construction time. Nothing here performs I/O, and a
// single Engine value is safe for concurrent use from any number of
// goroutines.
package engine

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// MatchRule is a single text-matching rule inside a ThreatPattern. Exactly one
// of Substring or Regexp is set. Weight is the rule's contribution to the
// pattern score when the rule hits.
type MatchRule struct {
	Substring string
	Regexp    *regexp.Regexp
	Weight    float64
}

// hits reports whether the rule matches the (already lowercased) text.
func (r MatchRule) hits(text string) bool {
	if r.Regexp != nil {
		return r.Regexp.MatchString(text)
	}
	return r.Substring != "" && strings.Contains(text, r.Substring)
}

// ThreatPattern is one hand-authored vulnerability class recognizable from
// free text. Patterns are immutable once a Catalog is built.
type ThreatPattern struct {
	// ID is the unique pattern identifier, e.g. "sql_injection".
	ID string

	// Rules are the text-matching rules. A pattern's raw score is the sum
	// of the weights of all rules that hit, capped at 1.0.
	Rules []MatchRule

	// Categories are the STRIDE categories this vulnerability class implies.
	Categories []Category

	// Defaults are the DREAD dimension scores used as the baseline when
	// this pattern is the primary match.
	Defaults DreadScores

	// Baseline is the pattern's baseline confidence in (0,1]. The final
	// match confidence is the capped rule-weight sum multiplied by Baseline.
	Baseline float64

	// Archetypes are the component archetypes typically involved in this
	// vulnerability class.
	Archetypes []Archetype
}

// Catalog is the fixed, ordered set of threat patterns the engine matches
// against. Declaration order is significant: it is the deterministic
// tie-breaker for equal match confidences. A Catalog is immutable after
// construction and requires no synchronization.
type Catalog struct {
	patterns []ThreatPattern
	index    map[string]int
}

// NewCatalog builds a Catalog from the given patterns, validating each one.
func NewCatalog(patterns []ThreatPattern) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(patterns))}
	for _, p := range patterns {
		if err := validatePattern(p); err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p.ID, err)
		}
		if _, dup := c.index[p.ID]; dup {
			return nil, fmt.Errorf("pattern %q: duplicate identifier", p.ID)
		}
		c.index[p.ID] = len(c.patterns)
		c.patterns = append(c.patterns, p)
	}
	return c, nil
}

// DefaultCatalog returns the built-in pattern catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(builtinPatterns)
	if err != nil {
		// builtinPatterns is package data; a failure here is a programming
		// error, not a runtime condition.
		panic(err)
	}
	return c
}

// Patterns returns the catalog's patterns in declaration order. The returned
// slice must not be modified.
func (c *Catalog) Patterns() []ThreatPattern { return c.patterns }

// Get returns the pattern with the given identifier.
func (c *Catalog) Get(id string) (ThreatPattern, bool) {
	i, ok := c.index[id]
	if !ok {
		return ThreatPattern{}, false
	}
	return c.patterns[i], true
}

// Len returns the number of patterns in the catalog.
func (c *Catalog) Len() int { return len(c.patterns) }

func validatePattern(p ThreatPattern) error {
	if p.ID == "" {
		return fmt.Errorf("missing identifier")
	}
	if len(p.Rules) == 0 {
		return fmt.Errorf("no match rules")
	}
	for i, r := range p.Rules {
		if r.Substring == "" && r.Regexp == nil {
			return fmt.Errorf("rule %d: neither substring nor regexp set", i)
		}
		if r.Weight <= 0 || r.Weight > 1 {
			return fmt.Errorf("rule %d: weight %v out of (0,1]", i, r.Weight)
		}
	}
	if p.Baseline <= 0 || p.Baseline > 1 {
		return fmt.Errorf("baseline confidence %v out of (0,1]", p.Baseline)
	}
	if len(p.Categories) == 0 {
		return fmt.Errorf("no STRIDE categories")
	}
	for _, cat := range p.Categories {
		if !validCategory(cat) {
			return fmt.Errorf("unknown STRIDE category %q", cat)
		}
	}
	if err := p.Defaults.validate(); err != nil {
		return err
	}
	for _, a := range p.Archetypes {
		if !validArchetype(a) {
			return fmt.Errorf("unknown archetype %q", a)
		}
	}
	return nil
}

// ── YAML overlay ─────────────────────────────────────────────────────────────

// patternSpec is the YAML representation of a ThreatPattern. Overlay files let
// deployments extend or replace built-in patterns without a rebuild.
type patternSpec struct {
	ID    string `yaml:"id"`
	Rules []struct {
		Substring string  `yaml:"substring,omitempty"`
		Regex     string  `yaml:"regex,omitempty"`
		Weight    float64 `yaml:"weight"`
	} `yaml:"rules"`
	Categories []Category `yaml:"categories"`
	Defaults   struct {
		Damage          int `yaml:"damage"`
		Reproducibility int `yaml:"reproducibility"`
		Exploitability  int `yaml:"exploitability"`
		AffectedUsers   int `yaml:"affected_users"`
		Discoverability int `yaml:"discoverability"`
	} `yaml:"defaults"`
	Baseline   float64     `yaml:"baseline"`
	Archetypes []Archetype `yaml:"archetypes"`
}

// LoadCatalogOverlay reads a YAML pattern file and returns DefaultCatalog
// extended with its entries. An overlay pattern whose ID collides with a
// built-in replaces the built-in in place, preserving its declaration order.
func LoadCatalogOverlay(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern overlay: %w", err)
	}

	var specs []patternSpec
	if err := yaml.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("parse pattern overlay: %w", err)
	}

	patterns := make([]ThreatPattern, len(builtinPatterns))
	copy(patterns, builtinPatterns)
	position := make(map[string]int, len(patterns))
	for i, p := range patterns {
		position[p.ID] = i
	}

	for _, spec := range specs {
		p, err := compileSpec(spec)
		if err != nil {
			return nil, err
		}
		if i, ok := position[p.ID]; ok {
			patterns[i] = p
			continue
		}
		position[p.ID] = len(patterns)
		patterns = append(patterns, p)
	}

	return NewCatalog(patterns)
}

func compileSpec(spec patternSpec) (ThreatPattern, error) {
	p := ThreatPattern{
		ID:         spec.ID,
		Categories: spec.Categories,
		Baseline:   spec.Baseline,
		Archetypes: spec.Archetypes,
		Defaults: DreadScores{
			Damage:          spec.Defaults.Damage,
			Reproducibility: spec.Defaults.Reproducibility,
			Exploitability:  spec.Defaults.Exploitability,
			AffectedUsers:   spec.Defaults.AffectedUsers,
			Discoverability: spec.Defaults.Discoverability,
		},
	}
	for i, r := range spec.Rules {
		rule := MatchRule{Substring: r.Substring, Weight: r.Weight}
		if r.Regex != "" {
			re, err := regexp.Compile(r.Regex)
			if err != nil {
				return ThreatPattern{}, fmt.Errorf("pattern %q rule %d: %w", spec.ID, i, err)
			}
			rule.Regexp = re
			rule.Substring = ""
		}
		p.Rules = append(p.Rules, rule)
	}
	return p, nil
}

// sortedCategories returns the categories of m in canonical STRIDE order.
func sortedCategories(m map[Category]float64) []Category {
	cats := make([]Category, 0, len(m))
	for c := range m {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		return strideOrder[cats[i]] < strideOrder[cats[j]]
	})
	return cats
}
