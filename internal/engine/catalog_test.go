package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c := DefaultCatalog()
	assert.Greater(t, c.Len(), 10)

	for _, p := range c.Patterns() {
		got, ok := c.Get(p.ID)
		require.True(t, ok)
		assert.Equal(t, p.ID, got.ID)
	}

	_, ok := c.Get("no_such_pattern")
	assert.False(t, ok)
}

func TestNewCatalogValidation(t *testing.T) {
	valid := ThreatPattern{
		ID:         "ok",
		Rules:      []MatchRule{{Substring: "x", Weight: 0.5}},
		Categories: []Category{CategoryTampering},
		Defaults:   neutralScores,
		Baseline:   0.8,
	}

	tests := []struct {
		name   string
		mutate func(*ThreatPattern)
	}{
		{"missing id", func(p *ThreatPattern) { p.ID = "" }},
		{"no rules", func(p *ThreatPattern) { p.Rules = nil }},
		{"zero weight", func(p *ThreatPattern) { p.Rules[0].Weight = 0 }},
		{"weight above one", func(p *ThreatPattern) { p.Rules[0].Weight = 1.5 }},
		{"empty rule", func(p *ThreatPattern) { p.Rules[0].Substring = "" }},
		{"bad baseline", func(p *ThreatPattern) { p.Baseline = 0 }},
		{"no categories", func(p *ThreatPattern) { p.Categories = nil }},
		{"unknown category", func(p *ThreatPattern) { p.Categories = []Category{"bogus"} }},
		{"score out of range", func(p *ThreatPattern) { p.Defaults.Damage = 11 }},
		{"unknown archetype", func(p *ThreatPattern) { p.Archetypes = []Archetype{"mainframe"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			p.Rules = []MatchRule{valid.Rules[0]}
			tt.mutate(&p)
			_, err := NewCatalog([]ThreatPattern{p})
			assert.Error(t, err)
		})
	}
}

func TestNewCatalogRejectsDuplicateIDs(t *testing.T) {
	p := ThreatPattern{
		ID:         "dup",
		Rules:      []MatchRule{{Substring: "x", Weight: 0.5}},
		Categories: []Category{CategoryTampering},
		Defaults:   neutralScores,
		Baseline:   0.8,
	}
	_, err := NewCatalog([]ThreatPattern{p, p})
	assert.Error(t, err)
}

func TestLoadCatalogOverlay(t *testing.T) {
	overlay := `
- id: custom_widget_flaw
  rules:
    - substring: "widget overflow"
      weight: 1.0
    - regex: "\\bwdgt-[0-9]+\\b"
      weight: 0.5
  categories: [tampering, denial_of_service]
  defaults:
    damage: 6
    reproducibility: 7
    exploitability: 5
    affected_users: 4
    discoverability: 5
  baseline: 0.8
  archetypes: [backend]
- id: sql_injection
  rules:
    - substring: "sql injection"
      weight: 1.0
  categories: [tampering]
  defaults:
    damage: 9
    reproducibility: 8
    exploitability: 7
    affected_users: 8
    discoverability: 7
  baseline: 0.9
`
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	require.NoError(t, os.WriteFile(path, []byte(overlay), 0o644))

	c, err := LoadCatalogOverlay(path)
	require.NoError(t, err)

	// New pattern appended.
	custom, ok := c.Get("custom_widget_flaw")
	require.True(t, ok)
	assert.Len(t, custom.Rules, 2)
	assert.Equal(t, 6, custom.Defaults.Damage)

	// Colliding pattern replaced in place, catalog size grows by one.
	sqli, ok := c.Get("sql_injection")
	require.True(t, ok)
	assert.Equal(t, []Category{CategoryTampering}, sqli.Categories)
	assert.Equal(t, DefaultCatalog().Len()+1, c.Len())

	// The replaced pattern still matches through the engine.
	e := New(c)
	result := e.Match("API", "sql injection here", "")
	require.NotEmpty(t, result)
	assert.Equal(t, "sql_injection", result[0].PatternID)
}

func TestLoadCatalogOverlayErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadCatalogOverlay(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("{not yaml"), 0o644))
	_, err = LoadCatalogOverlay(bad)
	assert.Error(t, err)

	badRegex := filepath.Join(dir, "badregex.yaml")
	require.NoError(t, os.WriteFile(badRegex, []byte(`
- id: broken
  rules:
    - regex: "["
      weight: 0.5
  categories: [tampering]
  defaults: {damage: 5, reproducibility: 5, exploitability: 5, affected_users: 5, discoverability: 5}
  baseline: 0.5
`), 0o644))
	_, err = LoadCatalogOverlay(badRegex)
	assert.Error(t, err)
}
