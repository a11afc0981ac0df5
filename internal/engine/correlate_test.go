package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelateXSSFindingToMatchingThreat(t *testing.T) {
	e := New(nil)

	finding := Finding{
		ID:          "f-1",
		Title:       "Stored XSS in comment field",
		Description: "cross-site scripting: unsanitized html is rendered into the page",
		Severity:    "high",
		Tool:        "zap",
	}
	corpus := []ThreatRecord{
		sampleRecord("xss-threat", "Comments widget",
			"user comments rendered without escaping",
			[]Category{CategoryTampering, CategoryInformationDisclosure},
			DreadScores{7, 8, 7, 8, 8}),
		sampleRecord("dos-threat", "Queue", "unbounded queue growth",
			[]Category{CategoryDenialOfService},
			DreadScores{6, 8, 7, 9, 7}),
	}

	candidates := e.Correlate(finding, corpus)
	require.NotEmpty(t, candidates)
	assert.Equal(t, "xss-threat", candidates[0].ThreatID)
	assert.GreaterOrEqual(t, candidates[0].Similarity, minCorrelation)
	assert.Contains(t, candidates[0].Patterns, "xss")

	// The denial-of-service threat shares no category with the finding.
	for _, c := range candidates {
		assert.NotEqual(t, "dos-threat", c.ThreatID)
	}
}

func TestCorrelateUnmatchableFinding(t *testing.T) {
	e := New(nil)

	finding := Finding{Title: "Style warning", Description: "line too long", Severity: "note"}
	corpus := []ThreatRecord{
		sampleRecord("t1", "API", "sql injection", []Category{CategoryTampering}, DreadScores{9, 8, 7, 8, 7}),
	}

	assert.Empty(t, e.Correlate(finding, corpus))
}

func TestCorrelateEmptyCorpus(t *testing.T) {
	e := New(nil)

	finding := Finding{Title: "SQL injection", Description: "sql injection in search", Severity: "high"}
	assert.Empty(t, e.Correlate(finding, nil))
}

func TestCorrelateSeverityDiscount(t *testing.T) {
	e := New(nil)

	corpus := []ThreatRecord{
		sampleRecord("t1", "API", "query injection",
			[]Category{CategoryTampering, CategoryInformationDisclosure, CategoryElevationOfPrivilege},
			DreadScores{9, 8, 7, 8, 7}),
	}
	mk := func(severity string) []LinkCandidate {
		return e.Correlate(Finding{
			Title:       "SQL injection",
			Description: "sql injection reachable from the search box",
			Severity:    severity,
		}, corpus)
	}

	high := mk("high")
	low := mk("low")
	require.NotEmpty(t, high)
	require.NotEmpty(t, low)
	assert.Greater(t, high[0].Similarity, low[0].Similarity)
}

func TestSeverityWeight(t *testing.T) {
	assert.Equal(t, 1.0, severityWeight("critical"))
	assert.Equal(t, 1.0, severityWeight("High"))
	assert.Equal(t, 0.9, severityWeight("medium"))
	assert.Equal(t, 0.8, severityWeight("info"))
	assert.Equal(t, 1.0, severityWeight(""))
}
