package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreDreadRangesAlwaysValid(t *testing.T) {
	e := New(nil)

	inputs := []struct {
		asset, flow string
	}{
		{"User Authentication API", "string-concatenated sql query without parameterization"},
		{"Widget", "does a thing"},
		{"File server", "arbitrary file read via path traversal on uploads"},
	}

	for _, in := range inputs {
		matches := e.Match(in.asset, in.flow, "")
		components := e.DetectComponents(in.asset, in.flow, "")
		suggestion, final := e.ScoreDread(matches, components, nil)

		for _, d := range dimensions {
			v := suggestion.Scores.Get(d)
			assert.GreaterOrEqual(t, v, 0)
			assert.LessOrEqual(t, v, 10)
			assert.GreaterOrEqual(t, suggestion.Confidence[d], 0.0)
			assert.LessOrEqual(t, suggestion.Confidence[d], 1.0)
			assert.NotEmpty(t, suggestion.Explanations[d])
		}
		assert.NoError(t, final.validate())
	}
}

func TestScoreDreadNeutralBaseline(t *testing.T) {
	e := New(nil)

	suggestion, final := e.ScoreDread(nil, nil, nil)

	// No pattern, no archetype: neutral 5s, except discoverability drops
	// because nothing is network facing.
	assert.Equal(t, 5, suggestion.Scores.Damage)
	assert.Equal(t, 5, suggestion.Scores.Reproducibility)
	assert.Equal(t, 5, suggestion.Scores.Exploitability)
	assert.Equal(t, 5, suggestion.Scores.AffectedUsers)
	assert.Equal(t, 3, suggestion.Scores.Discoverability)
	assert.Equal(t, suggestion.Scores, final)

	for _, d := range dimensions {
		assert.InDelta(t, 0.3, suggestion.Confidence[d], 1e-9)
	}
	assert.Contains(t, suggestion.PatternContext, "neutral baseline")
}

func TestScoreDreadArchetypeAdjustments(t *testing.T) {
	e := New(nil)

	// Authentication raises affected users, api raises discoverability and
	// exploitability; baseline is neutral since nothing matches a pattern.
	_, final := e.ScoreDread(nil, []Archetype{ArchetypeAPI, ArchetypeAuthentication}, nil)

	assert.Equal(t, 6, final.Damage)          // +1 authentication
	assert.Equal(t, 7, final.AffectedUsers)   // +2 authentication
	assert.Equal(t, 6, final.Exploitability)  // +1 api
	assert.Equal(t, 6, final.Discoverability) // +1 api, network facing
}

func TestScoreDreadClampsAtTen(t *testing.T) {
	e := New(nil)

	matches := e.Match("auth db", "sql injection in the login query against the postgres database", "")
	require.NotEmpty(t, matches)
	components := []Archetype{ArchetypeDatabase, ArchetypeAuthentication}

	_, final := e.ScoreDread(matches, components, nil)
	// sql_injection defaults damage 9, +2 database +1 authentication clamps at 10.
	assert.Equal(t, 10, final.Damage)
	assert.Equal(t, 10, final.AffectedUsers)
}

func TestScoreDreadOverridesReplaceButKeepAudit(t *testing.T) {
	e := New(nil)

	matches := e.Match("API", "sql injection via unsanitized query", "")
	require.NotEmpty(t, matches)

	overrides := map[Dimension]int{
		DimDamage:          0,
		DimReproducibility: 0,
		DimExploitability:  0,
		DimAffectedUsers:   0,
		DimDiscoverability: 0,
	}
	suggestion, final := e.ScoreDread(matches, nil, overrides)

	assert.Equal(t, DreadScores{}, final)
	assert.InDelta(t, 0.0, final.Total(), 1e-9)
	assert.Equal(t, RiskLow, RiskLevelFor(final.Total()))

	// The suggestion keeps the engine's own values for audit.
	assert.Greater(t, suggestion.Scores.Damage, 0)
	assert.NotEmpty(t, suggestion.Explanations[DimDamage])
}

func TestScoreDreadOutOfRangeOverridesClamped(t *testing.T) {
	e := New(nil)

	_, final := e.ScoreDread(nil, nil, map[Dimension]int{
		DimDamage:         42,
		DimAffectedUsers:  -7,
		DimExploitability: 10,
	})

	assert.Equal(t, 10, final.Damage)
	assert.Equal(t, 0, final.AffectedUsers)
	assert.Equal(t, 10, final.Exploitability)
}

func TestDreadTotalRounding(t *testing.T) {
	tests := []struct {
		scores DreadScores
		want   float64
	}{
		{DreadScores{10, 8, 8, 10, 8}, 8.8},
		{DreadScores{5, 5, 5, 5, 3}, 4.6},
		{DreadScores{0, 0, 0, 0, 0}, 0.0},
		{DreadScores{7, 7, 7, 7, 7}, 7.0},
		{DreadScores{1, 1, 1, 1, 2}, 1.2},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, tt.scores.Total(), 1e-9)
	}
}

// Boundary totals fall into the lower band: the thresholds are strict.
func TestRiskLevelStrictThresholds(t *testing.T) {
	tests := []struct {
		total float64
		want  RiskLevel
	}{
		{0.0, RiskLow},
		{4.0, RiskLow},
		{4.1, RiskMedium},
		{7.0, RiskMedium},
		{7.1, RiskHigh},
		{10.0, RiskHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskLevelFor(tt.total), "total %v", tt.total)
	}
}

func TestExplanationBuckets(t *testing.T) {
	low := explainDimension(DimDamage, 2, "xss", nil)
	mid := explainDimension(DimDamage, 5, "xss", nil)
	high := explainDimension(DimDamage, 9, "xss", nil)

	assert.Contains(t, low, lowPhrases[DimDamage])
	assert.Contains(t, mid, mediumPhrases[DimDamage])
	assert.Contains(t, high, highPhrases[DimDamage])
	assert.Contains(t, high, "xss")
}

func TestScoreDreadConfidenceCorroboration(t *testing.T) {
	e := New(nil)

	bare, _ := e.ScoreDread(nil, nil, nil)
	corroborated, _ := e.ScoreDread(nil, []Archetype{ArchetypeDatabase, ArchetypeAuthentication}, nil)

	// Both database and authentication corroborate affected_users.
	assert.Greater(t,
		corroborated.Confidence[DimAffectedUsers],
		bare.Confidence[DimAffectedUsers],
	)
}
