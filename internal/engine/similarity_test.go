package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(id, asset, flow string, cats []Category, scores DreadScores) ThreatRecord {
	return ThreatRecord{ID: id, Asset: asset, Flow: flow, Categories: cats, Scores: scores}
}

func TestRankSimilarOrdersByScore(t *testing.T) {
	e := New(nil)

	target := sampleRecord("t", "User Authentication API",
		"sql injection through the login form query",
		[]Category{CategoryTampering, CategoryInformationDisclosure},
		DreadScores{9, 8, 7, 8, 7})

	near := sampleRecord("near", "User Authentication API",
		"sql injection in the login query handler",
		[]Category{CategoryTampering, CategoryInformationDisclosure},
		DreadScores{9, 8, 7, 8, 6})
	far := sampleRecord("far", "Batch mailer",
		"emails are sent without retry logic",
		[]Category{CategoryDenialOfService},
		DreadScores{2, 3, 2, 4, 2})

	results := e.RankSimilar(target, []ThreatRecord{far, near})
	require.NotEmpty(t, results)
	assert.Equal(t, "near", results[0].ThreatID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestRankSimilarExcludesBelowThreshold(t *testing.T) {
	e := New(nil)

	target := sampleRecord("t", "Auth API", "sql injection in login",
		[]Category{CategoryTampering}, DreadScores{9, 8, 7, 8, 7})
	unrelated := sampleRecord("u", "Mailer", "emails occasionally duplicated",
		[]Category{CategoryDenialOfService}, DreadScores{1, 2, 1, 2, 1})

	results := e.RankSimilar(target, []ThreatRecord{unrelated})
	assert.Empty(t, results)
}

func TestRankSimilarExcludesSelf(t *testing.T) {
	e := New(nil)

	target := sampleRecord("same-id", "API", "sql injection",
		[]Category{CategoryTampering}, DreadScores{9, 8, 7, 8, 7})

	results := e.RankSimilar(target, []ThreatRecord{target})
	assert.Empty(t, results)
}

func TestRankSimilarIdenticalRecordScoresHigh(t *testing.T) {
	e := New(nil)

	a := sampleRecord("a", "API", "sql injection through the search query",
		[]Category{CategoryTampering, CategoryInformationDisclosure},
		DreadScores{9, 8, 7, 8, 7})
	b := a
	b.ID = "b"

	results := e.RankSimilar(a, []ThreatRecord{b})
	require.Len(t, results, 1)
	// All four signals at their maximum: 0.35 + 0.30 + 0.20 + 0.15.
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

// The pairwise score must not depend on which record is the target.
func TestSimilaritySymmetry(t *testing.T) {
	a := sampleRecord("a", "User Authentication API",
		"sql injection through the login form query",
		[]Category{CategoryTampering, CategoryInformationDisclosure},
		DreadScores{9, 8, 7, 8, 7})
	b := sampleRecord("b", "Orders API",
		"sql injection in the order lookup query",
		[]Category{CategoryTampering, CategoryElevationOfPrivilege},
		DreadScores{7, 7, 6, 6, 5})

	assert.InDelta(t, similarity(a, b), similarity(b, a), 1e-12)
}

func TestJaccardTokens(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "sql injection attack", "sql injection attack", 1.0},
		{"disjoint", "alpha beta", "gamma delta", 0.0},
		{"both empty", "", "", 0.0},
		{"stopwords ignored", "the attack", "an attack", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, jaccardTokens(tt.a, tt.b), 1e-9)
		})
	}
}

func TestAssetSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, assetSimilarity("Auth API", "auth api"), 1e-9)
	assert.InDelta(t, 0.0, assetSimilarity("", "auth api"), 1e-9)

	partial := assetSimilarity("User Authentication API", "Admin Authentication API")
	assert.Greater(t, partial, 0.0)
	assert.Less(t, partial, 1.0)
}
