package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Categories and the confidence map must always be the same set, in every
// path through the categorizer.
func TestStrideCategoriesMatchConfidenceKeys(t *testing.T) {
	e := New(nil)

	inputs := []struct {
		asset, flow string
	}{
		{"User Authentication API", "string-concatenated sql query without parameterization"},
		{"Widget", "does a thing"},
		{"Internal batch job", "reads a file and modifies records"},
		{"Payment gateway", "cross-site scripting in the confirmation web page"},
	}

	for _, in := range inputs {
		matches := e.Match(in.asset, in.flow, "")
		components := e.DetectComponents(in.asset, in.flow, "")
		analysis := e.CategorizeStride(matches, components, in.flow)

		assert.Len(t, analysis.Categories, len(analysis.Confidence))
		for _, cat := range analysis.Categories {
			conf, ok := analysis.Confidence[cat]
			assert.True(t, ok, "category %s missing from confidence map", cat)
			assert.GreaterOrEqual(t, conf, 0.0)
			assert.LessOrEqual(t, conf, 1.0)
		}
	}
}

func TestStridePatternAndArchetypeUnion(t *testing.T) {
	e := New(nil)

	matches := e.Match("User Authentication API", "string-concatenated sql query without parameterization", "")
	components := e.DetectComponents("User Authentication API", "string-concatenated sql query without parameterization", "")
	analysis := e.CategorizeStride(matches, components, "")

	// sql_injection brings tampering/information_disclosure/elevation at
	// pattern confidence; authentication archetype adds spoofing at the
	// fixed archetype confidence.
	assert.Contains(t, analysis.Categories, CategoryTampering)
	assert.Contains(t, analysis.Categories, CategoryInformationDisclosure)
	assert.Contains(t, analysis.Categories, CategorySpoofing)

	assert.Greater(t, analysis.Confidence[CategoryTampering], archetypeConfidence)
	assert.Equal(t, archetypeConfidence, analysis.Confidence[CategorySpoofing])
}

func TestStrideConfidenceIsMaxOfSignals(t *testing.T) {
	e := New(nil)

	// Database archetype alone gives tampering at 0.5; the sql_injection
	// pattern must raise it to the pattern confidence, not average it down.
	matches := e.Match("orders database", "sql injection via unsanitized query", "")
	components := e.DetectComponents("orders database", "sql injection via unsanitized query", "")
	require.NotEmpty(t, matches)

	analysis := e.CategorizeStride(matches, components, "")
	assert.InDelta(t, matches[0].Confidence, analysis.Confidence[CategoryTampering], 1e-9)
}

func TestStrideFallbackKeywordScan(t *testing.T) {
	e := New(nil)

	// No pattern, no archetype, but the flow mentions leaking.
	analysis := e.CategorizeStride(nil, nil, "occasionally leaks details")
	require.Contains(t, analysis.Categories, CategoryInformationDisclosure)
	assert.InDelta(t, fallbackConfidence, analysis.Confidence[CategoryInformationDisclosure], 1e-9)
}

func TestStrideDefaultForUnrecognizedInput(t *testing.T) {
	e := New(nil)

	analysis := e.CategorizeStride(nil, nil, "does a thing")
	require.NotEmpty(t, analysis.Categories)
	assert.ElementsMatch(t, []Category{CategoryTampering, CategoryInformationDisclosure}, analysis.Categories)
	for _, cat := range analysis.Categories {
		assert.InDelta(t, defaultConfidence, analysis.Confidence[cat], 1e-9)
	}
}

func TestStrideEmptyFlowYieldsEmptySet(t *testing.T) {
	e := New(nil)

	analysis := e.CategorizeStride(nil, nil, "   ")
	assert.Empty(t, analysis.Categories)
	assert.Empty(t, analysis.Confidence)
}

func TestStrideCanonicalOrdering(t *testing.T) {
	e := New(nil)

	matches := e.Match("auth service", "sql injection and authentication bypass on the login api", "")
	components := e.DetectComponents("auth service", "sql injection and authentication bypass on the login api", "")
	analysis := e.CategorizeStride(matches, components, "")

	for i := 1; i < len(analysis.Categories); i++ {
		assert.Less(t, strideOrder[analysis.Categories[i-1]], strideOrder[analysis.Categories[i]])
	}
}
