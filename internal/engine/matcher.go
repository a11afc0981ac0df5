package engine

import (
	"sort"
	"strings"
)

// minMatchConfidence is the floor below which a pattern match is discarded.
const minMatchConfidence = 0.3

// PatternScore is one matched pattern with its confidence.
type PatternScore struct {
	PatternID  string  `json:"pattern_id"`
	Confidence float64 `json:"confidence"`
}

// MatchResult is the ordered output of the pattern matcher, sorted descending
// by confidence with catalog declaration order breaking ties. It may be empty.
type MatchResult []PatternScore

// Primary returns the highest-confidence match, if any.
func (m MatchResult) Primary() (PatternScore, bool) {
	if len(m) == 0 {
		return PatternScore{}, false
	}
	return m[0], true
}

// PatternIDs returns the matched pattern identifiers in rank order.
func (m MatchResult) PatternIDs() []string {
	ids := make([]string, len(m))
	for i, ps := range m {
		ids[i] = ps.PatternID
	}
	return ids
}

// normalizeInput joins the three text inputs and lowercases the result.
// Empty fields are simply absent from the joined text.
func normalizeInput(asset, flow, trustBoundary string) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{asset, flow, trustBoundary} {
		if t := strings.TrimSpace(s); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Match scans the input text against every pattern in the catalog.
//
// A pattern's raw score is the sum of the weights of its rules that hit,
// capped at 1.0, then multiplied by the pattern's baseline confidence.
// Matches below minMatchConfidence are dropped. Pure function; identical
// input always yields an identical result.
func (e *Engine) Match(asset, flow, trustBoundary string) MatchResult {
	text := normalizeInput(asset, flow, trustBoundary)
	if text == "" {
		return nil
	}

	var result MatchResult
	for _, p := range e.catalog.Patterns() {
		raw := 0.0
		for _, rule := range p.Rules {
			if rule.hits(text) {
				raw += rule.Weight
			}
		}
		if raw > 1.0 {
			raw = 1.0
		}
		conf := raw * p.Baseline
		if conf < minMatchConfidence {
			continue
		}
		result = append(result, PatternScore{PatternID: p.ID, Confidence: conf})
	}

	// Stable sort keeps catalog declaration order for equal confidences.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Confidence > result[j].Confidence
	})
	return result
}
