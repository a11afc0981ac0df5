package engine

import (
	"math"
	"sort"
	"strings"
)

// Similarity signal weights. Text and STRIDE overlap dominate; raw score
// closeness and asset naming are secondary signals.
const (
	weightText   = 0.35
	weightStride = 0.30
	weightDread  = 0.20
	weightAsset  = 0.15

	// minSimilarity is the floor below which candidates are excluded.
	minSimilarity = 0.30
)

// maxDreadDistance is the largest possible Euclidean distance between two
// five-dimension score vectors with values in [0,10].
var maxDreadDistance = math.Sqrt(5 * 100)

// ThreatRecord is the engine's read-only view of a stored threat, used for
// similarity ranking and correlation. The corpus is supplied per call by the
// persistence collaborator; the engine never owns or mutates it.
type ThreatRecord struct {
	ID            string
	Asset         string
	Flow          string
	TrustBoundary string
	Categories    []Category
	Scores        DreadScores
}

// SimilarityResult is one ranked candidate with its blended score.
type SimilarityResult struct {
	ThreatID string  `json:"threat_id"`
	Score    float64 `json:"score"`
}

// RankSimilar ranks corpus entries by similarity to target, descending.
// Candidates scoring below minSimilarity, and the target itself, are
// excluded. Each pairwise signal is symmetric.
func (e *Engine) RankSimilar(target ThreatRecord, corpus []ThreatRecord) []SimilarityResult {
	var results []SimilarityResult
	for _, cand := range corpus {
		if cand.ID != "" && cand.ID == target.ID {
			continue
		}
		score := similarity(target, cand)
		if score < minSimilarity {
			continue
		}
		results = append(results, SimilarityResult{ThreatID: cand.ID, Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// similarity blends the four normalized signals.
func similarity(a, b ThreatRecord) float64 {
	text := jaccardTokens(a.Flow, b.Flow)
	stride := jaccardCategories(a.Categories, b.Categories)
	dread := 1 - dreadDistance(a.Scores, b.Scores)/maxDreadDistance
	asset := assetSimilarity(a.Asset, b.Asset)

	return weightText*text + weightStride*stride + weightDread*dread + weightAsset*asset
}

// jaccardTokens is token-overlap similarity between two free-text fields.
func jaccardTokens(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 0
	}
	inter := 0
	for tok := range ta {
		if tb[tok] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func jaccardCategories(a, b []Category) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := make(map[Category]bool, len(a))
	for _, c := range a {
		setA[c] = true
	}
	inter := 0
	setB := make(map[Category]bool, len(b))
	for _, c := range b {
		if setB[c] {
			continue
		}
		setB[c] = true
		if setA[c] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func dreadDistance(a, b DreadScores) float64 {
	sum := 0.0
	for _, d := range dimensions {
		diff := float64(a.Get(d) - b.Get(d))
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// assetSimilarity gives full credit for a case-insensitive exact match and
// partial credit for token overlap between asset names.
func assetSimilarity(a, b string) float64 {
	na, nb := strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	return jaccardTokens(na, nb)
}

// tokenSet splits text into a set of lowercase alphanumeric tokens, dropping
// one-character tokens and common stopwords.
func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if len(tok) <= 1 || stopwords[tok] {
			continue
		}
		set[tok] = true
	}
	return set
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "to": true, "of": true, "in": true,
	"on": true, "is": true, "are": true, "and": true, "or": true, "for": true,
	"with": true, "via": true, "by": true, "from": true, "that": true,
	"this": true, "it": true, "its": true, "be": true, "as": true,
}
