package engine

import (
	"sort"
	"strings"
)

// Correlation blend weights. Category overlap carries the signal; the pattern
// match confidence scales how much the engine trusts its reading of the
// finding text.
const (
	weightCorrCategories = 0.6
	weightCorrConfidence = 0.4

	// minCorrelation is the confidence floor for proposing a link.
	minCorrelation = 0.5
)

// Finding is one externally supplied scanner result, already normalized by
// the scan-ingestion collaborator. The engine is agnostic to which tool
// produced it.
type Finding struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Tool        string `json:"tool"`
}

// LinkCandidate is a proposed association between a finding and a stored
// threat. Creating the persisted link, and any later status transition, is
// the caller's responsibility.
type LinkCandidate struct {
	ThreatID   string   `json:"threat_id"`
	Similarity float64  `json:"similarity"`
	Patterns   []string `json:"patterns"`
}

// Correlate proposes links between a scan finding and stored threats.
//
// The finding text is run through the pattern matcher; the union of the
// matched patterns' STRIDE categories is then compared against each threat's
// category set. Only the STRIDE/pattern-overlap signal is used — DREAD and
// asset fields do not exist on a raw finding. Candidates below
// minCorrelation are dropped.
func (e *Engine) Correlate(finding Finding, corpus []ThreatRecord) []LinkCandidate {
	matches := e.Match(finding.Title, finding.Description, "")
	if len(matches) == 0 {
		return nil
	}

	findingCats := make(map[Category]bool)
	for _, ps := range matches {
		p, ok := e.catalog.Get(ps.PatternID)
		if !ok {
			continue
		}
		for _, cat := range p.Categories {
			findingCats[cat] = true
		}
	}
	catList := make([]Category, 0, len(findingCats))
	for c := range findingCats {
		catList = append(catList, c)
	}

	primary, _ := matches.Primary()
	sevWeight := severityWeight(finding.Severity)

	var candidates []LinkCandidate
	for _, threat := range corpus {
		overlap := jaccardCategories(catList, threat.Categories)
		score := (weightCorrCategories*overlap + weightCorrConfidence*primary.Confidence) * sevWeight
		if score < minCorrelation {
			continue
		}
		candidates = append(candidates, LinkCandidate{
			ThreatID:   threat.ID,
			Similarity: score,
			Patterns:   matches.PatternIDs(),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	return candidates
}

// severityWeight discounts correlation confidence for low-severity findings.
// Unknown labels get full weight rather than silently suppressing links.
func severityWeight(severity string) float64 {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "medium", "moderate", "warning":
		return 0.9
	case "low", "note", "info", "informational":
		return 0.8
	default:
		return 1.0
	}
}
