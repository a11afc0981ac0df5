package engine

import (
	"fmt"
	"math"
	"strings"
)

// Dimension names one of the five DREAD scoring dimensions.
type Dimension string

const (
	DimDamage          Dimension = "damage"
	DimReproducibility Dimension = "reproducibility"
	DimExploitability  Dimension = "exploitability"
	DimAffectedUsers   Dimension = "affected_users"
	DimDiscoverability Dimension = "discoverability"
)

// dimensions lists all five dimensions in canonical order.
var dimensions = []Dimension{
	DimDamage, DimReproducibility, DimExploitability, DimAffectedUsers, DimDiscoverability,
}

// DreadScores holds the five DREAD dimension values, each an integer in [0,10].
type DreadScores struct {
	Damage          int `json:"damage"`
	Reproducibility int `json:"reproducibility"`
	Exploitability  int `json:"exploitability"`
	AffectedUsers   int `json:"affected_users"`
	Discoverability int `json:"discoverability"`
}

// neutralScores is the baseline used when no pattern matched.
var neutralScores = DreadScores{5, 5, 5, 5, 5}

// Get returns the value of the named dimension.
func (s DreadScores) Get(d Dimension) int {
	switch d {
	case DimDamage:
		return s.Damage
	case DimReproducibility:
		return s.Reproducibility
	case DimExploitability:
		return s.Exploitability
	case DimAffectedUsers:
		return s.AffectedUsers
	case DimDiscoverability:
		return s.Discoverability
	}
	return 0
}

// set assigns the named dimension, clamped to [0,10].
func (s *DreadScores) set(d Dimension, v int) {
	v = clampScore(v)
	switch d {
	case DimDamage:
		s.Damage = v
	case DimReproducibility:
		s.Reproducibility = v
	case DimExploitability:
		s.Exploitability = v
	case DimAffectedUsers:
		s.AffectedUsers = v
	case DimDiscoverability:
		s.Discoverability = v
	}
}

// Apply returns a copy with the given per-dimension overrides applied.
// Values are clamped to [0,10]; unknown dimension names are ignored.
func (s DreadScores) Apply(overrides map[Dimension]int) DreadScores {
	for _, d := range dimensions {
		if v, ok := overrides[d]; ok {
			s.set(d, v)
		}
	}
	return s
}

// Total returns the arithmetic mean of the five dimensions, rounded to one
// decimal place.
func (s DreadScores) Total() float64 {
	sum := s.Damage + s.Reproducibility + s.Exploitability + s.AffectedUsers + s.Discoverability
	return math.Round(float64(sum)/5*10) / 10
}

// Clamped returns a copy with every dimension clamped to [0,10].
func (s DreadScores) Clamped() DreadScores {
	return DreadScores{
		Damage:          clampScore(s.Damage),
		Reproducibility: clampScore(s.Reproducibility),
		Exploitability:  clampScore(s.Exploitability),
		AffectedUsers:   clampScore(s.AffectedUsers),
		Discoverability: clampScore(s.Discoverability),
	}
}

func (s DreadScores) validate() error {
	for _, d := range dimensions {
		if v := s.Get(d); v < 0 || v > 10 {
			return fmt.Errorf("dimension %s: score %d out of [0,10]", d, v)
		}
	}
	return nil
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// RiskLevel is the discrete band derived from a total DREAD score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskLevelFor maps a total score to its band. Thresholds are strict: a total
// of exactly 7.0 is medium and exactly 4.0 is low.
func RiskLevelFor(total float64) RiskLevel {
	switch {
	case total > 7.0:
		return RiskHigh
	case total > 4.0:
		return RiskMedium
	default:
		return RiskLow
	}
}

// DreadSuggestion is the engine's suggested DREAD assessment, with
// per-dimension confidence and explanation kept for audit even when the
// caller overrides the scores.
type DreadSuggestion struct {
	Scores           DreadScores           `json:"scores"`
	Confidence       map[Dimension]float64 `json:"confidence"`
	Explanations     map[Dimension]string  `json:"explanations"`
	PatternContext   string                `json:"pattern_context,omitempty"`
	ComponentContext string                `json:"component_context,omitempty"`
}

// archetypeAdjustments are the fixed contextual score deltas applied on top of
// the pattern baseline when an archetype is detected. Scores are clamped to
// [0,10] after each adjustment.
var archetypeAdjustments = map[Archetype]map[Dimension]int{
	ArchetypeAuthentication: {DimAffectedUsers: 2, DimDamage: 1},
	ArchetypeDatabase:       {DimDamage: 2, DimAffectedUsers: 1},
	ArchetypeAuthorization:  {DimDamage: 1},
	ArchetypeAPI:            {DimDiscoverability: 1, DimExploitability: 1},
	ArchetypeNetwork:        {DimDiscoverability: 1},
	ArchetypeFrontend:       {DimDiscoverability: 1},
	ArchetypeFilesystem:     {DimDamage: 1},
}

// dimensionArchetypes lists which archetypes corroborate each dimension's
// rationale; each corroborating archetype raises that dimension's confidence.
var dimensionArchetypes = map[Dimension][]Archetype{
	DimDamage:          {ArchetypeDatabase, ArchetypeAuthorization, ArchetypeFilesystem},
	DimReproducibility: {ArchetypeAPI},
	DimExploitability:  {ArchetypeAPI, ArchetypeFrontend},
	DimAffectedUsers:   {ArchetypeAuthentication, ArchetypeDatabase},
	DimDiscoverability: {ArchetypeAPI, ArchetypeNetwork, ArchetypeFrontend},
}

// ScoreDread derives a DREAD suggestion and the final score set.
//
// The suggestion starts from the primary matched pattern's defaults (neutral
// 5s when nothing matched), applies archetype adjustments, and computes
// per-dimension confidence and a bucketed explanation. Overrides, when
// supplied, replace the suggested value for that dimension in the returned
// final scores; out-of-range override values are clamped rather than
// rejected, and the suggestion keeps the original values for audit.
func (e *Engine) ScoreDread(matches MatchResult, components []Archetype, overrides map[Dimension]int) (DreadSuggestion, DreadScores) {
	scores := neutralScores
	baseConf := 0.3 // low confidence when on the neutral fallback baseline
	primaryID := ""

	if primary, ok := matches.Primary(); ok {
		if p, found := e.catalog.Get(primary.PatternID); found {
			scores = p.Defaults
			baseConf = primary.Confidence
			primaryID = p.ID
		}
	}

	// Contextual adjustments, clamping after each step.
	for _, a := range archetypeOrder {
		if !hasArchetype(components, a) {
			continue
		}
		for _, d := range dimensions {
			if delta, ok := archetypeAdjustments[a][d]; ok {
				scores.set(d, scores.Get(d)+delta)
			}
		}
	}
	if !networkFacing(components) {
		scores.set(DimDiscoverability, scores.Discoverability-2)
	}

	confidence := make(map[Dimension]float64, len(dimensions))
	explanations := make(map[Dimension]string, len(dimensions))
	for _, d := range dimensions {
		c := baseConf
		for _, a := range dimensionArchetypes[d] {
			if hasArchetype(components, a) {
				c += 0.1
			}
		}
		if c > 1.0 {
			c = 1.0
		}
		confidence[d] = c
		explanations[d] = explainDimension(d, scores.Get(d), primaryID, components)
	}

	suggestion := DreadSuggestion{
		Scores:       scores,
		Confidence:   confidence,
		Explanations: explanations,
	}
	if primaryID != "" {
		suggestion.PatternContext = "baseline from pattern " + primaryID
	} else {
		suggestion.PatternContext = "no pattern matched; neutral baseline"
	}
	if len(components) > 0 {
		suggestion.ComponentContext = "adjusted for components: " + joinArchetypes(components)
	}

	final := scores
	for d, v := range overrides {
		final.set(d, v)
	}
	return suggestion, final
}

// explainDimension returns a canned sentence for the dimension, selected by
// score bucket (0–3, 4–6, 7–10).
func explainDimension(d Dimension, score int, primaryID string, components []Archetype) string {
	subject := "this scenario"
	if primaryID != "" {
		subject = primaryID
	}

	var phrase string
	switch {
	case score >= 7:
		phrase = highPhrases[d]
	case score >= 4:
		phrase = mediumPhrases[d]
	default:
		phrase = lowPhrases[d]
	}

	s := fmt.Sprintf("%s: %s", subject, phrase)
	if len(components) > 0 {
		s += " (components: " + joinArchetypes(components) + ")"
	}
	return s
}

var highPhrases = map[Dimension]string{
	DimDamage:          "successful exploitation causes severe damage to data or system integrity",
	DimReproducibility: "the attack works reliably on nearly every attempt",
	DimExploitability:  "little skill or tooling is needed to exploit this",
	DimAffectedUsers:   "most or all users of the system are affected",
	DimDiscoverability: "the weakness is easy to find with common scanning techniques",
}

var mediumPhrases = map[Dimension]string{
	DimDamage:          "exploitation causes meaningful but contained damage",
	DimReproducibility: "the attack succeeds under common but not all conditions",
	DimExploitability:  "moderate skill or access is required to exploit this",
	DimAffectedUsers:   "a significant subset of users could be affected",
	DimDiscoverability: "the weakness is findable with targeted probing",
}

var lowPhrases = map[Dimension]string{
	DimDamage:          "impact is limited and recoverable",
	DimReproducibility: "the attack requires rare timing or preconditions",
	DimExploitability:  "exploitation demands specialist skill or insider access",
	DimAffectedUsers:   "few users would be affected",
	DimDiscoverability: "the weakness is unlikely to be found without source access",
}

func joinArchetypes(set []Archetype) string {
	parts := make([]string, len(set))
	for i, a := range set {
		parts[i] = string(a)
	}
	return strings.Join(parts, ", ")
}
