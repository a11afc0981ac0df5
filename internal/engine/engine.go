package engine

// Engine is the threat analysis entry point. It holds only the immutable
// pattern catalog, so one Engine serves any number of concurrent callers.
type Engine struct {
	catalog *Catalog
}

// New creates an Engine bound to the given catalog. Pass DefaultCatalog()
// unless a deployment supplies an overlay.
func New(catalog *Catalog) *Engine {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Engine{catalog: catalog}
}

// Catalog returns the engine's pattern catalog.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// AnalysisInput is one analysis request. Asset and Flow are required;
// TrustBoundary and Overrides are optional.
type AnalysisInput struct {
	Asset         string            `json:"asset"`
	Flow          string            `json:"flow"`
	TrustBoundary string            `json:"trust_boundary,omitempty"`
	Overrides     map[Dimension]int `json:"overrides,omitempty"`
}

// Analysis is the full result of one engine run.
type Analysis struct {
	Stride      StrideAnalysis   `json:"stride"`
	Suggestion  DreadSuggestion  `json:"suggestion"`
	Scores      DreadScores      `json:"scores"`
	Total       float64          `json:"total"`
	RiskLevel   RiskLevel        `json:"risk_level"`
	Mitigations []MitigationItem `json:"mitigations"`
}

// Analyze runs the full pipeline: pattern matching and component detection,
// STRIDE categorization, DREAD scoring with optional overrides, and
// mitigation recommendation.
//
// The only error condition is missing required text (InvalidInputError);
// every degenerate state short of that — no match, no archetype — degrades
// to low-confidence fallbacks and still produces a complete Analysis.
func (e *Engine) Analyze(in AnalysisInput) (*Analysis, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	matches := e.Match(in.Asset, in.Flow, in.TrustBoundary)
	components := e.DetectComponents(in.Asset, in.Flow, in.TrustBoundary)
	stride := e.CategorizeStride(matches, components, in.Flow)
	suggestion, scores := e.ScoreDread(matches, components, in.Overrides)

	total := scores.Total()
	risk := RiskLevelFor(total)
	mitigations := e.Recommend(matches, stride, components, risk)

	return &Analysis{
		Stride:      stride,
		Suggestion:  suggestion,
		Scores:      scores,
		Total:       total,
		RiskLevel:   risk,
		Mitigations: mitigations,
	}, nil
}
