// Package service contains the business logic of the triage platform. It
// glues the analysis engine to persistence and is the only layer that talks
// to both.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/kestrelsec/kestrel/internal/engine"
	"github.com/kestrelsec/kestrel/internal/scanimport"
	"github.com/kestrelsec/kestrel/internal/triage/model"
	"go.uber.org/zap"
)

// threatRepo is the persistence interface for threats.
// *repository.ThreatRepository satisfies this interface.
type threatRepo interface {
	Create(ctx context.Context, t *model.Threat) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Threat, error)
	List(ctx context.Context, riskLevel, status string, limit, offset int) ([]*model.Threat, error)
	ListAll(ctx context.Context) ([]*model.Threat, error)
	UpdateScores(ctx context.Context, t *model.Threat) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// findingRepo is the persistence interface for scanner findings.
// *repository.FindingRepository satisfies this interface.
type findingRepo interface {
	Create(ctx context.Context, f *model.Finding) error
	CreateBatch(ctx context.Context, findings []*model.Finding) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Finding, error)
	List(ctx context.Context, tool string, limit, offset int) ([]*model.Finding, error)
}

// linkRepo is the persistence interface for threat/finding links.
// *repository.LinkRepository satisfies this interface.
type linkRepo interface {
	Create(ctx context.Context, l *model.VulnerabilityLink) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.VulnerabilityLink, error)
	List(ctx context.Context, threatID, findingID *uuid.UUID, limit, offset int) ([]*model.VulnerabilityLink, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.LinkStatus) (*model.VulnerabilityLink, error)
}

// SimilarThreat pairs a ranked similarity score with the full stored threat.
type SimilarThreat struct {
	Threat *model.Threat `json:"threat"`
	Score  float64       `json:"score"`
}

// CorrelationCandidate is a proposed link between a finding and a stored
// threat, enriched with the threat record for display.
type CorrelationCandidate struct {
	Threat     *model.Threat `json:"threat"`
	Similarity float64       `json:"similarity"`
	Patterns   []string      `json:"patterns"`
}

// ImportResult summarizes one SARIF import.
type ImportResult struct {
	Tool     string           `json:"tool"`
	Imported int              `json:"imported"`
	Findings []*model.Finding `json:"findings"`
}

// TriageService contains the business logic for threat analysis, finding
// ingestion, and correlation.
type TriageService struct {
	threats  threatRepo
	findings findingRepo
	links    linkRepo
	engine   *engine.Engine
	logger   *zap.Logger
}

// NewTriageService creates a new TriageService. eng may be nil, in which
// case an engine over the built-in catalog is used.
func NewTriageService(threats threatRepo, findings findingRepo, links linkRepo, eng *engine.Engine, logger *zap.Logger) *TriageService {
	if eng == nil {
		eng = engine.New(nil)
	}
	return &TriageService{
		threats:  threats,
		findings: findings,
		links:    links,
		engine:   eng,
		logger:   logger,
	}
}

// Engine returns the analysis engine, used by handlers that expose the
// pattern catalog.
func (s *TriageService) Engine() *engine.Engine { return s.engine }

// Analyze runs the full analysis pipeline on the described threat and
// persists the result as a new open threat record.
func (s *TriageService) Analyze(ctx context.Context, req *model.AnalyzeRequest) (*model.Threat, error) {
	analysis, err := s.engine.Analyze(engine.AnalysisInput{
		Asset:         req.Asset,
		Flow:          req.Flow,
		TrustBoundary: req.TrustBoundary,
		Overrides:     req.Overrides,
	})
	if err != nil {
		var invalid *engine.InvalidInputError
		if errors.As(err, &invalid) {
			return nil, &model.ErrValidation{Msg: invalid.Error()}
		}
		return nil, fmt.Errorf("analyze: %w", err)
	}

	threat := &model.Threat{
		Asset:         req.Asset,
		Flow:          req.Flow,
		TrustBoundary: req.TrustBoundary,
		Stride:        analysis.Stride,
		Suggestion:    analysis.Suggestion,
		Scores:        analysis.Scores,
		Total:         analysis.Total,
		RiskLevel:     analysis.RiskLevel,
		Mitigations:   analysis.Mitigations,
		Status:        model.ThreatStatusOpen,
	}
	if err := s.threats.Create(ctx, threat); err != nil {
		s.logger.Error("failed to create threat", zap.Error(err))
		return nil, fmt.Errorf("create threat: %w", err)
	}

	s.logger.Info("threat analyzed",
		zap.String("id", threat.ID.String()),
		zap.String("asset", threat.Asset),
		zap.String("risk_level", string(threat.RiskLevel)),
		zap.Float64("total", threat.Total),
	)
	return threat, nil
}

// Get retrieves a threat by its UUID.
func (s *TriageService) Get(ctx context.Context, id uuid.UUID) (*model.Threat, error) {
	return s.threats.GetByID(ctx, id)
}

// List returns a paginated list of threats, optionally filtered by risk
// level and status.
func (s *TriageService) List(ctx context.Context, riskLevel, status string, limit, offset int) ([]*model.Threat, error) {
	return s.threats.List(ctx, riskLevel, status, limit, offset)
}

// UpdateScores applies reviewer score edits to a stored threat. Values are
// clamped to the valid range; total and risk level are recomputed, never
// taken from the caller. The suggestion audit record is left untouched.
func (s *TriageService) UpdateScores(ctx context.Context, id uuid.UUID, req *model.UpdateScoresRequest) (*model.Threat, error) {
	threat, err := s.threats.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != "" {
		switch req.Status {
		case model.ThreatStatusOpen, model.ThreatStatusMitigated, model.ThreatStatusAccepted:
		default:
			return nil, &model.ErrValidation{Msg: fmt.Sprintf("unknown status %q", req.Status)}
		}
		threat.Status = req.Status
	}

	threat.Scores = threat.Scores.Apply(req.Scores)
	threat.Total = threat.Scores.Total()
	threat.RiskLevel = engine.RiskLevelFor(threat.Total)

	if err := s.threats.UpdateScores(ctx, threat); err != nil {
		return nil, err
	}

	s.logger.Info("threat scores updated",
		zap.String("id", id.String()),
		zap.Float64("total", threat.Total),
		zap.String("risk_level", string(threat.RiskLevel)),
	)
	return threat, nil
}

// Delete permanently removes a threat record.
func (s *TriageService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.threats.Delete(ctx, id)
}

// Similar ranks all other stored threats by similarity to the given one.
// The corpus is a point-in-time snapshot of the store.
func (s *TriageService) Similar(ctx context.Context, id uuid.UUID, limit int) ([]SimilarThreat, error) {
	target, err := s.threats.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	corpus, index, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	ranked := s.engine.RankSimilar(target.Record(), corpus)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]SimilarThreat, 0, len(ranked))
	for _, r := range ranked {
		t, ok := index[r.ThreatID]
		if !ok {
			continue
		}
		results = append(results, SimilarThreat{Threat: t, Score: r.Score})
	}
	return results, nil
}

// IngestFinding stores a single scanner finding.
func (s *TriageService) IngestFinding(ctx context.Context, req *model.CreateFindingRequest) (*model.Finding, error) {
	f := &model.Finding{
		Tool:        req.Tool,
		RuleID:      req.RuleID,
		Title:       req.Title,
		Description: req.Description,
		Severity:    req.Severity,
	}
	if f.Severity == "" {
		f.Severity = "medium"
	}
	if err := s.findings.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("create finding: %w", err)
	}
	s.logger.Info("finding ingested",
		zap.String("id", f.ID.String()),
		zap.String("tool", f.Tool),
		zap.String("severity", f.Severity),
	)
	return f, nil
}

// ImportSARIF parses a SARIF report and stores every unsuppressed result as
// a finding in one batch.
func (s *TriageService) ImportSARIF(ctx context.Context, r io.Reader, fallbackTool string) (*ImportResult, error) {
	findings, err := scanimport.ParseSARIF(r, fallbackTool)
	if err != nil {
		return nil, &model.ErrValidation{Msg: err.Error()}
	}
	if len(findings) == 0 {
		return &ImportResult{Tool: fallbackTool}, nil
	}
	if err := s.findings.CreateBatch(ctx, findings); err != nil {
		return nil, fmt.Errorf("store findings: %w", err)
	}

	tool := findings[0].Tool
	s.logger.Info("sarif report imported",
		zap.String("tool", tool),
		zap.Int("findings", len(findings)),
	)
	return &ImportResult{Tool: tool, Imported: len(findings), Findings: findings}, nil
}

// GetFinding retrieves a finding by its UUID.
func (s *TriageService) GetFinding(ctx context.Context, id uuid.UUID) (*model.Finding, error) {
	return s.findings.GetByID(ctx, id)
}

// ListFindings returns a paginated list of findings, optionally filtered by
// tool name.
func (s *TriageService) ListFindings(ctx context.Context, tool string, limit, offset int) ([]*model.Finding, error) {
	return s.findings.List(ctx, tool, limit, offset)
}

// Correlate proposes threat links for a stored finding. Nothing is
// persisted; callers confirm a candidate via LinkFinding.
func (s *TriageService) Correlate(ctx context.Context, findingID uuid.UUID) ([]CorrelationCandidate, error) {
	finding, err := s.findings.GetByID(ctx, findingID)
	if err != nil {
		return nil, err
	}
	corpus, index, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	candidates := s.engine.Correlate(finding.EngineFinding(), corpus)
	results := make([]CorrelationCandidate, 0, len(candidates))
	for _, c := range candidates {
		t, ok := index[c.ThreatID]
		if !ok {
			continue
		}
		results = append(results, CorrelationCandidate{
			Threat:     t,
			Similarity: c.Similarity,
			Patterns:   c.Patterns,
		})
	}

	s.logger.Info("finding correlated",
		zap.String("finding_id", findingID.String()),
		zap.Int("candidates", len(results)),
	)
	return results, nil
}

// LinkFinding persists a confirmed threat/finding association. Both sides
// must exist.
func (s *TriageService) LinkFinding(ctx context.Context, req *model.CreateLinkRequest) (*model.VulnerabilityLink, error) {
	if _, err := s.threats.GetByID(ctx, req.ThreatID); err != nil {
		return nil, fmt.Errorf("threat %s: %w", req.ThreatID, err)
	}
	if _, err := s.findings.GetByID(ctx, req.FindingID); err != nil {
		return nil, fmt.Errorf("finding %s: %w", req.FindingID, err)
	}

	link := &model.VulnerabilityLink{
		ThreatID:   req.ThreatID,
		FindingID:  req.FindingID,
		Similarity: req.Similarity,
		Status:     model.LinkStatusLinked,
	}
	if err := s.links.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("create link: %w", err)
	}

	s.logger.Info("finding linked",
		zap.String("link_id", link.ID.String()),
		zap.String("threat_id", req.ThreatID.String()),
		zap.String("finding_id", req.FindingID.String()),
	)
	return link, nil
}

// UpdateLinkStatus transitions a link's review state.
func (s *TriageService) UpdateLinkStatus(ctx context.Context, id uuid.UUID, status model.LinkStatus) (*model.VulnerabilityLink, error) {
	if !model.ValidLinkStatus(status) {
		return nil, &model.ErrValidation{Msg: fmt.Sprintf("unknown link status %q", status)}
	}
	return s.links.UpdateStatus(ctx, id, status)
}

// ListLinks returns links, optionally filtered by threat or finding.
func (s *TriageService) ListLinks(ctx context.Context, threatID, findingID *uuid.UUID, limit, offset int) ([]*model.VulnerabilityLink, error) {
	return s.links.List(ctx, threatID, findingID, limit, offset)
}

// snapshot loads the full threat corpus in engine form plus an ID index for
// rehydrating results.
func (s *TriageService) snapshot(ctx context.Context) ([]engine.ThreatRecord, map[string]*model.Threat, error) {
	all, err := s.threats.ListAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load threat corpus: %w", err)
	}
	corpus := make([]engine.ThreatRecord, 0, len(all))
	index := make(map[string]*model.Threat, len(all))
	for _, t := range all {
		corpus = append(corpus, t.Record())
		index[t.ID.String()] = t
	}
	return corpus, index, nil
}
