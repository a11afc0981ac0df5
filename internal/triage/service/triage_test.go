package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/kestrelsec/kestrel/internal/engine"
	"github.com/kestrelsec/kestrel/internal/triage/model"
	"github.com/kestrelsec/kestrel/internal/triage/repository"
	"github.com/kestrelsec/kestrel/internal/triage/service"
	"go.uber.org/zap"
)

// In-memory stubs standing in for the pgx repositories.

type stubThreatRepo struct {
	threats map[uuid.UUID]*model.Threat
	order   []uuid.UUID
}

func newStubThreatRepo() *stubThreatRepo {
	return &stubThreatRepo{threats: make(map[uuid.UUID]*model.Threat)}
}

func (r *stubThreatRepo) Create(_ context.Context, t *model.Threat) error {
	t.ID = uuid.New()
	r.threats[t.ID] = t
	r.order = append(r.order, t.ID)
	return nil
}

func (r *stubThreatRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Threat, error) {
	t, ok := r.threats[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t, nil
}

func (r *stubThreatRepo) List(_ context.Context, riskLevel, status string, limit, offset int) ([]*model.Threat, error) {
	var out []*model.Threat
	for _, id := range r.order {
		t := r.threats[id]
		if riskLevel != "" && string(t.RiskLevel) != riskLevel {
			continue
		}
		if status != "" && string(t.Status) != status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *stubThreatRepo) ListAll(_ context.Context) ([]*model.Threat, error) {
	var out []*model.Threat
	for _, id := range r.order {
		out = append(out, r.threats[id])
	}
	return out, nil
}

func (r *stubThreatRepo) UpdateScores(_ context.Context, t *model.Threat) error {
	if _, ok := r.threats[t.ID]; !ok {
		return repository.ErrNotFound
	}
	r.threats[t.ID] = t
	return nil
}

func (r *stubThreatRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.threats[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.threats, id)
	return nil
}

type stubFindingRepo struct {
	findings map[uuid.UUID]*model.Finding
}

func newStubFindingRepo() *stubFindingRepo {
	return &stubFindingRepo{findings: make(map[uuid.UUID]*model.Finding)}
}

func (r *stubFindingRepo) Create(_ context.Context, f *model.Finding) error {
	f.ID = uuid.New()
	r.findings[f.ID] = f
	return nil
}

func (r *stubFindingRepo) CreateBatch(ctx context.Context, findings []*model.Finding) error {
	for _, f := range findings {
		if err := r.Create(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func (r *stubFindingRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Finding, error) {
	f, ok := r.findings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return f, nil
}

func (r *stubFindingRepo) List(_ context.Context, tool string, limit, offset int) ([]*model.Finding, error) {
	var out []*model.Finding
	for _, f := range r.findings {
		if tool == "" || f.Tool == tool {
			out = append(out, f)
		}
	}
	return out, nil
}

type stubLinkRepo struct {
	links map[uuid.UUID]*model.VulnerabilityLink
}

func newStubLinkRepo() *stubLinkRepo {
	return &stubLinkRepo{links: make(map[uuid.UUID]*model.VulnerabilityLink)}
}

func (r *stubLinkRepo) Create(_ context.Context, l *model.VulnerabilityLink) error {
	l.ID = uuid.New()
	r.links[l.ID] = l
	return nil
}

func (r *stubLinkRepo) GetByID(_ context.Context, id uuid.UUID) (*model.VulnerabilityLink, error) {
	l, ok := r.links[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return l, nil
}

func (r *stubLinkRepo) List(_ context.Context, threatID, findingID *uuid.UUID, limit, offset int) ([]*model.VulnerabilityLink, error) {
	var out []*model.VulnerabilityLink
	for _, l := range r.links {
		if threatID != nil && l.ThreatID != *threatID {
			continue
		}
		if findingID != nil && l.FindingID != *findingID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *stubLinkRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.LinkStatus) (*model.VulnerabilityLink, error) {
	l, ok := r.links[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	l.Status = status
	return l, nil
}

func newTestService() (*service.TriageService, *stubThreatRepo, *stubFindingRepo, *stubLinkRepo) {
	threats := newStubThreatRepo()
	findings := newStubFindingRepo()
	links := newStubLinkRepo()
	svc := service.NewTriageService(threats, findings, links, nil, zap.NewNop())
	return svc, threats, findings, links
}

func TestAnalyzePersistsThreat(t *testing.T) {
	svc, threats, _, _ := newTestService()

	threat, err := svc.Analyze(context.Background(), &model.AnalyzeRequest{
		Asset: "payments API",
		Flow:  "user-supplied input concatenated into SQL query without parameterization",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if threat.ID == uuid.Nil {
		t.Error("expected assigned ID")
	}
	if threat.Status != model.ThreatStatusOpen {
		t.Errorf("status = %q, want open", threat.Status)
	}
	if threat.RiskLevel != "High" {
		t.Errorf("risk level = %q, want High", threat.RiskLevel)
	}
	if len(threat.Mitigations) == 0 {
		t.Error("expected mitigations")
	}
	if _, ok := threats.threats[threat.ID]; !ok {
		t.Error("threat not persisted")
	}
}

func TestAnalyzeRejectsMissingFields(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Analyze(context.Background(), &model.AnalyzeRequest{Flow: "something"})
	var verr *model.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !strings.Contains(verr.Msg, "asset") {
		t.Errorf("error %q does not name the missing field", verr.Msg)
	}
}

func TestUpdateScoresRecomputesRisk(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	threat, err := svc.Analyze(ctx, &model.AnalyzeRequest{
		Asset: "payments API",
		Flow:  "user-supplied input concatenated into SQL query without parameterization",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if threat.RiskLevel != "High" {
		t.Fatalf("setup: risk level = %q, want High", threat.RiskLevel)
	}

	// Lower every dimension; out-of-range values are clamped.
	updated, err := svc.UpdateScores(ctx, threat.ID, &model.UpdateScoresRequest{
		Scores: map[engine.Dimension]int{
			engine.DimDamage:          2,
			engine.DimReproducibility: 2,
			engine.DimExploitability:  2,
			engine.DimAffectedUsers:   2,
			engine.DimDiscoverability: -5,
		},
		Status: model.ThreatStatusAccepted,
	})
	if err != nil {
		t.Fatalf("UpdateScores: %v", err)
	}
	if updated.Scores.Discoverability != 0 {
		t.Errorf("discoverability = %d, want clamped to 0", updated.Scores.Discoverability)
	}
	if want := 1.6; updated.Total != want {
		t.Errorf("total = %v, want %v", updated.Total, want)
	}
	if updated.RiskLevel != "Low" {
		t.Errorf("risk level = %q, want Low", updated.RiskLevel)
	}
	if updated.Status != model.ThreatStatusAccepted {
		t.Errorf("status = %q, want accepted", updated.Status)
	}
}

func TestUpdateScoresRejectsUnknownStatus(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	threat, err := svc.Analyze(ctx, &model.AnalyzeRequest{Asset: "svc", Flow: "reads data"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	_, err = svc.UpdateScores(ctx, threat.ID, &model.UpdateScoresRequest{
		Scores: map[engine.Dimension]int{},
		Status: "bogus",
	})
	var verr *model.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSimilarRanksAndExcludesSelf(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	mk := func(asset, flow string) *model.Threat {
		th, err := svc.Analyze(ctx, &model.AnalyzeRequest{Asset: asset, Flow: flow})
		if err != nil {
			t.Fatalf("Analyze(%q): %v", asset, err)
		}
		return th
	}

	target := mk("payments API", "user input concatenated into SQL query without parameterization")
	near := mk("payments API", "user input flows into SQL query via string concatenation")
	mk("marketing site", "renders static pages from a content bucket")

	results, err := svc.Similar(ctx, target.ID, 10)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one similar threat")
	}
	if results[0].Threat.ID != near.ID {
		t.Errorf("top result = %s, want %s", results[0].Threat.ID, near.ID)
	}
	for _, r := range results {
		if r.Threat.ID == target.ID {
			t.Error("results include the target itself")
		}
	}
}

func TestImportSARIFStoresFindings(t *testing.T) {
	svc, _, findings, _ := newTestService()

	report := `{"version":"2.1.0","runs":[{"tool":{"driver":{"name":"semgrep"}},"results":[
		{"ruleId":"sqli","level":"error","message":{"text":"SQL injection via string concatenation"}},
		{"ruleId":"xss","level":"warning","message":{"text":"Reflected cross-site scripting"}}
	]}]}`

	res, err := svc.ImportSARIF(context.Background(), strings.NewReader(report), "upload")
	if err != nil {
		t.Fatalf("ImportSARIF: %v", err)
	}
	if res.Tool != "semgrep" {
		t.Errorf("tool = %q, want semgrep", res.Tool)
	}
	if res.Imported != 2 || len(findings.findings) != 2 {
		t.Errorf("imported = %d (stored %d), want 2", res.Imported, len(findings.findings))
	}
}

func TestImportSARIFBadReport(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.ImportSARIF(context.Background(), strings.NewReader("not json"), "upload")
	var verr *model.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCorrelateProposesCandidates(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	xssThreat, err := svc.Analyze(ctx, &model.AnalyzeRequest{
		Asset: "web frontend",
		Flow:  "reflected cross-site scripting through unsanitized html in search results",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := svc.Analyze(ctx, &model.AnalyzeRequest{
		Asset: "ingress",
		Flow:  "denial of service through unbounded request flood",
	}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	finding, err := svc.IngestFinding(ctx, &model.CreateFindingRequest{
		Tool:        "zap",
		Title:       "Cross-site scripting (reflected)",
		Description: "XSS: parameter echoed into the page without output encoding",
		Severity:    "high",
	})
	if err != nil {
		t.Fatalf("IngestFinding: %v", err)
	}

	candidates, err := svc.Correlate(ctx, finding.ID)
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if len(candidates) == 0 {
		t.Fatal("expected candidates")
	}
	if candidates[0].Threat.ID != xssThreat.ID {
		t.Errorf("top candidate = %s, want the xss threat", candidates[0].Threat.ID)
	}
}

func TestLinkLifecycle(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	threat, err := svc.Analyze(ctx, &model.AnalyzeRequest{Asset: "api", Flow: "stores secrets in plaintext logs"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	finding, err := svc.IngestFinding(ctx, &model.CreateFindingRequest{Tool: "gitleaks", Title: "Secret in log statement"})
	if err != nil {
		t.Fatalf("IngestFinding: %v", err)
	}

	link, err := svc.LinkFinding(ctx, &model.CreateLinkRequest{
		ThreatID:   threat.ID,
		FindingID:  finding.ID,
		Similarity: 0.72,
	})
	if err != nil {
		t.Fatalf("LinkFinding: %v", err)
	}
	if link.Status != model.LinkStatusLinked {
		t.Errorf("status = %q, want linked", link.Status)
	}

	updated, err := svc.UpdateLinkStatus(ctx, link.ID, model.LinkStatusResolved)
	if err != nil {
		t.Fatalf("UpdateLinkStatus: %v", err)
	}
	if updated.Status != model.LinkStatusResolved {
		t.Errorf("status = %q, want resolved", updated.Status)
	}

	if _, err := svc.UpdateLinkStatus(ctx, link.ID, "nonsense"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestLinkFindingRequiresBothSides(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.LinkFinding(context.Background(), &model.CreateLinkRequest{
		ThreatID:  uuid.New(),
		FindingID: uuid.New(),
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUnknownThreat(t *testing.T) {
	svc, _, _, _ := newTestService()
	err := svc.Delete(context.Background(), uuid.New())
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
