// Package scanimport converts scanner output formats into findings the
// triage service can ingest. SARIF 2.1.0 is the only supported format.
package scanimport

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kestrelsec/kestrel/internal/triage/model"
	"github.com/owenrumney/go-sarif/v2/sarif"
)

// ParseSARIF reads a SARIF 2.1.0 report and flattens every run's results
// into findings. Suppressed results are skipped. The tool name is taken
// from each run's driver; fallbackTool is used when the driver carries no
// name.
func ParseSARIF(r io.Reader, fallbackTool string) ([]*model.Finding, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read sarif report: %w", err)
	}

	var report sarif.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode sarif report: %w", err)
	}
	if len(report.Runs) == 0 {
		return nil, fmt.Errorf("sarif report contains no runs")
	}

	var findings []*model.Finding
	for _, run := range report.Runs {
		tool := fallbackTool
		if run.Tool.Driver != nil && run.Tool.Driver.Name != "" {
			tool = run.Tool.Driver.Name
		}
		for _, result := range run.Results {
			if len(result.Suppressions) > 0 {
				continue
			}
			f := &model.Finding{
				Tool:     tool,
				Severity: normalizeSeverity(result),
			}
			if result.RuleID != nil {
				f.RuleID = *result.RuleID
			}
			if result.Message.Text != nil {
				f.Title = firstLine(*result.Message.Text)
				f.Description = *result.Message.Text
			}
			if f.Title == "" {
				f.Title = f.RuleID
			}
			if f.Title == "" {
				continue
			}
			findings = append(findings, f)
		}
	}
	return findings, nil
}

// normalizeSeverity maps a SARIF result level to the severity vocabulary
// used across the triage service. An explicit security-severity property
// takes precedence over the level.
func normalizeSeverity(result *sarif.Result) string {
	if v, ok := result.Properties["security-severity"]; ok {
		if score, ok := parseSeverityScore(v); ok {
			switch {
			case score >= 7.0:
				return "high"
			case score >= 4.0:
				return "medium"
			default:
				return "low"
			}
		}
	}

	level := ""
	if result.Level != nil {
		level = *result.Level
	}
	switch level {
	case "error":
		return "high"
	case "warning":
		return "medium"
	case "note", "none":
		return "low"
	default:
		return "medium"
	}
}

// parseSeverityScore reads a CVSS-style score from either a JSON string or
// number property value.
func parseSeverityScore(v any) (float64, bool) {
	switch s := v.(type) {
	case string:
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	case float64:
		return s, true
	}
	return 0, false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}
