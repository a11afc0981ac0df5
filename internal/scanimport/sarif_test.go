package scanimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `{
  "version": "2.1.0",
  "$schema": "https://json.schemastore.org/sarif-2.1.0.json",
  "runs": [
    {
      "tool": {"driver": {"name": "semgrep", "rules": []}},
      "results": [
        {
          "ruleId": "go.lang.security.audit.sql-injection",
          "level": "error",
          "message": {"text": "User input flows into SQL query without parameterization.\nTaint trace follows."}
        },
        {
          "ruleId": "go.lang.security.audit.xss",
          "level": "warning",
          "message": {"text": "Reflected cross-site scripting via unsanitized HTML."}
        },
        {
          "ruleId": "suppressed.rule",
          "level": "error",
          "message": {"text": "Should not appear."},
          "suppressions": [{"kind": "inSource"}]
        },
        {
          "ruleId": "style.note",
          "level": "note",
          "message": {"text": "Minor style issue."}
        }
      ]
    }
  ]
}`

func TestParseSARIF(t *testing.T) {
	findings, err := ParseSARIF(strings.NewReader(sampleReport), "unknown")
	require.NoError(t, err)
	require.Len(t, findings, 3)

	first := findings[0]
	assert.Equal(t, "semgrep", first.Tool)
	assert.Equal(t, "go.lang.security.audit.sql-injection", first.RuleID)
	assert.Equal(t, "User input flows into SQL query without parameterization.", first.Title)
	assert.Contains(t, first.Description, "Taint trace")
	assert.Equal(t, "high", first.Severity)

	assert.Equal(t, "medium", findings[1].Severity)
	assert.Equal(t, "low", findings[2].Severity)

	for _, f := range findings {
		assert.NotEqual(t, "suppressed.rule", f.RuleID)
	}
}

func TestParseSARIFFallbackTool(t *testing.T) {
	report := `{"version":"2.1.0","runs":[{"tool":{"driver":{"name":""}},"results":[{"ruleId":"r1","level":"warning","message":{"text":"finding"}}]}]}`
	findings, err := ParseSARIF(strings.NewReader(report), "local-scan")
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "local-scan", findings[0].Tool)
}

func TestParseSARIFSecuritySeverityProperty(t *testing.T) {
	report := `{"version":"2.1.0","runs":[{"tool":{"driver":{"name":"codeql"}},"results":[
		{"ruleId":"r1","level":"warning","message":{"text":"a"},"properties":{"security-severity":"9.1"}},
		{"ruleId":"r2","level":"error","message":{"text":"b"},"properties":{"security-severity":"3.0"}}
	]}]}`
	findings, err := ParseSARIF(strings.NewReader(report), "")
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "high", findings[0].Severity)
	assert.Equal(t, "low", findings[1].Severity)
}

func TestParseSARIFErrors(t *testing.T) {
	_, err := ParseSARIF(strings.NewReader("not json"), "")
	assert.Error(t, err)

	_, err = ParseSARIF(strings.NewReader(`{"version":"2.1.0","runs":[]}`), "")
	assert.Error(t, err)
}

func TestParseSARIFUnknownLevelDefaultsMedium(t *testing.T) {
	report := `{"version":"2.1.0","runs":[{"tool":{"driver":{"name":"t"}},"results":[{"ruleId":"r","message":{"text":"x"}}]}]}`
	findings, err := ParseSARIF(strings.NewReader(report), "")
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "medium", findings[0].Severity)
}
