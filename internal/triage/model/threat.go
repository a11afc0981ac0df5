// Package model defines the durable records of the triage platform and the
// request payloads accepted by its API.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/kestrelsec/kestrel/internal/engine"
)

// ThreatStatus represents the triage lifecycle state of a recorded threat.
type ThreatStatus string

const (
	ThreatStatusOpen      ThreatStatus = "open"
	ThreatStatusMitigated ThreatStatus = "mitigated"
	ThreatStatusAccepted  ThreatStatus = "accepted"
)

// Threat is the durable record produced by one analysis run. Score fields may
// later be edited; RiskLevel and Total are always recomputed from Scores,
// never set directly.
type Threat struct {
	ID            uuid.UUID               `json:"id"             db:"id"`
	Asset         string                  `json:"asset"          db:"asset"`
	Flow          string                  `json:"flow"           db:"flow"`
	TrustBoundary string                  `json:"trust_boundary,omitempty" db:"trust_boundary"`
	Stride        engine.StrideAnalysis   `json:"stride"         db:"stride"`
	Suggestion    engine.DreadSuggestion  `json:"suggestion"     db:"suggestion"`
	Scores        engine.DreadScores      `json:"scores"         db:"scores"`
	Total         float64                 `json:"total"          db:"total"`
	RiskLevel     engine.RiskLevel        `json:"risk_level"     db:"risk_level"`
	Mitigations   []engine.MitigationItem `json:"mitigations"    db:"mitigations"`
	Status        ThreatStatus            `json:"status"         db:"status"`
	CreatedAt     time.Time               `json:"created_at"     db:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"     db:"updated_at"`
}

// Record returns the engine's read-only view of this threat for similarity
// ranking and correlation.
func (t *Threat) Record() engine.ThreatRecord {
	return engine.ThreatRecord{
		ID:            t.ID.String(),
		Asset:         t.Asset,
		Flow:          t.Flow,
		TrustBoundary: t.TrustBoundary,
		Categories:    t.Stride.Categories,
		Scores:        t.Scores,
	}
}

// AnalyzeRequest is the payload for creating a new threat analysis.
type AnalyzeRequest struct {
	Asset         string                   `json:"asset"          binding:"required"`
	Flow          string                   `json:"flow"           binding:"required"`
	TrustBoundary string                   `json:"trust_boundary"`
	Overrides     map[engine.Dimension]int `json:"overrides"`
}

// UpdateScoresRequest is the payload for editing a stored threat's DREAD
// scores. Omitted dimensions keep their current value.
type UpdateScoresRequest struct {
	Scores map[engine.Dimension]int `json:"scores" binding:"required"`
	Status ThreatStatus             `json:"status"`
}

// ErrValidation is returned by service methods when the caller supplies
// invalid input. Handlers translate it into a 400 response.
type ErrValidation struct{ Msg string }

func (e *ErrValidation) Error() string { return e.Msg }
