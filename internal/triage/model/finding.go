package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/kestrelsec/kestrel/internal/engine"
)

// Finding is one normalized scanner result ingested from an external tool
// (static analyzer, dynamic scanner, dependency audit). Kestrel is agnostic
// to which scanner produced it.
type Finding struct {
	ID          uuid.UUID `json:"id"          db:"id"`
	Tool        string    `json:"tool"        db:"tool"`
	RuleID      string    `json:"rule_id,omitempty" db:"rule_id"`
	Title       string    `json:"title"       db:"title"`
	Description string    `json:"description" db:"description"`
	Severity    string    `json:"severity"    db:"severity"`
	IngestedAt  time.Time `json:"ingested_at" db:"ingested_at"`
}

// EngineFinding converts the stored finding into the engine's input form.
func (f *Finding) EngineFinding() engine.Finding {
	return engine.Finding{
		ID:          f.ID.String(),
		Title:       f.Title,
		Description: f.Description,
		Severity:    f.Severity,
		Tool:        f.Tool,
	}
}

// CreateFindingRequest is the payload for ingesting a single finding.
type CreateFindingRequest struct {
	Tool        string `json:"tool"        binding:"required"`
	RuleID      string `json:"rule_id"`
	Title       string `json:"title"       binding:"required"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}
