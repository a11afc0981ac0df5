package model

import (
	"time"

	"github.com/google/uuid"
)

// LinkStatus is the review state of a threat/finding association.
type LinkStatus string

const (
	LinkStatusLinked        LinkStatus = "linked"
	LinkStatusResolved      LinkStatus = "resolved"
	LinkStatusFalsePositive LinkStatus = "false_positive"
)

// ValidLinkStatus reports whether s is a known status value.
func ValidLinkStatus(s LinkStatus) bool {
	switch s {
	case LinkStatusLinked, LinkStatusResolved, LinkStatusFalsePositive:
		return true
	}
	return false
}

// VulnerabilityLink associates a recorded threat with an ingested scanner
// finding. Links are proposed by the correlator but only created and
// transitioned through explicit API calls.
type VulnerabilityLink struct {
	ID         uuid.UUID  `json:"id"         db:"id"`
	ThreatID   uuid.UUID  `json:"threat_id"  db:"threat_id"`
	FindingID  uuid.UUID  `json:"finding_id" db:"finding_id"`
	Similarity float64    `json:"similarity" db:"similarity"`
	Status     LinkStatus `json:"status"     db:"status"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// CreateLinkRequest is the payload for persisting a proposed link.
type CreateLinkRequest struct {
	ThreatID   uuid.UUID `json:"threat_id"  binding:"required"`
	FindingID  uuid.UUID `json:"finding_id" binding:"required"`
	Similarity float64   `json:"similarity"`
}

// UpdateLinkStatusRequest transitions a link to a new review state.
type UpdateLinkStatusRequest struct {
	Status LinkStatus `json:"status" binding:"required"`
}
