package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kestrelsec/kestrel/internal/engine"
	"github.com/kestrelsec/kestrel/internal/triage/service"
)

// PatternHandler exposes the engine's pattern catalog read-only.
type PatternHandler struct {
	svc *service.TriageService
}

// NewPatternHandler creates a new PatternHandler.
func NewPatternHandler(svc *service.TriageService) *PatternHandler {
	return &PatternHandler{svc: svc}
}

// Register registers the pattern routes on the given router group.
func (h *PatternHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/patterns", h.ListPatterns)
	rg.GET("/patterns/:id", h.GetPattern)
}

// patternView is the wire representation of a catalog entry. Compiled rules
// are summarized rather than serialized.
type patternView struct {
	ID         string             `json:"id"`
	Categories []engine.Category  `json:"categories"`
	Defaults   engine.DreadScores `json:"defaults"`
	Baseline   float64            `json:"baseline"`
	Archetypes []engine.Archetype `json:"archetypes,omitempty"`
	RuleCount  int                `json:"rule_count"`
}

func viewOf(p engine.ThreatPattern) patternView {
	return patternView{
		ID:         p.ID,
		Categories: p.Categories,
		Defaults:   p.Defaults,
		Baseline:   p.Baseline,
		Archetypes: p.Archetypes,
		RuleCount:  len(p.Rules),
	}
}

// ListPatterns handles GET /patterns — returns the full catalog in
// declaration order.
func (h *PatternHandler) ListPatterns(c *gin.Context) {
	catalog := h.svc.Engine().Catalog()
	views := make([]patternView, 0, catalog.Len())
	for _, p := range catalog.Patterns() {
		views = append(views, viewOf(p))
	}
	c.JSON(http.StatusOK, gin.H{"patterns": views, "count": len(views)})
}

// GetPattern handles GET /patterns/:id.
func (h *PatternHandler) GetPattern(c *gin.Context) {
	p, ok := h.svc.Engine().Catalog().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "pattern not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pattern": viewOf(p)})
}
