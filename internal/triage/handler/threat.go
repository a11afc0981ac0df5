// Package handler exposes the triage service over HTTP.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kestrelsec/kestrel/internal/auth"
	"github.com/kestrelsec/kestrel/internal/triage/model"
	"github.com/kestrelsec/kestrel/internal/triage/repository"
	"github.com/kestrelsec/kestrel/internal/triage/service"
	"go.uber.org/zap"
)

// ThreatHandler handles HTTP requests for threat analysis and retrieval.
type ThreatHandler struct {
	svc    *service.TriageService
	tokens *auth.TokenIssuer // nil = no auth enforcement
	logger *zap.Logger
}

// NewThreatHandler creates a new ThreatHandler.
// tokens may be nil to disable bearer auth on mutating routes.
func NewThreatHandler(svc *service.TriageService, tokens *auth.TokenIssuer, logger *zap.Logger) *ThreatHandler {
	return &ThreatHandler{svc: svc, tokens: tokens, logger: logger}
}

// requireToken returns the RequireToken middleware when auth is configured,
// or a no-op middleware for development/open mode.
func (h *ThreatHandler) requireToken() gin.HandlerFunc {
	if h.tokens == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return auth.RequireToken(h.tokens)
}

// Register registers all threat routes on the given router group.
func (h *ThreatHandler) Register(rg *gin.RouterGroup) {
	threats := rg.Group("/threats")
	{
		threats.POST("/analyze", h.requireToken(), h.AnalyzeThreat)
		threats.GET("", h.ListThreats)
		threats.GET("/:id", h.GetThreat)
		threats.GET("/:id/similar", h.GetSimilar)
		threats.PATCH("/:id/scores", h.requireToken(), h.UpdateScores)
		threats.DELETE("/:id", h.requireToken(), h.DeleteThreat)
	}
}

// AnalyzeThreat handles POST /threats/analyze — runs the analysis pipeline
// and stores the result as a new open threat.
func (h *ThreatHandler) AnalyzeThreat(c *gin.Context) {
	var req model.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	threat, err := h.svc.Analyze(c.Request.Context(), &req)
	if err != nil {
		var valErr *model.ErrValidation
		if errors.As(err, &valErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Msg})
			return
		}
		h.logger.Error("analyze threat", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	RecordAnalysis(string(threat.RiskLevel))
	c.JSON(http.StatusCreated, gin.H{"threat": threat})
}

// ListThreats handles GET /threats — returns a paginated threat list,
// optionally filtered by ?risk_level= and ?status=.
func (h *ThreatHandler) ListThreats(c *gin.Context) {
	riskLevel := c.Query("risk_level")
	status := c.Query("status")
	limit, offset := pagination(c)

	threats, err := h.svc.List(c.Request.Context(), riskLevel, status, limit, offset)
	if err != nil {
		h.logger.Error("list threats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list threats"})
		return
	}
	if threats == nil {
		threats = []*model.Threat{}
	}

	c.JSON(http.StatusOK, gin.H{"threats": threats, "count": len(threats)})
}

// GetThreat handles GET /threats/:id.
func (h *ThreatHandler) GetThreat(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threat ID"})
		return
	}

	threat, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "threat not found"})
			return
		}
		h.logger.Error("get threat", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get threat"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"threat": threat})
}

// GetSimilar handles GET /threats/:id/similar — ranks other stored threats
// by similarity to this one. Optional ?limit= caps the result count.
func (h *ThreatHandler) GetSimilar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threat ID"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	similar, err := h.svc.Similar(c.Request.Context(), id, limit)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "threat not found"})
			return
		}
		h.logger.Error("similar threats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "similarity ranking failed"})
		return
	}
	if similar == nil {
		similar = []service.SimilarThreat{}
	}

	c.JSON(http.StatusOK, gin.H{"similar": similar, "count": len(similar)})
}

// UpdateScores handles PATCH /threats/:id/scores — applies reviewer score
// edits and recomputes total and risk level.
func (h *ThreatHandler) UpdateScores(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threat ID"})
		return
	}

	var req model.UpdateScoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	threat, err := h.svc.UpdateScores(c.Request.Context(), id, &req)
	if err != nil {
		var valErr *model.ErrValidation
		if errors.As(err, &valErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Msg})
			return
		}
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "threat not found"})
			return
		}
		h.logger.Error("update scores", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update scores"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"threat": threat})
}

// DeleteThreat handles DELETE /threats/:id.
func (h *ThreatHandler) DeleteThreat(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threat ID"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "threat not found"})
			return
		}
		h.logger.Error("delete threat", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete threat"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id.String()})
}

// pagination reads the shared ?limit= and ?offset= query params.
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
