package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kestrelsec/kestrel/internal/auth"
	"github.com/kestrelsec/kestrel/internal/triage/model"
	"github.com/kestrelsec/kestrel/internal/triage/repository"
	"github.com/kestrelsec/kestrel/internal/triage/service"
	"go.uber.org/zap"
)

// maxSARIFBytes caps the accepted SARIF upload size.
const maxSARIFBytes = 10 << 20

// FindingHandler handles HTTP requests for scanner finding ingestion and
// correlation.
type FindingHandler struct {
	svc    *service.TriageService
	tokens *auth.TokenIssuer
	logger *zap.Logger
}

// NewFindingHandler creates a new FindingHandler.
func NewFindingHandler(svc *service.TriageService, tokens *auth.TokenIssuer, logger *zap.Logger) *FindingHandler {
	return &FindingHandler{svc: svc, tokens: tokens, logger: logger}
}

func (h *FindingHandler) requireToken() gin.HandlerFunc {
	if h.tokens == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return auth.RequireToken(h.tokens)
}

// Register registers all finding routes on the given router group.
func (h *FindingHandler) Register(rg *gin.RouterGroup) {
	findings := rg.Group("/findings")
	{
		findings.POST("", h.requireToken(), h.CreateFinding)
		findings.POST("/import/sarif", h.requireToken(), h.ImportSARIF)
		findings.GET("", h.ListFindings)
		findings.GET("/:id", h.GetFinding)
		findings.POST("/:id/correlate", h.requireToken(), h.CorrelateFinding)
	}
}

// CreateFinding handles POST /findings — ingests a single finding.
func (h *FindingHandler) CreateFinding(c *gin.Context) {
	var req model.CreateFindingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	finding, err := h.svc.IngestFinding(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("ingest finding", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest finding"})
		return
	}

	RecordFindingsIngested(finding.Tool, 1)
	c.JSON(http.StatusCreated, gin.H{"finding": finding})
}

// ImportSARIF handles POST /findings/import/sarif — accepts a raw SARIF
// report body and stores every unsuppressed result. Optional ?tool= names
// the scanner when the report's driver does not.
func (h *FindingHandler) ImportSARIF(c *gin.Context) {
	fallbackTool := c.DefaultQuery("tool", "sarif-import")
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxSARIFBytes)

	result, err := h.svc.ImportSARIF(c.Request.Context(), body, fallbackTool)
	if err != nil {
		var valErr *model.ErrValidation
		if errors.As(err, &valErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Msg})
			return
		}
		h.logger.Error("import sarif", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}

	if result.Imported > 0 {
		RecordFindingsIngested(result.Tool, result.Imported)
	}
	c.JSON(http.StatusCreated, gin.H{"import": result})
}

// ListFindings handles GET /findings — paginated list, optional ?tool= filter.
func (h *FindingHandler) ListFindings(c *gin.Context) {
	tool := c.Query("tool")
	limit, offset := pagination(c)

	findings, err := h.svc.ListFindings(c.Request.Context(), tool, limit, offset)
	if err != nil {
		h.logger.Error("list findings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list findings"})
		return
	}
	if findings == nil {
		findings = []*model.Finding{}
	}

	c.JSON(http.StatusOK, gin.H{"findings": findings, "count": len(findings)})
}

// GetFinding handles GET /findings/:id.
func (h *FindingHandler) GetFinding(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid finding ID"})
		return
	}

	finding, err := h.svc.GetFinding(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "finding not found"})
			return
		}
		h.logger.Error("get finding", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get finding"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"finding": finding})
}

// CorrelateFinding handles POST /findings/:id/correlate — proposes threat
// links for the finding without persisting anything.
func (h *FindingHandler) CorrelateFinding(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid finding ID"})
		return
	}

	candidates, err := h.svc.Correlate(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "finding not found"})
			return
		}
		h.logger.Error("correlate finding", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "correlation failed"})
		return
	}
	if candidates == nil {
		candidates = []service.CorrelationCandidate{}
	}

	c.JSON(http.StatusOK, gin.H{"candidates": candidates, "count": len(candidates)})
}
