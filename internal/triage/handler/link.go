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

// LinkHandler handles HTTP requests for threat/finding links.
type LinkHandler struct {
	svc    *service.TriageService
	tokens *auth.TokenIssuer
	logger *zap.Logger
}

// NewLinkHandler creates a new LinkHandler.
func NewLinkHandler(svc *service.TriageService, tokens *auth.TokenIssuer, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{svc: svc, tokens: tokens, logger: logger}
}

func (h *LinkHandler) requireToken() gin.HandlerFunc {
	if h.tokens == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return auth.RequireToken(h.tokens)
}

// Register registers all link routes on the given router group.
func (h *LinkHandler) Register(rg *gin.RouterGroup) {
	links := rg.Group("/links")
	{
		links.POST("", h.requireToken(), h.CreateLink)
		links.GET("", h.ListLinks)
		links.PATCH("/:id/status", h.requireToken(), h.UpdateLinkStatus)
	}
}

// CreateLink handles POST /links — persists a confirmed threat/finding
// association.
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req model.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	link, err := h.svc.LinkFinding(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("create link", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create link"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"link": link})
}

// ListLinks handles GET /links — optional ?threat_id= and ?finding_id=
// filters.
func (h *LinkHandler) ListLinks(c *gin.Context) {
	var threatID, findingID *uuid.UUID
	if s := c.Query("threat_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threat_id"})
			return
		}
		threatID = &id
	}
	if s := c.Query("finding_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid finding_id"})
			return
		}
		findingID = &id
	}
	limit, offset := pagination(c)

	links, err := h.svc.ListLinks(c.Request.Context(), threatID, findingID, limit, offset)
	if err != nil {
		h.logger.Error("list links", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list links"})
		return
	}
	if links == nil {
		links = []*model.VulnerabilityLink{}
	}

	c.JSON(http.StatusOK, gin.H{"links": links, "count": len(links)})
}

// UpdateLinkStatus handles PATCH /links/:id/status.
func (h *LinkHandler) UpdateLinkStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid link ID"})
		return
	}

	var req model.UpdateLinkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	link, err := h.svc.UpdateLinkStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		var valErr *model.ErrValidation
		if errors.As(err, &valErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Msg})
			return
		}
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
			return
		}
		h.logger.Error("update link status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update link"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"link": link})
}
