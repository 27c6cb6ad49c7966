package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crimewatch/ingest/internal/domain"
	"github.com/crimewatch/ingest/internal/logger"
)

// SourceLister loads configured sources.
type SourceLister interface {
	List(ctx context.Context) ([]*domain.Source, error)
}

// SourceHandler serves the source listing endpoint.
type SourceHandler struct {
	sources SourceLister
	logger  logger.Logger
}

// NewSourceHandler creates a source handler.
func NewSourceHandler(sources SourceLister, log logger.Logger) *SourceHandler {
	return &SourceHandler{
		sources: sources,
		logger:  log,
	}
}

// List returns configured sources, active or not, optionally filtered
// by region.
func (h *SourceHandler) List(c *gin.Context) {
	sources, err := h.sources.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list sources", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sources"})
		return
	}

	if region := c.Query("region"); region != "" {
		filtered := make([]*domain.Source, 0, len(sources))
		for _, src := range sources {
			if src.RegionLabel == region {
				filtered = append(filtered, src)
			}
		}
		sources = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(sources),
		"sources": sources,
	})
}
