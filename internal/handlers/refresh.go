// Package handlers provides the HTTP handlers for the ingestion API.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crimewatch/ingest/internal/database"
	"github.com/crimewatch/ingest/internal/domain"
	"github.com/crimewatch/ingest/internal/logger"
	"github.com/crimewatch/ingest/internal/refresh"
)

// Refresher runs a synchronous region refresh.
type Refresher interface {
	RefreshRegion(ctx context.Context, region string) (*refresh.Result, error)
}

// JobRunner starts background refresh jobs and reports their status.
type JobRunner interface {
	Start(ctx context.Context, region string) (*domain.RefreshJob, error)
	Status(ctx context.Context, jobID string) (*domain.RefreshJob, error)
}

// RefreshHandler serves the refresh endpoints.
type RefreshHandler struct {
	refresher Refresher
	jobs      JobRunner
	logger    logger.Logger
}

// NewRefreshHandler creates a refresh handler.
func NewRefreshHandler(refresher Refresher, jobs JobRunner, log logger.Logger) *RefreshHandler {
	return &RefreshHandler{
		refresher: refresher,
		jobs:      jobs,
		logger:    log,
	}
}

type refreshRequest struct {
	Region string `json:"region" binding:"required"`
}

// Refresh runs a blocking refresh for a region and returns its counts.
func (h *RefreshHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := h.refresher.RefreshRegion(c.Request.Context(), req.Region)
	if err != nil {
		if errors.Is(err, refresh.ErrNoActiveSources) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": fmt.Sprintf("No active sources found for region: %s", req.Region),
			})
			return
		}

		h.logger.Error("refresh failed",
			logger.String("region", req.Region),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Refresh failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// RefreshAsync creates a background refresh job and returns it pending.
func (h *RefreshHandler) RefreshAsync(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	job, err := h.jobs.Start(c.Request.Context(), req.Region)
	if err != nil {
		h.logger.Error("failed to start refresh job",
			logger.String("region", req.Region),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start refresh job"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":  job.JobID,
		"region":  job.Region,
		"status":  job.Status,
		"message": fmt.Sprintf("Refresh started for region: %s", job.Region),
	})
}

// RefreshStatus returns the current state of a refresh job.
func (h *RefreshHandler) RefreshStatus(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.jobs.Status(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, database.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}

		h.logger.Error("failed to load job status",
			logger.String("job_id", jobID),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load job status"})
		return
	}

	c.JSON(http.StatusOK, job)
}
