// Package api wires the HTTP routes for the ingestion service.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crimewatch/ingest/internal/handlers"
	"github.com/crimewatch/ingest/internal/logger"
	"github.com/crimewatch/ingest/internal/metrics"
)

// Handlers carries the endpoint handlers the router mounts.
type Handlers struct {
	Refresh   *handlers.RefreshHandler
	Incidents *handlers.IncidentHandler
	Sources   *handlers.SourceHandler
	Metrics   *metrics.Metrics
}

// NewRouter builds the gin engine with all routes attached.
func NewRouter(h Handlers, log logger.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics-lite", func(c *gin.Context) {
		if h.Metrics == nil {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		c.JSON(http.StatusOK, h.Metrics.Snapshot())
	})

	api := router.Group("/api")

	api.POST("/refresh", h.Refresh.Refresh)
	api.POST("/refresh-async", h.Refresh.RefreshAsync)
	api.GET("/refresh-status/:job_id", h.Refresh.RefreshStatus)

	api.GET("/incidents", h.Incidents.List)
	api.GET("/sources", h.Sources.List)

	return router
}

func ginLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		log.Info("HTTP request",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status_code", statusCode),
			logger.String("client_ip", c.ClientIP()),
			logger.Duration("duration", duration),
		)
	}
}
