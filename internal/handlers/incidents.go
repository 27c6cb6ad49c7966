package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crimewatch/ingest/internal/domain"
	"github.com/crimewatch/ingest/internal/logger"
)

const (
	defaultIncidentLimit = 100
	maxIncidentLimit     = 500

	// Fallback map centre when enrichment produced no coordinates.
	defaultLat = 49.1042
	defaultLng = -122.6604
)

// IncidentLister loads enriched incidents for a region, newest first.
type IncidentLister interface {
	ListByRegion(ctx context.Context, region string, limit int) ([]domain.IncidentView, error)
}

// IncidentHandler serves the incident read endpoints.
type IncidentHandler struct {
	incidents IncidentLister
	logger    logger.Logger
}

// NewIncidentHandler creates an incident handler.
func NewIncidentHandler(incidents IncidentLister, log logger.Logger) *IncidentHandler {
	return &IncidentHandler{
		incidents: incidents,
		logger:    log,
	}
}

type incidentCoordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type incidentResponse struct {
	ID                 string              `json:"id"`
	Timestamp          string              `json:"timestamp"`
	Source             string              `json:"source"`
	Location           string              `json:"location"`
	Coordinates        incidentCoordinates `json:"coordinates"`
	Summary            string              `json:"summary"`
	FullText           string              `json:"fullText"`
	Severity           string              `json:"severity"`
	Tags               []string            `json:"tags"`
	Entities           []string            `json:"entities"`
	RelatedIncidentIDs []string            `json:"relatedIncidentIds"`
}

var severityLabels = map[string]string{
	domain.SeverityLow:      "Low",
	domain.SeverityMedium:   "Medium",
	domain.SeverityHigh:     "High",
	domain.SeverityCritical: "Critical",
}

var sourceLabels = map[string]string{
	domain.TopologyRCMPNewsroom:  "Local Police",
	domain.TopologyMunicipalList: "Local Police",
	domain.TopologyWordPress:     "Local Police",
	domain.TopologyAbbyPD:        "Local Police",
	domain.TopologyRSSFeed:       "News Feed",
}

// List returns enriched incidents for a region in the public feed shape.
func (h *IncidentHandler) List(c *gin.Context) {
	region := c.Query("region")
	if region == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "region query parameter is required"})
		return
	}

	limit := defaultIncidentLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	if limit > maxIncidentLimit {
		limit = maxIncidentLimit
	}

	views, err := h.incidents.ListByRegion(c.Request.Context(), region, limit)
	if err != nil {
		h.logger.Error("failed to list incidents",
			logger.String("region", region),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load incidents"})
		return
	}

	out := make([]incidentResponse, 0, len(views))
	for i := range views {
		out = append(out, buildIncidentResponse(&views[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"region":    region,
		"count":     len(out),
		"incidents": out,
	})
}

func buildIncidentResponse(v *domain.IncidentView) incidentResponse {
	ts := v.Article.CreatedAt
	if v.Article.PublishedAt != nil {
		ts = *v.Article.PublishedAt
	}

	location := v.Source.RegionLabel
	if v.Incident.LocationLabel != nil && *v.Incident.LocationLabel != "" {
		location = *v.Incident.LocationLabel
	}

	coords := incidentCoordinates{Lat: defaultLat, Lng: defaultLng}
	if v.Incident.Lat != nil && v.Incident.Lng != nil {
		coords = incidentCoordinates{Lat: *v.Incident.Lat, Lng: *v.Incident.Lng}
	}

	severity, ok := severityLabels[v.Incident.Severity]
	if !ok {
		severity = "Medium"
	}

	source, ok := sourceLabels[v.Source.Topology]
	if !ok {
		source = "Local Police"
	}

	tags := v.Incident.Tags
	if tags == nil {
		tags = []string{}
	}

	entities := make([]string, 0, len(v.Incident.Entities))
	for _, e := range v.Incident.Entities {
		entities = append(entities, e.Name)
	}

	return incidentResponse{
		ID:                 strconv.FormatInt(v.Article.ID, 10),
		Timestamp:          ts.UTC().Format(time.RFC3339),
		Source:             source,
		Location:           location,
		Coordinates:        coords,
		Summary:            v.Article.Title,
		FullText:           v.Article.Body,
		Severity:           severity,
		Tags:               tags,
		Entities:           entities,
		RelatedIncidentIDs: []string{},
	}
}
