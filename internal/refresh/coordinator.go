// Package refresh coordinates ingestion passes across the active
// sources of a region and fans results into enrichment and persistence.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crimewatch/ingest/internal/domain"
	"github.com/crimewatch/ingest/internal/enrichment"
	"github.com/crimewatch/ingest/internal/logger"
	"github.com/crimewatch/ingest/internal/metrics"
)

// ErrNoActiveSources is returned when a region has no active sources.
var ErrNoActiveSources = errors.New("no active sources for region")

// SourceStore lists sources and records pass completion times.
type SourceStore interface {
	ListActiveByRegion(ctx context.Context, region string) ([]*domain.Source, error)
	ListRegions(ctx context.Context) ([]string, error)
	UpdateLastChecked(ctx context.Context, id int64, checkedAt time.Time) error
}

// Ingestor runs one ingestion pass for a source.
type Ingestor interface {
	IngestSource(ctx context.Context, source *domain.Source) ([]*domain.Article, error)
}

// IncidentStore persists enrichment records and reports region totals.
type IncidentStore interface {
	Insert(ctx context.Context, incident *domain.EnrichedIncident) error
	CountByRegion(ctx context.Context, region string) (int, error)
}

// EventPublisher announces completed refreshes. Implementations must
// not block the refresh path.
type EventPublisher interface {
	PublishRefreshCompleted(ctx context.Context, region string, newArticles, totalIncidents int)
}

// Result summarizes one region refresh.
type Result struct {
	Region         string `json:"region"`
	NewArticles    int    `json:"new_articles"`
	TotalIncidents int    `json:"total_incidents"`
}

// Coordinator refreshes regions source by source. A failing source
// never aborts the pass; its error is logged and the remaining sources
// still run.
type Coordinator struct {
	sources       SourceStore
	incidents     IncidentStore
	ingestor      Ingestor
	enricher      enrichment.Enricher
	events        EventPublisher
	metrics       *metrics.Metrics
	promptVersion string
	logger        logger.Logger
}

// NewCoordinator creates a refresh coordinator. enricher, events, and
// tracker may be nil; enrichment then falls back to the deterministic
// minimal record, no events are published, and no counters move.
func NewCoordinator(
	sources SourceStore,
	incidents IncidentStore,
	ingestor Ingestor,
	enricher enrichment.Enricher,
	events EventPublisher,
	tracker *metrics.Metrics,
	promptVersion string,
	log logger.Logger,
) *Coordinator {
	return &Coordinator{
		sources:       sources,
		incidents:     incidents,
		ingestor:      ingestor,
		enricher:      enricher,
		events:        events,
		metrics:       tracker,
		promptVersion: promptVersion,
		logger:        log,
	}
}

// RefreshRegion ingests all active sources in a region and returns the
// pass counts. The incident total is recomputed from storage rather
// than accumulated, so it stays correct across concurrent refreshes.
func (c *Coordinator) RefreshRegion(ctx context.Context, region string) (*Result, error) {
	sources, err := c.sources.ListActiveByRegion(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoActiveSources, region)
	}

	newArticles := 0

	for _, source := range sources {
		newArticles += c.refreshSource(ctx, source)
	}

	total, err := c.incidents.CountByRegion(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("failed to count incidents: %w", err)
	}

	result := &Result{
		Region:         region,
		NewArticles:    newArticles,
		TotalIncidents: total,
	}

	c.logger.Info("region refresh complete",
		logger.String("region", region),
		logger.Int("new_articles", result.NewArticles),
		logger.Int("total_incidents", result.TotalIncidents),
	)

	if c.metrics != nil {
		c.metrics.RecordRefresh(region, result.NewArticles)
	}

	if c.events != nil {
		c.events.PublishRefreshCompleted(ctx, region, result.NewArticles, result.TotalIncidents)
	}

	return result, nil
}

// RefreshAllRegions refreshes every region with active sources. Used by
// the scheduler; regions fail independently.
func (c *Coordinator) RefreshAllRegions(ctx context.Context) error {
	regions, err := c.sources.ListRegions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list regions: %w", err)
	}

	for _, region := range regions {
		if _, err := c.RefreshRegion(ctx, region); err != nil {
			c.logger.Error("scheduled refresh failed",
				logger.String("region", region),
				logger.Error(err),
			)
		}
	}

	return nil
}

// refreshSource ingests one source and enriches whatever landed. An
// ingestion error after partial progress still enriches the articles
// that made it in.
func (c *Coordinator) refreshSource(ctx context.Context, source *domain.Source) int {
	articles, err := c.ingestor.IngestSource(ctx, source)
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		// The source deadline cut the pass short, not a source fault.
		// The watermark resumes the remainder on the next pass.
		c.logger.Warn("source ingestion deferred",
			logger.String("agency", source.AgencyName),
			logger.Int64("source_id", source.ID),
			logger.Int("articles", len(articles)),
			logger.Error(err),
		)
		if c.metrics != nil {
			c.metrics.RecordSourceDeferral(source.AgencyName)
		}
	default:
		c.logger.Error("source ingestion failed",
			logger.String("agency", source.AgencyName),
			logger.Int64("source_id", source.ID),
			logger.Error(err),
		)
		if c.metrics != nil {
			c.metrics.RecordSourceFailure(source.AgencyName)
		}
	}

	count := 0
	for _, article := range articles {
		if insertErr := c.incidents.Insert(ctx, c.enrich(ctx, article, source)); insertErr != nil {
			c.logger.Warn("failed to persist incident",
				logger.Int64("article_id", article.ID),
				logger.Error(insertErr),
			)
			continue
		}
		count++
	}

	if updateErr := c.sources.UpdateLastChecked(ctx, source.ID, time.Now().UTC()); updateErr != nil {
		c.logger.Warn("failed to update source check time",
			logger.Int64("source_id", source.ID),
			logger.Error(updateErr),
		)
	}

	return count
}

// enrich runs the LLM enricher when available and falls back to the
// minimal record on any failure.
func (c *Coordinator) enrich(ctx context.Context, article *domain.Article, source *domain.Source) *domain.EnrichedIncident {
	if c.enricher == nil {
		c.recordEnrichment(false)
		return enrichment.Fallback(article, c.promptVersion)
	}

	incident, err := c.enricher.Enrich(ctx, article, source)
	if err != nil {
		c.logger.Warn("enrichment failed, using fallback",
			logger.Int64("article_id", article.ID),
			logger.Error(err),
		)
		c.recordEnrichment(false)
		return enrichment.Fallback(article, c.promptVersion)
	}

	c.recordEnrichment(true)
	return incident
}

func (c *Coordinator) recordEnrichment(llm bool) {
	if c.metrics != nil {
		c.metrics.RecordEnrichment(llm)
	}
}
