package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crimewatch/ingest/internal/config"
	"github.com/crimewatch/ingest/internal/domain"
	"github.com/crimewatch/ingest/internal/logger"
)

// ArticleStore is the persistence surface the orchestrator needs.
type ArticleStore interface {
	Exists(ctx context.Context, sourceID int64, fingerprint string) (bool, error)
	Insert(ctx context.Context, article *domain.Article) error
	LatestPublishedAt(ctx context.Context, sourceID int64) (*time.Time, error)
}

// Orchestrator runs a full ingestion pass for one source: list
// candidates, filter out old and known articles, fetch the rest, and
// persist what survives body extraction.
type Orchestrator struct {
	registry *Registry
	fetcher  *Fetcher
	store    ArticleStore
	cfg      config.IngestionConfig
	logger   logger.Logger
}

// NewOrchestrator creates an ingestion orchestrator.
func NewOrchestrator(
	registry *Registry,
	fetcher *Fetcher,
	store ArticleStore,
	cfg config.IngestionConfig,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		fetcher:  fetcher,
		store:    store,
		cfg:      cfg,
		logger:   log,
	}
}

// IngestSource runs one ingestion pass and returns the articles it
// inserted. When the per-source deadline expires partway through, the
// articles persisted so far are returned alongside the error.
func (o *Orchestrator) IngestSource(ctx context.Context, source *domain.Source) ([]*domain.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.SourceTimeout)
	defer cancel()

	since, err := o.store.LatestPublishedAt(ctx, source.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ingestion watermark: %w", err)
	}

	if o.cfg.ReplayFixture != "" && source.Topology == domain.TopologyRCMPNewsroom {
		return o.ingestFromReplay(ctx, source, since)
	}

	candidates, err := o.listCandidates(ctx, source)
	if err != nil {
		return nil, err
	}

	o.logger.Info("listed article candidates",
		logger.String("agency", source.AgencyName),
		logger.Int("count", len(candidates)),
	)

	var inserted []*domain.Article

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return inserted, fmt.Errorf("source deadline expired after %d articles: %w", len(inserted), ctx.Err())
		}

		if skipCandidate(candidate, since) {
			continue
		}

		article, err := o.fetchNew(ctx, source, candidate)
		if err != nil {
			o.logger.Warn("failed to fetch article",
				logger.String("url", candidate.URL),
				logger.Error(err),
			)
			continue
		}
		if article == nil {
			continue
		}

		if err := o.store.Insert(ctx, article); err != nil {
			o.logger.Warn("failed to persist article",
				logger.String("url", article.URL),
				logger.Error(err),
			)
			continue
		}

		inserted = append(inserted, article)
	}

	return inserted, nil
}

// listCandidates fetches the listing page and runs the source's
// topology strategy over it.
func (o *Orchestrator) listCandidates(ctx context.Context, source *domain.Source) ([]Candidate, error) {
	strategy, err := o.registry.Lookup(source.Topology)
	if err != nil {
		return nil, err
	}

	document, err := o.fetcher.FetchPage(ctx, source, source.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing page: %w", err)
	}

	candidates, err := strategy.ListCandidates(document, source.BaseURL, source)
	if err != nil {
		return nil, err
	}

	return capCandidates(candidates, source), nil
}

// fetchNew fetches a candidate's detail page unless its fingerprint is
// already stored. Returns (nil, nil) for known or thin articles.
func (o *Orchestrator) fetchNew(ctx context.Context, source *domain.Source, candidate Candidate) (*domain.Article, error) {
	fingerprint := domain.NewFingerprint(candidate.URL, candidate.Title)

	exists, err := o.store.Exists(ctx, source.ID, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	if exists {
		return nil, nil
	}

	return o.fetcher.FetchArticle(ctx, source, candidate)
}

// ingestFromReplay persists articles from a captured fixture instead of
// the live site. Filtering matches the live path so replay runs are
// faithful.
func (o *Orchestrator) ingestFromReplay(ctx context.Context, source *domain.Source, since *time.Time) ([]*domain.Article, error) {
	entries, err := LoadReplayFixture(o.cfg.ReplayFixture)
	if err != nil {
		return nil, err
	}

	entries = capReplayEntries(entries, source)

	var inserted []*domain.Article

	for _, entry := range entries {
		if skipCandidate(entry.Candidate, since) {
			continue
		}
		if len(entry.Body) < o.cfg.MinBodyLength {
			continue
		}

		fingerprint := domain.NewFingerprint(entry.Candidate.URL, entry.Candidate.Title)

		exists, err := o.store.Exists(ctx, source.ID, fingerprint)
		if err != nil {
			return inserted, fmt.Errorf("failed to check fingerprint: %w", err)
		}
		if exists {
			continue
		}

		article := &domain.Article{
			SourceID:    source.ID,
			Fingerprint: fingerprint,
			URL:         entry.Candidate.URL,
			Title:       entry.Candidate.Title,
			PublishedAt: entry.Candidate.PublishedAt,
			Body:        entry.Body,
		}

		if err := o.store.Insert(ctx, article); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return inserted, err
			}
			o.logger.Warn("failed to persist replay article",
				logger.String("url", article.URL),
				logger.Error(err),
			)
			continue
		}

		inserted = append(inserted, article)
	}

	return inserted, nil
}

// skipCandidate applies the watermark filter: anything published at or
// before the newest stored article is assumed already seen. Undated
// candidates always pass; the fingerprint check catches repeats.
func skipCandidate(candidate Candidate, since *time.Time) bool {
	return since != nil && candidate.PublishedAt != nil && !candidate.PublishedAt.After(*since)
}

func capReplayEntries(entries []ReplayEntry, source *domain.Source) []ReplayEntry {
	limit := source.MaxArticles
	if limit <= 0 {
		limit = DefaultMaxCandidates
	}

	if len(entries) > limit {
		return entries[:limit]
	}

	return entries
}
