// Package enrichment turns raw article text into structured incident
// intelligence: severity, tactical summary, tags, entities, and a best
// effort location. Enrichment failures never block ingestion; callers
// fall back to a deterministic minimal record.
package enrichment

import (
	"context"
	"unicode/utf8"

	"github.com/crimewatch/ingest/internal/domain"
)

// FallbackModel marks incidents that were not LLM-enriched.
const FallbackModel = "none"

// maxFallbackSummary bounds the summary built from the raw body.
const maxFallbackSummary = 200

// Enricher produces an enrichment record for one article.
type Enricher interface {
	Enrich(ctx context.Context, article *domain.Article, source *domain.Source) (*domain.EnrichedIncident, error)
}

// Fallback builds the minimal valid enrichment used when the LLM is
// disabled or fails. It is deterministic so repeated runs are stable.
func Fallback(article *domain.Article, promptVersion string) *domain.EnrichedIncident {
	summary := article.Body
	if summary == "" {
		summary = article.Title
	}
	if summary == "" {
		summary = "Article requires manual review"
	}
	summary = truncate(summary, maxFallbackSummary)

	return &domain.EnrichedIncident{
		ID:            article.ID,
		Severity:      domain.SeverityMedium,
		Summary:       summary,
		Tags:          domain.StringArray{},
		Entities:      domain.EntityList{},
		LLMModel:      FallbackModel,
		PromptVersion: promptVersion,
	}
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
