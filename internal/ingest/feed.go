package ingest

import (
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/crimewatch/ingest/internal/dates"
	"github.com/crimewatch/ingest/internal/domain"
)

// FeedStrategy lists releases from RSS and Atom feeds. Agencies that
// publish a feed get exact publish timestamps for free.
type FeedStrategy struct {
	parser *gofeed.Parser
}

// NewFeedStrategy creates an RSS/Atom listing strategy.
func NewFeedStrategy() *FeedStrategy {
	return &FeedStrategy{parser: gofeed.NewParser()}
}

// Topology implements ListingStrategy.
func (s *FeedStrategy) Topology() string {
	return domain.TopologyRSSFeed
}

// ListCandidates implements ListingStrategy. The document is the raw
// feed XML rather than HTML.
func (s *FeedStrategy) ListCandidates(document, pageURL string, source *domain.Source) ([]Candidate, error) {
	feed, err := s.parser.ParseString(document)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	candidates := make([]Candidate, 0, len(feed.Items))

	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if len(title) < MinTitleLength || isDeniedTitle(title, source) {
			continue
		}

		fullURL := resolveCandidateURL(pageURL, item.Link)
		if fullURL == "" {
			continue
		}

		candidate := Candidate{URL: fullURL, Title: title}

		switch {
		case item.PublishedParsed != nil:
			t := *item.PublishedParsed
			candidate.PublishedAt = &t
		case item.Published != "":
			if parsed, ok := dates.ParseInConvention(item.Published, source.DateDayFirst); ok {
				candidate.PublishedAt = &parsed
			}
		}

		candidates = append(candidates, candidate)
	}

	return dedupeCandidates(candidates), nil
}
