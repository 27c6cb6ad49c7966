package ingest

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/crimewatch/ingest/internal/dates"
	"github.com/crimewatch/ingest/internal/domain"
)

// abbyPDReleasePath marks real AbbyPD news releases. The listing page
// mixes them with month archive buttons and site navigation.
const abbyPDReleasePath = "/blog/news_releases/"

// AbbyPDStrategy lists releases from the Abbotsford Police Department
// site. Releases live under a fixed blog path; the date usually sits in
// the text surrounding the link.
type AbbyPDStrategy struct{}

// NewAbbyPDStrategy creates an AbbyPD listing strategy.
func NewAbbyPDStrategy() *AbbyPDStrategy {
	return &AbbyPDStrategy{}
}

// Topology implements ListingStrategy.
func (s *AbbyPDStrategy) Topology() string {
	return domain.TopologyAbbyPD
}

// ListCandidates implements ListingStrategy.
func (s *AbbyPDStrategy) ListCandidates(document, pageURL string, source *domain.Source) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}

	var candidates []Candidate

	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		title := strings.TrimSpace(link.Text())
		if len(title) < MinTitleLength || isDeniedTitle(title, source) {
			return
		}

		fullURL := resolveCandidateURL(pageURL, link.AttrOr("href", ""))
		if fullURL == "" || !isAbbyPDReleaseURL(fullURL) {
			return
		}

		candidates = append(candidates, Candidate{
			URL:         fullURL,
			Title:       title,
			PublishedAt: s.extractDate(link, source),
		})
	})

	return dedupeCandidates(candidates), nil
}

// extractDate scans the text of the link's enclosing card for a date.
// AbbyPD shows the release date above the title, ordinal suffix and all.
func (s *AbbyPDStrategy) extractDate(link *goquery.Selection, source *domain.Source) *time.Time {
	parent := link.Closest("div, li, article")
	if parent.Length() == 0 {
		return nil
	}

	parsed, ok := dates.ParseInConvention(parent.Text(), source.DateDayFirst)
	if !ok {
		return nil
	}

	return &parsed
}

// isAbbyPDReleaseURL reports whether a URL path points at an actual
// news release rather than an archive or nav page.
func isAbbyPDReleaseURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return strings.Contains(strings.ToLower(parsed.Path), abbyPDReleasePath)
}
