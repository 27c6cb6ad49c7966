package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/crimewatch/ingest/internal/dates"
	"github.com/crimewatch/ingest/internal/domain"
)

// WordPressStrategy lists releases from WordPress-based newsrooms.
// Modern themes wrap each post in an <article> tag; older ones fall
// back to post/article/news class names.
type WordPressStrategy struct{}

// NewWordPressStrategy creates a WordPress listing strategy.
func NewWordPressStrategy() *WordPressStrategy {
	return &WordPressStrategy{}
}

// Topology implements ListingStrategy.
func (s *WordPressStrategy) Topology() string {
	return domain.TopologyWordPress
}

// ListCandidates implements ListingStrategy.
func (s *WordPressStrategy) ListCandidates(document, pageURL string, source *domain.Source) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}

	cards := doc.Find("article")
	if cards.Length() == 0 {
		cards = doc.Find("div, li").FilterFunction(func(_ int, sel *goquery.Selection) bool {
			class := strings.ToLower(sel.AttrOr("class", ""))
			return strings.Contains(class, "post") ||
				strings.Contains(class, "article") ||
				strings.Contains(class, "news")
		})
	}

	var candidates []Candidate

	cards.Each(func(_ int, card *goquery.Selection) {
		link := card.Find("a[href]").First()
		if link.Length() == 0 {
			link = card.Find("h2 a[href], h3 a[href], h4 a[href]").First()
		}
		if link.Length() == 0 {
			return
		}

		title := strings.TrimSpace(link.Text())
		if len(title) < MinTitleLength || isDeniedTitle(title, source) {
			return
		}

		fullURL := resolveCandidateURL(pageURL, link.AttrOr("href", ""))
		if fullURL == "" {
			return
		}

		candidates = append(candidates, Candidate{
			URL:         fullURL,
			Title:       title,
			PublishedAt: s.extractDate(card, source),
		})
	})

	return dedupeCandidates(candidates), nil
}

// extractDate reads the WordPress <time datetime> attribute, falling
// back to any element with a date class.
func (s *WordPressStrategy) extractDate(card *goquery.Selection, source *domain.Source) *time.Time {
	if timeElem := card.Find("time[datetime]").First(); timeElem.Length() > 0 {
		if parsed, ok := dates.ParseInConvention(timeElem.AttrOr("datetime", ""), source.DateDayFirst); ok {
			return &parsed
		}
	}

	dateElem := card.Find("*").FilterFunction(func(_ int, sel *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(sel.AttrOr("class", "")), "date")
	}).First()
	if dateElem.Length() > 0 {
		if parsed, ok := dates.ParseInConvention(strings.TrimSpace(dateElem.Text()), source.DateDayFirst); ok {
			return &parsed
		}
	}

	return nil
}
