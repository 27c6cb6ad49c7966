package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/crimewatch/ingest/internal/dates"
	"github.com/crimewatch/ingest/internal/domain"
)

// MunicipalListStrategy lists releases from municipal police newsrooms
// with card or list layouts. These sites vary the most, so the element
// scan is loose and relies on the title filters to cut noise.
type MunicipalListStrategy struct{}

// NewMunicipalListStrategy creates a municipal list strategy.
func NewMunicipalListStrategy() *MunicipalListStrategy {
	return &MunicipalListStrategy{}
}

// Topology implements ListingStrategy.
func (s *MunicipalListStrategy) Topology() string {
	return domain.TopologyMunicipalList
}

// ListCandidates implements ListingStrategy.
func (s *MunicipalListStrategy) ListCandidates(document, pageURL string, source *domain.Source) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}

	cards := doc.Find("div, article, li").FilterFunction(func(_ int, sel *goquery.Selection) bool {
		class := strings.ToLower(sel.AttrOr("class", ""))
		return strings.Contains(class, "card") ||
			strings.Contains(class, "news") ||
			strings.Contains(class, "release") ||
			strings.Contains(class, "item")
	})
	if cards.Length() == 0 {
		// No recognizable card structure; scan rows and list items.
		cards = doc.Find("tr, li")
	}

	var candidates []Candidate

	cards.Each(func(_ int, card *goquery.Selection) {
		link := card.Find("a[href]").First()
		if link.Length() == 0 {
			link = card.Find("h2 a[href], h3 a[href], h4 a[href], h5 a[href]").First()
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

// extractDate tries a date-classed element, then <time>, then a date
// pattern anywhere in the card text.
func (s *MunicipalListStrategy) extractDate(card *goquery.Selection, source *domain.Source) *time.Time {
	dateElem := card.Find("*").FilterFunction(func(_ int, sel *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(sel.AttrOr("class", "")), "date")
	}).First()
	if dateElem.Length() > 0 {
		if parsed, ok := dates.ParseInConvention(strings.TrimSpace(dateElem.Text()), source.DateDayFirst); ok {
			return &parsed
		}
	}

	if timeElem := card.Find("time").First(); timeElem.Length() > 0 {
		text := timeElem.AttrOr("datetime", "")
		if text == "" {
			text = strings.TrimSpace(timeElem.Text())
		}
		if parsed, ok := dates.ParseInConvention(text, source.DateDayFirst); ok {
			return &parsed
		}
	}

	if parsed, ok := dates.ParseInConvention(card.Text(), source.DateDayFirst); ok {
		return &parsed
	}

	return nil
}
