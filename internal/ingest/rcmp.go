package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/crimewatch/ingest/internal/dates"
	"github.com/crimewatch/ingest/internal/domain"
)

// rcmpMinTitleLength is stricter than the shared floor. RCMP listing
// pages are dense with short utility links.
const rcmpMinTitleLength = 15

// rcmpDatePattern matches "December 5, 2025" style dates in card text.
var rcmpDatePattern = regexp.MustCompile(
	`(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}`,
)

// RCMPStrategy lists news releases from RCMP detachment newsroom pages.
// Real articles live under /news/ paths with a numeric fragment; the
// rest of the page is navigation.
type RCMPStrategy struct{}

// NewRCMPStrategy creates an RCMP newsroom listing strategy.
func NewRCMPStrategy() *RCMPStrategy {
	return &RCMPStrategy{}
}

// Topology implements ListingStrategy.
func (s *RCMPStrategy) Topology() string {
	return domain.TopologyRCMPNewsroom
}

// ListCandidates implements ListingStrategy.
func (s *RCMPStrategy) ListCandidates(document, pageURL string, source *domain.Source) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}

	candidates := s.fromNewsCards(doc, pageURL, source)
	if len(candidates) == 0 {
		candidates = s.fromGenericLinks(doc, pageURL, source)
	}

	return dedupeCandidates(candidates), nil
}

// fromNewsCards scans card and list structures whose class names hint
// at news content.
func (s *RCMPStrategy) fromNewsCards(doc *goquery.Document, pageURL string, source *domain.Source) []Candidate {
	var candidates []Candidate
	listingNorm := strings.TrimRight(pageURL, "/")

	doc.Find("article, li, div").Each(func(_ int, card *goquery.Selection) {
		class := strings.ToLower(card.AttrOr("class", ""))
		if !strings.Contains(class, "news") &&
			!strings.Contains(class, "article") &&
			!strings.Contains(class, "item") {
			return
		}

		link := card.Find("a[href]").First()
		if link.Length() == 0 {
			return
		}

		href := link.AttrOr("href", "")
		title := strings.TrimSpace(link.Text())

		// Short link text usually means an image or icon link; the real
		// title sits in a nearby heading.
		if len(title) < 20 {
			if heading := card.Find("h1, h2, h3, h4").First(); heading.Length() > 0 {
				title = strings.TrimSpace(heading.Text())
			}
		}

		fullURL := resolveCandidateURL(pageURL, href)
		if fullURL == "" || strings.TrimRight(fullURL, "/") == listingNorm {
			return
		}
		if !s.acceptTitle(title, source) || !isRCMPArticleHref(fullURL) {
			return
		}

		candidates = append(candidates, Candidate{
			URL:         fullURL,
			Title:       title,
			PublishedAt: s.extractDate(card, source),
		})
	})

	return candidates
}

// fromGenericLinks is the fallback when no card structure matched:
// scan every anchor that looks like an article URL.
func (s *RCMPStrategy) fromGenericLinks(doc *goquery.Document, pageURL string, source *domain.Source) []Candidate {
	var candidates []Candidate
	listingNorm := strings.TrimRight(pageURL, "/")

	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href := link.AttrOr("href", "")
		if !isRCMPArticleHref(href) {
			return
		}

		title := strings.TrimSpace(link.Text())
		if len(title) < 20 {
			if parent := link.Closest("article, div, li"); parent.Length() > 0 {
				if heading := parent.Find("h1, h2, h3, h4").First(); heading.Length() > 0 {
					title = strings.TrimSpace(heading.Text())
				}
			}
		}

		if !s.acceptTitle(title, source) {
			return
		}

		fullURL := resolveCandidateURL(pageURL, href)
		if fullURL == "" || strings.TrimRight(fullURL, "/") == listingNorm {
			return
		}

		candidates = append(candidates, Candidate{URL: fullURL, Title: title})
	})

	return candidates
}

func (s *RCMPStrategy) acceptTitle(title string, source *domain.Source) bool {
	if len(strings.TrimSpace(title)) < rcmpMinTitleLength {
		return false
	}

	return !isDeniedTitle(title, source)
}

// extractDate pulls a publish date from a listing card, preferring a
// <time> element over free-text month patterns.
func (s *RCMPStrategy) extractDate(card *goquery.Selection, source *domain.Source) *time.Time {
	var text string

	if timeElem := card.Find("time").First(); timeElem.Length() > 0 {
		text = timeElem.AttrOr("datetime", "")
		if text == "" {
			text = strings.TrimSpace(timeElem.Text())
		}
	} else {
		text = rcmpDatePattern.FindString(card.Text())
	}

	if text == "" {
		return nil
	}

	parsed, ok := dates.ParseInConvention(text, source.DateDayFirst)
	if !ok {
		return nil
	}

	return &parsed
}

// isRCMPArticleHref reports whether an href looks like a real RCMP news
// release: a /news/ path fragment with at least one digit (year or id).
func isRCMPArticleHref(href string) bool {
	if href == "" {
		return false
	}

	path := href
	if idx := strings.Index(path, "://"); idx >= 0 {
		path = path[idx+3:]
	}

	if !strings.Contains(path, "/news/") {
		return false
	}

	return strings.ContainsAny(path, "0123456789")
}
