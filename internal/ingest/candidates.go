package ingest

import (
	"net/url"
	"strings"

	"github.com/crimewatch/ingest/internal/domain"
)

const (
	// MinTitleLength filters out nav links masquerading as articles.
	MinTitleLength = 10

	// DefaultMaxCandidates caps how many listing entries a single pass
	// will follow into detail pages.
	DefaultMaxCandidates = 20
)

// navTitleWords appear in utility links that never point at a news
// release. Titles containing any of them are dropped.
var navTitleWords = []string{
	"home",
	"about",
	"contact",
	"menu",
	"search",
}

// resolveCandidateURL resolves href against pageURL and verifies the
// result is an absolute http(s) URL. Returns "" for anything else,
// including tel:, mailto:, javascript:, and fragment links.
func resolveCandidateURL(pageURL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	return resolved.String()
}

// isDeniedTitle checks a title against the source denylist plus the
// built-in nav words. Matching is case-insensitive substring.
func isDeniedTitle(title string, source *domain.Source) bool {
	lowered := strings.ToLower(strings.TrimSpace(title))
	if lowered == "" {
		return true
	}

	for _, word := range navTitleWords {
		if strings.Contains(lowered, word) {
			return true
		}
	}

	for _, entry := range source.Denylist {
		if entry != "" && strings.Contains(lowered, strings.ToLower(entry)) {
			return true
		}
	}

	return false
}

// dedupeCandidates drops repeat URLs, keeping the first occurrence.
func dedupeCandidates(candidates []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	unique := make([]Candidate, 0, len(candidates))

	for _, c := range candidates {
		if _, ok := seen[c.URL]; ok {
			continue
		}
		seen[c.URL] = struct{}{}
		unique = append(unique, c)
	}

	return unique
}

// capCandidates trims the list to the source's per-pass limit.
func capCandidates(candidates []Candidate, source *domain.Source) []Candidate {
	limit := source.MaxArticles
	if limit <= 0 {
		limit = DefaultMaxCandidates
	}

	if len(candidates) > limit {
		return candidates[:limit]
	}

	return candidates
}
