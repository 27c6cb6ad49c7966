package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crimewatch/ingest/internal/domain"
)

func TestResolveCandidateURL(t *testing.T) {
	tests := []struct {
		name    string
		pageURL string
		href    string
		want    string
	}{
		{
			name:    "absolute url passes through",
			pageURL: "https://example.com/news",
			href:    "https://example.com/news/2025/release-1",
			want:    "https://example.com/news/2025/release-1",
		},
		{
			name:    "relative path resolves against page",
			pageURL: "https://example.com/news/",
			href:    "2025/release-1",
			want:    "https://example.com/news/2025/release-1",
		},
		{
			name:    "rooted path resolves against host",
			pageURL: "https://example.com/news/archive",
			href:    "/news/2025/release-1",
			want:    "https://example.com/news/2025/release-1",
		},
		{
			name:    "tel link rejected",
			pageURL: "https://example.com/news",
			href:    "tel:+16045551234",
			want:    "",
		},
		{
			name:    "mailto link rejected",
			pageURL: "https://example.com/news",
			href:    "mailto:tips@example.com",
			want:    "",
		},
		{
			name:    "javascript link rejected",
			pageURL: "https://example.com/news",
			href:    "javascript:void(0)",
			want:    "",
		},
		{
			name:    "fragment rejected",
			pageURL: "https://example.com/news",
			href:    "#main-content",
			want:    "",
		},
		{
			name:    "empty href rejected",
			pageURL: "https://example.com/news",
			href:    "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveCandidateURL(tt.pageURL, tt.href))
		})
	}
}

func TestIsDeniedTitle(t *testing.T) {
	source := &domain.Source{
		Denylist: domain.StringArray{"Newsroom archive", "Social media"},
	}

	tests := []struct {
		title string
		want  bool
	}{
		{"Langley RCMP investigating pedestrian collision", false},
		{"Home", true},
		{"Contact Us", true},
		{"Newsroom Archive", true},
		{"Follow us on social media", true},
		{"", true},
		{"   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, isDeniedTitle(tt.title, source))
		})
	}
}

func TestDedupeCandidates(t *testing.T) {
	candidates := []Candidate{
		{URL: "https://example.com/a", Title: "first occurrence"},
		{URL: "https://example.com/b", Title: "other"},
		{URL: "https://example.com/a", Title: "repeat"},
	}

	unique := dedupeCandidates(candidates)

	assert.Len(t, unique, 2)
	assert.Equal(t, "first occurrence", unique[0].Title)
	assert.Equal(t, "https://example.com/b", unique[1].URL)
}

func TestCapCandidates(t *testing.T) {
	candidates := make([]Candidate, 30)

	capped := capCandidates(candidates, &domain.Source{MaxArticles: 5})
	assert.Len(t, capped, 5)

	// Zero falls back to the default limit.
	capped = capCandidates(candidates, &domain.Source{})
	assert.Len(t, capped, DefaultMaxCandidates)
}
