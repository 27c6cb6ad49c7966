package enrichment

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimewatch/ingest/internal/domain"
)

func TestFallback(t *testing.T) {
	article := &domain.Article{
		ID:    12,
		Title: "Langley RCMP investigating pedestrian collision",
		Body:  "Langley RCMP are investigating a collision involving a pedestrian near 200 Street.",
	}

	incident := Fallback(article, "v1.0")

	assert.Equal(t, int64(12), incident.ID)
	assert.Equal(t, domain.SeverityMedium, incident.Severity)
	assert.Equal(t, article.Body, incident.Summary)
	assert.Equal(t, FallbackModel, incident.LLMModel)
	assert.Equal(t, "v1.0", incident.PromptVersion)
	assert.NotNil(t, incident.Tags)
	assert.Empty(t, incident.Tags)
	assert.NotNil(t, incident.Entities)
	assert.Empty(t, incident.Entities)
	assert.Nil(t, incident.LocationLabel)
	assert.Nil(t, incident.Lat)
}

func TestFallback_TruncatesLongBodies(t *testing.T) {
	article := &domain.Article{Body: strings.Repeat("x", 400)}

	incident := Fallback(article, "v1.0")
	assert.Len(t, incident.Summary, maxFallbackSummary)
}

func TestFallback_TruncationKeepsRunesWhole(t *testing.T) {
	// Place a multi-byte rune across the cut point.
	body := strings.Repeat("x", maxFallbackSummary-1) + "étranger"

	incident := Fallback(&domain.Article{Body: body}, "v1.0")

	assert.True(t, utf8.ValidString(incident.Summary))
	assert.LessOrEqual(t, len(incident.Summary), maxFallbackSummary)
	assert.Equal(t, strings.Repeat("x", maxFallbackSummary-1), incident.Summary)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"under limit", "short", 10, "short"},
		{"exact limit", "exact", 5, "exact"},
		{"ascii cut", "abcdef", 3, "abc"},
		{"rune spans cut", "abé", 3, "ab"},
		{"emoji spans cut", "a\U0001f693bc", 3, "a"},
		{"zero limit", "abc", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestFallback_EmptyArticle(t *testing.T) {
	incident := Fallback(&domain.Article{}, "v1.0")
	assert.Equal(t, "Article requires manual review", incident.Summary)

	titled := Fallback(&domain.Article{Title: "Weapons seizure downtown"}, "v1.0")
	assert.Equal(t, "Weapons seizure downtown", titled.Summary)
}

func TestParsePayload(t *testing.T) {
	raw := `{
		"severity": "HIGH",
		"summary_tactical": "Armed robbery at commercial premises, suspects fled",
		"tags": ["Armed Assault"],
		"entities": [{"type": "Location", "name": "Industrial Ave, Langley"}],
		"location_label": "Langley, BC",
		"lat": 49.1042,
		"lng": -122.6604,
		"graph_cluster_key": null
	}`

	payload, err := parsePayload(raw)
	require.NoError(t, err)

	assert.Equal(t, domain.SeverityHigh, payload.Severity)
	assert.Equal(t, []string{"Armed Assault"}, payload.Tags)
	require.Len(t, payload.Entities, 1)
	assert.Equal(t, "Location", payload.Entities[0].Type)
	require.NotNil(t, payload.Lat)
	assert.InDelta(t, 49.1042, *payload.Lat, 0.0001)
	assert.Nil(t, payload.ClusterKey)
}

func TestParsePayload_StripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"severity\": \"LOW\", \"summary_tactical\": \"Minor theft reported\", \"tags\": [], \"entities\": []}\n```"

	payload, err := parsePayload(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityLow, payload.Severity)
}

func TestParsePayload_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "the release describes a robbery"},
		{"missing summary", `{"severity": "HIGH", "tags": [], "entities": []}`},
		{"unknown severity", `{"severity": "EXTREME", "summary_tactical": "x", "tags": [], "entities": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parsePayload(tt.raw)
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestParsePayload_DefaultsNilCollections(t *testing.T) {
	payload, err := parsePayload(`{"severity": "MEDIUM", "summary_tactical": "Weapons seizure downtown"}`)
	require.NoError(t, err)
	assert.NotNil(t, payload.Tags)
	assert.NotNil(t, payload.Entities)
}

func TestBuildPrompt_TruncatesBody(t *testing.T) {
	article := &domain.Article{
		Title: "Major drug bust",
		Body:  strings.Repeat("b", maxPromptBody+500),
	}
	source := &domain.Source{AgencyName: "Langley RCMP", RegionLabel: "fraser_valley"}

	prompt := buildPrompt(article, source)

	assert.Contains(t, prompt, "Langley RCMP")
	assert.Contains(t, prompt, "Published: Unknown")
	assert.NotContains(t, prompt, strings.Repeat("b", maxPromptBody+1))
}
